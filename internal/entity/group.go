package entity

import "github.com/mbeoliero/chatsync/pkg/constant"

// Group represents a group
type Group struct {
	Id            string `json:"id" gorm:"column:id;primaryKey"`
	Name          string `json:"name" gorm:"column:name"`
	Description   string `json:"description" gorm:"column:description"`
	PhotoURL      string `json:"photo_url" gorm:"column:photo_url"`
	CreatorUserId string `json:"creator_user_id" gorm:"column:creator_user_id"`
	CreatedAt     int64  `json:"created_at" gorm:"column:created_at;autoCreateTime:milli"`
	UpdatedAt     int64  `json:"updated_at" gorm:"column:updated_at;autoUpdateTime:milli"`
}

// TableName returns the table name for Group
func (Group) TableName() string {
	return "groups"
}

// GroupMember is a membership record. Display name and photo are copied from the user at join time.
type GroupMember struct {
	Id            int64  `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	GroupId       string `json:"group_id" gorm:"column:group_id;uniqueIndex:uk_group_user"`
	UserId        string `json:"user_id" gorm:"column:user_id;uniqueIndex:uk_group_user"`
	DisplayName   string `json:"display_name" gorm:"column:display_name"`
	PhotoURL      string `json:"photo_url" gorm:"column:photo_url"`
	RoleLevel     int32  `json:"role_level" gorm:"column:role_level"`
	Status        int32  `json:"status" gorm:"column:status"`
	JoinedAt      int64  `json:"joined_at" gorm:"column:joined_at"`
	InviterUserId string `json:"inviter_user_id" gorm:"column:inviter_user_id"`
	CreatedAt     int64  `json:"created_at" gorm:"column:created_at;autoCreateTime:milli"`
	UpdatedAt     int64  `json:"updated_at" gorm:"column:updated_at;autoUpdateTime:milli"`
}

// TableName returns the table name for GroupMember
func (GroupMember) TableName() string {
	return "group_members"
}

// IsActive checks if member status is active
func (gm *GroupMember) IsActive() bool {
	return gm.Status == constant.GroupMemberStatusActive
}

// IsAdmin checks if member has the admin role
func (gm *GroupMember) IsAdmin() bool {
	return gm.RoleLevel >= constant.RoleLevelAdmin
}

// GroupInfo represents group info with member count
type GroupInfo struct {
	Id            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	PhotoURL      string `json:"photo_url"`
	CreatorUserId string `json:"creator_user_id"`
	MemberCount   int    `json:"member_count"`
	CreatedAt     int64  `json:"created_at"`
}

// ToGroupInfo converts Group to GroupInfo
func (g *Group) ToGroupInfo(memberCount int) *GroupInfo {
	return &GroupInfo{
		Id:            g.Id,
		Name:          g.Name,
		Description:   g.Description,
		PhotoURL:      g.PhotoURL,
		CreatorUserId: g.CreatorUserId,
		MemberCount:   memberCount,
		CreatedAt:     g.CreatedAt,
	}
}
