package convsync

import (
	"github.com/mbeoliero/chatsync/internal/entity"
	"github.com/mbeoliero/chatsync/pkg/constant"
	"github.com/mbeoliero/chatsync/pkg/errcode"
)

// Every membership-mutating operation goes through the checks below, both in the engine before any write
// and in the store on the locked member rows.

func findMember(members []*entity.GroupMember, userId string) *entity.GroupMember {
	for _, m := range members {
		if m.UserId == userId {
			return m
		}
	}
	return nil
}

func activeAdmins(members []*entity.GroupMember) []*entity.GroupMember {
	var admins []*entity.GroupMember
	for _, m := range members {
		if m.IsActive() && m.IsAdmin() {
			admins = append(admins, m)
		}
	}
	return admins
}

func activeCount(members []*entity.GroupMember) int {
	n := 0
	for _, m := range members {
		if m.IsActive() {
			n++
		}
	}
	return n
}

// requireActive checks that userId is an active member
func requireActive(members []*entity.GroupMember, userId string) (*entity.GroupMember, error) {
	m := findMember(members, userId)
	if m == nil {
		return nil, errcode.ErrNotGroupMember
	}
	if !m.IsActive() {
		return nil, errcode.ErrMemberNotActive
	}
	return m, nil
}

// requireAdmin checks that userId is an active admin
func requireAdmin(members []*entity.GroupMember, userId string) error {
	m, err := requireActive(members, userId)
	if err != nil {
		return err
	}
	if !m.IsAdmin() {
		return errcode.ErrNotGroupAdmin
	}
	return nil
}

// canDepart checks that userId may stop being active without leaving the group adminless
func canDepart(members []*entity.GroupMember, userId string) error {
	m, err := requireActive(members, userId)
	if err != nil {
		return err
	}
	if m.IsAdmin() && len(activeAdmins(members)) <= 1 {
		return errcode.ErrLastAdmin
	}
	return nil
}

// CanLeave reports whether userId may leave the group
func CanLeave(userId string, members []*entity.GroupMember) error {
	return canDepart(members, userId)
}

// CanRemove reports whether actorId may remove targetId from the group
func CanRemove(actorId, targetId string, members []*entity.GroupMember) error {
	if actorId == targetId {
		return errcode.ErrCannotRemoveSelf
	}
	if err := requireAdmin(members, actorId); err != nil {
		return err
	}
	return canDepart(members, targetId)
}

// CanAdd reports whether actorId may add userIds and returns the ids that will actually be added.
// Users holding a membership record in any status are skipped, there is no re-activation.
func CanAdd(actorId string, userIds []string, members []*entity.GroupMember) ([]string, error) {
	if err := requireAdmin(members, actorId); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(userIds))
	var toAdd []string
	for _, id := range userIds {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if findMember(members, id) != nil {
			continue
		}
		toAdd = append(toAdd, id)
	}

	if len(toAdd) == 0 {
		return nil, errcode.ErrNoMembersToAdd
	}
	if activeCount(members)+len(toAdd) > constant.MaxGroupMembers {
		return nil, errcode.ErrGroupFull
	}
	return toAdd, nil
}

// CanUpdateGroup reports whether actorId may change the group details
func CanUpdateGroup(actorId string, members []*entity.GroupMember) error {
	return requireAdmin(members, actorId)
}

// CanPost reports whether userId may write to the group
func CanPost(userId string, members []*entity.GroupMember) error {
	_, err := requireActive(members, userId)
	return err
}
