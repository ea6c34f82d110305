package convsync

import (
	"testing"

	"github.com/mbeoliero/chatsync/internal/entity"
	"github.com/mbeoliero/chatsync/pkg/constant"
	"github.com/mbeoliero/chatsync/pkg/errcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func admin(userId string) *entity.GroupMember {
	return &entity.GroupMember{UserId: userId, DisplayName: userId, RoleLevel: constant.RoleLevelAdmin}
}

func member(userId string) *entity.GroupMember {
	return &entity.GroupMember{UserId: userId, DisplayName: userId, RoleLevel: constant.RoleLevelMember}
}

func withStatus(m *entity.GroupMember, status int32) *entity.GroupMember {
	m.Status = status
	return m
}

func TestCanLeave(t *testing.T) {
	members := []*entity.GroupMember{admin("A"), member("B"), withStatus(member("C"), constant.GroupMemberStatusLeft)}

	assert.ErrorIs(t, CanLeave("A", members), errcode.ErrLastAdmin)
	assert.NoError(t, CanLeave("B", members))
	assert.ErrorIs(t, CanLeave("C", members), errcode.ErrMemberNotActive)
	assert.ErrorIs(t, CanLeave("Z", members), errcode.ErrNotGroupMember)

	twoAdmins := []*entity.GroupMember{admin("A"), admin("B")}
	assert.NoError(t, CanLeave("A", twoAdmins))
}

func TestCanLeave_InactiveAdminDoesNotCount(t *testing.T) {
	members := []*entity.GroupMember{admin("A"), withStatus(admin("B"), constant.GroupMemberStatusRemoved), member("C")}
	assert.ErrorIs(t, CanLeave("A", members), errcode.ErrLastAdmin)
}

func TestCanRemove(t *testing.T) {
	members := []*entity.GroupMember{
		admin("A"),
		member("B"),
		withStatus(member("C"), constant.GroupMemberStatusRemoved),
	}

	assert.NoError(t, CanRemove("A", "B", members))
	assert.ErrorIs(t, CanRemove("A", "A", members), errcode.ErrCannotRemoveSelf)
	assert.ErrorIs(t, CanRemove("B", "A", members), errcode.ErrNotGroupAdmin)
	assert.ErrorIs(t, CanRemove("A", "C", members), errcode.ErrMemberNotActive)
	assert.ErrorIs(t, CanRemove("A", "Z", members), errcode.ErrNotGroupMember)
	assert.ErrorIs(t, CanRemove("C", "B", members), errcode.ErrMemberNotActive)
}

func TestCanRemove_LastAdminGuard(t *testing.T) {
	// an inactive admin cannot act, so the only active admin can never be removed
	members := []*entity.GroupMember{withStatus(admin("A"), constant.GroupMemberStatusLeft), admin("B")}
	assert.ErrorIs(t, CanRemove("A", "B", members), errcode.ErrMemberNotActive)

	two := []*entity.GroupMember{admin("A"), admin("B")}
	assert.NoError(t, CanRemove("A", "B", two))
}

func TestCanAdd(t *testing.T) {
	members := []*entity.GroupMember{
		admin("A"),
		member("B"),
		withStatus(member("C"), constant.GroupMemberStatusLeft),
	}

	added, err := CanAdd("A", []string{"D", "B", "C", "D", "", "E"}, members)
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "E"}, added, "existing records in any status are skipped")

	_, err = CanAdd("A", []string{"B", "C"}, members)
	assert.ErrorIs(t, err, errcode.ErrNoMembersToAdd)

	_, err = CanAdd("B", []string{"D"}, members)
	assert.ErrorIs(t, err, errcode.ErrNotGroupAdmin)
}

func TestCanAdd_GroupFull(t *testing.T) {
	members := []*entity.GroupMember{admin("A")}
	var userIds []string
	for i := 0; i < constant.MaxGroupMembers; i++ {
		userIds = append(userIds, string(rune(0x4e00+i)))
	}

	_, err := CanAdd("A", userIds, members)
	assert.ErrorIs(t, err, errcode.ErrGroupFull)

	added, err := CanAdd("A", userIds[:constant.MaxGroupMembers-1], members)
	require.NoError(t, err)
	assert.Len(t, added, constant.MaxGroupMembers-1)
}
