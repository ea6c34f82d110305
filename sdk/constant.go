package sdk

import (
	"fmt"
	"sort"
)

// Conversation types
const (
	ConversationTypeDirect = 1
	ConversationTypeGroup  = 2
)

// Message types
const (
	MsgTypeUser   = 1
	MsgTypeSystem = 2
)

// Group member status
const (
	GroupMemberStatusActive  = 0
	GroupMemberStatusLeft    = 1
	GroupMemberStatusRemoved = 2
)

// Group member role levels
const (
	RoleLevelMember = 0
	RoleLevelAdmin  = 1
)

// Online status
const (
	StatusOffline = 0
	StatusOnline  = 1
)

// Platform Ids
const (
	PlatformIdUnknown = 0
	PlatformIdIOS     = 1
	PlatformIdAndroid = 2
	PlatformIdWindows = 3
	PlatformIdMacOS   = 4
	PlatformIdWeb     = 5
)

// PlatformIdToName converts platform Id to name
func PlatformIdToName(platformId int) string {
	switch platformId {
	case PlatformIdIOS:
		return "iOS"
	case PlatformIdAndroid:
		return "Android"
	case PlatformIdWindows:
		return "Windows"
	case PlatformIdMacOS:
		return "macOS"
	case PlatformIdWeb:
		return "Web"
	default:
		return "Unknown"
	}
}

// DirectConversationId returns the id of the direct conversation between two users
func DirectConversationId(userA, userB string) string {
	ids := []string{userA, userB}
	sort.Strings(ids)
	return fmt.Sprintf("si_%s:%s", ids[0], ids[1])
}

// GroupConversationId returns the conversation id of a group
func GroupConversationId(groupId string) string {
	return "sg_" + groupId
}
