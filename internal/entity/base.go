package entity

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mbeoliero/chatsync/pkg/constant"
)

// NowUnixMilli returns current unix timestamp in milliseconds
func NowUnixMilli() int64 {
	return time.Now().UnixMilli()
}

// GenSingleConversationId generates conversation Id for a direct chat
// Format: si_{min(userA,userB)}:{max(userA,userB)}
// Uses ":" as separator between userIds to support userIds containing "_"
func GenSingleConversationId(userA, userB string) string {
	users := []string{userA, userB}
	sort.Strings(users)
	return fmt.Sprintf("%s%s:%s", constant.SingleConversationPrefix, users[0], users[1])
}

// ParseSingleConversationId returns the two participants of a direct chat Id in sorted order
func ParseSingleConversationId(conversationId string) (string, string, bool) {
	if !IsSingleConversation(conversationId) {
		return "", "", false
	}
	userA, userB, ok := strings.Cut(conversationId[len(constant.SingleConversationPrefix):], ":")
	if !ok || userA == "" || userB == "" {
		return "", "", false
	}
	return userA, userB, true
}

// GenGroupConversationId generates conversation Id for group chat
// Format: sg_{groupId}
func GenGroupConversationId(groupId string) string {
	return fmt.Sprintf("%s%s", constant.GroupConversationPrefix, groupId)
}

// GroupIdFromConversationId strips the group prefix, returns "" for other Ids
func GroupIdFromConversationId(conversationId string) string {
	if !IsGroupConversation(conversationId) {
		return ""
	}
	return conversationId[len(constant.GroupConversationPrefix):]
}

// IsSingleConversation checks if conversation Id is for a direct chat
func IsSingleConversation(conversationId string) bool {
	return len(conversationId) > 3 && conversationId[:3] == constant.SingleConversationPrefix
}

// IsGroupConversation checks if conversation Id is for group chat
func IsGroupConversation(conversationId string) bool {
	return len(conversationId) > 3 && conversationId[:3] == constant.GroupConversationPrefix
}
