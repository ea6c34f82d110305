package constant

// Conversation kinds
const (
	ConversationTypeDirect = 1 // One-to-one chat
	ConversationTypeGroup  = 2 // Group chat
)

// Message types
const (
	MsgTypeUser   = 1
	MsgTypeSystem = 2
)

// SystemSenderId is the sender of membership and lifecycle notices
const SystemSenderId = "system"

// DeletedMessageText replaces the body of a deleted message
const DeletedMessageText = "This message was deleted"

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

// Group limits
const (
	MaxGroupMembers           = 100
	MaxGroupNameLength        = 50
	MaxGroupDescriptionLength = 500
)

// MaxPinnedMessages caps the pinned banner of a conversation view
const MaxPinnedMessages = 3

// Attachment limits
const (
	MaxAttachmentSize     = 10 << 20 // 10 MiB
	MaxAttachmentsPerSend = 10
)

// AllowedAttachmentTypes lists the accepted attachment content types
var AllowedAttachmentTypes = map[string]bool{
	"image/jpeg":         true,
	"image/png":          true,
	"image/gif":          true,
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// MaxAvatarSize caps profile and group photos
const MaxAvatarSize = 5 << 20 // 5 MiB

// AllowedAvatarTypes lists the accepted photo content types
var AllowedAvatarTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Reactions is the palette offered to clients. Any non-empty symbol is accepted.
var Reactions = []string{"👍", "❤️", "😊", "😮", "😢", "🙏", "👏", "🎉"}

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

// Conversation Id prefixes
const (
	SingleConversationPrefix = "si_"
	GroupConversationPrefix  = "sg_"
)

// Redis key patterns (without prefix, use RedisKey() to get full key)
const (
	redisKeyToken           = "token:"           // token:{user_id}:{platform_id}
	redisKeyOnline          = "online:%s"        // online:{user_id}
	redisKeyGroupMembers    = "group:members:%s" // group:members:{group_id}
	redisKeySeqConversation = "seq:conv:%s"      // seq:conv:{conversation_id}
	redisKeyFeed            = "feed:conv:%s"     // feed:conv:{conversation_id}
)

// redisKeyPrefix is the global prefix for all Redis keys
var redisKeyPrefix = "chatsync:"

// InitRedisKeyPrefix initializes the Redis key prefix from config
func InitRedisKeyPrefix(prefix string) {
	if prefix != "" {
		redisKeyPrefix = prefix
	}
}

// GetRedisKeyPrefix returns the current Redis key prefix
func GetRedisKeyPrefix() string {
	return redisKeyPrefix
}

// Redis key getters with prefix
func RedisKeyToken() string           { return redisKeyPrefix + redisKeyToken }
func RedisKeyOnline() string          { return redisKeyPrefix + redisKeyOnline }
func RedisKeyGroupMembers() string    { return redisKeyPrefix + redisKeyGroupMembers }
func RedisKeySeqConversation() string { return redisKeyPrefix + redisKeySeqConversation }
func RedisKeyFeed() string            { return redisKeyPrefix + redisKeyFeed }
