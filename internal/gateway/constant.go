package gateway

// WebSocket protocol constants
const (
	// Request identifiers
	WSOpenView   = 1001 // Open a live conversation view
	WSCloseView  = 1002 // Close a live conversation view
	WSSendMsg    = 1003 // Send message
	WSEditMsg    = 1004 // Edit own message text
	WSDeleteMsg  = 1005 // Delete own message
	WSReact      = 1006 // Toggle a reaction
	WSToggleStar = 1007 // Toggle starred flag
	WSTogglePin  = 1008 // Toggle pinned flag
	WSFocusView  = 1009 // Client regained focus on an open view

	// Push identifiers
	WSPushViewState  = 2001 // Server push of a view state
	WSKickOnlineMsg  = 2002 // Kick user offline
	WSPushViewClosed = 2003 // View ended, with the reason
	WSDataError      = 3001 // Data error
)

// Query parameter keys
const (
	QueryToken      = "token"
	QuerySendId     = "send_id"
	QueryPlatformId = "platform_id"
	QuerySDKType    = "sdk_type"
)

// SDK types
const (
	SDKTypeGo = "go"
	SDKTypeJS = "js"
)
