package router

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/mbeoliero/chatsync/internal/gateway"
	"github.com/mbeoliero/chatsync/internal/handler"
	"github.com/mbeoliero/chatsync/internal/middleware"
	"github.com/mbeoliero/chatsync/internal/service"
)

// SetupRouter sets up all routes
func SetupRouter(h *server.Hertz, handlers *Handlers, auth middleware.Authenticator, wsServer *gateway.WsServer, allowedOrigins []string) {
	// CORS middleware
	h.Use(middleware.CORS(allowedOrigins))

	// Health check
	h.GET("/health", func(ctx context.Context, c *app.RequestContext) {
		c.JSON(consts.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth routes (no auth required)
	authGroup := h.Group("/auth")
	{
		authGroup.POST("/register", handlers.Auth.Register)
		authGroup.POST("/login", handlers.Auth.Login)
		authGroup.POST("/logout", middleware.JWTAuth(auth), handlers.Auth.Logout)
	}

	userGroup := h.Group("/user", middleware.JWTAuth(auth))
	{
		userGroup.GET("/info", handlers.User.GetUserInfo)
		userGroup.GET("/info/:user_id", handlers.User.GetUserInfoById)
		userGroup.PUT("/update", handlers.User.UpdateUserInfo)
		userGroup.GET("/search", handlers.User.SearchUsers)
		userGroup.GET("/online_status", handlers.User.GetUsersOnlineStatus)
	}

	groupGroup := h.Group("/group", middleware.JWTAuth(auth))
	{
		groupGroup.POST("/create", handlers.Group.CreateGroup)
		groupGroup.GET("/info", handlers.Group.GetGroupInfo)
		groupGroup.PUT("/update", handlers.Group.UpdateGroup)
		groupGroup.POST("/leave", handlers.Group.LeaveGroup)
		groupGroup.POST("/remove_member", handlers.Group.RemoveMember)
		groupGroup.POST("/add_members", handlers.Group.AddMembers)
	}

	msgGroup := h.Group("/msg", middleware.JWTAuth(auth))
	{
		msgGroup.POST("/send", handlers.Message.SendMessage)
		msgGroup.POST("/edit", handlers.Message.EditMessage)
		msgGroup.POST("/delete", handlers.Message.DeleteMessage)
		msgGroup.POST("/react", handlers.Message.React)
		msgGroup.POST("/star", handlers.Message.ToggleStar)
		msgGroup.POST("/pin", handlers.Message.TogglePin)
		msgGroup.GET("/quote", handlers.Message.Quote)
	}

	convGroup := h.Group("/conversation", middleware.JWTAuth(auth))
	{
		convGroup.GET("/list", handlers.Conversation.GetConversationList)
		convGroup.POST("/direct", handlers.Conversation.OpenDirect)
		convGroup.GET("/snapshot", handlers.Conversation.GetSnapshot)
	}

	attachmentGroup := h.Group("/attachment", middleware.JWTAuth(auth))
	{
		attachmentGroup.POST("/upload", handlers.Attachment.Upload)
		attachmentGroup.GET("/download_url", handlers.Attachment.DownloadURL)
		attachmentGroup.POST("/avatar", handlers.Attachment.UploadAvatar)
	}
	// photos are loaded by image tags without a bearer token
	h.GET(service.AvatarPath, handlers.Attachment.Avatar)

	// live views, authenticated by query params before the upgrade
	h.GET("/ws", wsServer.HandleHertzConnection)
}

// Handlers holds all HTTP handlers
type Handlers struct {
	Auth         *handler.AuthHandler
	User         *handler.UserHandler
	Group        *handler.GroupHandler
	Message      *handler.MessageHandler
	Conversation *handler.ConversationHandler
	Attachment   *handler.AttachmentHandler
}
