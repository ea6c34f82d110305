package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/mbeoliero/chatsync/internal/blob"
	"github.com/mbeoliero/chatsync/internal/config"
	"github.com/mbeoliero/chatsync/internal/convsync"
	"github.com/mbeoliero/chatsync/internal/docstore"
	"github.com/mbeoliero/chatsync/internal/feed"
	"github.com/mbeoliero/chatsync/internal/gateway"
	"github.com/mbeoliero/chatsync/internal/handler"
	"github.com/mbeoliero/chatsync/internal/repository"
	"github.com/mbeoliero/chatsync/internal/router"
	"github.com/mbeoliero/chatsync/internal/service"
	"github.com/mbeoliero/chatsync/pkg/constant"
	"github.com/mbeoliero/chatsync/pkg/idgen"
	"github.com/mbeoliero/kit/log"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		log.CtxError(ctx, "failed to load config: %v", err)
		panic(err)
	}

	log.CtxInfo(ctx, "config loaded: mode=%s", cfg.Server.Mode)

	// Initialize Redis key prefix
	constant.InitRedisKeyPrefix(cfg.Redis.KeyPrefix)
	log.CtxInfo(ctx, "redis key prefix: %s", constant.GetRedisKeyPrefix())

	ids, err := idgen.NewSonyflakeGenerator(cfg.Server.MachineId)
	if err != nil {
		log.CtxError(ctx, "failed to initialize id generator: %v", err)
		panic(err)
	}
	idgen.SetDefaultGenerator(ids)

	// Initialize repositories
	repos, err := repository.NewRepositories(cfg)
	if err != nil {
		log.CtxError(ctx, "failed to initialize repositories: %v", err)
		panic(err)
	}
	defer repos.Close()

	// Check database connection
	if err := repos.CheckConnection(ctx); err != nil {
		log.CtxError(ctx, "database connection check failed: %v", err)
		panic(err)
	}
	log.CtxInfo(ctx, "database connection established")

	if cfg.MySQL.AutoMigrate {
		if err := repos.AutoMigrate(ctx); err != nil {
			log.CtxError(ctx, "auto migrate failed: %v", err)
			panic(err)
		}
		log.CtxInfo(ctx, "database schema migrated")
	}

	// Change feed across instances, then the document store and engine on top of it
	hub := feed.NewHub(repos.Redis)
	go hub.Run(ctx)

	store := docstore.New(repos, hub, cfg.Feed)
	engine := convsync.NewEngine(store, convsync.Options{
		SnapshotLimit: cfg.Feed.SnapshotLimit,
		IDs:           ids,
	})

	var blobStore blob.Store
	if cfg.Blob.Enabled() {
		s3Store, err := blob.NewS3Store(ctx, cfg.Blob)
		if err != nil {
			log.CtxError(ctx, "failed to initialize attachment storage: %v", err)
			panic(err)
		}
		blobStore = s3Store
		log.CtxInfo(ctx, "attachment storage enabled: bucket=%s", cfg.Blob.Bucket)
	} else {
		log.CtxWarn(ctx, "attachment storage not configured, uploads disabled")
	}

	// Initialize services
	authService := service.NewAuthService(repos.User, cfg, repos.Redis)
	userService := service.NewUserService(repos.User, repos.Redis)
	groupService := service.NewGroupService(engine)
	msgService := service.NewMessageService(engine)
	convService := service.NewConversationService(repos, engine)
	attachmentService := service.NewAttachmentService(engine, blobStore)

	// Initialize WebSocket server
	wsServer := gateway.NewWsServer(cfg, repos.Redis, engine, authService, msgService)
	wsServer.Run(ctx)

	// Initialize handlers
	handlers := &router.Handlers{
		Auth:         handler.NewAuthHandler(authService),
		User:         handler.NewUserHandler(userService),
		Group:        handler.NewGroupHandler(groupService),
		Message:      handler.NewMessageHandler(msgService),
		Conversation: handler.NewConversationHandler(convService),
		Attachment:   handler.NewAttachmentHandler(attachmentService),
	}

	// Create Hertz server
	h := server.Default(
		server.WithHostPorts(fmt.Sprintf(":%d", cfg.Server.HTTPPort)),
		server.WithMaxRequestBodySize(constant.MaxAttachmentSize*constant.MaxAttachmentsPerSend+1<<20),
	)

	// Setup routes
	router.SetupRouter(h, handlers, authService, wsServer, cfg.Server.AllowedOrigins)

	log.CtxInfo(ctx, "server starting on port %d", cfg.Server.HTTPPort)

	// Start server in goroutine
	go func() {
		h.Spin()
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.CtxInfo(ctx, "shutting down server...")

	// stop the feed, the ws event loop and every open view
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := h.Shutdown(shutdownCtx); err != nil {
		log.CtxError(ctx, "server shutdown error: %v", err)
	}

	log.CtxInfo(ctx, "server stopped")
}
