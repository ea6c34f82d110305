package repository

import (
	"context"
	"time"

	"github.com/mbeoliero/chatsync/internal/config"
	"github.com/mbeoliero/chatsync/internal/entity"
	"github.com/mbeoliero/kit/log"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Repositories holds all repositories
type Repositories struct {
	DB           *gorm.DB
	Redis        *redis.Client
	User         *UserRepo
	Group        *GroupRepo
	Message      *MessageRepo
	Read         *ReadRepo
	Conversation *ConversationRepo
	Seq          *SeqRepo
}

// NewRepositories creates all repositories
func NewRepositories(cfg *config.Config) (*Repositories, error) {
	db, err := initMySQL(cfg)
	if err != nil {
		return nil, err
	}

	return New(db, initRedis(cfg)), nil
}

// New wires repositories over existing connections
func New(db *gorm.DB, rdb *redis.Client) *Repositories {
	return &Repositories{
		DB:           db,
		Redis:        rdb,
		User:         NewUserRepo(db, rdb),
		Group:        NewGroupRepo(db, rdb),
		Message:      NewMessageRepo(db, rdb),
		Read:         NewReadRepo(db, rdb),
		Conversation: NewConversationRepo(db, rdb),
		Seq:          NewSeqRepo(db, rdb),
	}
}

// initMySQL initializes MySQL connection
func initMySQL(cfg *config.Config) (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if cfg.Server.Mode == "debug" {
		logLevel = logger.Info
	} else {
		logLevel = logger.Warn
	}

	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// initRedis initializes Redis connection
func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// AutoMigrate creates or updates all tables
func (r *Repositories) AutoMigrate(ctx context.Context) error {
	return r.DB.WithContext(ctx).AutoMigrate(
		&entity.User{},
		&entity.Group{},
		&entity.GroupMember{},
		&entity.Conversation{},
		&entity.Message{},
		&entity.MessageRead{},
		&entity.SeqConversation{},
	)
}

// Close closes all connections
func (r *Repositories) Close() error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		return err
	}
	return r.Redis.Close()
}

// Transaction executes fn in a transaction
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.DB.WithContext(ctx).Transaction(fn)
}

// CheckConnection checks if database and redis connections are alive
func (r *Repositories) CheckConnection(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		log.CtxError(ctx, "mysql ping failed: %v", err)
		return err
	}

	if err := r.Redis.Ping(ctx).Err(); err != nil {
		log.CtxError(ctx, "redis ping failed: %v", err)
		return err
	}

	return nil
}
