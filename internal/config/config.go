package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	MySQL     MySQLConfig     `mapstructure:"mysql"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Blob      BlobConfig      `mapstructure:"blob"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	HTTPPort       int      `mapstructure:"http_port"`
	Mode           string   `mapstructure:"mode"`
	MachineId      uint16   `mapstructure:"machine_id"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// MySQLConfig holds MySQL configuration
type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	Charset      string `mapstructure:"charset"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
}

// DSN returns the MySQL data source name
func (c *MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.Database, c.Charset)
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// Addr returns the Redis address
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// WebSocketConfig holds WebSocket configuration
type WebSocketConfig struct {
	MaxConnNum        int64         `mapstructure:"max_conn_num"`
	MaxMessageSize    int64         `mapstructure:"max_message_size"`
	WriteWait         time.Duration `mapstructure:"write_wait"`
	PongWait          time.Duration `mapstructure:"pong_wait"`
	PingPeriod        time.Duration `mapstructure:"ping_period"`
	WriteChannelSize  int           `mapstructure:"write_channel_size"`
	MaxViewsPerClient int           `mapstructure:"max_views_per_client"`
}

// FeedConfig holds change feed configuration
type FeedConfig struct {
	// SnapshotLimit caps how many of the latest messages a view snapshot carries
	SnapshotLimit int `mapstructure:"snapshot_limit"`
	// ReloadDebounce coalesces bursts of change notices into one snapshot reload
	ReloadDebounce time.Duration `mapstructure:"reload_debounce"`
}

// BlobConfig holds object storage configuration
type BlobConfig struct {
	Region     string        `mapstructure:"region"`
	Bucket     string        `mapstructure:"bucket"`
	Endpoint   string        `mapstructure:"endpoint"`
	PublicRead bool          `mapstructure:"public_read"`
	PresignTTL time.Duration `mapstructure:"presign_ttl"`
}

// Enabled reports whether an attachment bucket is configured
func (c *BlobConfig) Enabled() bool {
	return c.Bucket != ""
}

// Global config instance
var GlobalConfig *Config

// Load loads configuration from file, environment variables prefixed with CHATSYNC_ override file values
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CHATSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.setDefaults()

	GlobalConfig = &cfg
	return &cfg, nil
}

func (cfg *Config) setDefaults() {
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8080
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}
	if cfg.Server.MachineId == 0 {
		cfg.Server.MachineId = 1
	}
	if cfg.MySQL.Charset == "" {
		cfg.MySQL.Charset = "utf8mb4"
	}
	if cfg.MySQL.MaxOpenConns == 0 {
		cfg.MySQL.MaxOpenConns = 100
	}
	if cfg.MySQL.MaxIdleConns == 0 {
		cfg.MySQL.MaxIdleConns = 10
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "chatsync:"
	}
	if cfg.JWT.ExpireHours == 0 {
		cfg.JWT.ExpireHours = 168 // 7 days
	}
	if cfg.WebSocket.MaxConnNum == 0 {
		cfg.WebSocket.MaxConnNum = 10000
	}
	if cfg.WebSocket.MaxMessageSize == 0 {
		cfg.WebSocket.MaxMessageSize = 51200
	}
	if cfg.WebSocket.WriteWait == 0 {
		cfg.WebSocket.WriteWait = 10 * time.Second
	}
	if cfg.WebSocket.PongWait == 0 {
		cfg.WebSocket.PongWait = 30 * time.Second
	}
	if cfg.WebSocket.PingPeriod == 0 {
		cfg.WebSocket.PingPeriod = 27 * time.Second
	}
	if cfg.WebSocket.WriteChannelSize == 0 {
		cfg.WebSocket.WriteChannelSize = 256
	}
	if cfg.WebSocket.MaxViewsPerClient == 0 {
		cfg.WebSocket.MaxViewsPerClient = 16
	}
	if cfg.Feed.SnapshotLimit == 0 {
		cfg.Feed.SnapshotLimit = 500
	}
	if cfg.Feed.ReloadDebounce == 0 {
		cfg.Feed.ReloadDebounce = 20 * time.Millisecond
	}
	if cfg.Blob.Region == "" {
		cfg.Blob.Region = "us-east-1"
	}
	if cfg.Blob.PresignTTL == 0 {
		cfg.Blob.PresignTTL = 15 * time.Minute
	}
}
