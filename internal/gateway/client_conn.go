package gateway

import "time"

// ClientConn represents a WebSocket connection wrapper
type ClientConn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// ConnOptions tunes a connection's limits and keepalive
type ConnOptions struct {
	MaxMessageSize   int64
	WriteWait        time.Duration
	PongWait         time.Duration
	PingPeriod       time.Duration
	WriteChannelSize int
}
