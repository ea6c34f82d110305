package gateway

import "errors"

// Connection level failures. Request failures travel to the client as errcode values in the reply frame.
var (
	ErrConnClosed       = errors.New("gateway: connection closed")
	ErrWriteChannelFull = errors.New("gateway: outbound frame buffer full")
	ErrUserIdMismatch   = errors.New("gateway: send_id differs from the session user")
	ErrPanic            = errors.New("gateway: request handler panicked")
)
