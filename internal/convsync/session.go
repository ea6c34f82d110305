package convsync

import (
	"github.com/mbeoliero/chatsync/internal/entity"
	"github.com/mbeoliero/chatsync/pkg/errcode"
)

// Session identifies the viewer on whose behalf an engine operation runs
type Session struct {
	UserId      string
	DisplayName string
	PhotoURL    string
	PlatformId  int
}

// NewSession builds a session from the authenticated user record
func NewSession(user *entity.User, platformId int) Session {
	return Session{
		UserId:      user.Id,
		DisplayName: user.Nickname,
		PhotoURL:    user.Avatar,
		PlatformId:  platformId,
	}
}

// Valid rejects anonymous sessions
func (s Session) Valid() error {
	if s.UserId == "" {
		return errcode.ErrUnauthorized
	}
	return nil
}

// name falls back to the user id when no display name is known
func (s Session) name() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.UserId
}
