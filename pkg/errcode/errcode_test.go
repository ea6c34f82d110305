package errcode

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByCode(t *testing.T) {
	wrapped := ErrSendFailed.Wrap(errors.New("deadlock"))

	assert.True(t, errors.Is(wrapped, ErrSendFailed))
	assert.False(t, errors.Is(wrapped, ErrLastAdmin))
	assert.Contains(t, wrapped.Msg, "deadlock")

	chained := fmt.Errorf("send: %w", wrapped)
	assert.ErrorIs(t, chained, ErrSendFailed)
}

func TestWrap_NilKeepsSentinel(t *testing.T) {
	assert.Same(t, ErrNotFound, ErrNotFound.Wrap(nil))
}

func TestFrom(t *testing.T) {
	assert.Nil(t, From(nil))
	assert.Same(t, ErrLastAdmin, From(ErrLastAdmin))
	assert.Same(t, ErrInternalServer, From(errors.New("boom")))
}

func TestFrom_UnwrapsChains(t *testing.T) {
	chained := fmt.Errorf("leave group: %w", ErrLastAdmin)
	assert.Same(t, ErrLastAdmin, From(chained))
}
