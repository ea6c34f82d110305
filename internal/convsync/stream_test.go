package convsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLatest_KeepsNewestUndelivered(t *testing.T) {
	s := NewLatest[int](nil)
	assert.True(t, s.Push(1))
	assert.True(t, s.Push(2))
	assert.True(t, s.Push(3))

	assert.Equal(t, 3, <-s.Updates())
	select {
	case v := <-s.Updates():
		t.Fatalf("unexpected value %d", v)
	default:
	}
}

func TestLatest_CancelRunsHookOnce(t *testing.T) {
	calls := 0
	s := NewLatest[int](func() { calls++ })

	s.Cancel()
	s.Cancel()
	s.Fail(errBoom)

	assert.Equal(t, 1, calls)
	assert.NoError(t, s.Err())
	assert.False(t, s.Push(1))

	_, ok := <-s.Updates()
	assert.False(t, ok)
}

func TestLatest_FailKeepsLastValue(t *testing.T) {
	s := NewLatest[string](nil)
	s.Push("final")
	s.Fail(errBoom)

	v, ok := <-s.Updates()
	assert.True(t, ok)
	assert.Equal(t, "final", v)

	_, ok = <-s.Updates()
	assert.False(t, ok)
	assert.ErrorIs(t, s.Err(), errBoom)

	<-s.Done()
}
