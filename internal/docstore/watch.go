package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/mbeoliero/chatsync/internal/convsync"
	"github.com/mbeoliero/chatsync/internal/feed"
	"github.com/mbeoliero/chatsync/pkg/errcode"
	"github.com/mbeoliero/kit/log"
)

const reloadRetryInterval = time.Second

// terminal reports whether a reload error ends the stream instead of being retried
func terminal(err error) bool {
	return errors.Is(err, errcode.ErrConvNotFound) || errors.Is(err, errcode.ErrGroupNotFound)
}

// watch turns change signals into full snapshots. The listener must be registered before the
// initial snapshot is loaded so no change slips in between.
func watch[T any](ctx context.Context, l *feed.Listener, initial T, debounce time.Duration,
	load func(ctx context.Context) (T, error)) *convsync.Latest[T] {

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stream := convsync.NewLatest[T](func() {
		cancel()
		l.Close()
	})
	stream.Push(initial)

	go func() {
		retry := false
		for {
			if !retry {
				select {
				case <-ctx.Done():
					return
				case <-l.C():
				}
			}

			wait := debounce
			if retry {
				wait = reloadRetryInterval
			}
			if wait > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(wait):
				}
			}

			v, err := load(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if terminal(err) {
					stream.Fail(err)
					return
				}
				log.CtxWarn(ctx, "snapshot reload failed, retrying: error=%v", err)
				retry = true
				continue
			}

			retry = false
			if !stream.Push(v) {
				return
			}
		}
	}()

	return stream
}
