package convsync

import (
	"context"
	"time"

	"github.com/mbeoliero/chatsync/internal/entity"
	"github.com/mbeoliero/kit/log"
)

const defaultReadTimeout = 5 * time.Second

// PendingReads returns the ids of committed messages that viewerId has neither sent nor read
func PendingReads(messages []*entity.Message, viewerId string) []string {
	var ids []string
	for _, m := range messages {
		if m == nil || m.IsPending() {
			continue
		}
		if m.IsUnreadFor(viewerId) {
			ids = append(ids, m.Id)
		}
	}
	return ids
}

// Reconciler marks everything a viewer has observed as read
type Reconciler struct {
	store   DocumentStore
	timeout time.Duration
}

// NewReconciler creates a Reconciler. A zero timeout falls back to five seconds.
func NewReconciler(store DocumentStore, timeout time.Duration) *Reconciler {
	if timeout <= 0 {
		timeout = defaultReadTimeout
	}
	return &Reconciler{store: store, timeout: timeout}
}

// Reconcile writes one batch covering every unread message the viewer has observed and returns how many it
// covered. The batch reaches back past the snapshot window: everything up to the newest committed message of the
// state qualifies. Nothing is written when the state has no unread message. The write outlives the caller's
// cancellation; a failure is logged and left for the next snapshot to retry.
func (r *Reconciler) Reconcile(ctx context.Context, sess Session, state *ViewState) (int, error) {
	if state == nil || (state.UnreadCount == 0 && len(PendingReads(state.Messages, sess.UserId)) == 0) {
		return 0, nil
	}
	upToSeq := state.lastSeq()
	if upToSeq == 0 {
		return 0, nil
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	n, err := r.store.MarkRead(writeCtx, state.ConversationId, sess.UserId, upToSeq)
	if err != nil {
		log.CtxWarn(ctx, "mark read failed: conversation_id=%s, user_id=%s, unread=%d, error=%v",
			state.ConversationId, sess.UserId, state.UnreadCount, err)
		return 0, err
	}

	log.CtxDebug(ctx, "marked read: conversation_id=%s, user_id=%s, count=%d", state.ConversationId, sess.UserId, n)
	return n, nil
}
