package convsync

import (
	"context"
	"errors"
	"sync"

	"github.com/mbeoliero/chatsync/internal/entity"
	"github.com/mbeoliero/chatsync/pkg/errcode"
	"github.com/mbeoliero/kit/log"
)

var errStreamEnded = errors.New("convsync: subscription ended")

// View is a live projection of one conversation for one session.
// It holds one message subscription and one conversation subscription; both are cancelled on every exit path.
// A View is itself a Stream of ViewState: Updates is closed when the view ends and a terminal failure other than
// cancellation is announced with a final state whose Closed flag is set.
type View struct {
	engine         *Engine
	sess           Session
	conversationId string

	messages Stream[[]*entity.Message]
	chat     Stream[entity.Chat]
	out      *Latest[*ViewState]
	focus    chan struct{}

	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.RWMutex
	current *ViewState
	err     error
}

// Open subscribes to a conversation and starts projecting it. The view lives until Close or ctx ends.
// A direct conversation the viewer belongs to is created on first open.
func (e *Engine) Open(ctx context.Context, sess Session, conversationId string) (*View, error) {
	chat, err := e.access(ctx, sess, conversationId, true)
	if err != nil {
		return nil, err
	}
	conversationId = chat.ChatId()

	messages, err := e.store.SubscribeMessages(ctx, conversationId)
	if err != nil {
		return nil, storeError(ctx, "subscribe messages", err, errcode.ErrInternalServer)
	}
	chatStream, err := e.store.SubscribeChat(ctx, conversationId)
	if err != nil {
		messages.Cancel()
		return nil, storeError(ctx, "subscribe chat", err, errcode.ErrInternalServer)
	}

	viewCtx, cancel := context.WithCancel(ctx)
	v := &View{
		engine:         e,
		sess:           sess,
		conversationId: conversationId,
		messages:       messages,
		chat:           chatStream,
		out:            NewLatest[*ViewState](nil),
		focus:          make(chan struct{}, 1),
		cancel:         cancel,
		done:           make(chan struct{}),
	}

	go v.run(viewCtx, chat)

	log.CtxDebug(ctx, "view opened: conversation_id=%s, user_id=%s", conversationId, sess.UserId)
	return v, nil
}

// ConversationId returns the id of the projected conversation
func (v *View) ConversationId() string {
	return v.conversationId
}

// Updates implements Stream
func (v *View) Updates() <-chan *ViewState {
	return v.out.Updates()
}

// Cancel implements Stream
func (v *View) Cancel() {
	v.Close()
}

// Err implements Stream. It is nil while the view runs and after a plain Close.
func (v *View) Err() error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.err
}

// State returns the latest projection, nil before the first snapshot
func (v *View) State() *ViewState {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.current
}

// Done is closed once the view has released its subscriptions
func (v *View) Done() <-chan struct{} {
	return v.done
}

// FocusRegained asks the view to reconcile read receipts again, for messages that arrived while it was hidden
func (v *View) FocusRegained() {
	select {
	case v.focus <- struct{}{}:
	default:
	}
}

// Close stops the view. It does not abort writes already in flight.
func (v *View) Close() {
	v.cancel()
}

func (v *View) run(ctx context.Context, chat entity.Chat) {
	defer close(v.done)
	defer v.teardown()

	var (
		state  *ViewState
		anchor string
	)

	for {
		select {
		case <-ctx.Done():
			v.finish(ctx, ctx.Err())
			return

		case snapshot, ok := <-v.messages.Updates():
			if !ok {
				v.finish(ctx, streamErr(v.messages.Err()))
				return
			}
			loaded := state != nil
			state = v.project(ctx, snapshot)
			if !loaded {
				anchor = anchorFor(state)
			}
			v.publish(ctx, state, chat, anchor, false)
			_, _ = v.engine.reconciler.Reconcile(ctx, v.sess, state)

		case next, ok := <-v.chat.Updates():
			if !ok {
				v.finish(ctx, streamErr(v.chat.Err()))
				return
			}
			if err := checkAccess(next, v.sess.UserId); err != nil {
				v.finish(ctx, err)
				return
			}
			chat = next
			if state != nil {
				v.publish(ctx, state, chat, anchor, true)
			}

		case <-v.focus:
			if state != nil {
				_, _ = v.engine.reconciler.Reconcile(ctx, v.sess, state)
			}
		}
	}
}

// project builds the state of a snapshot. A failed whole-log summary degrades to the window alone until the
// next snapshot.
func (v *View) project(ctx context.Context, messages []*entity.Message) *ViewState {
	state, err := v.engine.project(ctx, v.sess, v.conversationId, messages)
	if err != nil {
		log.CtxWarn(ctx, "summarize reads failed: conversation_id=%s, user_id=%s, error=%v",
			v.conversationId, v.sess.UserId, err)
		return Project(v.conversationId, messages, v.sess.UserId)
	}
	return state
}

// publish offers a copy of the projection to the consumer when something changed
func (v *View) publish(ctx context.Context, projected *ViewState, chat entity.Chat, anchor string, chatChanged bool) {
	cp := *projected
	state := &cp
	state.Chat = chat
	state.Anchor = anchor

	v.mu.Lock()
	prev := v.current
	v.current = state
	v.mu.Unlock()

	delta := Diff(prev, state)
	if prev != nil && delta.Empty() && !chatChanged && !summaryChanged(prev, state) {
		return
	}

	log.CtxDebug(ctx, "view updated: conversation_id=%s, user_id=%s, added=%d, changed=%d, unread=%d",
		v.conversationId, v.sess.UserId, len(delta.Added), len(delta.Changed), state.UnreadCount)
	v.out.Push(state)
}

// finish ends the output stream. Anything but cancellation leaves a final closed state behind.
func (v *View) finish(ctx context.Context, err error) {
	if errors.Is(err, context.Canceled) {
		v.out.Cancel()
		return
	}

	v.mu.Lock()
	v.err = err
	final := &ViewState{ConversationId: v.conversationId}
	if v.current != nil {
		cp := *v.current
		final = &cp
	}
	final.Closed = true
	final.Reason = errcode.From(err).Msg
	v.current = final
	v.mu.Unlock()

	log.CtxInfo(ctx, "view closed: conversation_id=%s, user_id=%s, reason=%v", v.conversationId, v.sess.UserId, err)
	v.out.Push(final)
	v.out.Fail(err)
}

// summaryChanged covers the whole-log fields, which move without the window changing
func summaryChanged(prev, next *ViewState) bool {
	if prev.UnreadCount != next.UnreadCount || prev.FirstUnreadId != next.FirstUnreadId || len(prev.Pinned) != len(next.Pinned) {
		return true
	}
	for i := range prev.Pinned {
		if prev.Pinned[i].Id != next.Pinned[i].Id {
			return true
		}
	}
	return false
}

func (v *View) teardown() {
	v.messages.Cancel()
	v.chat.Cancel()
	v.cancel()
}

func streamErr(err error) error {
	if err == nil {
		return errStreamEnded
	}
	return err
}
