package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mbeoliero/chatsync/internal/entity"
	"github.com/mbeoliero/chatsync/pkg/constant"
	"github.com/mbeoliero/kit/log"
	"github.com/redis/go-redis/v9"
)

// Kind names the collection a change notice refers to
type Kind string

const (
	// KindMessages covers the message log of a conversation, read receipts included
	KindMessages Kind = "messages"
	// KindChat covers the conversation record: last message, group details and membership
	KindChat Kind = "chat"
)

// Notice is published after a write commits
type Notice struct {
	ConversationId string `json:"conversation_id"`
	Kind           Kind   `json:"kind"`
	At             int64  `json:"at"`
}

// Hub fans change notices out to the listeners of this process.
// With a redis client every node receives every notice through one pattern subscription.
// Without one, Publish dispatches locally.
type Hub struct {
	rdb *redis.Client

	mu        sync.RWMutex
	listeners map[string]map[*Listener]struct{}
}

// NewHub creates a Hub. rdb may be nil for single process deployments and tests.
func NewHub(rdb *redis.Client) *Hub {
	return &Hub{
		rdb:       rdb,
		listeners: make(map[string]map[*Listener]struct{}),
	}
}

// Listener receives a signal whenever the watched collection changes.
// Signals coalesce: several notices between two reads are delivered as one.
type Listener struct {
	hub            *Hub
	conversationId string
	kind           Kind
	ch             chan struct{}
	once           sync.Once
}

// C returns the signal channel
func (l *Listener) C() <-chan struct{} {
	return l.ch
}

// Close detaches the listener from the hub. Safe to call more than once.
func (l *Listener) Close() {
	l.once.Do(func() {
		l.hub.remove(l)
	})
}

// Listen registers a listener for one collection of a conversation
func (h *Hub) Listen(conversationId string, kind Kind) *Listener {
	l := &Listener{
		hub:            h,
		conversationId: conversationId,
		kind:           kind,
		ch:             make(chan struct{}, 1),
	}

	h.mu.Lock()
	set, ok := h.listeners[conversationId]
	if !ok {
		set = make(map[*Listener]struct{})
		h.listeners[conversationId] = set
	}
	set[l] = struct{}{}
	h.mu.Unlock()

	return l
}

func (h *Hub) remove(l *Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.listeners[l.conversationId]
	if !ok {
		return
	}
	delete(set, l)
	if len(set) == 0 {
		delete(h.listeners, l.conversationId)
	}
}

// ListenerCount returns the number of live listeners of a conversation
func (h *Hub) ListenerCount(conversationId string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners[conversationId])
}

// Publish announces that a collection of a conversation changed
func (h *Hub) Publish(ctx context.Context, conversationId string, kinds ...Kind) error {
	for _, kind := range kinds {
		n := Notice{ConversationId: conversationId, Kind: kind, At: entity.NowUnixMilli()}
		if h.rdb == nil {
			h.dispatch(n)
			continue
		}

		data, err := json.Marshal(n)
		if err != nil {
			return err
		}
		channel := fmt.Sprintf(constant.RedisKeyFeed(), conversationId)
		if err := h.rdb.Publish(ctx, channel, data).Err(); err != nil {
			return err
		}
	}
	return nil
}

// Run consumes the redis feed until ctx is done, resubscribing after connection loss
func (h *Hub) Run(ctx context.Context) {
	if h.rdb == nil {
		return
	}

	pattern := fmt.Sprintf(constant.RedisKeyFeed(), "*")
	for {
		h.consume(ctx, pattern)
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
			log.Warn("change feed subscription lost, resubscribing: pattern=%s", pattern)
		}
	}
}

func (h *Hub) consume(ctx context.Context, pattern string) {
	pubsub := h.rdb.PSubscribe(ctx, pattern)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		log.CtxError(ctx, "change feed subscribe failed: pattern=%s, error=%v", pattern, err)
		return
	}
	log.CtxInfo(ctx, "change feed subscribed: pattern=%s", pattern)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			n, err := decodeNotice(msg.Channel, msg.Payload)
			if err != nil {
				log.CtxWarn(ctx, "drop malformed notice: channel=%s, error=%v", msg.Channel, err)
				continue
			}
			h.dispatch(n)
		}
	}
}

func decodeNotice(channel, payload string) (Notice, error) {
	var n Notice
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return n, err
	}
	if n.ConversationId == "" {
		prefix := strings.TrimSuffix(constant.RedisKeyFeed(), "%s")
		n.ConversationId = strings.TrimPrefix(channel, prefix)
	}
	return n, nil
}

// dispatch signals every matching listener without blocking
func (h *Hub) dispatch(n Notice) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for l := range h.listeners[n.ConversationId] {
		if l.kind != n.Kind {
			continue
		}
		select {
		case l.ch <- struct{}{}:
		default:
		}
	}
}
