package convsync

import (
	"cmp"
	"reflect"
	"slices"

	"github.com/mbeoliero/chatsync/internal/entity"
	"github.com/mbeoliero/chatsync/pkg/constant"
)

// ViewState is the projection of a conversation's message log for one viewer.
// It is rebuilt from every snapshot and never written back.
type ViewState struct {
	ConversationId string            `json:"conversation_id"`
	Chat           entity.Chat       `json:"chat,omitempty"`
	Messages       []*entity.Message `json:"messages"`
	UnreadCount    int               `json:"unread_count"`
	FirstUnreadId  string            `json:"first_unread_id,omitempty"`
	Pinned         []*entity.Message `json:"pinned"`
	Starred        []*entity.Message `json:"starred"`
	// Anchor is the message the client scrolls to, decided once when the view opens
	Anchor string `json:"anchor,omitempty"`
	Closed bool   `json:"closed,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Project orders the messages and derives the unread, pinned and starred state for viewerId.
// Messages still waiting for a store timestamp go last in input order.
// The input slice and its messages are left untouched.
func Project(conversationId string, messages []*entity.Message, viewerId string) *ViewState {
	resolved := make([]*entity.Message, 0, len(messages))
	var pending []*entity.Message
	for _, m := range messages {
		if m == nil {
			continue
		}
		if m.IsPending() {
			pending = append(pending, m.Clone())
		} else {
			resolved = append(resolved, m.Clone())
		}
	}

	slices.SortStableFunc(resolved, func(a, b *entity.Message) int {
		if c := cmp.Compare(a.CreatedAt, b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Seq, b.Seq)
	})
	ordered := append(resolved, pending...)

	state := &ViewState{
		ConversationId: conversationId,
		Messages:       ordered,
		Pinned:         []*entity.Message{},
		Starred:        []*entity.Message{},
	}

	for _, m := range ordered {
		if m.IsUnreadFor(viewerId) {
			state.UnreadCount++
			if state.FirstUnreadId == "" {
				state.FirstUnreadId = m.Id
			}
		}
		if m.IsPinned {
			state.Pinned = append(state.Pinned, m)
		}
		if m.IsStarred {
			state.Starred = append(state.Starred, m)
		}
	}

	slices.SortStableFunc(state.Pinned, func(a, b *entity.Message) int {
		if c := cmp.Compare(b.PinnedAt, a.PinnedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.Seq, a.Seq)
	})
	if len(state.Pinned) > constant.MaxPinnedMessages {
		state.Pinned = state.Pinned[:constant.MaxPinnedMessages]
	}

	return state
}

// withSummary replaces the window-derived unread and pinned state with the whole-log summary.
// Pins still present in the window keep the window's copy.
func (s *ViewState) withSummary(sum *ReadSummary) *ViewState {
	if sum == nil {
		return s
	}
	s.UnreadCount = sum.UnreadCount
	s.FirstUnreadId = sum.FirstUnreadId

	inWindow := make(map[string]*entity.Message, len(s.Messages))
	for _, m := range s.Messages {
		inWindow[m.Id] = m
	}
	pinned := make([]*entity.Message, 0, len(sum.Pinned))
	for _, m := range sum.Pinned {
		if w, ok := inWindow[m.Id]; ok {
			pinned = append(pinned, w)
			continue
		}
		pinned = append(pinned, m.Clone())
	}
	s.Pinned = pinned
	return s
}

// lastSeq is the highest seq among the committed messages of the window
func (s *ViewState) lastSeq() int64 {
	var seq int64
	for _, m := range s.Messages {
		if !m.IsPending() && m.Seq > seq {
			seq = m.Seq
		}
	}
	return seq
}

// Delta lists message ids that differ between two snapshots
type Delta struct {
	Added   []string `json:"added,omitempty"`
	Changed []string `json:"changed,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// Empty reports whether both snapshots hold the same messages
func (d Delta) Empty() bool {
	return len(d.Added) == 0 && len(d.Changed) == 0 && len(d.Removed) == 0
}

// Diff compares two projections. A nil prev treats every message of next as added.
func Diff(prev, next *ViewState) Delta {
	var d Delta
	before := make(map[string]*entity.Message)
	if prev != nil {
		for _, m := range prev.Messages {
			before[m.Id] = m
		}
	}

	seen := make(map[string]struct{})
	if next != nil {
		for _, m := range next.Messages {
			seen[m.Id] = struct{}{}
			old, ok := before[m.Id]
			switch {
			case !ok:
				d.Added = append(d.Added, m.Id)
			case !reflect.DeepEqual(old, m):
				d.Changed = append(d.Changed, m.Id)
			}
		}
	}

	if prev != nil {
		for _, m := range prev.Messages {
			if _, ok := seen[m.Id]; !ok {
				d.Removed = append(d.Removed, m.Id)
			}
		}
	}
	return d
}
