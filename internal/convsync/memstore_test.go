package convsync

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/mbeoliero/chatsync/internal/entity"
	"github.com/mbeoliero/chatsync/pkg/constant"
	"github.com/mbeoliero/chatsync/pkg/errcode"
)

// memStore is an in-memory DocumentStore that notifies subscribers after every write
type memStore struct {
	mu       sync.Mutex
	clock    int64
	users    map[string]*entity.User
	direct   map[string]*entity.DirectChat
	groups   map[string]*entity.Group
	members  map[string][]*entity.GroupMember
	messages map[string][]*entity.Message
	byId     map[string]*entity.Message
	last     map[string]*entity.LastMessage

	msgSubs  map[string][]*Latest[[]*entity.Message]
	chatSubs map[string][]*Latest[entity.Chat]

	// window caps the messages a subscription carries, zero keeps them all
	window int

	markReadCalls int
	failMarkRead  error
}

func newMemStore(userIds ...string) *memStore {
	s := &memStore{
		clock:    1000,
		users:    make(map[string]*entity.User),
		direct:   make(map[string]*entity.DirectChat),
		groups:   make(map[string]*entity.Group),
		members:  make(map[string][]*entity.GroupMember),
		messages: make(map[string][]*entity.Message),
		byId:     make(map[string]*entity.Message),
		last:     make(map[string]*entity.LastMessage),
		msgSubs:  make(map[string][]*Latest[[]*entity.Message]),
		chatSubs: make(map[string][]*Latest[entity.Chat]),
	}
	for _, id := range userIds {
		s.users[id] = &entity.User{Id: id, Nickname: id}
	}
	return s
}

func (s *memStore) tick() int64 {
	s.clock++
	return s.clock
}

// seedGroup installs a group without notices
func (s *memStore) seedGroup(groupId string, members ...*entity.GroupMember) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[groupId] = &entity.Group{Id: groupId, Name: groupId}
	for _, m := range members {
		m.GroupId = groupId
	}
	s.members[groupId] = members
}

// insertRaw appends a fully formed message, bypassing AppendMessage stamping
func (s *memStore) insertRaw(msg *entity.Message) {
	s.mu.Lock()
	s.messages[msg.ConversationId] = append(s.messages[msg.ConversationId], msg)
	s.byId[msg.Id] = msg
	s.mu.Unlock()
	s.notify(msg.ConversationId)
}

func (s *memStore) chatLocked(conversationId string) (entity.Chat, error) {
	if c, ok := s.direct[conversationId]; ok {
		cp := *c
		cp.LastMessage = s.last[conversationId]
		return &cp, nil
	}
	groupId := entity.GroupIdFromConversationId(conversationId)
	g, ok := s.groups[groupId]
	if !ok {
		return nil, errcode.ErrConvNotFound
	}
	gcp := *g
	members := make([]*entity.GroupMember, 0, len(s.members[groupId]))
	for _, m := range s.members[groupId] {
		mcp := *m
		members = append(members, &mcp)
	}
	return &entity.GroupChat{
		Id:          conversationId,
		Group:       &gcp,
		Members:     members,
		LastMessage: s.last[conversationId],
	}, nil
}

func (s *memStore) messagesLocked(conversationId string) []*entity.Message {
	out := make([]*entity.Message, 0, len(s.messages[conversationId]))
	for _, m := range s.messages[conversationId] {
		out = append(out, m.Clone())
	}
	return out
}

func (s *memStore) windowLocked(conversationId string) []*entity.Message {
	msgs := s.messagesLocked(conversationId)
	if s.window > 0 && len(msgs) > s.window {
		msgs = msgs[len(msgs)-s.window:]
	}
	return msgs
}

// notify pushes fresh snapshots to every subscriber of the conversation
func (s *memStore) notify(conversationId string) {
	s.mu.Lock()
	msgs := s.windowLocked(conversationId)
	chat, chatErr := s.chatLocked(conversationId)
	msgSubs := slices.Clone(s.msgSubs[conversationId])
	chatSubs := slices.Clone(s.chatSubs[conversationId])
	s.mu.Unlock()

	for _, sub := range msgSubs {
		sub.Push(msgs)
	}
	for _, sub := range chatSubs {
		if chatErr != nil {
			sub.Fail(chatErr)
			continue
		}
		sub.Push(chat)
	}
}

func (s *memStore) subscriberCount(conversationId string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgSubs[conversationId]) + len(s.chatSubs[conversationId])
}

func (s *memStore) GetChat(ctx context.Context, conversationId string) (entity.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatLocked(conversationId)
}

func (s *memStore) GetMessage(ctx context.Context, messageId string) (*entity.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byId[messageId]
	if !ok {
		return nil, errcode.ErrMessageNotFound
	}
	return m.Clone(), nil
}

func (s *memStore) ListMessages(ctx context.Context, conversationId string, limit int) ([]*entity.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messagesLocked(conversationId)
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (s *memStore) GetUser(ctx context.Context, userId string) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userId]
	if !ok {
		return nil, errcode.ErrUserNotFound
	}
	return u, nil
}

func (s *memStore) GetUsers(ctx context.Context, userIds []string) ([]*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.User
	for _, id := range userIds {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *memStore) SummarizeReads(ctx context.Context, conversationId, viewerId string, pinnedLimit int) (*ReadSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := Project(conversationId, s.messagesLocked(conversationId), viewerId)
	pinned := all.Pinned
	if len(pinned) > pinnedLimit {
		pinned = pinned[:pinnedLimit]
	}
	return &ReadSummary{UnreadCount: all.UnreadCount, FirstUnreadId: all.FirstUnreadId, Pinned: pinned}, nil
}

func (s *memStore) SubscribeMessages(ctx context.Context, conversationId string) (Stream[[]*entity.Message], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sub *Latest[[]*entity.Message]
	sub = NewLatest[[]*entity.Message](func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.msgSubs[conversationId] = slices.DeleteFunc(s.msgSubs[conversationId], func(x *Latest[[]*entity.Message]) bool {
			return x == sub
		})
	})
	s.msgSubs[conversationId] = append(s.msgSubs[conversationId], sub)
	sub.Push(s.windowLocked(conversationId))
	return sub, nil
}

func (s *memStore) SubscribeChat(ctx context.Context, conversationId string) (Stream[entity.Chat], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, err := s.chatLocked(conversationId)
	if err != nil {
		return nil, err
	}

	var sub *Latest[entity.Chat]
	sub = NewLatest[entity.Chat](func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.chatSubs[conversationId] = slices.DeleteFunc(s.chatSubs[conversationId], func(x *Latest[entity.Chat]) bool {
			return x == sub
		})
	})
	s.chatSubs[conversationId] = append(s.chatSubs[conversationId], sub)
	sub.Push(chat)
	return sub, nil
}

func (s *memStore) EnsureDirect(ctx context.Context, userA, userB string) (*entity.DirectChat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv := entity.NewDirectConversation(userA, userB)
	if _, ok := s.direct[conv.Id]; !ok {
		s.direct[conv.Id] = conv.ToDirectChat()
	}
	cp := *s.direct[conv.Id]
	return &cp, nil
}

func (s *memStore) appendLocked(msg *entity.Message) *entity.Message {
	stored := msg.Clone()
	stored.Seq = int64(len(s.messages[msg.ConversationId]) + 1)
	stored.CreatedAt = s.tick()
	stored.UpdatedAt = stored.CreatedAt
	if !stored.IsSystem() {
		stored.ReadBy = []string{stored.SenderId}
	}
	s.messages[msg.ConversationId] = append(s.messages[msg.ConversationId], stored)
	s.byId[stored.Id] = stored
	s.last[msg.ConversationId] = stored.Summary()
	return stored
}

func (s *memStore) AppendMessage(ctx context.Context, msg *entity.Message) (*entity.Message, error) {
	s.mu.Lock()
	if msg.ClientMsgId != "" {
		for _, m := range s.messages[msg.ConversationId] {
			if m.SenderId == msg.SenderId && m.ClientMsgId == msg.ClientMsgId {
				s.mu.Unlock()
				return m.Clone(), nil
			}
		}
	}
	stored := s.appendLocked(msg).Clone()
	s.mu.Unlock()

	s.notify(msg.ConversationId)
	return stored, nil
}

func (s *memStore) update(messageId string, fn func(m *entity.Message)) (*entity.Message, error) {
	s.mu.Lock()
	m, ok := s.byId[messageId]
	if !ok {
		s.mu.Unlock()
		return nil, errcode.ErrMessageNotFound
	}
	fn(m)
	m.UpdatedAt = s.tick()
	out := m.Clone()
	s.mu.Unlock()

	s.notify(m.ConversationId)
	return out, nil
}

func (s *memStore) EditMessageText(ctx context.Context, messageId, text string) (*entity.Message, error) {
	return s.update(messageId, func(m *entity.Message) {
		m.Text = text
		m.IsEdited = true
	})
}

func (s *memStore) TombstoneMessage(ctx context.Context, messageId string) (*entity.Message, error) {
	return s.update(messageId, func(m *entity.Message) {
		m.Text = constant.DeletedMessageText
		m.IsDeleted = true
		m.DeletedAt = s.clock
	})
}

func (s *memStore) SetReactions(ctx context.Context, messageId string, reactions entity.Reactions) error {
	_, err := s.update(messageId, func(m *entity.Message) { m.Reactions = reactions })
	return err
}

func (s *memStore) SetStarred(ctx context.Context, messageId string, starred bool) error {
	_, err := s.update(messageId, func(m *entity.Message) { m.IsStarred = starred })
	return err
}

func (s *memStore) SetPinned(ctx context.Context, messageId string, pinned bool, pinnedAt int64) error {
	_, err := s.update(messageId, func(m *entity.Message) {
		m.IsPinned = pinned
		m.PinnedAt = pinnedAt
	})
	return err
}

func (s *memStore) MarkRead(ctx context.Context, conversationId, userId string, upToSeq int64) (int, error) {
	s.mu.Lock()
	s.markReadCalls++
	if s.failMarkRead != nil {
		err := s.failMarkRead
		s.mu.Unlock()
		return 0, err
	}
	n := 0
	for _, m := range s.messages[conversationId] {
		if m.IsPending() || m.Seq > upToSeq || !m.IsUnreadFor(userId) {
			continue
		}
		m.ReadBy = append(m.ReadBy, userId)
		n++
	}
	s.mu.Unlock()

	if n > 0 {
		s.notify(conversationId)
	}
	return n, nil
}

func (s *memStore) readCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markReadCalls
}

func (s *memStore) CreateGroup(ctx context.Context, group *entity.Group, members []*entity.GroupMember, notice *entity.Message) error {
	s.mu.Lock()
	s.groups[group.Id] = group
	s.members[group.Id] = members
	if notice != nil {
		s.appendLocked(notice)
	}
	s.mu.Unlock()

	s.notify(entity.GenGroupConversationId(group.Id))
	return nil
}

func (s *memStore) UpdateGroup(ctx context.Context, groupId string, update GroupUpdate, notice *entity.Message) error {
	s.mu.Lock()
	g, ok := s.groups[groupId]
	if !ok {
		s.mu.Unlock()
		return errcode.ErrGroupNotFound
	}
	if update.Name != nil {
		g.Name = *update.Name
	}
	if update.Description != nil {
		g.Description = *update.Description
	}
	if update.PhotoURL != nil {
		g.PhotoURL = *update.PhotoURL
	}
	if notice != nil {
		s.appendLocked(notice)
	}
	s.mu.Unlock()

	s.notify(entity.GenGroupConversationId(groupId))
	return nil
}

func (s *memStore) SetMemberStatus(ctx context.Context, change MemberStatusChange) error {
	s.mu.Lock()
	members := s.members[change.GroupId]
	if change.Check != nil {
		if err := change.Check(members); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	m := findMember(members, change.UserId)
	if m == nil {
		s.mu.Unlock()
		return errcode.ErrNotGroupMember
	}
	m.Status = change.Status
	if change.Notice != nil {
		s.appendLocked(change.Notice)
	}
	s.mu.Unlock()

	s.notify(entity.GenGroupConversationId(change.GroupId))
	return nil
}

func (s *memStore) AddMembers(ctx context.Context, addition MemberAddition) error {
	s.mu.Lock()
	if addition.Check != nil {
		if err := addition.Check(s.members[addition.GroupId]); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.members[addition.GroupId] = append(s.members[addition.GroupId], addition.Members...)
	for _, n := range addition.Notices {
		s.appendLocked(n)
	}
	s.mu.Unlock()

	s.notify(entity.GenGroupConversationId(addition.GroupId))
	return nil
}

// dropGroup deletes a group so open views lose their conversation record
func (s *memStore) dropGroup(groupId string) {
	s.mu.Lock()
	delete(s.groups, groupId)
	s.mu.Unlock()
	s.notify(entity.GenGroupConversationId(groupId))
}

var errBoom = errors.New("boom")
