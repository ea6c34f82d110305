package convsync

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mbeoliero/chatsync/internal/entity"
	"github.com/mbeoliero/chatsync/pkg/constant"
	"github.com/mbeoliero/chatsync/pkg/errcode"
	"github.com/mbeoliero/chatsync/pkg/idgen"
	"github.com/mbeoliero/kit/log"
)

const defaultSnapshotLimit = 500

// Options tunes an Engine
type Options struct {
	// SnapshotLimit caps the messages carried by a one-shot snapshot
	SnapshotLimit int
	// ReadTimeout bounds each read-receipt batch
	ReadTimeout time.Duration
	// IDs generates message and group ids, the package default generator when nil
	IDs idgen.IDGenerator
}

// Engine runs conversation operations for a session against a DocumentStore.
// Every mutation is a direct write; failures are returned to the caller.
type Engine struct {
	store         DocumentStore
	reconciler    *Reconciler
	ids           idgen.IDGenerator
	snapshotLimit int
}

// NewEngine creates an Engine
func NewEngine(store DocumentStore, opts Options) *Engine {
	if opts.SnapshotLimit <= 0 {
		opts.SnapshotLimit = defaultSnapshotLimit
	}
	return &Engine{
		store:         store,
		reconciler:    NewReconciler(store, opts.ReadTimeout),
		ids:           opts.IDs,
		snapshotLimit: opts.SnapshotLimit,
	}
}

// SendRequest is the input of Send
type SendRequest struct {
	ConversationId string
	ClientMsgId    string
	Text           string
	Attachments    []string
	// QuoteId captures the quoted message at send time when Quoted is nil
	QuoteId string
	Quoted  *entity.QuotedMessage
}

func (e *Engine) nextId() (string, error) {
	if e.ids != nil {
		return e.ids.NextID()
	}
	return idgen.NextID()
}

// storeError keeps business errors as they are and wraps everything else into fallback
func storeError(ctx context.Context, op string, err error, fallback *errcode.Error) error {
	var ce *errcode.Error
	if errors.As(err, &ce) {
		return ce
	}
	log.CtxError(ctx, "%s failed: error=%v", op, err)
	return fallback.Wrap(err)
}

// checkAccess reports whether userId may read and write the conversation
func checkAccess(chat entity.Chat, userId string) error {
	switch c := chat.(type) {
	case *entity.DirectChat:
		if !c.HasParticipant(userId) {
			return errcode.ErrNotParticipant
		}
		return nil
	case *entity.GroupChat:
		return CanPost(userId, c.Members)
	default:
		return errcode.ErrConvNotFound
	}
}

// access loads the conversation and checks the viewer may use it.
// With create set, a direct conversation the viewer belongs to is created on first use.
func (e *Engine) access(ctx context.Context, sess Session, conversationId string, create bool) (entity.Chat, error) {
	if err := sess.Valid(); err != nil {
		return nil, err
	}

	chat, err := e.store.GetChat(ctx, conversationId)
	if errors.Is(err, errcode.ErrConvNotFound) && create && entity.IsSingleConversation(conversationId) {
		userA, userB, ok := entity.ParseSingleConversationId(conversationId)
		if !ok || (userA != sess.UserId && userB != sess.UserId) {
			return nil, errcode.ErrConvNotFound
		}
		peerId := userB
		if userB == sess.UserId {
			peerId = userA
		}
		return e.ensureDirect(ctx, sess, peerId)
	}
	if err != nil {
		return nil, storeError(ctx, "get chat", err, errcode.ErrInternalServer)
	}

	if err := checkAccess(chat, sess.UserId); err != nil {
		log.CtxDebug(ctx, "access rejected: conversation_id=%s, user_id=%s, error=%v", conversationId, sess.UserId, err)
		return nil, err
	}
	return chat, nil
}

func (e *Engine) ensureDirect(ctx context.Context, sess Session, peerId string) (*entity.DirectChat, error) {
	if peerId == "" || peerId == sess.UserId {
		return nil, errcode.ErrSelfConversation
	}
	if _, err := e.store.GetUser(ctx, peerId); err != nil {
		return nil, storeError(ctx, "get peer", err, errcode.ErrInternalServer)
	}

	chat, err := e.store.EnsureDirect(ctx, sess.UserId, peerId)
	if err != nil {
		return nil, storeError(ctx, "ensure direct", err, errcode.ErrInternalServer)
	}
	return chat, nil
}

// message loads a message and checks the viewer may access its conversation
func (e *Engine) message(ctx context.Context, sess Session, messageId string) (*entity.Message, error) {
	if err := sess.Valid(); err != nil {
		return nil, err
	}
	msg, err := e.store.GetMessage(ctx, messageId)
	if err != nil {
		return nil, storeError(ctx, "get message", err, errcode.ErrInternalServer)
	}
	if _, err := e.access(ctx, sess, msg.ConversationId, false); err != nil {
		return nil, err
	}
	return msg, nil
}

// Authorize checks the viewer may post to the conversation, creating a direct conversation on first use
func (e *Engine) Authorize(ctx context.Context, sess Session, conversationId string) error {
	_, err := e.access(ctx, sess, conversationId, true)
	return err
}

// OpenDirect returns the direct conversation between the viewer and peerId, creating it when needed
func (e *Engine) OpenDirect(ctx context.Context, sess Session, peerId string) (*entity.DirectChat, error) {
	if err := sess.Valid(); err != nil {
		return nil, err
	}
	return e.ensureDirect(ctx, sess, peerId)
}

// Snapshot projects the current state of a conversation once. It never writes, read receipts included.
func (e *Engine) Snapshot(ctx context.Context, sess Session, conversationId string) (*ViewState, error) {
	chat, err := e.access(ctx, sess, conversationId, false)
	if err != nil {
		return nil, err
	}

	messages, err := e.store.ListMessages(ctx, conversationId, e.snapshotLimit)
	if err != nil {
		return nil, storeError(ctx, "list messages", err, errcode.ErrInternalServer)
	}

	state, err := e.project(ctx, sess, conversationId, messages)
	if err != nil {
		return nil, storeError(ctx, "summarize reads", err, errcode.ErrInternalServer)
	}
	state.Chat = chat
	state.Anchor = anchorFor(state)
	return state, nil
}

// project orders the message window and takes unread and pinned state from the whole log
func (e *Engine) project(ctx context.Context, sess Session, conversationId string, messages []*entity.Message) (*ViewState, error) {
	sum, err := e.store.SummarizeReads(ctx, conversationId, sess.UserId, constant.MaxPinnedMessages)
	if err != nil {
		return nil, err
	}
	return Project(conversationId, messages, sess.UserId).withSummary(sum), nil
}

// Send appends a message to the conversation
func (e *Engine) Send(ctx context.Context, sess Session, req SendRequest) (*entity.Message, error) {
	if strings.TrimSpace(req.Text) == "" && len(req.Attachments) == 0 {
		return nil, errcode.ErrEmptyMessage
	}
	if len(req.Attachments) > constant.MaxAttachmentsPerSend {
		return nil, errcode.ErrInvalidParam
	}

	chat, err := e.access(ctx, sess, req.ConversationId, true)
	if err != nil {
		return nil, err
	}

	quoted := req.Quoted
	if quoted == nil && req.QuoteId != "" {
		quoted, err = e.quoteIn(ctx, chat.ChatId(), req.QuoteId)
		if err != nil {
			return nil, err
		}
	}

	id, err := e.nextId()
	if err != nil {
		return nil, storeError(ctx, "generate message id", err, errcode.ErrSendFailed)
	}

	msg := &entity.Message{
		Id:             id,
		ConversationId: chat.ChatId(),
		ClientMsgId:    req.ClientMsgId,
		SenderId:       sess.UserId,
		SenderName:     sess.name(),
		SenderPhoto:    sess.PhotoURL,
		MsgType:        constant.MsgTypeUser,
		Text:           req.Text,
		Attachments:    req.Attachments,
		Quoted:         quoted,
	}

	stored, err := e.store.AppendMessage(ctx, msg)
	if err != nil {
		return nil, storeError(ctx, "append message", err, errcode.ErrSendFailed)
	}

	log.CtxInfo(ctx, "message sent: conversation_id=%s, message_id=%s, seq=%d, sender_id=%s",
		stored.ConversationId, stored.Id, stored.Seq, stored.SenderId)
	return stored, nil
}

// Edit replaces the text of the viewer's own message
func (e *Engine) Edit(ctx context.Context, sess Session, messageId, text string) (*entity.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errcode.ErrEmptyMessage
	}

	msg, err := e.message(ctx, sess, messageId)
	if err != nil {
		return nil, err
	}
	if msg.SenderId != sess.UserId {
		return nil, errcode.ErrNotMessageSender
	}
	if msg.IsDeleted {
		return nil, errcode.ErrMessageDeleted
	}

	edited, err := e.store.EditMessageText(ctx, messageId, text)
	if err != nil {
		return nil, storeError(ctx, "edit message", err, errcode.ErrInternalServer)
	}
	log.CtxInfo(ctx, "message edited: message_id=%s, user_id=%s", messageId, sess.UserId)
	return edited, nil
}

// Delete replaces the viewer's own message with the tombstone. The original text is discarded.
func (e *Engine) Delete(ctx context.Context, sess Session, messageId string) (*entity.Message, error) {
	msg, err := e.message(ctx, sess, messageId)
	if err != nil {
		return nil, err
	}
	if msg.SenderId != sess.UserId {
		return nil, errcode.ErrNotMessageSender
	}
	if msg.IsDeleted {
		return msg, nil
	}

	deleted, err := e.store.TombstoneMessage(ctx, messageId)
	if err != nil {
		return nil, storeError(ctx, "delete message", err, errcode.ErrInternalServer)
	}
	log.CtxInfo(ctx, "message deleted: message_id=%s, user_id=%s", messageId, sess.UserId)
	return deleted, nil
}

// React toggles the viewer in the reactor set of symbol. Concurrent reactions race, the last write wins.
func (e *Engine) React(ctx context.Context, sess Session, messageId, symbol string) (entity.Reactions, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, errcode.ErrInvalidReaction
	}

	msg, err := e.message(ctx, sess, messageId)
	if err != nil {
		return nil, err
	}

	next := msg.Reactions.Toggle(symbol, sess.UserId)
	if err := e.store.SetReactions(ctx, messageId, next); err != nil {
		return nil, storeError(ctx, "set reactions", err, errcode.ErrInternalServer)
	}
	return next, nil
}

// ToggleStar flips the starred flag and returns the new value
func (e *Engine) ToggleStar(ctx context.Context, sess Session, messageId string) (bool, error) {
	msg, err := e.message(ctx, sess, messageId)
	if err != nil {
		return false, err
	}

	starred := !msg.IsStarred
	if err := e.store.SetStarred(ctx, messageId, starred); err != nil {
		return false, storeError(ctx, "set starred", err, errcode.ErrInternalServer)
	}
	return starred, nil
}

// TogglePin flips the pinned flag and returns the new value. Pinning stamps pinned_at, unpinning clears it.
func (e *Engine) TogglePin(ctx context.Context, sess Session, messageId string) (bool, error) {
	msg, err := e.message(ctx, sess, messageId)
	if err != nil {
		return false, err
	}

	pinned := !msg.IsPinned
	var pinnedAt int64
	if pinned {
		pinnedAt = entity.NowUnixMilli()
	}
	if err := e.store.SetPinned(ctx, messageId, pinned, pinnedAt); err != nil {
		return false, storeError(ctx, "set pinned", err, errcode.ErrInternalServer)
	}
	return pinned, nil
}

// Quote captures the reply snapshot of a message. Later changes to the message do not reach the snapshot.
func (e *Engine) Quote(ctx context.Context, sess Session, messageId string) (*entity.QuotedMessage, error) {
	msg, err := e.message(ctx, sess, messageId)
	if err != nil {
		return nil, err
	}
	return msg.Quote(), nil
}

func (e *Engine) quoteIn(ctx context.Context, conversationId, messageId string) (*entity.QuotedMessage, error) {
	msg, err := e.store.GetMessage(ctx, messageId)
	if err != nil {
		return nil, storeError(ctx, "get quoted message", err, errcode.ErrInternalServer)
	}
	if msg.ConversationId != conversationId {
		return nil, errcode.ErrMessageNotFound
	}
	return msg.Quote(), nil
}

// anchorFor picks the scroll target of a freshly opened view: the first unread message, else the newest one.
// A first unread older than the window anchors at the oldest loaded message.
func anchorFor(state *ViewState) string {
	n := len(state.Messages)
	if n == 0 {
		return ""
	}
	if state.FirstUnreadId == "" {
		return state.Messages[n-1].Id
	}
	for _, m := range state.Messages {
		if m.Id == state.FirstUnreadId {
			return m.Id
		}
	}
	return state.Messages[0].Id
}
