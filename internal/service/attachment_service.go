package service

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mbeoliero/chatsync/internal/blob"
	"github.com/mbeoliero/chatsync/internal/convsync"
	"github.com/mbeoliero/chatsync/pkg/constant"
	"github.com/mbeoliero/chatsync/pkg/errcode"
	"github.com/mbeoliero/kit/log"
	"golang.org/x/sync/errgroup"
)

// AvatarPath serves stored photos by key
const AvatarPath = "/attachment/avatar"

var errBlobDisabled = errors.New("attachment storage not configured")

// AttachmentFile is one uploaded file
type AttachmentFile struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ConversationAuthorizer checks a session may post to a conversation
type ConversationAuthorizer interface {
	Authorize(ctx context.Context, sess convsync.Session, conversationId string) error
}

// AttachmentService stores attachments before they are referenced by a sent message
type AttachmentService struct {
	auth  ConversationAuthorizer
	store blob.Store
	now   func() time.Time
	nonce func() string
}

// NewAttachmentService creates a new AttachmentService. A nil store disables uploads.
func NewAttachmentService(auth ConversationAuthorizer, store blob.Store) *AttachmentService {
	return &AttachmentService{auth: auth, store: store, now: time.Now, nonce: newNonce}
}

func newNonce() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// validateFile applies a size cap and a content type allow list
func validateFile(f *AttachmentFile, maxSize int64, allowed map[string]bool) error {
	if f.Size <= 0 || f.Size > maxSize {
		return errcode.ErrAttachmentTooLarge
	}
	contentType := strings.ToLower(strings.TrimSpace(strings.Split(f.ContentType, ";")[0]))
	if !allowed[contentType] {
		return errcode.ErrAttachmentType
	}
	f.ContentType = contentType
	return nil
}

// validateAttachment applies the message attachment limits
func validateAttachment(f *AttachmentFile) error {
	return validateFile(f, constant.MaxAttachmentSize, constant.AllowedAttachmentTypes)
}

// Upload stores the files in parallel and returns them in input order.
// All files are validated before anything is stored.
func (s *AttachmentService) Upload(ctx context.Context, sess convsync.Session, conversationId string, files []*AttachmentFile) ([]*blob.Object, error) {
	if len(files) == 0 || len(files) > constant.MaxAttachmentsPerSend {
		return nil, errcode.ErrInvalidParam
	}
	for _, f := range files {
		if err := validateAttachment(f); err != nil {
			log.CtxDebug(ctx, "attachment rejected: filename=%s, content_type=%s, size=%d, error=%v", f.Filename, f.ContentType, f.Size, err)
			return nil, err
		}
	}
	if s.store == nil {
		return nil, errcode.ErrUploadFailed.Wrap(errBlobDisabled)
	}
	if err := s.auth.Authorize(ctx, sess, conversationId); err != nil {
		return nil, err
	}

	objects := make([]*blob.Object, len(files))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, f := range files {
		key := blob.ObjectKey(conversationId, f.Filename, s.now(), s.nonce())
		eg.Go(func() error {
			obj, err := s.store.Put(egCtx, key, f.ContentType, f.Size, f.Body)
			if err != nil {
				return err
			}
			objects[i] = obj
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		log.CtxError(ctx, "upload attachments failed: conversation_id=%s, user_id=%s, error=%v", conversationId, sess.UserId, err)
		return nil, errcode.ErrUploadFailed.Wrap(err)
	}

	log.CtxInfo(ctx, "attachments uploaded: conversation_id=%s, user_id=%s, count=%d", conversationId, sess.UserId, len(objects))
	return objects, nil
}

// UploadAvatar stores a profile or group photo for the caller. The returned URL stays valid and is meant for
// photo_url fields: the public object URL when the bucket is public, else the avatar path of this server.
func (s *AttachmentService) UploadAvatar(ctx context.Context, sess convsync.Session, file *AttachmentFile) (*blob.Object, error) {
	if err := sess.Valid(); err != nil {
		return nil, err
	}
	if err := validateFile(file, constant.MaxAvatarSize, constant.AllowedAvatarTypes); err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, errcode.ErrUploadFailed.Wrap(errBlobDisabled)
	}

	key := blob.AvatarKey(sess.UserId, file.Filename, s.now(), s.nonce())
	obj, err := s.store.Put(ctx, key, file.ContentType, file.Size, file.Body)
	if err != nil {
		log.CtxError(ctx, "upload avatar failed: user_id=%s, error=%v", sess.UserId, err)
		return nil, errcode.ErrUploadFailed.Wrap(err)
	}
	if obj.URL == "" {
		obj.URL = AvatarPath + "?key=" + url.QueryEscape(key)
	}

	log.CtxInfo(ctx, "avatar uploaded: user_id=%s, key=%s", sess.UserId, key)
	return obj, nil
}

// AvatarURL returns a download link for a stored photo. Photos are not scoped to a conversation.
func (s *AttachmentService) AvatarURL(ctx context.Context, key string) (string, error) {
	if s.store == nil || !strings.HasPrefix(key, blob.AvatarPrefix) || strings.Contains(key, "..") {
		return "", errcode.ErrNotFound
	}

	link, err := s.store.PresignURL(ctx, key)
	if err != nil {
		log.CtxError(ctx, "presign avatar failed: key=%s, error=%v", key, err)
		return "", errcode.ErrInternalServer
	}
	return link, nil
}

// DownloadURL returns a link for an attachment of a conversation the caller belongs to
func (s *AttachmentService) DownloadURL(ctx context.Context, sess convsync.Session, conversationId, key string) (string, error) {
	if !strings.HasPrefix(key, "chats/"+conversationId+"/") {
		return "", errcode.ErrNotFound
	}
	if s.store == nil {
		return "", errcode.ErrNotFound
	}
	if err := s.auth.Authorize(ctx, sess, conversationId); err != nil {
		return "", err
	}

	link, err := s.store.PresignURL(ctx, key)
	if err != nil {
		log.CtxError(ctx, "presign attachment failed: key=%s, error=%v", key, err)
		return "", errcode.ErrInternalServer
	}
	return link, nil
}
