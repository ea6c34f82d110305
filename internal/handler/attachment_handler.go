package handler

import (
	"context"
	"mime/multipart"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/mbeoliero/chatsync/internal/middleware"
	"github.com/mbeoliero/chatsync/internal/service"
	"github.com/mbeoliero/chatsync/pkg/errcode"
	"github.com/mbeoliero/chatsync/pkg/response"
	"github.com/mbeoliero/kit/log"
)

const (
	// uploadField is the multipart field holding the files
	uploadField = "files"
	// avatarField is the multipart field holding a photo
	avatarField = "file"
)

// AttachmentHandler handles attachment upload and download requests
type AttachmentHandler struct {
	attachmentService *service.AttachmentService
}

// NewAttachmentHandler creates a new AttachmentHandler
func NewAttachmentHandler(attachmentService *service.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{attachmentService: attachmentService}
}

// Upload stores the multipart files of a conversation and returns their keys for a following send
func (h *AttachmentHandler) Upload(ctx context.Context, c *app.RequestContext) {
	sess := middleware.GetSession(c)
	if sess.UserId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	conversationId := string(c.FormValue("conversation_id"))
	if conversationId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	headers := form.File[uploadField]
	files := make([]*service.AttachmentFile, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()

	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			log.CtxWarn(ctx, "open upload failed: filename=%s, error=%v", fh.Filename, err)
			response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
			return
		}
		opened = append(opened, f)
		files = append(files, &service.AttachmentFile{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		})
	}

	objects, err := h.attachmentService.Upload(ctx, sess, conversationId, files)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, objects)
}

// DownloadURL returns a link to an attachment
func (h *AttachmentHandler) DownloadURL(ctx context.Context, c *app.RequestContext) {
	sess := middleware.GetSession(c)
	if sess.UserId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	conversationId := c.Query("conversation_id")
	key := c.Query("key")
	if conversationId == "" || key == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	url, err := h.attachmentService.DownloadURL(ctx, sess, conversationId, key)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, map[string]string{"url": url})
}

// UploadAvatar stores a profile or group photo and returns the URL to put in photo_url
func (h *AttachmentHandler) UploadAvatar(ctx context.Context, c *app.RequestContext) {
	sess := middleware.GetSession(c)
	if sess.UserId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	fh, err := c.FormFile(avatarField)
	if err != nil {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}
	f, err := fh.Open()
	if err != nil {
		log.CtxWarn(ctx, "open avatar failed: filename=%s, error=%v", fh.Filename, err)
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}
	defer f.Close()

	obj, err := h.attachmentService.UploadAvatar(ctx, sess, &service.AttachmentFile{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, obj)
}

// Avatar redirects to a stored photo. It is public so image tags can load it.
func (h *AttachmentHandler) Avatar(ctx context.Context, c *app.RequestContext) {
	key := c.Query("key")
	if key == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	link, err := h.attachmentService.AvatarURL(ctx, key)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	c.Redirect(consts.StatusFound, []byte(link))
}
