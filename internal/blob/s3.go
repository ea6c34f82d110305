package blob

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mbeoliero/chatsync/internal/config"
	"github.com/mbeoliero/kit/log"
)

// Object is a stored attachment. Key is the stable reference kept on messages.
type Object struct {
	Key         string `json:"key"`
	URL         string `json:"url,omitempty"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Store accepts attachment payloads under caller-chosen keys
type Store interface {
	Put(ctx context.Context, key, contentType string, size int64, body io.Reader) (*Object, error)
	PresignURL(ctx context.Context, key string) (string, error)
}

// ObjectKey builds the key of an attachment: chats/{conversationId}/{unixMilli}_{nonce}_{filename}.
// The nonce keeps files of the same name and instant apart.
func ObjectKey(conversationId, filename string, at time.Time, nonce string) string {
	return fmt.Sprintf("chats/%s/%d_%s_%s", conversationId, at.UnixMilli(), nonce, safeName(filename))
}

// AvatarKey builds the key of a profile or group photo: avatars/{userId}/{unixMilli}_{nonce}_{filename}
func AvatarKey(userId, filename string, at time.Time, nonce string) string {
	return fmt.Sprintf("%s%s/%d_%s_%s", AvatarPrefix, userId, at.UnixMilli(), nonce, safeName(filename))
}

// AvatarPrefix starts every avatar key
const AvatarPrefix = "avatars/"

// safeName strips directories and spaces from a client file name
func safeName(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "file"
	}
	return strings.ReplaceAll(name, " ", "_")
}

// S3Store keeps attachments in an S3 compatible bucket
type S3Store struct {
	client     *s3.Client
	uploader   *manager.Uploader
	presigner  *s3.PresignClient
	bucket     string
	region     string
	endpoint   string
	publicRead bool
	presignTTL time.Duration
}

var _ Store = (*S3Store)(nil)

// NewS3Store creates an S3Store. A custom endpoint (MinIO and friends) switches to path style addressing.
func NewS3Store(ctx context.Context, cfg config.BlobConfig) (*S3Store, error) {
	awsCfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	log.CtxInfo(ctx, "blob store ready: bucket=%s, region=%s, endpoint=%s", cfg.Bucket, cfg.Region, cfg.Endpoint)
	return &S3Store{
		client:     client,
		uploader:   manager.NewUploader(client),
		presigner:  s3.NewPresignClient(client),
		bucket:     cfg.Bucket,
		region:     cfg.Region,
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		publicRead: cfg.PublicRead,
		presignTTL: cfg.PresignTTL,
	}, nil
}

// Put uploads body under key
func (s *S3Store) Put(ctx context.Context, key, contentType string, size int64, body io.Reader) (*Object, error) {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, err
	}

	obj := &Object{Key: key, ContentType: contentType, Size: size}
	if s.publicRead {
		obj.URL = s.publicURL(key)
	}
	return obj, nil
}

func (s *S3Store) publicURL(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, escaped)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, escaped)
}

// PresignURL returns a time limited download link for key
func (s *S3Store) PresignURL(ctx context.Context, key string) (string, error) {
	if s.publicRead {
		return s.publicURL(key), nil
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.presignTTL))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}
