package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/parnexcodes/dbxup/internal/config"
	"github.com/parnexcodes/dbxup/internal/remote"
)

// Name is the backend name used in config and log lines.
const Name = "gcs"

// ErrMissingBucket is returned when no bucket was configured.
var ErrMissingBucket = errors.New("gcs: bucket is required")

// objectStore is the part of a bucket the backend talks to.
type objectStore interface {
	Attrs(ctx context.Context, name string) (*storage.ObjectAttrs, error)
	Write(ctx context.Context, name string, content io.Reader, contentType string, ifAbsent bool) (*storage.ObjectAttrs, error)
	BucketAttrs(ctx context.Context) (*storage.BucketAttrs, error)
}

// bucketStore implements objectStore on a real bucket handle.
type bucketStore struct {
	bucket *storage.BucketHandle
}

func (s *bucketStore) Attrs(ctx context.Context, name string) (*storage.ObjectAttrs, error) {
	return s.bucket.Object(name).Attrs(ctx)
}

func (s *bucketStore) Write(ctx context.Context, name string, content io.Reader, contentType string, ifAbsent bool) (*storage.ObjectAttrs, error) {
	obj := s.bucket.Object(name)
	if ifAbsent {
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	}

	w := obj.NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, content); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return w.Attrs(), nil
}

func (s *bucketStore) BucketAttrs(ctx context.Context) (*storage.BucketAttrs, error) {
	return s.bucket.Attrs(ctx)
}

// Client uploads files to a Google Cloud Storage bucket. Remote paths map
// to object names below the configured prefix.
type Client struct {
	store  objectStore
	cfg    config.GCSConfig
	closer io.Closer
}

// Ensure interface compliance.
var _ remote.Client = (*Client)(nil)

// New creates a GCS client. Credentials come from CredentialsFile when set,
// otherwise from Application Default Credentials.
func New(ctx context.Context, cfg config.GCSConfig) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, ErrMissingBucket
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	c := newClient(&bucketStore{bucket: client.Bucket(cfg.Bucket)}, cfg)
	c.closer = client
	return c, nil
}

func newClient(store objectStore, cfg config.GCSConfig) *Client {
	return &Client{store: store, cfg: cfg}
}

// Close releases the underlying storage client
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// Name returns the backend name
func (c *Client) Name() string {
	return Name
}

// Upload writes content to the object for p. ModeAdd writes are
// conditional on the object not existing.
func (c *Client) Upload(ctx context.Context, p string, content io.Reader, mode remote.WriteMode, autorename bool) (*remote.Metadata, error) {
	target := p
	if mode == remote.ModeAdd && autorename {
		free, err := remote.Autorename(ctx, p, c.exists)
		if err != nil {
			return nil, c.wrap("upload", p, err)
		}
		target = free
	}

	attrs, err := c.store.Write(ctx, c.object(target), content, remote.ContentType(target), mode == remote.ModeAdd)
	if err != nil {
		return nil, c.wrap("upload", target, err)
	}

	return &remote.Metadata{
		Name:           path.Base(target),
		PathDisplay:    target,
		ID:             fmt.Sprintf("gs://%s/%s", attrs.Bucket, attrs.Name),
		Rev:            strconv.FormatInt(attrs.Generation, 10),
		Size:           attrs.Size,
		ServerModified: attrs.Updated,
		Backend:        Name,
	}, nil
}

// CurrentAccount reads the bucket attributes to check access.
func (c *Client) CurrentAccount(ctx context.Context) (*remote.Account, error) {
	attrs, err := c.store.BucketAttrs(ctx)
	if err != nil {
		return nil, c.wrap("bucket attrs", "", err)
	}

	account := &remote.Account{ID: attrs.Name, Name: "gs://" + attrs.Name}
	if attrs.ProjectNumber != 0 {
		account.ID = strconv.FormatUint(attrs.ProjectNumber, 10)
	}
	return account, nil
}

func (c *Client) object(p string) string {
	return strings.TrimPrefix(path.Join("/", c.cfg.Prefix, p), "/")
}

func (c *Client) exists(ctx context.Context, p string) (bool, error) {
	_, err := c.store.Attrs(ctx, c.object(p))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	return false, err
}

func (c *Client) wrap(op, p string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, remote.ErrNoFreeName) {
		return remote.NewError(remote.ErrorTypeConflict, Name, op, p, "autorename failed", err)
	}
	if errors.Is(err, storage.ErrBucketNotExist) {
		return remote.NewError(remote.ErrorTypeInvalidArgument, Name, op, p, "bucket does not exist", err)
	}

	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return remote.NewError(remote.ErrorTypeNetwork, Name, op, p, "request failed", err)
	}

	errorType := remote.ErrorTypeAPI
	switch apiErr.Code {
	case http.StatusPreconditionFailed, http.StatusConflict:
		errorType = remote.ErrorTypeConflict
	case http.StatusUnauthorized, http.StatusForbidden:
		errorType = remote.ErrorTypeAuthentication
	case http.StatusTooManyRequests:
		errorType = remote.ErrorTypeQuota
	case http.StatusRequestEntityTooLarge:
		errorType = remote.ErrorTypeFileTooLarge
	}

	message := apiErr.Message
	if message == "" {
		message = "request failed"
	}

	e := remote.NewError(errorType, Name, op, p, message, err)
	e.Code = strconv.Itoa(apiErr.Code)
	return e
}
