package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/parnexcodes/dbxup/internal/config"
	"github.com/parnexcodes/dbxup/internal/remote"
)

const (
	// Name is the backend name used in config and log lines.
	Name = "s3"

	// MaxUploadSize is the largest object a single PutObject accepts.
	MaxUploadSize int64 = 5 << 30
)

// ErrMissingBucket is returned when no bucket was configured.
var ErrMissingBucket = errors.New("s3: bucket is required")

// objectAPI is the subset of *s3.Client used by the backend.
type objectAPI interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Client uploads files to an S3-compatible bucket. Remote paths map to
// keys below the configured prefix.
type Client struct {
	api objectAPI
	cfg config.S3Config
	now func() time.Time
}

// Ensure interface compliance.
var (
	_ remote.Client  = (*Client)(nil)
	_ remote.Limited = (*Client)(nil)
)

// New creates an S3 client from the given configuration.
func New(cfg config.S3Config) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, ErrMissingBucket
	}

	opts := []func(*s3.Options){
		func(o *s3.Options) {
			if cfg.Region != "" {
				o.Region = cfg.Region
			} else {
				o.Region = "us-east-1"
			}

			if cfg.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.EndpointURL)
			}

			if cfg.ForcePathStyle {
				o.UsePathStyle = true
			}

			if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
				o.Credentials = credentials.NewStaticCredentialsProvider(
					cfg.AccessKeyID, cfg.SecretAccessKey, "",
				)
			}
		},
	}

	return newClient(s3.New(s3.Options{}, opts...), cfg), nil
}

func newClient(api objectAPI, cfg config.S3Config) *Client {
	return &Client{api: api, cfg: cfg, now: time.Now}
}

// Name returns the backend name
func (c *Client) Name() string {
	return Name
}

// MaxUploadSize returns the single-call upload limit
func (c *Client) MaxUploadSize() int64 {
	return MaxUploadSize
}

// Upload puts content at the key for p. ModeAdd refuses to replace an
// existing key, or with autorename picks the first free "name (n).ext".
func (c *Client) Upload(ctx context.Context, p string, content io.Reader, mode remote.WriteMode, autorename bool) (*remote.Metadata, error) {
	target := p
	if mode == remote.ModeAdd {
		if autorename {
			free, err := remote.Autorename(ctx, p, c.exists)
			if err != nil {
				return nil, c.wrap("upload", p, err)
			}
			target = free
		} else {
			taken, err := c.exists(ctx, p)
			if err != nil {
				return nil, c.wrap("upload", p, err)
			}
			if taken {
				return nil, remote.NewError(remote.ErrorTypeConflict, Name, "upload", p, "object already exists", nil)
			}
		}
	}

	body, size, release, err := remote.Seekable(content)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, remote.NewError(remote.ErrorTypeUnknown, Name, "upload", target, "failed to read content", err)
	}
	defer release()

	input := &s3.PutObjectInput{
		Bucket:        aws.String(c.cfg.Bucket),
		Key:           aws.String(c.key(target)),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(remote.ContentType(target)),
	}
	if mode == remote.ModeAdd {
		input.IfNoneMatch = aws.String("*")
	}
	if c.cfg.StorageClass != "" {
		input.StorageClass = s3types.StorageClass(c.cfg.StorageClass)
	}

	out, err := c.api.PutObject(ctx, input)
	if err != nil {
		return nil, c.wrap("upload", target, err)
	}

	rev := aws.ToString(out.VersionId)
	if rev == "" {
		rev = strings.Trim(aws.ToString(out.ETag), `"`)
	}

	return &remote.Metadata{
		Name:           path.Base(target),
		PathDisplay:    target,
		ID:             fmt.Sprintf("s3://%s/%s", c.cfg.Bucket, c.key(target)),
		Rev:            rev,
		Size:           size,
		ServerModified: c.now().UTC(),
		Backend:        Name,
	}, nil
}

// CurrentAccount checks that the bucket is reachable with the configured
// credentials. S3 has no account identity, so the bucket stands in for it.
func (c *Client) CurrentAccount(ctx context.Context) (*remote.Account, error) {
	out, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.cfg.Bucket)})
	if err != nil {
		return nil, c.wrap("head bucket", "", err)
	}

	name := "s3://" + c.cfg.Bucket
	if region := aws.ToString(out.BucketRegion); region != "" {
		name += " (" + region + ")"
	}
	return &remote.Account{ID: c.cfg.Bucket, Name: name}, nil
}

func (c *Client) key(p string) string {
	return strings.TrimPrefix(path.Join("/", c.cfg.Prefix, p), "/")
}

func (c *Client) exists(ctx context.Context, p string) (bool, error) {
	_, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(c.key(p)),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

func isNotFound(err error) bool {
	var notFound *s3types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchKey *s3types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	return statusCode(err) == http.StatusNotFound
}

func statusCode(err error) int {
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode()
	}
	return 0
}

func (c *Client) wrap(op, p string, err error) error {
	var remoteErr *remote.Error
	if errors.As(err, &remoteErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, remote.ErrNoFreeName) {
		return remote.NewError(remote.ErrorTypeConflict, Name, op, p, "autorename failed", err)
	}

	errorType := remote.ErrorTypeAPI
	code := ""
	message := "request failed"

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code = apiErr.ErrorCode()
		message = apiErr.ErrorMessage()
		if message == "" {
			message = "request failed"
		}
	}

	switch status := statusCode(err); {
	case status == http.StatusPreconditionFailed || status == http.StatusConflict:
		errorType = remote.ErrorTypeConflict
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		errorType = remote.ErrorTypeAuthentication
	case status == http.StatusTooManyRequests || code == "SlowDown":
		errorType = remote.ErrorTypeQuota
	case status == http.StatusRequestEntityTooLarge || code == "EntityTooLarge":
		errorType = remote.ErrorTypeFileTooLarge
	case status == 0 && apiErr == nil:
		errorType = remote.ErrorTypeNetwork
	}

	e := remote.NewError(errorType, Name, op, p, message, err)
	e.Code = code
	return e
}
