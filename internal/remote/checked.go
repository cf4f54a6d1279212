package remote

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/parnexcodes/dbxup/internal/logging"
	"github.com/parnexcodes/dbxup/internal/pathutil"
)

// CheckedClient wraps a backend to enforce the Client contract: arguments
// are validated before any request, responses are validated after, and
// every failure comes back as an *Error.
type CheckedClient struct {
	client Client
	log    *logging.Logger
}

// Ensure interface compliance.
var (
	_ Client  = (*CheckedClient)(nil)
	_ Limited = (*CheckedClient)(nil)
)

// NewCheckedClient wraps client. log may be nil.
func NewCheckedClient(client Client, log *logging.Logger) *CheckedClient {
	return &CheckedClient{client: client, log: log}
}

// Name returns the wrapped backend's name
func (c *CheckedClient) Name() string {
	return c.client.Name()
}

// MaxUploadSize forwards to the backend, 0 meaning unlimited.
func (c *CheckedClient) MaxUploadSize() int64 {
	if limited, ok := c.client.(Limited); ok {
		return limited.MaxUploadSize()
	}
	return 0
}

// Upload validates the request, calls the backend and validates the answer.
func (c *CheckedClient) Upload(ctx context.Context, path string, content io.Reader, mode WriteMode, autorename bool) (*Metadata, error) {
	if path == "" || pathutil.Normalize(path) != path {
		return nil, NewError(ErrorTypeInvalidArgument, c.Name(), "upload", path, "remote path must be absolute and normalized", nil)
	}
	if mode != ModeAdd && mode != ModeOverwrite {
		return nil, NewError(ErrorTypeInvalidArgument, c.Name(), "upload", path, fmt.Sprintf("unsupported write mode %d", int(mode)), nil)
	}
	if content == nil {
		return nil, NewError(ErrorTypeInvalidArgument, c.Name(), "upload", path, "no content", nil)
	}

	c.debug("%s upload %s (mode=%s, autorename=%t)", c.Name(), path, mode, autorename)

	metadata, err := c.client.Upload(ctx, path, content, mode, autorename)
	if err != nil {
		return nil, c.wrap("upload", path, ErrorTypeAPI, err)
	}

	if err := c.validateMetadata(path, metadata); err != nil {
		return nil, err
	}
	if metadata.Backend == "" {
		metadata.Backend = c.Name()
	}
	if metadata.Name == "" {
		metadata.Name = pathutil.Base(metadata.PathDisplay)
	}

	c.debug("%s stored %s as %s", c.Name(), path, metadata.PathDisplay)
	return metadata, nil
}

// CurrentAccount checks the credentials, classifying failures as
// authentication errors unless the backend said otherwise.
func (c *CheckedClient) CurrentAccount(ctx context.Context) (*Account, error) {
	account, err := c.client.CurrentAccount(ctx)
	if err != nil {
		return nil, c.wrap("identity check", "", ErrorTypeAuthentication, err)
	}
	if account == nil {
		return nil, NewError(ErrorTypeAuthentication, c.Name(), "identity check", "", "backend returned no account", nil)
	}
	return account, nil
}

// Close closes the backend if it holds resources.
func (c *CheckedClient) Close() error {
	if closer, ok := c.client.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// validateMetadata ensures the response meets minimum requirements
func (c *CheckedClient) validateMetadata(path string, metadata *Metadata) error {
	if metadata == nil {
		return NewError(ErrorTypeAPI, c.Name(), "upload", path, "backend returned no metadata", nil)
	}
	if metadata.PathDisplay == "" {
		return NewError(ErrorTypeAPI, c.Name(), "upload", path, "backend response missing destination path", nil)
	}
	return nil
}

// wrap classifies err unless it already is an *Error. Context errors keep
// their identity through Unwrap.
func (c *CheckedClient) wrap(op, path string, fallback ErrorType, err error) error {
	var remoteErr *Error
	if errors.As(err, &remoteErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewError(ErrorTypeNetwork, c.Name(), op, path, "interrupted", err)
	}
	return NewError(fallback, c.Name(), op, path, "request failed", err)
}

func (c *CheckedClient) debug(format string, args ...interface{}) {
	if c.log != nil {
		c.log.Debug(format, args...)
	}
}
