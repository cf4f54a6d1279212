package dropbox

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/users"
	"golang.org/x/oauth2"

	"github.com/parnexcodes/dbxup/internal/remote"
)

const (
	// Name is the backend name used in config and log lines.
	Name = "dropbox"

	// MaxUploadSize is the largest file a single upload call accepts.
	MaxUploadSize int64 = 150 << 20
)

// ErrMissingToken is returned when no access token was configured.
var ErrMissingToken = errors.New("dropbox: access token is required")

// Client uploads files through the Dropbox API v2.
type Client struct {
	files files.Client
	users users.Client
}

// Ensure interface compliance.
var (
	_ remote.Client  = (*Client)(nil)
	_ remote.Limited = (*Client)(nil)
)

// New creates a Dropbox client for the given access token. No request is
// made until the first call. Every request is bound to ctx, so cancelling
// it aborts a call in flight.
func New(ctx context.Context, token string) (*Client, error) {
	return newWithConfig(ctx, token, dropbox.Config{})
}

func newWithConfig(ctx context.Context, token string, cfg dropbox.Config) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}

	cfg.Token = token
	cfg.LogLevel = dropbox.LogOff
	cfg.Client = &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			Base:   &contextTransport{ctx: ctx, base: http.DefaultTransport},
		},
	}

	return newClient(files.New(cfg), users.New(cfg)), nil
}

func newClient(filesClient files.Client, usersClient users.Client) *Client {
	return &Client{files: filesClient, users: usersClient}
}

// Name returns the backend name
func (c *Client) Name() string {
	return Name
}

// MaxUploadSize returns the single-call upload limit
func (c *Client) MaxUploadSize() int64 {
	return MaxUploadSize
}

// Upload sends content to path in one call. Autorename is done server-side.
func (c *Client) Upload(ctx context.Context, path string, content io.Reader, mode remote.WriteMode, autorename bool) (*remote.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	arg := files.NewUploadArg(path)
	arg.Mode = writeMode(mode)
	arg.Autorename = autorename

	res, err := c.files.Upload(arg, content)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, classify("upload", path, err)
	}

	return &remote.Metadata{
		Name:           res.Name,
		PathDisplay:    res.PathDisplay,
		ID:             res.Id,
		Rev:            res.Rev,
		Size:           int64(res.Size),
		ServerModified: res.ServerModified,
		Backend:        Name,
	}, nil
}

// CurrentAccount fetches the account owning the token.
func (c *Client) CurrentAccount(ctx context.Context) (*remote.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := c.users.GetCurrentAccount()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, classify("get current account", "", err)
	}

	account := &remote.Account{ID: res.AccountId, Email: res.Email}
	if res.Name != nil {
		account.Name = res.Name.DisplayName
	}
	return account, nil
}

// contextTransport attaches ctx to every outgoing request. The SDK builds
// its requests without one.
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t *contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}

func writeMode(mode remote.WriteMode) *files.WriteMode {
	tag := files.WriteModeAdd
	if mode == remote.ModeOverwrite {
		tag = files.WriteModeOverwrite
	}
	return &files.WriteMode{Tagged: dropbox.Tagged{Tag: tag}}
}

// Tags found in API error summaries such as "path/conflict/file/..".
var summaryTypes = []struct {
	fragment  string
	errorType remote.ErrorType
}{
	{"invalid_access_token", remote.ErrorTypeAuthentication},
	{"expired_access_token", remote.ErrorTypeAuthentication},
	{"missing_scope", remote.ErrorTypeAuthentication},
	{"insufficient_space", remote.ErrorTypeQuota},
	{"too_many_requests", remote.ErrorTypeQuota},
	{"too_many_write_operations", remote.ErrorTypeQuota},
	{"conflict", remote.ErrorTypeConflict},
	{"payload_too_large", remote.ErrorTypeFileTooLarge},
	{"malformed_path", remote.ErrorTypeInvalidArgument},
	{"disallowed_name", remote.ErrorTypeInvalidArgument},
}

func classify(op, path string, err error) error {
	summary := err.Error()
	errorType := remote.ErrorTypeAPI
	code := ""

	for _, candidate := range summaryTypes {
		if strings.Contains(summary, candidate.fragment) {
			errorType = candidate.errorType
			code = candidate.fragment
			break
		}
	}

	if code == "" && isNetworkError(summary) {
		errorType = remote.ErrorTypeNetwork
	}

	e := remote.NewError(errorType, Name, op, path, "request failed", err)
	e.Code = code
	return e
}

func isNetworkError(summary string) bool {
	for _, fragment := range []string{"connection refused", "no such host", "i/o timeout", "connection reset", "EOF"} {
		if strings.Contains(summary, fragment) {
			return true
		}
	}
	return false
}
