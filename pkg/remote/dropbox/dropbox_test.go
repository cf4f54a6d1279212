package dropbox

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parnexcodes/dbxup/internal/remote"
)

type fakeFiles struct {
	files.Client

	arg  *files.UploadArg
	body string
	err  error
}

func (f *fakeFiles) Upload(arg *files.UploadArg, content io.Reader) (*files.FileMetadata, error) {
	f.arg = arg
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	f.body = string(data)
	if f.err != nil {
		return nil, f.err
	}

	res := &files.FileMetadata{
		Id:             "id:abc",
		Rev:            "015f",
		Size:           uint64(len(data)),
		ServerModified: time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC),
	}
	res.Name = "b (1).txt"
	res.PathDisplay = "/dest/b (1).txt"
	return res, nil
}

type fakeUsers struct {
	users.Client

	account *users.FullAccount
	err     error
}

func (f *fakeUsers) GetCurrentAccount() (*users.FullAccount, error) {
	return f.account, f.err
}

func TestNew_RequiresToken(t *testing.T) {
	_, err := New(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrMissingToken)

	client, err := New(context.Background(), "sl.token")
	require.NoError(t, err)
	assert.Equal(t, Name, client.Name())
	assert.Equal(t, int64(150*1024*1024), client.MaxUploadSize())
}

func TestUpload(t *testing.T) {
	tests := []struct {
		name       string
		mode       remote.WriteMode
		autorename bool
		wantTag    string
	}{
		{name: "add with autorename", mode: remote.ModeAdd, autorename: true, wantTag: files.WriteModeAdd},
		{name: "overwrite", mode: remote.ModeOverwrite, wantTag: files.WriteModeOverwrite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeFiles{}
			client := newClient(fake, &fakeUsers{})

			metadata, err := client.Upload(context.Background(), "/dest/b.txt", strings.NewReader("bee"), tt.mode, tt.autorename)
			require.NoError(t, err)

			assert.Equal(t, "/dest/b.txt", fake.arg.Path)
			assert.Equal(t, tt.wantTag, fake.arg.Mode.Tag)
			assert.Equal(t, tt.autorename, fake.arg.Autorename)
			assert.Equal(t, "bee", fake.body)

			assert.Equal(t, "/dest/b (1).txt", metadata.PathDisplay)
			assert.Equal(t, "b (1).txt", metadata.Name)
			assert.Equal(t, "id:abc", metadata.ID)
			assert.Equal(t, "015f", metadata.Rev)
			assert.Equal(t, int64(3), metadata.Size)
			assert.Equal(t, Name, metadata.Backend)
		})
	}
}

func TestUpload_Errors(t *testing.T) {
	tests := []struct {
		summary  string
		wantType remote.ErrorType
	}{
		{summary: "path/insufficient_space/..", wantType: remote.ErrorTypeQuota},
		{summary: "path/conflict/file/...", wantType: remote.ErrorTypeConflict},
		{summary: "invalid_access_token/..", wantType: remote.ErrorTypeAuthentication},
		{summary: `Post "https://content.dropboxapi.com/2/files/upload": dial tcp: lookup content.dropboxapi.com: no such host`, wantType: remote.ErrorTypeNetwork},
		{summary: "something_unexpected/", wantType: remote.ErrorTypeAPI},
	}

	for _, tt := range tests {
		t.Run(tt.summary, func(t *testing.T) {
			client := newClient(&fakeFiles{err: errors.New(tt.summary)}, &fakeUsers{})

			_, err := client.Upload(context.Background(), "/b.txt", strings.NewReader("x"), remote.ModeAdd, true)
			require.Error(t, err)
			assert.Equal(t, tt.wantType, remote.GetErrorType(err))
			assert.Contains(t, err.Error(), tt.summary)
		})
	}
}

func TestUpload_Canceled(t *testing.T) {
	fake := &fakeFiles{}
	client := newClient(fake, &fakeUsers{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Upload(ctx, "/b.txt", strings.NewReader("x"), remote.ModeAdd, true)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, fake.arg)
}

func TestCurrentAccount(t *testing.T) {
	full := &users.FullAccount{}
	full.AccountId = "dbid:123"
	full.Email = "ada@example.com"
	full.Name = &users.Name{DisplayName: "Ada Lovelace"}

	client := newClient(&fakeFiles{}, &fakeUsers{account: full})
	account, err := client.CurrentAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &remote.Account{ID: "dbid:123", Name: "Ada Lovelace", Email: "ada@example.com"}, account)

	client = newClient(&fakeFiles{}, &fakeUsers{err: errors.New("expired_access_token/")})
	_, err = client.CurrentAccount(context.Background())
	assert.ErrorIs(t, err, remote.ErrAuthentication)
}

func TestStalledRequestsFollowContext(t *testing.T) {
	auth := make(chan string, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth <- r.Header.Get("Authorization")
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	calls := map[string]func(context.Context, *Client) error{
		"upload": func(ctx context.Context, c *Client) error {
			_, err := c.Upload(ctx, "/b.txt", strings.NewReader("bee"), remote.ModeAdd, true)
			return err
		},
		"current account": func(ctx context.Context, c *Client) error {
			_, err := c.CurrentAccount(ctx)
			return err
		},
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			client, err := newWithConfig(ctx, "sl.token", dropbox.Config{
				URLGenerator: func(_, _, route string) string {
					return server.URL + "/2/" + route
				},
			})
			require.NoError(t, err)

			time.AfterFunc(100*time.Millisecond, cancel)
			start := time.Now()
			err = call(ctx, client)

			assert.ErrorIs(t, err, context.Canceled)
			assert.Less(t, time.Since(start), 2*time.Second)
			assert.Equal(t, "Bearer sl.token", <-auth)
		})
	}
}
