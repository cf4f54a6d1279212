// Package remotetest provides an in-memory remote.Client for tests.
package remotetest

import (
	"context"
	"io"
	"sync"

	"github.com/parnexcodes/dbxup/internal/remote"
)

// Call records one Upload invocation.
type Call struct {
	Path       string
	Content    []byte
	Mode       remote.WriteMode
	Autorename bool
}

// Fake stores uploads in memory. Autorename follows the same naming as
// the S3 and GCS backends.
type Fake struct {
	mu sync.Mutex

	Files   map[string][]byte
	Calls   []Call
	Account *remote.Account

	// UploadErr, when set, is returned for the listed paths.
	UploadErr map[string]error
	// AccountErr is returned by CurrentAccount.
	AccountErr error
	// BeforeUpload runs before content is read.
	BeforeUpload func(path string)
	// MaxSize is reported through remote.Limited when positive.
	MaxSize int64
}

// NewFake returns an empty Fake.
func NewFake() *Fake {
	return &Fake{
		Files:     map[string][]byte{},
		UploadErr: map[string]error{},
		Account:   &remote.Account{ID: "dbid:fake", Name: "Fake User", Email: "fake@example.com"},
	}
}

// Name implements remote.Client.
func (f *Fake) Name() string {
	return "fake"
}

// MaxUploadSize implements remote.Limited.
func (f *Fake) MaxUploadSize() int64 {
	return f.MaxSize
}

// Upload implements remote.Client.
func (f *Fake) Upload(ctx context.Context, path string, content io.Reader, mode remote.WriteMode, autorename bool) (*remote.Metadata, error) {
	if f.BeforeUpload != nil {
		f.BeforeUpload(path)
	}

	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, Call{Path: path, Content: data, Mode: mode, Autorename: autorename})

	if err := f.UploadErr[path]; err != nil {
		return nil, err
	}

	target := path
	if mode == remote.ModeAdd {
		if _, taken := f.Files[path]; taken {
			if !autorename {
				return nil, remote.NewError(remote.ErrorTypeConflict, f.Name(), "upload", path, "path already exists", nil)
			}
			target, err = remote.Autorename(ctx, path, func(_ context.Context, p string) (bool, error) {
				_, ok := f.Files[p]
				return ok, nil
			})
			if err != nil {
				return nil, err
			}
		}
	}

	f.Files[target] = data
	return &remote.Metadata{
		PathDisplay: target,
		Size:        int64(len(data)),
		Backend:     f.Name(),
	}, nil
}

// CurrentAccount implements remote.Client.
func (f *Fake) CurrentAccount(ctx context.Context) (*remote.Account, error) {
	if f.AccountErr != nil {
		return nil, f.AccountErr
	}
	return f.Account, nil
}

// Uploaded returns the requested paths in call order.
func (f *Fake) Uploaded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	paths := make([]string, 0, len(f.Calls))
	for _, call := range f.Calls {
		paths = append(paths, call.Path)
	}
	return paths
}
