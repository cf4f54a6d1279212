package remote

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parnexcodes/dbxup/internal/config"
	"github.com/parnexcodes/dbxup/internal/logging"
	"github.com/parnexcodes/dbxup/internal/remote"
	"github.com/parnexcodes/dbxup/internal/remote/remotetest"
	"github.com/parnexcodes/dbxup/pkg/remote/gcs"
	"github.com/parnexcodes/dbxup/pkg/remote/s3"
)

func TestCreate(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Config
		wantName string
		wantErr  error
	}{
		{
			name:     "dropbox with token",
			cfg:      config.Config{Backend: "dropbox", Token: "sl.token"},
			wantName: "dropbox",
		},
		{
			name:     "backend name is case-insensitive",
			cfg:      config.Config{Backend: "S3", S3: config.S3Config{Bucket: "bucket"}},
			wantName: "s3",
		},
		{
			name:    "dropbox without token",
			cfg:     config.Config{Backend: "dropbox", TokenFile: filepath.Join(t.TempDir(), "dbx.cfg")},
			wantErr: config.ErrTokenNotFound,
		},
		{
			name:    "s3 without bucket",
			cfg:     config.Config{Backend: "s3"},
			wantErr: s3.ErrMissingBucket,
		},
		{
			name:    "gcs without bucket",
			cfg:     config.Config{Backend: "gcs"},
			wantErr: gcs.ErrMissingBucket,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewFactory(nil).Create(context.Background(), &tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, client.Name())
		})
	}

	_, err := NewFactory(nil).Create(context.Background(), &config.Config{Backend: "ftp"})
	assert.ErrorContains(t, err, "unknown backend: ftp")
}

func TestConnect(t *testing.T) {
	var sink bytes.Buffer
	log, err := logging.New(logging.Options{Verbosity: logging.VerbosityVerbose, Console: &bytes.Buffer{}, Sink: &sink})
	require.NoError(t, err)

	fake := remotetest.NewFake()
	account, err := NewFactory(log).Connect(context.Background(), remote.NewCheckedClient(fake, nil))
	require.NoError(t, err)
	assert.Equal(t, fake.Account, account)
	assert.Contains(t, sink.String(), "Connected to fake as")

	fake.AccountErr = errors.New("invalid_access_token")
	_, err = NewFactory(log).Connect(context.Background(), remote.NewCheckedClient(fake, nil))
	assert.ErrorIs(t, err, remote.ErrAuthentication)
}
