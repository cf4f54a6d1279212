package remote

import (
	"context"
	"fmt"
	"strings"

	"github.com/parnexcodes/dbxup/internal/config"
	"github.com/parnexcodes/dbxup/internal/logging"
	"github.com/parnexcodes/dbxup/internal/remote"
	"github.com/parnexcodes/dbxup/pkg/remote/dropbox"
	"github.com/parnexcodes/dbxup/pkg/remote/gcs"
	"github.com/parnexcodes/dbxup/pkg/remote/s3"
)

// Factory creates backend clients based on configuration
type Factory struct {
	log *logging.Logger
}

// NewFactory creates a new backend factory. log may be nil.
func NewFactory(log *logging.Logger) *Factory {
	return &Factory{log: log}
}

// Create builds the configured backend and wraps it in a
// remote.CheckedClient. No request is made.
func (f *Factory) Create(ctx context.Context, cfg *config.Config) (*remote.CheckedClient, error) {
	f.debug("Creating %s client", cfg.Backend)

	var (
		backend remote.Client
		err     error
	)

	switch strings.ToLower(cfg.Backend) {
	case dropbox.Name, "":
		var token string
		token, err = cfg.ResolveToken()
		if err != nil {
			return nil, fmt.Errorf("failed to create backend '%s': %w", dropbox.Name, err)
		}
		backend, err = dropbox.New(ctx, token)
	case s3.Name:
		backend, err = s3.New(cfg.S3)
	case gcs.Name:
		backend, err = gcs.New(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown backend: %s", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create backend '%s': %w", cfg.Backend, err)
	}

	return remote.NewCheckedClient(backend, f.log), nil
}

// Connect runs the eager identity check on client.
func (f *Factory) Connect(ctx context.Context, client remote.Client) (*remote.Account, error) {
	account, err := client.CurrentAccount(ctx)
	if err != nil {
		return nil, err
	}

	f.debug("Connected to %s as %s (%s)", client.Name(), account.Name, account.ID)
	return account, nil
}

// Open creates the configured backend and checks its credentials.
func (f *Factory) Open(ctx context.Context, cfg *config.Config) (*remote.CheckedClient, error) {
	client, err := f.Create(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if _, err := f.Connect(ctx, client); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}

func (f *Factory) debug(format string, args ...interface{}) {
	if f.log != nil {
		f.log.Debug(format, args...)
	}
}
