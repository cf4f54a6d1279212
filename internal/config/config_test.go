package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, DefaultLocation, cfg.Location)
	assert.Equal(t, DefaultVerbosity, cfg.Verbosity)
	assert.Equal(t, DefaultBackend, cfg.Backend)
	assert.Equal(t, DefaultLogFile, cfg.LogFile)
	assert.Equal(t, DefaultTokenFile, cfg.TokenFile)
	assert.Equal(t, []string{".py"}, cfg.CleanupRules.SourceSuffixes)
	assert.Equal(t, "c", cfg.CleanupRules.Marker)
	assert.Equal(t, "us-east-1", cfg.S3.Region)
	assert.False(t, cfg.Replace)
	assert.False(t, cfg.PPS)
	assert.False(t, cfg.Cleanup)
}

func TestLoadConfig_Environment(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("DBXUP_LOCATION", "/backups")
	t.Setenv("DBXUP_BACKEND", "s3")
	t.Setenv("DBXUP_S3_BUCKET", "my-bucket")
	t.Setenv("DBXUP_S3_FORCE_PATH_STYLE", "true")
	t.Setenv("DBXUP_VERBOSITY", "2")
	BindEnv()

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "/backups", cfg.Location)
	assert.Equal(t, "s3", cfg.Backend)
	assert.Equal(t, "my-bucket", cfg.S3.Bucket)
	assert.True(t, cfg.S3.ForcePathStyle)
	assert.Equal(t, 2, cfg.Verbosity)
}

func TestLoadConfig_File(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := writeTemp(t, "dbxup.yaml", `
backend: gcs
location: /photos
gcs:
  bucket: family-photos
  prefix: uploads
cleanup_rules:
  source_suffixes: [".py", ".pyw"]
  marker: "o"
`)
	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "gcs", cfg.Backend)
	assert.Equal(t, "/photos", cfg.Location)
	assert.Equal(t, "family-photos", cfg.GCS.Bucket)
	assert.Equal(t, "uploads", cfg.GCS.Prefix)
	assert.Equal(t, []string{".py", ".pyw"}, cfg.CleanupRules.SourceSuffixes)
	assert.Equal(t, "o", cfg.CleanupRules.Marker)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "negative verbosity", mutate: func(c *Config) { c.Verbosity = -1 }, wantErr: true},
		{name: "verbosity too high", mutate: func(c *Config) { c.Verbosity = 3 }, wantErr: true},
		{name: "unknown backend", mutate: func(c *Config) { c.Backend = "ftp" }, wantErr: true},
		{name: "backend is case-insensitive", mutate: func(c *Config) { c.Backend = "S3" }},
		{name: "json summary", mutate: func(c *Config) { c.Summary = "json" }},
		{name: "bad summary", mutate: func(c *Config) { c.Summary = "xml" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Verbosity: 1, Backend: "dropbox"}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestReadTokenFile(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
		wantErr  bool
	}{
		{name: "token below flag", content: "-t\nsl.ABC123\n", expected: "sl.ABC123"},
		{name: "other args first", content: "-l\n/dest\n-t\n  tok  \n-r\n", expected: "tok"},
		{name: "flag must match exactly", content: "-token\nnope\n", wantErr: true},
		{name: "flag on last line", content: "file.txt\n-t\n", wantErr: true},
		{name: "empty file", content: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTemp(t, "dbx.cfg", tt.content)
			token, err := ReadTokenFile(path)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrTokenNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, token)
		})
	}

	_, err := ReadTokenFile(filepath.Join(t.TempDir(), "absent.cfg"))
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestResolveToken(t *testing.T) {
	cfg := &Config{Token: "from-flag", TokenFile: writeTemp(t, "dbx.cfg", "-t\nfrom-file\n")}
	token, err := cfg.ResolveToken()
	require.NoError(t, err)
	assert.Equal(t, "from-flag", token)

	cfg.Token = ""
	token, err = cfg.ResolveToken()
	require.NoError(t, err)
	assert.Equal(t, "from-file", token)
}

func TestLoadEnv(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Cleanup(func() { _ = os.Unsetenv("DBXUP_TOKEN") })

	path := writeTemp(t, ".env", "DBXUP_TOKEN=from-dotenv\n")
	require.NoError(t, LoadEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	BindEnv()

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Token)
}
