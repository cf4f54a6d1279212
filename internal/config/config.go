package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/parnexcodes/dbxup/internal/cleanup"
)

const (
	// EnvPrefix prefixes every environment variable read by viper.
	EnvPrefix = "DBXUP"

	// DefaultTokenFile holds the token below a "-t" line. The same file
	// can be passed as "@dbx.cfg" to supply arguments.
	DefaultTokenFile = "dbx.cfg"

	DefaultLocation  = "/"
	DefaultVerbosity = 1
	DefaultBackend   = "dropbox"
	DefaultLogFile   = "dbxupload.log"
)

var (
	ErrTokenNotFound = errors.New("no token found")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Backends lists the supported remote backends.
var Backends = []string{"dropbox", "s3", "gcs"}

// Config holds the application configuration
type Config struct {
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"token_file"`
	Location  string `mapstructure:"location"`
	Replace   bool   `mapstructure:"replace"`
	PPS       bool   `mapstructure:"pps"`
	Cleanup   bool   `mapstructure:"cleanup"`
	Verbosity int    `mapstructure:"verbosity"`
	Backend   string `mapstructure:"backend"`
	LogFile   string `mapstructure:"log_file"`
	Summary   string `mapstructure:"summary"`

	CleanupRules cleanup.Rules `mapstructure:"cleanup_rules"`
	S3           S3Config      `mapstructure:"s3"`
	GCS          GCSConfig     `mapstructure:"gcs"`
}

// S3Config holds settings for S3-compatible storage
type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Region          string `mapstructure:"region"`
	EndpointURL     string `mapstructure:"endpoint_url"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
	StorageClass    string `mapstructure:"storage_class"`
}

// GCSConfig holds settings for Google Cloud Storage
type GCSConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// LoadEnv loads .env files into the process environment. Missing files
// are ignored; variables already set win.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

// BindEnv makes viper read DBXUP_* variables, with "." and "-" in keys
// mapped to "_".
func BindEnv() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

// LoadConfig loads configuration from flags, file and environment
func LoadConfig() (*Config, error) {
	config := &Config{}

	// Set default values
	setDefaults()

	// Read configuration
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults() {
	// Global defaults
	viper.SetDefault("token", "")
	viper.SetDefault("token_file", DefaultTokenFile)
	viper.SetDefault("location", DefaultLocation)
	viper.SetDefault("replace", false)
	viper.SetDefault("pps", false)
	viper.SetDefault("cleanup", false)
	viper.SetDefault("verbosity", DefaultVerbosity)
	viper.SetDefault("backend", DefaultBackend)
	viper.SetDefault("log_file", DefaultLogFile)
	viper.SetDefault("summary", "")

	// Cleanup defaults
	rules := cleanup.DefaultRules()
	viper.SetDefault("cleanup_rules.source_suffixes", rules.SourceSuffixes)
	viper.SetDefault("cleanup_rules.marker", rules.Marker)

	// Backend defaults, registered so env-only values reach Unmarshal
	viper.SetDefault("s3.bucket", "")
	viper.SetDefault("s3.prefix", "")
	viper.SetDefault("s3.region", "us-east-1")
	viper.SetDefault("s3.endpoint_url", "")
	viper.SetDefault("s3.access_key_id", "")
	viper.SetDefault("s3.secret_access_key", "")
	viper.SetDefault("s3.force_path_style", false)
	viper.SetDefault("s3.storage_class", "")
	viper.SetDefault("gcs.bucket", "")
	viper.SetDefault("gcs.prefix", "")
	viper.SetDefault("gcs.credentials_file", "")
}

// Validate checks values that flags alone cannot restrict
func (c *Config) Validate() error {
	if c.Verbosity < 0 || c.Verbosity > 2 {
		return fmt.Errorf("%w: verbosity must be 0, 1 or 2, got %d", ErrInvalidConfig, c.Verbosity)
	}

	known := false
	for _, backend := range Backends {
		if strings.EqualFold(c.Backend, backend) {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: unknown backend %q (expected one of %s)", ErrInvalidConfig, c.Backend, strings.Join(Backends, ", "))
	}

	switch strings.ToLower(c.Summary) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: unsupported summary format %q", ErrInvalidConfig, c.Summary)
	}

	return nil
}

// ResolveToken returns the configured token, falling back to TokenFile.
func (c *Config) ResolveToken() (string, error) {
	if c.Token != "" {
		return c.Token, nil
	}
	path := c.TokenFile
	if path == "" {
		path = DefaultTokenFile
	}
	return ReadTokenFile(path)
}

// ReadTokenFile returns the line following the first line that is exactly
// "-t", surrounding whitespace trimmed.
func ReadTokenFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenNotFound, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	found := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if found {
			if line == "" {
				break
			}
			return line, nil
		}
		found = line == "-t"
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	return "", fmt.Errorf("%w: no token below a \"-t\" line in %s", ErrTokenNotFound, path)
}
