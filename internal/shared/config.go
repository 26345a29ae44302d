package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Fetch       FetchConfig       `toml:"fetch"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Logging     LoggingConfig     `toml:"logging"`
}

// CredentialsConfig contains catalog-specific credentials.
type CredentialsConfig struct {
	AppleMusic AppleMusicConfig `toml:"apple_music"`
	Spotify    SpotifyConfig    `toml:"spotify"`
}

// AppleMusicConfig contains the developer-token signing material for the JWT catalog.
type AppleMusicConfig struct {
	TeamID         string `toml:"team_id"`
	KeyID          string `toml:"key_id"`
	PrivateKeyPath string `toml:"private_key_path"`
	Storefront     string `toml:"storefront" validate:"omitempty,len=2"`
	AffiliateToken string `toml:"affiliate_token"`
	TokenTTLHours  int    `toml:"token_ttl_hours" validate:"gte=0,lte=4380"`
	BaseURL        string `toml:"base_url" validate:"omitempty,url"`
}

// Configured reports whether enough material is present to mint developer tokens.
func (c AppleMusicConfig) Configured() bool {
	return c.TeamID != "" && c.KeyID != "" && c.PrivateKeyPath != ""
}

// SpotifyConfig contains client-credentials settings for the OAuth catalog.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	Market       string `toml:"market" validate:"omitempty,len=2"`
	TokenURL     string `toml:"token_url" validate:"omitempty,url"`
	BaseURL      string `toml:"base_url" validate:"omitempty,url"`
}

// Configured reports whether client credentials are present.
func (c SpotifyConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// FetchConfig tunes the aggregation pipeline.
//
// The similarity thresholds are empirically tuned and should only be changed
// alongside a labeled corpus.
type FetchConfig struct {
	RequestIntervalMS      int     `toml:"request_interval_ms" validate:"gte=0"`
	RequestTimeoutSeconds  int     `toml:"request_timeout_seconds" validate:"gte=0"`
	SearchLimit            int     `toml:"search_limit" validate:"gte=1,lte=50"`
	SimilarityThreshold    float64 `toml:"similarity_threshold" validate:"gt=0,lte=1"`
	NearDuplicateThreshold float64 `toml:"near_duplicate_threshold" validate:"gte=0,ltefield=SimilarityThreshold"`
}

// RequestInterval returns the inter-request delay as a [time.Duration].
func (c FetchConfig) RequestInterval() time.Duration {
	return time.Duration(c.RequestIntervalMS) * time.Millisecond
}

// RequestTimeout returns the per-request HTTP timeout.
func (c FetchConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns" validate:"gte=0"`
	MaxIdleConns int    `toml:"max_idle_conns" validate:"gte=0"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port" validate:"gte=0,lte=65535"`
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoggingConfig contains log level and optional file output.
type LoggingConfig struct {
	Level string `toml:"level" validate:"omitempty,oneof=debug info warn error fatal"`
	File  string `toml:"file"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

var configValidator = validator.New()

// Validate checks field constraints and reports every violation wrapped in [ErrInvalidConfig].
func (c *Config) Validate() error {
	err := configValidator.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}
