// Package config loads the bridge's environment-supplied configuration.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joeshaw/envdecode"
	"golang.org/x/oauth2"
)

// Figma OAuth endpoints.
const (
	AuthURL  = "https://www.figma.com/oauth"
	TokenURL = "https://api.figma.com/v1/oauth/token"
)

// Scopes requested during authorization.
var Scopes = []string{"files:read", "file_comments:write"}

// Config is the environment-supplied configuration.
type Config struct {
	// OAuth client registration for the browser flow.
	ClientID     string `env:"FIGMA_CLIENT_ID"`
	ClientSecret string `env:"FIGMA_CLIENT_SECRET"`
	RedirectURI  string `env:"FIGMA_REDIRECT_URI,default=http://localhost:3333/oauth/callback"`

	// AccessToken is a Figma personal access token. When set, the OAuth
	// flow is bypassed and every session uses this token.
	AccessToken string `env:"FIGMA_ACCESS_TOKEN"`

	// Addr is the HTTP listen address.
	Addr string `env:"FIGMA_BRIDGE_ADDR,default=:3333"`

	// RedisAddr selects the Redis credential store when non-empty;
	// otherwise credentials live in process memory only.
	RedisAddr string `env:"REDIS_ADDR"`

	LogLevel string `env:"LOG_LEVEL,default=info"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding environment: %w", err)
	}
	return cfg, nil
}

// OAuth builds the oauth2 client config, or nil when no client is
// registered.
func (c Config) OAuth() *oauth2.Config {
	if c.ClientID == "" {
		return nil
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  AuthURL,
			TokenURL: TokenURL,
		},
	}
}

// SlogLevel maps the LOG_LEVEL string to a slog level.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
