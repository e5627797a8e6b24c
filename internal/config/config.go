package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Providers ProvidersConfig `yaml:"providers"`
	Proxy     ProxyConfig     `yaml:"proxy"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `yaml:"host" envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port         int           `yaml:"port" envconfig:"SERVER_PORT" default:"3000"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"5m"`
}

// DatabaseConfig holds the sqlite history store configuration.
type DatabaseConfig struct {
	Path string `yaml:"path" envconfig:"DATABASE_PATH" default:"database/app.db"`
}

// AuthConfig holds session and GitHub OAuth configuration.
type AuthConfig struct {
	JWTSecret          string        `yaml:"jwt_secret" envconfig:"JWT_SECRET"`
	SessionTTL         time.Duration `yaml:"session_ttl" envconfig:"SESSION_TTL" default:"168h"` // 7 days
	GitHubClientID     string        `yaml:"github_client_id" envconfig:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string        `yaml:"github_client_secret" envconfig:"GITHUB_CLIENT_SECRET"`
	SecureCookies      bool          `yaml:"secure_cookies" envconfig:"SECURE_COOKIES" default:"false"`
}

// ProvidersConfig holds upstream provider configuration shared by the
// platform adapters.
type ProvidersConfig struct {
	AIOBaseURL string        `yaml:"aio_base_url" envconfig:"AIO_BASE_URL" default:"https://api.apocalypse.web.id"`
	UserAgent  string        `yaml:"user_agent" envconfig:"PROVIDER_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"PROVIDER_TIMEOUT" default:"30s"`

	// PinterestCookie is the session cookie the Pinterest scraper sends.
	// Never checked into source; inject via environment.
	PinterestCookie string `yaml:"pinterest_cookie" envconfig:"PINTEREST_COOKIE"`

	// YtDlpPath is the yt-dlp binary used by the Instagram extractor.
	YtDlpPath string `yaml:"ytdlp_path" envconfig:"YTDLP_PATH" default:"yt-dlp"`
}

// ProxyConfig holds byte-proxy configuration.
type ProxyConfig struct {
	ImageTimeout time.Duration `yaml:"image_timeout" envconfig:"PROXY_IMAGE_TIMEOUT" default:"8s"`
	MediaTimeout time.Duration `yaml:"media_timeout" envconfig:"PROXY_MEDIA_TIMEOUT" default:"120s"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
