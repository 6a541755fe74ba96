// Package config loads server settings.
//
// Values are layered, later layers winning:
//
//  1. Default()
//  2. the YAML file passed to Load, if any
//  3. variables from a .env file in the working directory
//  4. process environment variables (PORT, DB_PATH, JWT_SECRET, ...)
//
// A .env file never overrides a variable already set in the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Redis    RedisConfig    `yaml:"redis"`
	Render   RenderConfig   `yaml:"render"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
	// BaseURL is the public origin used for absolute links in RSS feeds.
	BaseURL         string        `yaml:"base_url"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	JWTSecret          string        `yaml:"jwt_secret"`
	TokenTTL           time.Duration `yaml:"token_ttl"`
	SecureCookies      bool          `yaml:"secure_cookies"`
	GitHubClientID     string        `yaml:"github_client_id"`
	GitHubClientSecret string        `yaml:"github_client_secret"`
	GitHubCallbackURL  string        `yaml:"github_callback_url"`
}

// GitHubEnabled reports whether GitHub login is configured.
func (a AuthConfig) GitHubEnabled() bool {
	return a.GitHubClientID != ""
}

// RedisConfig enables the rendered-page cache when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

type RenderConfig struct {
	// Sanitize runs rendered markdown through an HTML allow-list.
	Sanitize bool `yaml:"sanitize"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			BaseURL:         "http://localhost:8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{Path: "data/minispace.db"},
		Auth: AuthConfig{
			TokenTTL:          24 * time.Hour,
			GitHubCallbackURL: "http://localhost:8080/auth/github/callback",
		},
		Redis:  RedisConfig{TTL: 5 * time.Minute},
		Render: RenderConfig{Sanitize: true},
		Log:    LogConfig{Level: "info"},
	}
}

// Load builds the configuration. path may be empty to skip the YAML layer.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString("BASE_URL", &cfg.Server.BaseURL)
	setString("DB_PATH", &cfg.Database.Path)
	setString("JWT_SECRET", &cfg.Auth.JWTSecret)
	setString("GITHUB_CLIENT_ID", &cfg.Auth.GitHubClientID)
	setString("GITHUB_CLIENT_SECRET", &cfg.Auth.GitHubClientSecret)
	setString("GITHUB_CALLBACK_URL", &cfg.Auth.GitHubCallbackURL)
	setString("REDIS_ADDR", &cfg.Redis.Addr)
	setString("REDIS_PASSWORD", &cfg.Redis.Password)
	setString("LOG_LEVEL", &cfg.Log.Level)

	return errors.Join(
		setInt("PORT", &cfg.Server.Port),
		setInt("REDIS_DB", &cfg.Redis.DB),
		setDuration("TOKEN_TTL", &cfg.Auth.TokenTTL),
		setDuration("CACHE_TTL", &cfg.Redis.TTL),
		setBool("SECURE_COOKIES", &cfg.Auth.SecureCookies),
		setBool("RENDER_SANITIZE", &cfg.Render.Sanitize),
		setBool("LOG_PRETTY", &cfg.Log.Pretty),
	)
}

func setString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(key string, dst *int) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func setDuration(key string, dst *time.Duration) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = d
	return nil
}

func setBool(key string, dst *bool) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = b
	return nil
}

// Validate checks the loaded settings.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server),
		validation.Field(&c.Database),
		validation.Field(&c.Auth),
		validation.Field(&c.Redis),
		validation.Field(&c.Log),
	)
}

func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&s.BaseURL, validation.Required, is.URL),
		validation.Field(&s.ShutdownTimeout, validation.Min(time.Duration(0))),
	)
}

func (d DatabaseConfig) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Path, validation.Required),
	)
}

func (a AuthConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.JWTSecret, validation.Required, validation.Length(16, 0)),
		validation.Field(&a.TokenTTL, validation.Required),
		validation.Field(&a.GitHubClientSecret, validation.When(a.GitHubEnabled(), validation.Required)),
		validation.Field(&a.GitHubCallbackURL, validation.When(a.GitHubEnabled(), validation.Required, is.URL)),
	)
}

func (r RedisConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DB, validation.Min(0)),
		validation.Field(&r.TTL, validation.When(r.Enabled(), validation.Required)),
	)
}

func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "error")),
	)
}
