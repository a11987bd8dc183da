// Package config loads the crewd configuration.
//
// Values are resolved in layers: built in defaults, an optional YAML file,
// then the go-config container providers (a .env file in the working
// directory is loaded into the environment first when present). The result
// is validated before it is returned.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-print"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const redacted = "********"

// Config is the master configuration for crewd.
type Config struct {
	Server    ServerConfig    `koanf:"server" yaml:"server" json:"server"`
	Database  DatabaseConfig  `koanf:"database" yaml:"database" json:"database"`
	Auth      AuthConfig      `koanf:"auth" yaml:"auth" json:"auth"`
	Log       LogConfig       `koanf:"log" yaml:"log" json:"log"`
	Lifecycle LifecycleConfig `koanf:"lifecycle" yaml:"lifecycle" json:"lifecycle"`
	Bootstrap BootstrapConfig `koanf:"bootstrap" yaml:"bootstrap" json:"bootstrap"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `koanf:"addr" yaml:"addr" json:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout" yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout" yaml:"write_timeout" json:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	BodyLimit       int           `koanf:"body_limit" yaml:"body_limit" json:"body_limit"`
}

// DatabaseConfig configures the SQLite directory store.
type DatabaseConfig struct {
	// DSN is handed to the sqliteshim driver, e.g. "file:crew.db?cache=shared"
	DSN   string `koanf:"dsn" yaml:"dsn" json:"dsn"`
	Debug bool   `koanf:"debug" yaml:"debug" json:"debug"`
}

// AuthConfig configures session tokens and password hashing.
type AuthConfig struct {
	SigningKey   string        `koanf:"signing_key" yaml:"signing_key" json:"signing_key"`
	Issuer       string        `koanf:"issuer" yaml:"issuer" json:"issuer"`
	Audience     []string      `koanf:"audience" yaml:"audience" json:"audience"`
	TokenTTL     time.Duration `koanf:"token_ttl" yaml:"token_ttl" json:"token_ttl"`
	PasswordCost int           `koanf:"password_cost" yaml:"password_cost" json:"password_cost"`
	ContextKey   string        `koanf:"context_key" yaml:"context_key" json:"context_key"`
	TokenLookup  string        `koanf:"token_lookup" yaml:"token_lookup" json:"token_lookup"`
	AuthScheme   string        `koanf:"auth_scheme" yaml:"auth_scheme" json:"auth_scheme"`
}

// LogConfig selects the zap setup.
type LogConfig struct {
	Level string `koanf:"level" yaml:"level" json:"level"`
	Dev   bool   `koanf:"dev" yaml:"dev" json:"dev"`
}

// LifecycleConfig tunes the lifecycle engine.
type LifecycleConfig struct {
	AutoVerifyIdentity bool `koanf:"auto_verify_identity" yaml:"auto_verify_identity" json:"auto_verify_identity"`
	MaxRetries         int  `koanf:"max_retries" yaml:"max_retries" json:"max_retries"`
}

// BootstrapConfig describes the system creator account seeded on start.
type BootstrapConfig struct {
	Username    string `koanf:"username" yaml:"username" json:"username"`
	CountryCode string `koanf:"country_code" yaml:"country_code" json:"country_code"`
	Mobile      string `koanf:"mobile" yaml:"mobile" json:"mobile"`
	FullName    string `koanf:"full_name" yaml:"full_name" json:"full_name"`
	Password    string `koanf:"password" yaml:"password" json:"password"`
}

// Default returns a configuration usable for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			BodyLimit:       4 * 1024 * 1024,
		},
		Database: DatabaseConfig{
			DSN: "file:crew.db?cache=shared",
		},
		Auth: AuthConfig{
			SigningKey:   "crew-development-signing-key",
			Issuer:       "crew",
			TokenTTL:     24 * time.Hour,
			PasswordCost: 10,
			ContextKey:   "user",
			TokenLookup:  "header:Authorization,cookie:crew_session",
			AuthScheme:   "Bearer",
		},
		Log: LogConfig{
			Level: "info",
		},
		Lifecycle: LifecycleConfig{
			MaxRetries: 3,
		},
		Bootstrap: BootstrapConfig{
			Username:    "0077541308",
			CountryCode: "+98",
			FullName:    "System Creator",
			Password:    "admin",
		},
	}
}

// Load resolves the configuration. path may be empty, in which case only
// defaults and the environment are used. The seeded struct is handed to a
// go-config container which layers its providers on top and validates.
func Load(ctx context.Context, path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	container := gconfig.New(cfg)
	if err := container.Load(ctx); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	out := container.Raw()
	if err := out.Validate(); err != nil {
		return nil, err
	}

	return out, nil
}

// Validate will run validation rules
func (c *Config) Validate() error {
	return validation.Errors{
		"server":    c.Server.Validate(),
		"database":  c.Database.Validate(),
		"auth":      c.Auth.Validate(),
		"log":       c.Log.Validate(),
		"lifecycle": c.Lifecycle.Validate(),
		"bootstrap": c.Bootstrap.Validate(),
	}.Filter()
}

// Validate will run validation rules
func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Addr, validation.Required),
		validation.Field(&s.ShutdownTimeout, validation.Min(time.Duration(0))),
		validation.Field(&s.BodyLimit, validation.Min(0)),
	)
}

// Validate will run validation rules
func (d DatabaseConfig) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.DSN, validation.Required),
	)
}

// Validate will run validation rules
func (a AuthConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.SigningKey, validation.Required, validation.Length(16, 0)),
		validation.Field(&a.TokenTTL, validation.Required, validation.Min(time.Minute)),
		validation.Field(&a.PasswordCost, validation.Min(4), validation.Max(31)),
	)
}

// Validate will run validation rules
func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "error")),
	)
}

// Validate will run validation rules
func (l LifecycleConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.MaxRetries, validation.Min(0), validation.Max(20)),
	)
}

// Validate will run validation rules. Either a username or a country code
// and mobile pair must identify the creator.
func (b BootstrapConfig) Validate() error {
	mobileRules := []validation.Rule{}
	if b.Username == "" {
		mobileRules = append(mobileRules, validation.Required)
	}
	return validation.ValidateStruct(&b,
		validation.Field(&b.CountryCode, mobileRules...),
		validation.Field(&b.Mobile, mobileRules...),
		validation.Field(&b.Password, validation.Required, validation.Length(1, 72)),
	)
}

// GetSigningKey returns the HMAC key for session tokens
func (a AuthConfig) GetSigningKey() string { return a.SigningKey }

// GetTokenExpiration returns the token lifetime in hours
func (a AuthConfig) GetTokenExpiration() int { return int(a.TokenTTL / time.Hour) }

// GetIssuer returns the token issuer
func (a AuthConfig) GetIssuer() string { return a.Issuer }

// GetAudience returns the token audience
func (a AuthConfig) GetAudience() []string { return a.Audience }

// Redacted returns a copy with secrets masked
func (c Config) Redacted() Config {
	out := c
	out.Auth.Audience = append([]string(nil), c.Auth.Audience...)
	if out.Auth.SigningKey != "" {
		out.Auth.SigningKey = redacted
	}
	if out.Bootstrap.Password != "" {
		out.Bootstrap.Password = redacted
	}
	return out
}

// String renders the redacted configuration as indented JSON
func (c Config) String() string {
	return print.MaybePrettyJSON(c.Redacted())
}
