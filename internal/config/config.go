// Package config loads application configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix is the prefix for environment overrides. Nested keys use a
// double underscore: RELAY_SERVER__PORT maps to server.port.
const envPrefix = "RELAY_"

// Config is the root application configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Database      DatabaseConfig      `koanf:"database"`
	Log           LogConfig           `koanf:"log"`
	JWT           JWTConfig           `koanf:"jwt"`
	CORS          CORSConfig          `koanf:"cors"`
	Notifications NotificationsConfig `koanf:"notifications"`
	Oncall        OncallConfig        `koanf:"oncall"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port"`
	MetricsPort       string        `koanf:"metrics_port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
}

// DatabaseConfig holds Postgres settings. An empty URL selects the
// in-memory repositories.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	ConnectAttempts int           `koanf:"connect_attempts"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// JWTConfig holds token verification settings. An empty secret disables
// authentication on mutating routes.
type JWTConfig struct {
	SecretKey string `koanf:"secret_key"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// NotificationsConfig holds per-channel sender settings and dispatch
// bounds.
type NotificationsConfig struct {
	Dispatch DispatchConfig `koanf:"dispatch"`
	Slack    SlackConfig    `koanf:"slack"`
	Discord  DiscordConfig  `koanf:"discord"`
	Twilio   TwilioConfig   `koanf:"twilio"`
	Email    EmailConfig    `koanf:"email"`
	WarRoom  WarRoomConfig  `koanf:"war_room"`
}

// DispatchConfig bounds the notification fan-out.
type DispatchConfig struct {
	MaxConcurrent int           `koanf:"max_concurrent"`
	SendTimeout   time.Duration `koanf:"send_timeout"`
	MaxRetries    int           `koanf:"max_retries"`
	RetryBackoff  time.Duration `koanf:"retry_backoff"`
}

// SlackConfig holds Slack webhook settings.
type SlackConfig struct {
	WebhookURL string `koanf:"webhook_url"`
	Username   string `koanf:"username"`
	IconEmoji  string `koanf:"icon_emoji"`
}

// DiscordConfig holds Discord webhook settings.
type DiscordConfig struct {
	WebhookURL string `koanf:"webhook_url"`
}

// TwilioConfig holds Twilio SMS settings. APIBaseURL is overridable so
// tests can point the sender at a local fake.
type TwilioConfig struct {
	AccountSID    string  `koanf:"account_sid"`
	AuthToken     string  `koanf:"auth_token"`
	FromNumber    string  `koanf:"from_number"`
	APIBaseURL    string  `koanf:"api_base_url"`
	RatePerSecond float64 `koanf:"rate_per_second"`
}

// EmailConfig holds SMTP settings.
type EmailConfig struct {
	Enabled      bool   `koanf:"enabled"`
	SMTPHost     string `koanf:"smtp_host"`
	SMTPPort     int    `koanf:"smtp_port"`
	SMTPUser     string `koanf:"smtp_user"`
	SMTPPassword string `koanf:"smtp_password"`
	FromAddress  string `koanf:"from_address"`
}

// WarRoomConfig holds war-room link settings.
type WarRoomConfig struct {
	BaseURL string `koanf:"base_url"`
}

// OncallConfig holds the team roster.
type OncallConfig struct {
	Teams map[string]TeamConfig `koanf:"teams"`
}

// TeamConfig is one roster entry.
type TeamConfig struct {
	Engineer EngineerConfig `koanf:"engineer"`
	Channels ChannelsConfig `koanf:"channels"`
}

// EngineerConfig is a roster contact.
type EngineerConfig struct {
	Name       string `koanf:"name"`
	Phone      string `koanf:"phone"`
	Email      string `koanf:"email"`
	ChatHandle string `koanf:"chat_handle"`
}

// ChannelsConfig is a roster channel set.
type ChannelsConfig struct {
	Primary string `koanf:"primary"`
	General string `koanf:"general"`
	Alerts  string `koanf:"alerts"`
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			MetricsPort:       "9090",
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnectTimeout:  30 * time.Second,
			ConnectAttempts: 5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Notifications: NotificationsConfig{
			Dispatch: DispatchConfig{
				MaxConcurrent: 8,
				SendTimeout:   10 * time.Second,
				MaxRetries:    2,
				RetryBackoff:  500 * time.Millisecond,
			},
			Twilio: TwilioConfig{
				RatePerSecond: 1,
			},
			Email: EmailConfig{
				SMTPPort: 587,
			},
			WarRoom: WarRoomConfig{
				BaseURL: "https://meet.google.com",
			},
		},
	}
}

// Load reads configuration from an optional YAML file and RELAY_ prefixed
// environment variables, layered over the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps RELAY_SERVER__METRICS_PORT to server.metrics_port: the double
// underscore separates nesting levels, single underscores stay part of the
// key.
func envKey(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

func (c *Config) validate() error {
	if c.Notifications.Email.Enabled {
		if c.Notifications.Email.SMTPHost == "" {
			return fmt.Errorf("notifications.email.smtp_host is required when email is enabled")
		}
		if c.Notifications.Email.FromAddress == "" {
			return fmt.Errorf("notifications.email.from_address is required when email is enabled")
		}
	}
	if c.Notifications.Dispatch.MaxRetries < 0 {
		return fmt.Errorf("notifications.dispatch.max_retries must not be negative")
	}
	return nil
}
