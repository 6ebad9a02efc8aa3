// Package config loads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Server struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

// Addr returns host:port for the listener.
func (s Server) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type Database struct {
	DSN string
}

type Auth struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// Redis is optional; an empty Address disables cross-instance events.
type Redis struct {
	Address  string
	Password string
	Channel  string
}

// Mail is optional; an empty Host disables email delivery.
type Mail struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type Notify struct {
	Workers   int
	QueueSize int
}

type Log struct {
	Level slog.Level
}

type Cache struct {
	LeaderboardTTL time.Duration
}

// Config is the full service configuration.
type Config struct {
	Server   Server
	Database Database
	Auth     Auth
	Redis    Redis
	Mail     Mail
	Notify   Notify
	Log      Log
	Cache    Cache
}

// Load reads .env files (if any) and then the environment.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		slog.Debug(".env file not found, using environment variables")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv and validates it.
func FromEnv(getenv func(string) string) (*Config, error) {
	r := reader{getenv: getenv}
	cfg := &Config{
		Server: Server{
			Host:            r.str("SERVER_HOST", "0.0.0.0"),
			Port:            r.int("SERVER_PORT", 8008),
			ShutdownTimeout: r.duration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Database: Database{DSN: r.str("DATABASE_DSN", "marketplace.db")},
		Auth: Auth{
			Secret:   r.str("JWT_SECRET", ""),
			Issuer:   r.str("JWT_ISSUER", "task-marketplace-api"),
			Audience: r.str("JWT_AUDIENCE", "task-marketplace-web"),
			TTL:      r.duration("JWT_TTL", 24*time.Hour),
		},
		Redis: Redis{
			Address:  r.str("REDIS_ADDRESS", ""),
			Password: r.str("REDIS_PASSWORD", ""),
			Channel:  r.str("REDIS_CHANNEL", "marketplace.notifications"),
		},
		Mail: Mail{
			Host:     r.str("SMTP_HOST", ""),
			Port:     r.int("SMTP_PORT", 587),
			Username: r.str("SMTP_USERNAME", ""),
			Password: r.str("SMTP_PASSWORD", ""),
			From:     r.str("MAIL_FROM", "noreply@marketplace.local"),
		},
		Notify: Notify{
			Workers:   r.int("NOTIFY_WORKERS", 4),
			QueueSize: r.int("NOTIFY_QUEUE_SIZE", 256),
		},
		Log:   Log{Level: r.level("LOG_LEVEL", slog.LevelInfo)},
		Cache: Cache{LeaderboardTTL: r.duration("LEADERBOARD_TTL", 30*time.Second)},
	}
	if err := errors.Join(r.errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every setting that cannot work.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("SERVER_PORT %d out of range", c.Server.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT must be greater than 0"))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must not be empty"))
	}
	if len(c.Auth.Secret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 16 characters"))
	}
	if c.Auth.TTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be greater than 0"))
	}
	if c.Redis.Address != "" && c.Redis.Channel == "" {
		errs = append(errs, errors.New("REDIS_CHANNEL must not be empty when REDIS_ADDRESS is set"))
	}
	if c.Mail.Host != "" && c.Mail.From == "" {
		errs = append(errs, errors.New("MAIL_FROM must not be empty when SMTP_HOST is set"))
	}
	if c.Notify.Workers <= 0 {
		errs = append(errs, errors.New("NOTIFY_WORKERS must be greater than 0"))
	}
	if c.Notify.QueueSize <= 0 {
		errs = append(errs, errors.New("NOTIFY_QUEUE_SIZE must be greater than 0"))
	}
	return errors.Join(errs...)
}

type reader struct {
	getenv func(string) string
	errs   []error
}

func (r *reader) str(key, def string) string {
	if v := strings.TrimSpace(r.getenv(key)); v != "" {
		return v
	}
	return def
}

func (r *reader) int(key string, def int) int {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return def
	}
	return i
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not a duration", key, v))
		return def
	}
	return d
}

func (r *reader) level(key string, def slog.Level) slog.Level {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not a log level", key, v))
		return def
	}
	return lvl
}
