package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// Брокеры событий realtime
const (
	BrokerMemory = "memory"
	BrokerNATS   = "nats"
)

// minSecretLen минимальная длина секрета подписи JWT
const minSecretLen = 32

// Broker настройки доставки событий между экземплярами сервера
type Broker struct {
	Kind    string `yaml:"kind"`     // memory или nats
	NATSURL string `yaml:"nats_url"` // адрес NATS для kind=nats
}

// Server настройки backend
type Server struct {
	Broker          Broker        `yaml:"broker"`
	Addr            string        `yaml:"addr"`
	DBPath          string        `yaml:"db_path"`
	JWTSecret       string        `yaml:"jwt_secret"`
	LogLevel        string        `yaml:"log_level"`
	TokenTTL        time.Duration `yaml:"token_ttl"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	PageSize        int           `yaml:"page_size"`
	RateLimit       float64       `yaml:"rate_limit"` // запросов в секунду на IP, 0 отключает
	RateBurst       int           `yaml:"rate_burst"`
	ShowVersion     bool          `yaml:"-"`
}

// DefaultServer возвращает настройки для разработки
func DefaultServer() Server {
	return Server{
		Broker:          Broker{Kind: BrokerMemory},
		Addr:            ":8080",
		DBPath:          "livedesk.db",
		LogLevel:        "info",
		TokenTTL:        24 * time.Hour,
		ShutdownTimeout: 10 * time.Second,
		PageSize:        20,
		RateLimit:       20,
		RateBurst:       40,
	}
}

func serverFlags(cfg *Server) *pflag.FlagSet {
	fs := pflag.NewFlagSet("livedesk-server", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.String("config", "", "Path to YAML config file")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "Listen address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to SQLite database")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "Access token lifetime")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "Graceful shutdown timeout")
	fs.IntVar(&cfg.PageSize, "page-size", cfg.PageSize, "Records per page")
	fs.Float64Var(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "Requests per second per client IP, 0 disables")
	fs.IntVar(&cfg.RateBurst, "rate-burst", cfg.RateBurst, "Rate limiter burst")
	fs.StringVar(&cfg.Broker.Kind, "broker", cfg.Broker.Kind, "Event broker: memory or nats")
	fs.StringVar(&cfg.Broker.NATSURL, "nats-url", cfg.Broker.NATSURL, "NATS server URL")
	return fs
}

// LoadServer собирает настройки сервера. Секрет JWT берется из LIVEDESK_JWT_SECRET или файла.
func LoadServer(args []string, getenv func(string) string) (*Server, []string, error) {
	cfg := DefaultServer()
	fs := serverFlags(&cfg)

	if err := parse(fs, args, &cfg, DefaultServer()); err != nil {
		return nil, nil, err
	}

	cfg.ApplyEnvOverrides(getenv)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return &cfg, fs.Args(), nil
}

// ApplyEnvOverrides применяет LIVEDESK_JWT_SECRET, LIVEDESK_DB_PATH и LIVEDESK_NATS_URL
func (c *Server) ApplyEnvOverrides(getenv func(string) string) {
	envOverride(getenv, "JWT_SECRET", &c.JWTSecret)
	envOverride(getenv, "DB_PATH", &c.DBPath)
	envOverride(getenv, "NATS_URL", &c.Broker.NATSURL)
}

// Validate returns an error if the configuration is invalid.
func (c *Server) Validate() error {
	if c.Addr == "" {
		return errors.New("listen address is required")
	}
	if c.DBPath == "" {
		return errors.New("database path is required")
	}
	if len(c.JWTSecret) < minSecretLen {
		return fmt.Errorf("JWT secret must be at least %d characters (set %sJWT_SECRET)", minSecretLen, EnvPrefix)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive, got %s", c.TokenTTL)
	}
	if c.PageSize < 1 || c.PageSize > 500 {
		return fmt.Errorf("page size must be between 1 and 500, got %d", c.PageSize)
	}
	if c.RateLimit < 0 || c.RateBurst < 0 {
		return errors.New("rate limit must not be negative")
	}
	switch c.Broker.Kind {
	case BrokerMemory:
	case BrokerNATS:
		if c.Broker.NATSURL == "" {
			return fmt.Errorf("nats broker requires nats_url (or %sNATS_URL)", EnvPrefix)
		}
	default:
		return fmt.Errorf("unknown broker %q", c.Broker.Kind)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
