package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/pflag"
)

// Client настройки терминального клиента
type Client struct {
	ServerURL   string        `yaml:"server_url"`
	DBPath      string        `yaml:"db_path"`
	LogLevel    string        `yaml:"log_level"`
	Debounce    time.Duration `yaml:"debounce"`
	ShowVersion bool          `yaml:"-"`
}

// DefaultClient возвращает настройки по умолчанию
func DefaultClient() Client {
	return Client{
		ServerURL: "http://localhost:8080",
		DBPath:    "livedesk-client.db",
		LogLevel:  "warn",
		Debounce:  500 * time.Millisecond,
	}
}

func clientFlags(cfg *Client) *pflag.FlagSet {
	fs := pflag.NewFlagSet("livedesk", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.String("config", "", "Path to YAML config file")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to local database")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	fs.DurationVar(&cfg.Debounce, "debounce", cfg.Debounce, "Quiet period before search requests")
	return fs
}

// LoadClient собирает настройки клиента. Возвращает аргументы после глобальных флагов.
func LoadClient(args []string, getenv func(string) string) (*Client, []string, error) {
	cfg := DefaultClient()
	fs := clientFlags(&cfg)

	if err := parse(fs, args, &cfg, DefaultClient()); err != nil {
		return nil, nil, err
	}

	cfg.ApplyEnvOverrides(getenv)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return &cfg, fs.Args(), nil
}

// ApplyEnvOverrides применяет LIVEDESK_SERVER_URL и LIVEDESK_DB_PATH
func (c *Client) ApplyEnvOverrides(getenv func(string) string) {
	envOverride(getenv, "SERVER_URL", &c.ServerURL)
	envOverride(getenv, "DB_PATH", &c.DBPath)
}

// Validate returns an error if the configuration is invalid.
func (c *Client) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid server URL %q", c.ServerURL)
	}
	if c.DBPath == "" {
		return errors.New("database path is required")
	}
	if c.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative, got %s", c.Debounce)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
