// Package config загружает настройки клиента и сервера.
// Порядок: значения по умолчанию -> YAML файл (--config) -> флаги -> переменные окружения LIVEDESK_* -> Validate.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// EnvPrefix префикс переменных окружения
const EnvPrefix = "LIVEDESK_"

// loadFile читает YAML поверх уже заполненных значений
func loadFile(filename string, cfg any) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", filename, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", filename, err)
	}
	return nil
}

// parse разбирает флаги и применяет файл из --config.
// Явно заданные флаги имеют приоритет над файлом.
func parse[T any](fs *pflag.FlagSet, args []string, cfg *T, defaults T) error {
	if err := fs.Parse(args); err != nil {
		return err
	}

	path, err := fs.GetString("config")
	if err != nil || path == "" {
		return nil
	}

	changed := make(map[string]string)
	fs.Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})

	fileCfg := defaults
	if err := loadFile(path, &fileCfg); err != nil {
		return err
	}
	*cfg = fileCfg

	for name, value := range changed {
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("failed to apply flag --%s: %w", name, err)
		}
	}
	return nil
}

// envOverride заменяет значение, если переменная окружения задана
func envOverride(getenv func(string) string, name string, target *string) {
	if v := getenv(EnvPrefix + name); v != "" {
		*target = v
	}
}

// ParseLevel переводит debug|info|warn|error в уровень slog
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", level)
	}
	return l, nil
}

// NewLogger создает логгер: JSON для сервера, текст для клиента
func NewLogger(w io.Writer, level string, json bool) (*slog.Logger, error) {
	l, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: l}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
