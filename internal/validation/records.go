package validation

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/iudanet/livedesk/internal/models"
)

const (
	// MaxSearchLen максимальная длина строки поиска
	MaxSearchLen = 100
	// MaxNameLen максимальная длина имени записи
	MaxNameLen = 255
	// MaxMessageLen максимальная длина сообщения чата
	MaxMessageLen = 4096
)

// ColorPattern цвет тега в формате #rrggbb
var ColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ValidateCollection проверяет, что коллекция известна серверу
func ValidateCollection(name string) (models.Collection, error) {
	collection := models.Collection(name)
	if !collection.IsValid() {
		return "", fmt.Errorf("unknown collection %q", name)
	}
	return collection, nil
}

// NormalizeSearch приводит строку поиска к виду, в котором она сравнивается с именами.
// Поиск регистронезависимый, пробелы по краям отбрасываются.
func NormalizeSearch(search string) (string, error) {
	search = strings.ToLower(strings.TrimSpace(search))
	if utf8.RuneCountInString(search) > MaxSearchLen {
		return "", fmt.Errorf("search must not exceed %d characters", MaxSearchLen)
	}
	return search, nil
}

// ValidateName проверяет имя записи
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if utf8.RuneCountInString(name) > MaxNameLen {
		return fmt.Errorf("name must not exceed %d characters", MaxNameLen)
	}
	return nil
}

// ValidateMessage проверяет текст сообщения чата
func ValidateMessage(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("message cannot be empty")
	}
	if utf8.RuneCountInString(text) > MaxMessageLen {
		return fmt.Errorf("message must not exceed %d characters", MaxMessageLen)
	}
	return nil
}

// ValidateColor проверяет цвет тега; пустой цвет допустим
func ValidateColor(color string) error {
	if color == "" {
		return nil
	}
	if !ColorPattern.MatchString(color) {
		return fmt.Errorf("color must be in #rrggbb format")
	}
	return nil
}

// ValidatePageNumber проверяет номер страницы (с 1)
func ValidatePageNumber(page int) error {
	if page < 1 {
		return fmt.Errorf("page number must be positive")
	}
	return nil
}

// reservedFields хранятся в колонках записи и не могут приходить в Fields
var reservedFields = []string{"id", "name", "order", "createdAt", "updatedAt"}

// TicketStatuses допустимые статусы тикета
var TicketStatuses = []string{"open", "pending", "closed"}

var connectionStatuses = []string{
	models.ConnectionConnected,
	models.ConnectionQRCode,
	models.ConnectionPairing,
	models.ConnectionDisconnected,
	models.ConnectionTimeout,
	models.ConnectionOpening,
}

// ValidateFields проверяет произвольные поля записи коллекции
func ValidateFields(collection models.Collection, fields map[string]any) error {
	for _, key := range reservedFields {
		if _, ok := fields[key]; ok {
			return fmt.Errorf("field %q is reserved", key)
		}
	}

	switch collection {
	case models.CollectionTags:
		color, err := stringField(fields, "color")
		if err != nil {
			return err
		}
		return ValidateColor(color)
	case models.CollectionTickets:
		return enumField(fields, "status", TicketStatuses)
	case models.CollectionConnections:
		return enumField(fields, "status", connectionStatuses)
	}
	return nil
}

func stringField(fields map[string]any, key string) (string, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q must be a string", key)
	}
	return s, nil
}

func enumField(fields map[string]any, key string, allowed []string) error {
	v, err := stringField(fields, key)
	if err != nil || v == "" {
		return err
	}
	if !slices.Contains(allowed, v) {
		return fmt.Errorf("field %q must be one of %s", key, strings.Join(allowed, ", "))
	}
	return nil
}
