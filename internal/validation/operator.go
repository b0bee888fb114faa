package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Учетные записи операторов создаются командой useradd сервера,
// логин и пароль повторно проверяются при входе.

const (
	// MinUsernameLen минимальная длина логина оператора
	MinUsernameLen = 3
	// MaxUsernameLen максимальная длина логина оператора
	MaxUsernameLen = 32
	// MaxTenantLen максимальная длина идентификатора тенанта
	MaxTenantLen = 64
	// MinPasswordLen минимальная длина пароля в символах
	MinPasswordLen = 8
	// MaxPasswordLen ограничивает объем данных, который argon2 хеширует на один вход
	MaxPasswordLen = 128
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

	// tenantPattern slug компании: строчные латинские буквы и цифры, дефис только внутри
	tenantPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
)

// ErrPasswordIsUsername пароль совпадает с логином без учета регистра
var ErrPasswordIsUsername = errors.New("password must differ from username")

// ValidateUsername проверяет логин оператора
func ValidateUsername(username string) error {
	switch n := len(username); {
	case n == 0:
		return fmt.Errorf("username cannot be empty")
	case n < MinUsernameLen:
		return fmt.Errorf("username must be at least %d characters long", MinUsernameLen)
	case n > MaxUsernameLen:
		return fmt.Errorf("username must not exceed %d characters", MaxUsernameLen)
	}

	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("username may contain only latin letters, digits and underscores")
	}
	return nil
}

// ValidateTenant проверяет идентификатор тенанта.
// Тенант попадает в токен и разделяет подписки realtime, поэтому пробелы и регистр в нем не допускаются.
func ValidateTenant(tenant string) error {
	if tenant == "" {
		return fmt.Errorf("tenant cannot be empty")
	}
	if len(tenant) > MaxTenantLen {
		return fmt.Errorf("tenant must not exceed %d characters", MaxTenantLen)
	}
	if !tenantPattern.MatchString(tenant) {
		return fmt.Errorf("tenant %q must be a lowercase slug like acme or acme-support", tenant)
	}
	return nil
}

// ValidatePassword проверяет длину пароля оператора
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	switch {
	case n == 0:
		return fmt.Errorf("password cannot be empty")
	case n < MinPasswordLen:
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLen)
	case n > MaxPasswordLen:
		return fmt.Errorf("password must not exceed %d characters", MaxPasswordLen)
	}
	return nil
}

// ValidateOperator проверяет новую учетную запись оператора целиком
func ValidateOperator(tenant, username, password string) error {
	if err := ValidateTenant(tenant); err != nil {
		return err
	}
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if err := ValidatePassword(password); err != nil {
		return err
	}
	if strings.EqualFold(password, username) {
		return ErrPasswordIsUsername
	}
	return nil
}
