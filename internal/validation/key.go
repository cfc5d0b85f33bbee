package validation

import (
	"fmt"
	"regexp"
)

// KeyPattern определяет допустимый формат ключа хранилища
// Строчные латинские буквы, цифры, точки, дефисы и нижние подчеркивания
// Ключ обязан начинаться с буквы и состоять из namespace-сегментов через точку
var KeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*(\.[a-z0-9_-]+)*$`)

const (
	// MaxKeyLen максимальная длина ключа хранилища
	MaxKeyLen = 128
)

// ValidateKey проверяет, что ключ хранилища соответствует требованиям
// Формат: namespace-сегменты через точку, например "queue.actions"
// Длина: 1-128 символов
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("storage key cannot be empty")
	}

	if len(key) > MaxKeyLen {
		return fmt.Errorf("storage key must not exceed %d characters", MaxKeyLen)
	}

	if !KeyPattern.MatchString(key) {
		return fmt.Errorf("storage key can only contain lowercase letters, numbers, dots, dashes and underscores")
	}

	return nil
}
