package repository

import (
	"time"
)

// CacheRepository - кеш статистики и короткоживущие блокировки.
// Отсутствующий ключ возвращается как apperrors.ErrNotFound.
type CacheRepository interface {
	SetJSON(key string, value interface{}, expiration time.Duration) error
	GetJSON(key string, dest interface{}) error
	// SetNX возвращает true, если ключ был установлен этим вызовом
	SetNX(key string, value interface{}, expiration time.Duration) (bool, error)
	Delete(keys ...string) error
}
