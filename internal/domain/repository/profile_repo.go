package repository

import (
	"github.com/yourusername/studyquest-api/internal/domain/entity"
	"gorm.io/gorm"
)

// ProfileRepository определяет методы для работы с профилями геймификации
type ProfileRepository interface {
	// WithTx возвращает репозиторий, работающий в транзакции tx
	WithTx(tx *gorm.DB) ProfileRepository
	GetByUserID(userID uint) (*entity.UserProfile, error)
	// GetOrCreate возвращает профиль, создавая его при первом обращении
	GetOrCreate(userID uint) (*entity.UserProfile, error)
	// Save сохраняет профиль с проверкой версии (ErrProfileVersionConflict)
	Save(profile *entity.UserProfile) error
}
