package repository

import (
	"time"

	"github.com/yourusername/studyquest-api/internal/domain/entity"
	"gorm.io/gorm"
)

// AchievementRepository определяет методы для работы с каталогом достижений
type AchievementRepository interface {
	WithTx(tx *gorm.DB) AchievementRepository
	// List возвращает весь каталог в порядке ID
	List() ([]entity.Achievement, error)
	// ListLockedForUser возвращает еще не полученные пользователем достижения в порядке ID
	ListLockedForUser(userID uint) ([]entity.Achievement, error)
	// UpsertByName создает достижение или обновляет существующее с тем же именем
	UpsertByName(achievement *entity.Achievement) error
}

// UserAchievementRepository определяет методы для работы с полученными достижениями
type UserAchievementRepository interface {
	WithTx(tx *gorm.DB) UserAchievementRepository
	// Unlock создает запись (user, achievement), если ее еще нет.
	// Возвращает true только если запись была вставлена этим вызовом.
	Unlock(userID, achievementID uint, unlockedAt time.Time) (bool, error)
	ListByUser(userID uint) ([]entity.UserAchievement, error)
	ListRecent(userID uint, limit int) ([]entity.UserAchievement, error)
	CountNew(userID uint) (int64, error)
	MarkAllSeen(userID uint) (int64, error)
}
