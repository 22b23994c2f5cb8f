package postgres

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/studyquest-api/internal/domain/entity"
	"github.com/yourusername/studyquest-api/internal/domain/repository"
)

// AchievementRepo реализует repository.AchievementRepository
type AchievementRepo struct {
	db *gorm.DB
}

// NewAchievementRepo создает новый репозиторий каталога достижений
func NewAchievementRepo(db *gorm.DB) *AchievementRepo {
	return &AchievementRepo{db: db}
}

// WithTx возвращает копию репозитория, работающую в транзакции
func (r *AchievementRepo) WithTx(tx *gorm.DB) repository.AchievementRepository {
	return &AchievementRepo{db: tx}
}

// List возвращает каталог в порядке ID
func (r *AchievementRepo) List() ([]entity.Achievement, error) {
	var achievements []entity.Achievement
	err := r.db.Order("id ASC").Find(&achievements).Error
	return achievements, err
}

// ListLockedForUser возвращает достижения, которые пользователь еще не получил
func (r *AchievementRepo) ListLockedForUser(userID uint) ([]entity.Achievement, error) {
	var achievements []entity.Achievement
	err := r.db.
		Where("NOT EXISTS (SELECT 1 FROM user_achievements ua WHERE ua.achievement_id = achievements.id AND ua.user_id = ?)", userID).
		Order("id ASC").
		Find(&achievements).Error
	if err != nil {
		return nil, fmt.Errorf("list locked achievements for user #%d: %w", userID, err)
	}
	return achievements, nil
}

// UpsertByName создает достижение или обновляет поля существующего с тем же именем
func (r *AchievementRepo) UpsertByName(achievement *entity.Achievement) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"description", "icon", "type", "rarity", "xp_reward", "criteria"}),
	}).Create(achievement).Error
}

// UserAchievementRepo реализует repository.UserAchievementRepository
type UserAchievementRepo struct {
	db *gorm.DB
}

// NewUserAchievementRepo создает новый репозиторий полученных достижений
func NewUserAchievementRepo(db *gorm.DB) *UserAchievementRepo {
	return &UserAchievementRepo{db: db}
}

// WithTx возвращает копию репозитория, работающую в транзакции
func (r *UserAchievementRepo) WithTx(tx *gorm.DB) repository.UserAchievementRepository {
	return &UserAchievementRepo{db: tx}
}

// Unlock вставляет запись (user, achievement) через ON CONFLICT DO NOTHING.
// Уникальный индекс idx_user_achievement гарантирует отсутствие дубликатов.
func (r *UserAchievementRepo) Unlock(userID, achievementID uint, unlockedAt time.Time) (bool, error) {
	ua := &entity.UserAchievement{
		UserID:        userID,
		AchievementID: achievementID,
		UnlockedAt:    unlockedAt,
		IsNew:         true,
	}
	result := r.db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "achievement_id"}},
		DoNothing: true,
	}).Create(ua)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return false, nil
		}
		return false, fmt.Errorf("unlock achievement #%d for user #%d: %w", achievementID, userID, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// ListByUser возвращает полученные достижения, новые первыми
func (r *UserAchievementRepo) ListByUser(userID uint) ([]entity.UserAchievement, error) {
	var list []entity.UserAchievement
	err := r.db.Preload("Achievement").
		Where("user_id = ?", userID).
		Order("unlocked_at DESC, id DESC").
		Find(&list).Error
	return list, err
}

// ListRecent возвращает последние limit полученных достижений
func (r *UserAchievementRepo) ListRecent(userID uint, limit int) ([]entity.UserAchievement, error) {
	var list []entity.UserAchievement
	err := r.db.Preload("Achievement").
		Where("user_id = ?", userID).
		Order("unlocked_at DESC, id DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

// CountNew считает непросмотренные достижения
func (r *UserAchievementRepo) CountNew(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entity.UserAchievement{}).
		Where("user_id = ? AND is_new = ?", userID, true).
		Count(&count).Error
	return count, err
}

// MarkAllSeen снимает флаг is_new со всех достижений пользователя
func (r *UserAchievementRepo) MarkAllSeen(userID uint) (int64, error) {
	result := r.db.Model(&entity.UserAchievement{}).
		Where("user_id = ? AND is_new = ?", userID, true).
		Update("is_new", false)
	return result.RowsAffected, result.Error
}
