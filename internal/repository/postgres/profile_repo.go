package postgres

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/studyquest-api/internal/domain/entity"
	"github.com/yourusername/studyquest-api/internal/domain/repository"
	apperrors "github.com/yourusername/studyquest-api/internal/pkg/errors"
)

// ProfileRepo реализует repository.ProfileRepository
type ProfileRepo struct {
	db *gorm.DB
}

// NewProfileRepo создает новый репозиторий профилей
func NewProfileRepo(db *gorm.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// WithTx возвращает копию репозитория, работающую в транзакции
func (r *ProfileRepo) WithTx(tx *gorm.DB) repository.ProfileRepository {
	return &ProfileRepo{db: tx}
}

// GetByUserID возвращает профиль пользователя
func (r *ProfileRepo) GetByUserID(userID uint) (*entity.UserProfile, error) {
	var profile entity.UserProfile
	if err := r.db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, notFound(err)
	}
	return &profile, nil
}

// GetOrCreate возвращает профиль, создавая его при первом обращении.
// Параллельное создание разрешается через ON CONFLICT DO NOTHING.
func (r *ProfileRepo) GetOrCreate(userID uint) (*entity.UserProfile, error) {
	profile, err := r.GetByUserID(userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to load profile for user #%d: %w", userID, err)
	}

	fresh := entity.NewUserProfile(userID)
	if err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(fresh).Error; err != nil {
		return nil, fmt.Errorf("failed to create profile for user #%d: %w", userID, err)
	}
	return r.GetByUserID(userID)
}

// Save сохраняет все поля профиля, если версия не изменилась с момента чтения
func (r *ProfileRepo) Save(profile *entity.UserProfile) error {
	result := r.db.Model(&entity.UserProfile{}).
		Where("id = ? AND version = ?", profile.ID, profile.Version).
		Updates(map[string]interface{}{
			"total_xp":                   profile.TotalXP,
			"level":                      profile.Level,
			"current_streak":             profile.CurrentStreak,
			"longest_streak":             profile.LongestStreak,
			"last_activity_date":         profile.LastActivityDate,
			"total_activities_completed": profile.TotalActivitiesCompleted,
			"total_weeks_completed":      profile.TotalWeeksCompleted,
			"total_videos_watched":       profile.TotalVideosWatched,
			"total_quizzes_completed":    profile.TotalQuizzesCompleted,
			"total_quizzes_passed":       profile.TotalQuizzesPassed,
			"total_perfect_scores":       profile.TotalPerfectScores,
			"current_quiz_streak":        profile.CurrentQuizStreak,
			"longest_quiz_streak":        profile.LongestQuizStreak,
			"version":                    profile.Version + 1,
			"updated_at":                 time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("save profile #%d failed: %w", profile.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: user #%d", repository.ErrProfileVersionConflict, profile.UserID)
	}
	profile.Version++
	return nil
}
