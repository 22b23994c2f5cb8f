package postgres

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/studyquest-api/internal/domain/entity"
	"github.com/yourusername/studyquest-api/internal/domain/repository"
)

// QuizAttemptRepo реализует repository.QuizAttemptRepository
type QuizAttemptRepo struct {
	db *gorm.DB
}

// NewQuizAttemptRepo создает новый репозиторий попыток
func NewQuizAttemptRepo(db *gorm.DB) *QuizAttemptRepo {
	return &QuizAttemptRepo{db: db}
}

// WithTx возвращает копию репозитория, работающую в транзакции
func (r *QuizAttemptRepo) WithTx(tx *gorm.DB) repository.QuizAttemptRepository {
	return &QuizAttemptRepo{db: tx}
}

// Create создает попытку в статусе in_progress
func (r *QuizAttemptRepo) Create(attempt *entity.QuizAttempt) error {
	if attempt.Status == "" {
		attempt.Status = entity.AttemptStatusInProgress
	}
	if attempt.StartedAt.IsZero() {
		attempt.StartedAt = time.Now()
	}
	if err := r.db.Omit("Quiz").Create(attempt).Error; err != nil {
		if isUniqueViolation(err) {
			return repository.ErrAttemptInProgress
		}
		return err
	}
	return nil
}

// GetByIDForUser возвращает попытку пользователя
func (r *QuizAttemptRepo) GetByIDForUser(attemptID, userID uint) (*entity.QuizAttempt, error) {
	var attempt entity.QuizAttempt
	if err := r.db.Where("id = ? AND user_id = ?", attemptID, userID).First(&attempt).Error; err != nil {
		return nil, notFound(err)
	}
	return &attempt, nil
}

// FindInProgress возвращает последнюю открытую попытку по квизу
func (r *QuizAttemptRepo) FindInProgress(userID, quizID uint) (*entity.QuizAttempt, error) {
	var attempt entity.QuizAttempt
	err := r.db.
		Where("user_id = ? AND quiz_id = ? AND status = ?", userID, quizID, entity.AttemptStatusInProgress).
		Order("id DESC").
		First(&attempt).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &attempt, nil
}

// ListByUserAndQuiz возвращает попытки пользователя по квизу, новые первыми
func (r *QuizAttemptRepo) ListByUserAndQuiz(userID, quizID uint) ([]entity.QuizAttempt, error) {
	var attempts []entity.QuizAttempt
	err := r.db.
		Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Order("started_at DESC, id DESC").
		Find(&attempts).Error
	return attempts, err
}

// ListCompletedByUser возвращает завершенные попытки с квизами
func (r *QuizAttemptRepo) ListCompletedByUser(userID uint) ([]entity.QuizAttempt, error) {
	var attempts []entity.QuizAttempt
	err := r.db.Preload("Quiz").
		Where("user_id = ? AND status = ?", userID, entity.AttemptStatusCompleted).
		Order("completed_at DESC, id DESC").
		Find(&attempts).Error
	return attempts, err
}

// Complete атомарно переводит in_progress -> completed.
// RowsAffected == 0 означает, что попытка уже завершена другим запросом.
func (r *QuizAttemptRepo) Complete(attempt *entity.QuizAttempt) error {
	completedAt := time.Now()
	if attempt.CompletedAt != nil {
		completedAt = *attempt.CompletedAt
	}

	result := r.db.Model(&entity.QuizAttempt{}).
		Where("id = ? AND status = ?", attempt.ID, entity.AttemptStatusInProgress).
		Updates(map[string]interface{}{
			"status":             entity.AttemptStatusCompleted,
			"answers":            attempt.Answers,
			"score":              attempt.Score,
			"max_score":          attempt.MaxScore,
			"percentage":         attempt.Percentage,
			"passed":             attempt.Passed,
			"xp_awarded":         attempt.XPAwarded,
			"time_taken_seconds": attempt.TimeTakenSeconds,
			"completed_at":       completedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("complete attempt #%d failed: %w", attempt.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: attempt #%d", repository.ErrAttemptAlreadyCompleted, attempt.ID)
	}

	attempt.Status = entity.AttemptStatusCompleted
	attempt.CompletedAt = &completedAt
	return nil
}
