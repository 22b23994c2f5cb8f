package postgres

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yourusername/studyquest-api/internal/domain/entity"
	"github.com/yourusername/studyquest-api/internal/domain/repository"
)

// QuizRepo реализует repository.QuizRepository
type QuizRepo struct {
	db *gorm.DB
}

// NewQuizRepo создает новый репозиторий квизов
func NewQuizRepo(db *gorm.DB) *QuizRepo {
	return &QuizRepo{db: db}
}

// WithTx возвращает копию репозитория, работающую в транзакции
func (r *QuizRepo) WithTx(tx *gorm.DB) repository.QuizRepository {
	return &QuizRepo{db: tx}
}

// Create сохраняет квиз вместе с вопросами и вариантами ответов.
// Уникальный индекс по study_week_id не дает создать второй квиз для недели.
func (r *QuizRepo) Create(quiz *entity.Quiz) error {
	if err := r.db.Omit("StudyWeek").Create(quiz).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: week #%d", repository.ErrQuizAlreadyExists, quiz.StudyWeekID)
		}
		return fmt.Errorf("create quiz for week #%d failed: %w", quiz.StudyWeekID, err)
	}
	return nil
}

// GetByWeekID возвращает квиз недели
func (r *QuizRepo) GetByWeekID(weekID uint) (*entity.Quiz, error) {
	var quiz entity.Quiz
	if err := r.db.Where("study_week_id = ?", weekID).First(&quiz).Error; err != nil {
		return nil, notFound(err)
	}
	return &quiz, nil
}

// withOrderedQuestions подгружает вопросы и ответы в порядке отображения
func withOrderedQuestions(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, id ASC")
		}).
		Preload("Questions.Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, id ASC")
		})
}

// GetWithQuestions возвращает квиз с вопросами и ответами
func (r *QuizRepo) GetWithQuestions(quizID uint) (*entity.Quiz, error) {
	var quiz entity.Quiz
	if err := withOrderedQuestions(r.db).First(&quiz, quizID).Error; err != nil {
		return nil, notFound(err)
	}
	return &quiz, nil
}

// GetForUserWithQuestions возвращает квиз, если неделя принадлежит плану пользователя
func (r *QuizRepo) GetForUserWithQuestions(quizID, userID uint) (*entity.Quiz, error) {
	var quiz entity.Quiz
	err := withOrderedQuestions(r.db).
		Select("quizzes.*").
		Joins("JOIN study_weeks ON study_weeks.id = quizzes.study_week_id").
		Joins("JOIN study_plans ON study_plans.id = study_weeks.study_plan_id").
		Where("quizzes.id = ? AND study_plans.user_id = ?", quizID, userID).
		First(&quiz).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &quiz, nil
}
