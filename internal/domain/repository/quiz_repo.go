package repository

import (
	"github.com/yourusername/studyquest-api/internal/domain/entity"
	"gorm.io/gorm"
)

// QuizRepository определяет методы для работы с квизами
type QuizRepository interface {
	WithTx(tx *gorm.DB) QuizRepository
	// Create сохраняет квиз вместе с вопросами и ответами.
	// Второй квиз для той же недели -> ErrQuizAlreadyExists.
	Create(quiz *entity.Quiz) error
	GetByWeekID(weekID uint) (*entity.Quiz, error)
	// GetForUserWithQuestions возвращает квиз с упорядоченными вопросами и ответами,
	// если он принадлежит плану пользователя
	GetForUserWithQuestions(quizID, userID uint) (*entity.Quiz, error)
	GetWithQuestions(quizID uint) (*entity.Quiz, error)
}

// QuizAttemptRepository определяет методы для работы с попытками квизов
type QuizAttemptRepository interface {
	WithTx(tx *gorm.DB) QuizAttemptRepository
	Create(attempt *entity.QuizAttempt) error
	GetByIDForUser(attemptID, userID uint) (*entity.QuizAttempt, error)
	// FindInProgress возвращает открытую попытку пользователя по квизу или ErrNotFound
	FindInProgress(userID, quizID uint) (*entity.QuizAttempt, error)
	ListByUserAndQuiz(userID, quizID uint) ([]entity.QuizAttempt, error)
	// ListCompletedByUser возвращает завершенные попытки с квизами, новые первыми
	ListCompletedByUser(userID uint) ([]entity.QuizAttempt, error)
	// Complete атомарно переводит попытку in_progress -> completed, записывая результат.
	// Если попытка уже завершена -> ErrAttemptAlreadyCompleted.
	Complete(attempt *entity.QuizAttempt) error
}
