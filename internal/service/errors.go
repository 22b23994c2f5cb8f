package service

import (
	"fmt"

	"github.com/yourusername/studyquest-api/internal/domain/repository"
)

// QuizExistsError возвращается, когда для недели уже сгенерирован квиз
type QuizExistsError struct {
	QuizID uint
}

func (e *QuizExistsError) Error() string {
	return fmt.Sprintf("quiz #%d already exists for this week", e.QuizID)
}

// Unwrap позволяет errors.Is(err, apperrors.ErrConflict)
func (e *QuizExistsError) Unwrap() error {
	return repository.ErrQuizAlreadyExists
}
