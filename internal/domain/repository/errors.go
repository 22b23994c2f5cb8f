package repository

import (
	"fmt"

	apperrors "github.com/yourusername/studyquest-api/internal/pkg/errors"
)

var (
	// ErrAttemptAlreadyCompleted означает, что попытка квиза уже завершена.
	ErrAttemptAlreadyCompleted = fmt.Errorf("%w: quiz attempt already completed", apperrors.ErrInvalidState)
	// ErrAttemptInProgress означает, что открытая попытка уже создана параллельным запросом.
	ErrAttemptInProgress = fmt.Errorf("%w: quiz attempt already in progress", apperrors.ErrConflict)
	// ErrProfileVersionConflict означает, что профиль изменен параллельной транзакцией.
	ErrProfileVersionConflict = fmt.Errorf("%w: profile was modified concurrently", apperrors.ErrConflict)
	// ErrQuizAlreadyExists означает, что для недели уже есть квиз.
	ErrQuizAlreadyExists = fmt.Errorf("%w: quiz already exists for this week", apperrors.ErrConflict)
)
