package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/studyquest-api/internal/domain/entity"
	"github.com/yourusername/studyquest-api/internal/domain/repository"
	"github.com/yourusername/studyquest-api/internal/metrics"
	apperrors "github.com/yourusername/studyquest-api/internal/pkg/errors"
	"github.com/yourusername/studyquest-api/pkg/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SubmitResult - итог отправки попытки
type SubmitResult struct {
	Attempt *entity.QuizAttempt
	Award   *entity.XPAward
}

// QuestionReview - разбор одного вопроса завершенной попытки
type QuestionReview struct {
	Question         entity.Question
	SelectedAnswerID *uint
	CorrectAnswerID  *uint
	IsCorrect        bool
}

// AttemptReview - разбор завершенной попытки
type AttemptReview struct {
	Attempt   *entity.QuizAttempt
	Quiz      *entity.Quiz
	Questions []QuestionReview
}

// QuizDetail - квиз с попытками пользователя
type QuizDetail struct {
	Quiz           *entity.Quiz
	Attempts       []entity.QuizAttempt
	InProgress     *entity.QuizAttempt
	BestPercentage *float64
}

// QuizService управляет попытками квизов и их оценкой
type QuizService struct {
	db           *gorm.DB
	quizRepo     repository.QuizRepository
	attemptRepo  repository.QuizAttemptRepository
	gamification *GamificationService
	metrics      *metrics.Metrics
	now          func() time.Time
	log          *logger.Logger
}

// NewQuizService создает новый сервис квизов
func NewQuizService(
	db *gorm.DB,
	quizRepo repository.QuizRepository,
	attemptRepo repository.QuizAttemptRepository,
	gamification *GamificationService,
	m *metrics.Metrics,
	log *logger.Logger,
) *QuizService {
	return &QuizService{
		db:           db,
		quizRepo:     quizRepo,
		attemptRepo:  attemptRepo,
		gamification: gamification,
		metrics:      m,
		now:          time.Now,
		log:          log.With("component", "quiz"),
	}
}

// StartAttempt открывает попытку. Если у пользователя уже есть незавершенная
// попытка по этому квизу, возвращается она. Второй результат - true для новой попытки.
func (s *QuizService) StartAttempt(ctx context.Context, userID, quizID uint) (*entity.QuizAttempt, bool, error) {
	var (
		attempt *entity.QuizAttempt
		created bool
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quiz, err := s.quizRepo.WithTx(tx).GetForUserWithQuestions(quizID, userID)
		if err != nil {
			return err
		}

		attempts := s.attemptRepo.WithTx(tx)
		existing, err := attempts.FindInProgress(userID, quiz.ID)
		if err == nil {
			attempt = existing
			return nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("failed to check open attempt: %w", err)
		}

		attempt = &entity.QuizAttempt{
			UserID:    userID,
			QuizID:    quiz.ID,
			Status:    entity.AttemptStatusInProgress,
			MaxScore:  quiz.MaxScore(),
			StartedAt: s.now(),
		}
		if err := attempts.Create(attempt); err != nil {
			return fmt.Errorf("failed to create attempt: %w", err)
		}
		created = true
		return nil
	})
	if errors.Is(err, repository.ErrAttemptInProgress) {
		// Параллельный запрос успел открыть попытку: возвращаем ее
		existing, findErr := s.attemptRepo.WithTx(s.db.WithContext(ctx)).FindInProgress(userID, quizID)
		if findErr != nil {
			return nil, false, fmt.Errorf("failed to load concurrent attempt: %w", findErr)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return attempt, created, nil
}

// SubmitAttempt оценивает попытку и переводит ее в completed ровно один раз.
// Оценка, начисление XP и проверка достижений выполняются в одной транзакции.
func (s *QuizService) SubmitAttempt(ctx context.Context, userID, attemptID uint, answers entity.AttemptAnswers, timeTakenSeconds int) (*SubmitResult, error) {
	if timeTakenSeconds < 0 {
		return nil, fmt.Errorf("%w: time taken must be non-negative", apperrors.ErrValidation)
	}

	var result SubmitResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attempts := s.attemptRepo.WithTx(tx)

		attempt, err := attempts.GetByIDForUser(attemptID, userID)
		if err != nil {
			return err
		}
		if attempt.IsCompleted() {
			return repository.ErrAttemptAlreadyCompleted
		}

		quiz, err := s.quizRepo.WithTx(tx).GetWithQuestions(attempt.QuizID)
		if err != nil {
			return fmt.Errorf("failed to load quiz: %w", err)
		}

		score := entity.ScoreAttempt(quiz, answers)
		completedAt := s.now()

		attempt.Status = entity.AttemptStatusCompleted
		attempt.Answers = datatypes.NewJSONType(score.Answers)
		attempt.Score = score.Score
		attempt.MaxScore = score.MaxScore
		attempt.Percentage = score.Percentage
		attempt.Passed = score.Passed
		attempt.TimeTakenSeconds = timeTakenSeconds
		attempt.CompletedAt = &completedAt
		attempt.XPAwarded = 0
		if score.Passed {
			attempt.XPAwarded = quiz.XPReward
		}

		// Условное обновление защищает от двойной отправки
		if err := attempts.Complete(attempt); err != nil {
			return err
		}

		award, err := s.gamification.QuizSubmitted(ctx, tx, userID, QuizOutcome{
			AttemptID: attempt.ID,
			QuizID:    quiz.ID,
			Passed:    score.Passed,
			Perfect:   score.Perfect,
			XPReward:  quiz.XPReward,
		})
		if err != nil {
			return err
		}

		result.Attempt = attempt
		result.Award = award
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveQuizSubmission(result.Attempt.Passed)
	s.gamification.AfterCommit(ctx, result.Award)
	s.log.Info("quiz attempt submitted",
		"user_id", userID,
		"attempt_id", attemptID,
		"score", result.Attempt.Score,
		"max_score", result.Attempt.MaxScore,
		"passed", result.Attempt.Passed,
	)
	return &result, nil
}

// GetAttemptResults возвращает разбор завершенной попытки
func (s *QuizService) GetAttemptResults(ctx context.Context, userID, attemptID uint) (*AttemptReview, error) {
	db := s.db.WithContext(ctx)

	attempt, err := s.attemptRepo.WithTx(db).GetByIDForUser(attemptID, userID)
	if err != nil {
		return nil, err
	}
	if !attempt.IsCompleted() {
		return nil, fmt.Errorf("%w: attempt is not completed yet", apperrors.ErrInvalidState)
	}

	quiz, err := s.quizRepo.WithTx(db).GetWithQuestions(attempt.QuizID)
	if err != nil {
		return nil, fmt.Errorf("failed to load quiz: %w", err)
	}

	submitted := attempt.SubmittedAnswers()
	reviews := make([]QuestionReview, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		review := QuestionReview{Question: q}
		if selected, ok := submitted[q.ID]; ok {
			review.SelectedAnswerID = &selected
			review.IsCorrect = q.IsCorrect(selected)
		}
		if correct := q.CorrectAnswer(); correct != nil {
			id := correct.ID
			review.CorrectAnswerID = &id
		}
		reviews = append(reviews, review)
	}

	return &AttemptReview{Attempt: attempt, Quiz: quiz, Questions: reviews}, nil
}

// GetQuizDetail возвращает квиз, попытки пользователя и лучший результат
func (s *QuizService) GetQuizDetail(ctx context.Context, userID, quizID uint) (*QuizDetail, error) {
	db := s.db.WithContext(ctx)

	quiz, err := s.quizRepo.WithTx(db).GetForUserWithQuestions(quizID, userID)
	if err != nil {
		return nil, err
	}
	attempts, err := s.attemptRepo.WithTx(db).ListByUserAndQuiz(userID, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attempts: %w", err)
	}

	detail := &QuizDetail{Quiz: quiz, Attempts: attempts}
	for i := range attempts {
		a := &attempts[i]
		if !a.IsCompleted() {
			if detail.InProgress == nil {
				detail.InProgress = a
			}
			continue
		}
		if detail.BestPercentage == nil || a.Percentage > *detail.BestPercentage {
			best := a.Percentage
			detail.BestPercentage = &best
		}
	}
	return detail, nil
}

// ListAttempts возвращает завершенные попытки пользователя, новые первыми
func (s *QuizService) ListAttempts(ctx context.Context, userID uint) ([]entity.QuizAttempt, error) {
	attempts, err := s.attemptRepo.WithTx(s.db.WithContext(ctx)).ListCompletedByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attempts: %w", err)
	}
	return attempts, nil
}
