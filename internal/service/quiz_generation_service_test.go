package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/studyquest-api/internal/domain/entity"
	"github.com/yourusername/studyquest-api/internal/domain/repository"
	apperrors "github.com/yourusername/studyquest-api/internal/pkg/errors"
	"github.com/yourusername/studyquest-api/internal/testutil"
	"github.com/yourusername/studyquest-api/pkg/logger"
	"gorm.io/datatypes"
)

const validQuizDocument = `{
  "title": "Concurrency quiz",
  "description": "Channels and goroutines",
  "questions": [
    {
      "question": "What does a closed channel return on receive?",
      "answers": [
        {"text": "Zero value", "is_correct": true},
        {"text": "Panic", "is_correct": false}
      ],
      "explanation": "Receives on a closed channel return the zero value",
      "points": 0
    },
    {
      "question": "Which keyword starts a goroutine?",
      "answers": [
        {"text": "go", "is_correct": true},
        {"text": "async", "is_correct": false}
      ],
      "points": 2
    },
    {
      "question": "Extra question",
      "answers": [
        {"text": "a", "is_correct": true},
        {"text": "b", "is_correct": false}
      ]
    }
  ]
}`

func newGenerationService(env *testEnv, cache *MockCacheRepository, llmClient *MockLLMClient) *QuizGenerationService {
	if cache == nil {
		return NewQuizGenerationService(env.db, env.plans, env.quizzes, nil, llmClient, nil, logger.NewNop())
	}
	return NewQuizGenerationService(env.db, env.plans, env.quizzes, cache, llmClient, nil, logger.NewNop())
}

// ============================================================================
// GenerateForWeek
// ============================================================================

func TestQuizGenerationService_GenerateForWeek_Success(t *testing.T) {
	// Arrange
	env := newTestEnv(t, nil)
	plan := testutil.SeedPlan(t, env.db, 1, 1)
	weekID := plan.Weeks[0].ID
	lockKey := fmt.Sprintf("quizgen:lock:%d", weekID)

	cache := new(MockCacheRepository)
	cache.On("SetNX", lockKey, uint(1), 3*time.Minute).Return(true, nil).Once()
	cache.On("Delete", []string{lockKey}).Return(nil).Once()

	llmClient := new(MockLLMClient)
	llmClient.On("GenerateJSON", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "exactly 2 multiple-choice questions")
	})).Return([]byte(validQuizDocument), nil).Once()

	svc := newGenerationService(env, cache, llmClient)

	// Act
	quiz, err := svc.GenerateForWeek(context.Background(), 1, weekID, GenerateQuizParams{
		Difficulty:    entity.DifficultyHard,
		QuestionCount: 2,
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Concurrency quiz", quiz.Title)
	assert.Equal(t, entity.DifficultyHard, quiz.Difficulty)
	assert.Equal(t, 70, quiz.PassingScore)
	require.NotNil(t, quiz.TimeLimitMinutes)
	assert.Equal(t, 4, *quiz.TimeLimitMinutes)
	assert.Equal(t, 10, quiz.XPReward, "5 XP за вопрос на hard")
	require.Len(t, quiz.Questions, 2, "Лишние вопросы отбрасываются")
	assert.Equal(t, 1, quiz.Questions[0].Points, "Баллы по умолчанию")
	assert.Equal(t, 2, quiz.Questions[1].Points)

	stored, err := env.quizzes.GetWithQuestions(quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, weekID, stored.StudyWeekID)
	assert.Equal(t, 3, stored.MaxScore())

	cache.AssertExpectations(t)
	llmClient.AssertExpectations(t)
}

func TestQuizGenerationService_GenerateForWeek_ExistingQuiz(t *testing.T) {
	env := newTestEnv(t, nil)
	plan := testutil.SeedPlan(t, env.db, 1, 1)
	existing := testutil.SeedQuiz(t, env.db, plan.Weeks[0].ID, 2, 70, 6)

	llmClient := new(MockLLMClient)
	svc := newGenerationService(env, nil, llmClient)

	_, err := svc.GenerateForWeek(context.Background(), 1, plan.Weeks[0].ID, GenerateQuizParams{})

	var existsErr *QuizExistsError
	require.True(t, errors.As(err, &existsErr))
	assert.Equal(t, existing.ID, existsErr.QuizID)
	assert.True(t, errors.Is(err, repository.ErrQuizAlreadyExists))
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	llmClient.AssertNotCalled(t, "GenerateJSON", mock.Anything, mock.Anything)
}

func TestQuizGenerationService_GenerateForWeek_ForeignWeek(t *testing.T) {
	env := newTestEnv(t, nil)
	plan := testutil.SeedPlan(t, env.db, 1, 1)

	llmClient := new(MockLLMClient)
	svc := newGenerationService(env, nil, llmClient)

	_, err := svc.GenerateForWeek(context.Background(), 2, plan.Weeks[0].ID, GenerateQuizParams{})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	llmClient.AssertNotCalled(t, "GenerateJSON", mock.Anything, mock.Anything)
}

func TestQuizGenerationService_GenerateForWeek_LockHeld(t *testing.T) {
	env := newTestEnv(t, nil)
	plan := testutil.SeedPlan(t, env.db, 1, 1)

	cache := new(MockCacheRepository)
	cache.On("SetNX", mock.Anything, mock.Anything, mock.Anything).Return(false, nil).Once()
	llmClient := new(MockLLMClient)
	svc := newGenerationService(env, cache, llmClient)

	_, err := svc.GenerateForWeek(context.Background(), 1, plan.Weeks[0].ID, GenerateQuizParams{})
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	llmClient.AssertNotCalled(t, "GenerateJSON", mock.Anything, mock.Anything)
	cache.AssertNotCalled(t, "Delete", mock.Anything)
}

func TestQuizGenerationService_GenerateForWeek_LockUnavailable(t *testing.T) {
	env := newTestEnv(t, nil)
	plan := testutil.SeedPlan(t, env.db, 1, 1)

	cache := new(MockCacheRepository)
	cache.On("SetNX", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("redis down")).Once()
	llmClient := new(MockLLMClient)
	llmClient.On("GenerateJSON", mock.Anything, mock.Anything).Return([]byte(validQuizDocument), nil).Once()
	svc := newGenerationService(env, cache, llmClient)

	quiz, err := svc.GenerateForWeek(context.Background(), 1, plan.Weeks[0].ID, GenerateQuizParams{QuestionCount: 3})
	require.NoError(t, err, "Недоступный кеш не блокирует генерацию")
	assert.Len(t, quiz.Questions, 3)
	cache.AssertNotCalled(t, "Delete", mock.Anything)
}

func TestQuizGenerationService_GenerateForWeek_RewardFollowsStoredQuestions(t *testing.T) {
	env := newTestEnv(t, nil)
	plan := testutil.SeedPlan(t, env.db, 1, 1)

	llmClient := new(MockLLMClient)
	llmClient.On("GenerateJSON", mock.Anything, mock.Anything).Return([]byte(validQuizDocument), nil).Once()
	svc := newGenerationService(env, nil, llmClient)

	quiz, err := svc.GenerateForWeek(context.Background(), 1, plan.Weeks[0].ID, GenerateQuizParams{
		Difficulty:    entity.DifficultyMedium,
		QuestionCount: 10,
	})
	require.NoError(t, err)
	require.Len(t, quiz.Questions, 3, "Модель вернула меньше вопросов, чем запрошено")
	assert.Equal(t, 9, quiz.XPReward, "3 XP за каждый сохраненный вопрос на medium")

	stored, err := env.quizzes.GetWithQuestions(quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, stored.XPReward)
}

func TestQuizGenerationService_GenerateForWeek_BadDocuments(t *testing.T) {
	tests := []struct {
		name     string
		response []byte
		llmErr   error
		wantErr  error
	}{
		{
			name:    "ошибка LLM",
			llmErr:  fmt.Errorf("%w: upstream timeout", apperrors.ErrExternalService),
			wantErr: apperrors.ErrExternalService,
		},
		{
			name:     "не JSON",
			response: []byte("sorry, I cannot"),
			wantErr:  apperrors.ErrExternalService,
		},
		{
			name:     "два правильных ответа",
			response: []byte(`{"title":"t","questions":[{"question":"q","answers":[{"text":"a","is_correct":true},{"text":"b","is_correct":true}]}]}`),
			wantErr:  apperrors.ErrExternalService,
		},
		{
			name:     "нет правильного ответа",
			response: []byte(`{"title":"t","questions":[{"question":"q","answers":[{"text":"a"},{"text":"b"}]}]}`),
			wantErr:  apperrors.ErrExternalService,
		},
		{
			name:     "без вопросов",
			response: []byte(`{"title":"t","questions":[]}`),
			wantErr:  apperrors.ErrExternalService,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			plan := testutil.SeedPlan(t, env.db, 1, 1)

			llmClient := new(MockLLMClient)
			if tt.llmErr != nil {
				llmClient.On("GenerateJSON", mock.Anything, mock.Anything).Return(nil, tt.llmErr).Once()
			} else {
				llmClient.On("GenerateJSON", mock.Anything, mock.Anything).Return(tt.response, nil).Once()
			}
			svc := newGenerationService(env, nil, llmClient)

			_, err := svc.GenerateForWeek(context.Background(), 1, plan.Weeks[0].ID, GenerateQuizParams{})

			assert.True(t, errors.Is(err, tt.wantErr))
			_, getErr := env.quizzes.GetByWeekID(plan.Weeks[0].ID)
			assert.True(t, errors.Is(getErr, apperrors.ErrNotFound), "Квиз не должен сохраняться")
		})
	}
}

// ============================================================================
// Параметры и промпт
// ============================================================================

func TestGenerateQuizParams_Normalize(t *testing.T) {
	intPtr := func(v int) *int { return &v }

	tests := []struct {
		name      string
		params    GenerateQuizParams
		want      GenerateQuizParams
		wantError bool
	}{
		{
			name:   "значения по умолчанию",
			params: GenerateQuizParams{},
			want:   GenerateQuizParams{Difficulty: "medium", QuestionCount: 10, PassingScore: 70, TimeLimitMinutes: intPtr(20)},
		},
		{
			name:   "явный лимит времени",
			params: GenerateQuizParams{Difficulty: "easy", QuestionCount: 5, PassingScore: 100, TimeLimitMinutes: intPtr(7)},
			want:   GenerateQuizParams{Difficulty: "easy", QuestionCount: 5, PassingScore: 100, TimeLimitMinutes: intPtr(7)},
		},
		{name: "неизвестная сложность", params: GenerateQuizParams{Difficulty: "extreme"}, wantError: true},
		{name: "слишком много вопросов", params: GenerateQuizParams{QuestionCount: 31}, wantError: true},
		{name: "отрицательное количество", params: GenerateQuizParams{QuestionCount: -1}, wantError: true},
		{name: "порог выше 100", params: GenerateQuizParams{PassingScore: 101}, wantError: true},
		{name: "нулевой лимит", params: GenerateQuizParams{TimeLimitMinutes: intPtr(0)}, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.params.normalize()
			if tt.wantError {
				assert.True(t, errors.Is(err, apperrors.ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildQuizPrompt(t *testing.T) {
	week := &entity.StudyWeek{
		WeekNumber:  3,
		Title:       "Raft",
		Description: "Leader election and log replication",
		Objectives:  datatypes.JSONSlice[string]{"Explain terms"},
		StudyPlan:   &entity.StudyPlan{Title: "Distributed Systems"},
		Activities: []entity.StudyActivity{
			{Title: "Read the paper", Description: "Sections 5.1-5.4"},
			{Title: "Implement election"},
		},
	}

	prompt := buildQuizPrompt(week, GenerateQuizParams{Difficulty: "easy", QuestionCount: 4})

	for _, want := range []string{
		"Study plan: Distributed Systems",
		"Week 3: Raft",
		"Description: Leader election and log replication",
		"- Explain terms",
		"- Read the paper: Sections 5.1-5.4",
		"- Implement election",
		"Generate exactly 4 multiple-choice questions",
		"Difficulty: easy",
	} {
		assert.Contains(t, prompt, want)
	}
}
