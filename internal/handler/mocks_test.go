package handler

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/yourusername/studyquest-api/internal/domain/entity"
	"github.com/yourusername/studyquest-api/internal/service"
)

// MockGamificationForHandler реализует GamificationProvider
type MockGamificationForHandler struct {
	mock.Mock
}

func (m *MockGamificationForHandler) GetUserStats(ctx context.Context, userID uint) (*service.UserStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UserStats), args.Error(1)
}

func (m *MockGamificationForHandler) ListAchievements(ctx context.Context, userID uint) ([]service.AchievementStatus, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.AchievementStatus), args.Error(1)
}

func (m *MockGamificationForHandler) MarkAchievementsSeen(ctx context.Context, userID uint) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockGamificationForHandler) DailyCheckIn(ctx context.Context, userID uint) (*entity.XPAward, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.XPAward), args.Error(1)
}

// MockQuizzesForHandler реализует QuizProvider
type MockQuizzesForHandler struct {
	mock.Mock
}

func (m *MockQuizzesForHandler) StartAttempt(ctx context.Context, userID, quizID uint) (*entity.QuizAttempt, bool, error) {
	args := m.Called(ctx, userID, quizID)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*entity.QuizAttempt), args.Bool(1), args.Error(2)
}

func (m *MockQuizzesForHandler) SubmitAttempt(ctx context.Context, userID, attemptID uint, answers entity.AttemptAnswers, timeTakenSeconds int) (*service.SubmitResult, error) {
	args := m.Called(ctx, userID, attemptID, answers, timeTakenSeconds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SubmitResult), args.Error(1)
}

func (m *MockQuizzesForHandler) GetAttemptResults(ctx context.Context, userID, attemptID uint) (*service.AttemptReview, error) {
	args := m.Called(ctx, userID, attemptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AttemptReview), args.Error(1)
}

func (m *MockQuizzesForHandler) GetQuizDetail(ctx context.Context, userID, quizID uint) (*service.QuizDetail, error) {
	args := m.Called(ctx, userID, quizID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.QuizDetail), args.Error(1)
}

func (m *MockQuizzesForHandler) ListAttempts(ctx context.Context, userID uint) ([]entity.QuizAttempt, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.QuizAttempt), args.Error(1)
}

// MockGeneratorForHandler реализует QuizGenerator
type MockGeneratorForHandler struct {
	mock.Mock
}

func (m *MockGeneratorForHandler) GenerateForWeek(ctx context.Context, userID, weekID uint, params service.GenerateQuizParams) (*entity.Quiz, error) {
	args := m.Called(ctx, userID, weekID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Quiz), args.Error(1)
}

// MockProgressForHandler реализует StudyProgressProvider
type MockProgressForHandler struct {
	mock.Mock
}

func (m *MockProgressForHandler) ImportPlan(ctx context.Context, userID uint, input service.PlanInput) (*entity.StudyPlan, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.StudyPlan), args.Error(1)
}

func (m *MockProgressForHandler) GetPlan(ctx context.Context, userID, planID uint) (*entity.StudyPlan, error) {
	args := m.Called(ctx, userID, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.StudyPlan), args.Error(1)
}

func (m *MockProgressForHandler) ToggleActivity(ctx context.Context, userID, activityID uint) (*service.ToggleResult, error) {
	return m.toggle("ToggleActivity", ctx, userID, activityID)
}

func (m *MockProgressForHandler) ToggleVideo(ctx context.Context, userID, resourceID uint) (*service.ToggleResult, error) {
	return m.toggle("ToggleVideo", ctx, userID, resourceID)
}

func (m *MockProgressForHandler) ToggleWeek(ctx context.Context, userID, weekID uint) (*service.ToggleResult, error) {
	return m.toggle("ToggleWeek", ctx, userID, weekID)
}

func (m *MockProgressForHandler) toggle(method string, ctx context.Context, userID, id uint) (*service.ToggleResult, error) {
	args := m.MethodCalled(method, ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ToggleResult), args.Error(1)
}
