package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/studyquest-api/internal/config"
	"github.com/yourusername/studyquest-api/internal/domain/entity"
	"github.com/yourusername/studyquest-api/internal/repository/postgres"
	"github.com/yourusername/studyquest-api/internal/testutil"
	"github.com/yourusername/studyquest-api/pkg/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ============================================================================
// Моки
// ============================================================================

// MockCacheRepository реализует repository.CacheRepository
type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) Delete(keys ...string) error {
	args := m.Called(keys)
	return args.Error(0)
}

func (m *MockCacheRepository) SetJSON(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepository) GetJSON(key string, dest interface{}) error {
	args := m.Called(key, dest)
	return args.Error(0)
}

func (m *MockCacheRepository) SetNX(key string, value interface{}, expiration time.Duration) (bool, error) {
	args := m.Called(key, value, expiration)
	return args.Bool(0), args.Error(1)
}

// MockLLMClient реализует llm.Client
type MockLLMClient struct {
	mock.Mock
}

func (m *MockLLMClient) GenerateJSON(ctx context.Context, prompt string) ([]byte, error) {
	args := m.Called(ctx, prompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// sentEvent - событие, полученное recordingNotifier
type sentEvent struct {
	UserID uint
	Type   string
	Data   interface{}
}

// recordingNotifier запоминает отправленные события
type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (n *recordingNotifier) NotifyUser(userID uint, eventType string, data interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{UserID: userID, Type: eventType, Data: data})
	return nil
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

// fakeClock - управляемое время
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) AddDays(days int) { c.t = c.t.AddDate(0, 0, days) }

// ============================================================================
// Окружение
// ============================================================================

type testEnv struct {
	db               *gorm.DB
	profiles         *postgres.ProfileRepo
	achievements     *postgres.AchievementRepo
	userAchievements *postgres.UserAchievementRepo
	plans            *postgres.StudyPlanRepo
	quizzes          *postgres.QuizRepo
	attempts         *postgres.QuizAttemptRepo
	notifier         *recordingNotifier
	clock            *fakeClock
	gamification     *GamificationService
	quiz             *QuizService
	progress         *StudyProgressService
}

func defaultGamificationConfig() config.GamificationConfig {
	return config.GamificationConfig{
		Timezone: "UTC",
		XPRewards: config.XPRewards{
			ActivityCompleted:  10,
			WeekCompleted:      50,
			VideoWatched:       5,
			StudyPlanCompleted: 500,
			DailyLogin:         5,
		},
		StatsCacheTTL: time.Minute,
	}
}

// newTestEnv собирает сервисы поверх in-memory SQLite. cache может быть nil.
func newTestEnv(t *testing.T, cache *MockCacheRepository) *testEnv {
	t.Helper()

	db := testutil.NewDB(t)
	log := logger.NewNop()
	env := &testEnv{
		db:               db,
		profiles:         postgres.NewProfileRepo(db),
		achievements:     postgres.NewAchievementRepo(db),
		userAchievements: postgres.NewUserAchievementRepo(db),
		plans:            postgres.NewStudyPlanRepo(db),
		quizzes:          postgres.NewQuizRepo(db),
		attempts:         postgres.NewQuizAttemptRepo(db),
		notifier:         &recordingNotifier{},
		clock:            &fakeClock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)},
	}

	evaluator := NewAchievementEvaluator(env.achievements, env.userAchievements, env.plans, log)

	var err error
	if cache != nil {
		env.gamification, err = NewGamificationService(db, env.profiles, env.achievements, env.userAchievements,
			cache, evaluator, env.notifier, nil, defaultGamificationConfig(), log)
	} else {
		env.gamification, err = NewGamificationService(db, env.profiles, env.achievements, env.userAchievements,
			nil, evaluator, env.notifier, nil, defaultGamificationConfig(), log)
	}
	require.NoError(t, err)
	env.gamification.SetClock(env.clock.Now)

	env.quiz = NewQuizService(db, env.quizzes, env.attempts, env.gamification, nil, log)
	env.quiz.now = env.clock.Now

	env.progress = NewStudyProgressService(db, env.plans, env.gamification, log)
	env.progress.now = env.clock.Now

	return env
}

func (e *testEnv) seedAchievement(t *testing.T, name string, criteria entity.AchievementCriteria, xp int) entity.Achievement {
	t.Helper()
	a := entity.Achievement{
		Name:        name,
		Description: name,
		Type:        entity.AchievementTypeMilestone,
		Rarity:      entity.RarityCommon,
		XPReward:    xp,
		Criteria:    datatypes.NewJSONType(criteria),
	}
	require.NoError(t, e.achievements.UpsertByName(&a))
	return a
}

func (e *testEnv) profile(t *testing.T, userID uint) *entity.UserProfile {
	t.Helper()
	p, err := e.profiles.GetByUserID(userID)
	require.NoError(t, err)
	return p
}
