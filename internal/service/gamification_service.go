package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/studyquest-api/internal/config"
	"github.com/yourusername/studyquest-api/internal/domain/entity"
	"github.com/yourusername/studyquest-api/internal/domain/repository"
	"github.com/yourusername/studyquest-api/internal/metrics"
	apperrors "github.com/yourusername/studyquest-api/internal/pkg/errors"
	"github.com/yourusername/studyquest-api/internal/websocket"
	"github.com/yourusername/studyquest-api/pkg/logger"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const (
	statsCacheKeyPrefix    = "gamification:stats:"
	recentAchievementLimit = 5
	defaultStatsCacheTTL   = 5 * time.Minute
)

// UserNotifier доставляет события пользователю в реальном времени
type UserNotifier interface {
	NotifyUser(userID uint, eventType string, data interface{}) error
}

// QuizOutcome - результат отправленной попытки для оркестратора
type QuizOutcome struct {
	AttemptID uint
	QuizID    uint
	Passed    bool
	Perfect   bool
	XPReward  int
}

// UserStats - сводка геймификации для дашборда
type UserStats struct {
	UserID                   uint                     `json:"user_id"`
	Level                    int                      `json:"level"`
	TotalXP                  int                      `json:"total_xp"`
	XPForNextLevel           int                      `json:"xp_for_next_level"`
	XPProgressPercentage     float64                  `json:"xp_progress_percentage"`
	CurrentStreak            int                      `json:"current_streak"`
	LongestStreak            int                      `json:"longest_streak"`
	LastActivityDate         *time.Time               `json:"last_activity_date,omitempty"`
	TotalActivitiesCompleted int                      `json:"total_activities_completed"`
	TotalWeeksCompleted      int                      `json:"total_weeks_completed"`
	TotalVideosWatched       int                      `json:"total_videos_watched"`
	TotalQuizzesCompleted    int                      `json:"total_quizzes_completed"`
	TotalQuizzesPassed       int                      `json:"total_quizzes_passed"`
	TotalPerfectScores       int                      `json:"total_perfect_scores"`
	CurrentQuizStreak        int                      `json:"current_quiz_streak"`
	LongestQuizStreak        int                      `json:"longest_quiz_streak"`
	RecentAchievements       []entity.UserAchievement `json:"recent_achievements"`
	NewAchievementsCount     int64                    `json:"new_achievements_count"`
}

// AchievementStatus - элемент каталога с состоянием для пользователя
type AchievementStatus struct {
	Achievement entity.Achievement
	Unlocked    bool
	UnlockedAt  *time.Time
	IsNew       bool
}

// progressEvent описывает одно событие прогресса.
// apply обновляет счетчики профиля и возвращает XP за событие.
type progressEvent struct {
	reason string
	apply  func(p *entity.UserProfile, today time.Time) int
}

// GamificationService начисляет XP, ведет серии и выдает достижения
type GamificationService struct {
	db                  *gorm.DB
	profileRepo         repository.ProfileRepository
	achievementRepo     repository.AchievementRepository
	userAchievementRepo repository.UserAchievementRepository
	cacheRepo           repository.CacheRepository
	evaluator           *AchievementEvaluator
	notifier            UserNotifier
	metrics             *metrics.Metrics
	rewards             config.XPRewards
	location            *time.Location
	statsTTL            time.Duration
	now                 func() time.Time
	statsGroup          singleflight.Group
	log                 *logger.Logger
}

// NewGamificationService создает новый GamificationService.
// cacheRepo, notifier и metrics могут быть nil.
func NewGamificationService(
	db *gorm.DB,
	profileRepo repository.ProfileRepository,
	achievementRepo repository.AchievementRepository,
	userAchievementRepo repository.UserAchievementRepository,
	cacheRepo repository.CacheRepository,
	evaluator *AchievementEvaluator,
	notifier UserNotifier,
	m *metrics.Metrics,
	cfg config.GamificationConfig,
	log *logger.Logger,
) (*GamificationService, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	ttl := cfg.StatsCacheTTL
	if ttl <= 0 {
		ttl = defaultStatsCacheTTL
	}

	return &GamificationService{
		db:                  db,
		profileRepo:         profileRepo,
		achievementRepo:     achievementRepo,
		userAchievementRepo: userAchievementRepo,
		cacheRepo:           cacheRepo,
		evaluator:           evaluator,
		notifier:            notifier,
		metrics:             m,
		rewards:             cfg.XPRewards,
		location:            loc,
		statsTTL:            ttl,
		now:                 time.Now,
		log:                 log.With("component", "gamification"),
	}, nil
}

// SetClock подменяет источник времени (для тестов)
func (s *GamificationService) SetClock(now func() time.Time) {
	s.now = now
	s.evaluator.now = now
}

// today возвращает текущую календарную дату в настроенной зоне
func (s *GamificationService) today() time.Time {
	return entity.CalendarDate(s.now(), s.location)
}

// ActivityCompleted начисляет XP за выполненное задание
func (s *GamificationService) ActivityCompleted(ctx context.Context, tx *gorm.DB, userID, activityID uint) (*entity.XPAward, error) {
	s.log.Debug("activity completed", "user_id", userID, "activity_id", activityID)
	return s.handle(ctx, tx, userID, progressEvent{
		reason: entity.XPReasonActivityCompleted,
		apply: func(p *entity.UserProfile, today time.Time) int {
			p.TotalActivitiesCompleted++
			p.RecordActivity(today)
			return s.rewards.ActivityCompleted
		},
	})
}

// WeekCompleted начисляет XP за завершенную неделю
func (s *GamificationService) WeekCompleted(ctx context.Context, tx *gorm.DB, userID, weekID uint) (*entity.XPAward, error) {
	s.log.Debug("week completed", "user_id", userID, "week_id", weekID)
	return s.handle(ctx, tx, userID, progressEvent{
		reason: entity.XPReasonWeekCompleted,
		apply: func(p *entity.UserProfile, today time.Time) int {
			p.TotalWeeksCompleted++
			p.RecordActivity(today)
			return s.rewards.WeekCompleted
		},
	})
}

// VideoWatched начисляет XP за просмотренное видео
func (s *GamificationService) VideoWatched(ctx context.Context, tx *gorm.DB, userID, resourceID uint) (*entity.XPAward, error) {
	s.log.Debug("video watched", "user_id", userID, "resource_id", resourceID)
	return s.handle(ctx, tx, userID, progressEvent{
		reason: entity.XPReasonVideoWatched,
		apply: func(p *entity.UserProfile, today time.Time) int {
			p.TotalVideosWatched++
			p.RecordActivity(today)
			return s.rewards.VideoWatched
		},
	})
}

// StudyPlanCompleted начисляет бонус за полностью завершенный план
func (s *GamificationService) StudyPlanCompleted(ctx context.Context, tx *gorm.DB, userID, planID uint) (*entity.XPAward, error) {
	s.log.Debug("study plan completed", "user_id", userID, "plan_id", planID)
	return s.handle(ctx, tx, userID, progressEvent{
		reason: entity.XPReasonStudyPlanCompleted,
		apply: func(p *entity.UserProfile, today time.Time) int {
			return s.rewards.StudyPlanCompleted
		},
	})
}

// QuizSubmitted обновляет статистику квизов. XP и серия дней - только при прохождении.
// Проверка достижений выполняется при любом исходе.
func (s *GamificationService) QuizSubmitted(ctx context.Context, tx *gorm.DB, userID uint, outcome QuizOutcome) (*entity.XPAward, error) {
	reason := entity.XPReasonQuizFailed
	if outcome.Passed {
		reason = entity.XPReasonQuizPassed
	}
	return s.handle(ctx, tx, userID, progressEvent{
		reason: reason,
		apply: func(p *entity.UserProfile, today time.Time) int {
			p.RecordQuizOutcome(outcome.Passed, outcome.Perfect)
			if !outcome.Passed {
				return 0
			}
			p.RecordActivity(today)
			return outcome.XPReward
		},
	})
}

// DailyCheckIn начисляет XP за первый вход в календарный день
func (s *GamificationService) DailyCheckIn(ctx context.Context, userID uint) (*entity.XPAward, error) {
	return s.handle(ctx, nil, userID, progressEvent{
		reason: entity.XPReasonDailyCheckIn,
		apply: func(p *entity.UserProfile, today time.Time) int {
			if p.RecordActivity(today) == entity.StreakUnchanged {
				return 0
			}
			return s.rewards.DailyLogin
		},
	})
}

// handle выполняет событие в транзакции tx. Если tx == nil, открывает собственную
// транзакцию и после коммита выполняет побочные эффекты. Иначе побочные эффекты
// остаются за вызывающим (см. AfterCommit).
func (s *GamificationService) handle(ctx context.Context, tx *gorm.DB, userID uint, event progressEvent) (*entity.XPAward, error) {
	if tx != nil {
		return s.applyEvent(tx, userID, event)
	}

	var award *entity.XPAward
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		award, err = s.applyEvent(tx, userID, event)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.AfterCommit(ctx, award)
	return award, nil
}

func (s *GamificationService) applyEvent(tx *gorm.DB, userID uint, event progressEvent) (*entity.XPAward, error) {
	profiles := s.profileRepo.WithTx(tx)

	profile, err := profiles.GetOrCreate(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	levelBefore := profile.Level

	xp := event.apply(profile, s.today())
	if _, err := profile.AddXP(xp); err != nil {
		return nil, err
	}

	unlocked, bonus, err := s.evaluator.Evaluate(tx, profile)
	if err != nil {
		return nil, err
	}

	if err := profiles.Save(profile); err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}

	return &entity.XPAward{
		UserID:        userID,
		XPAwarded:     xp,
		BonusXP:       bonus,
		TotalXP:       profile.TotalXP,
		Level:         profile.Level,
		LeveledUp:     profile.Level > levelBefore,
		Reason:        event.reason,
		CurrentStreak: profile.CurrentStreak,
		NewlyUnlocked: unlocked,
	}, nil
}

// AfterCommit сбрасывает кеш дашборда, пишет метрики и отправляет уведомления.
// Ошибки только логируются.
func (s *GamificationService) AfterCommit(ctx context.Context, awards ...*entity.XPAward) {
	for _, award := range awards {
		if award == nil {
			continue
		}
		s.invalidateStats(award.UserID)

		s.metrics.ObserveXP(award.Reason, award.XPAwarded, award.LeveledUp)
		if award.BonusXP > 0 {
			s.metrics.ObserveXP("achievement", award.BonusXP, false)
		}
		for _, a := range award.NewlyUnlocked {
			s.metrics.ObserveAchievement(a.Rarity)
		}

		s.notify(award)

		if award.TotalGranted() > 0 || len(award.NewlyUnlocked) > 0 {
			s.log.Info("xp awarded",
				"user_id", award.UserID,
				"reason", award.Reason,
				"xp", award.XPAwarded,
				"bonus_xp", award.BonusXP,
				"level", award.Level,
				"leveled_up", award.LeveledUp,
				"unlocked", len(award.NewlyUnlocked),
			)
		}
	}
}

func (s *GamificationService) notify(award *entity.XPAward) {
	if s.notifier == nil {
		return
	}

	send := func(eventType string, data interface{}) {
		if err := s.notifier.NotifyUser(award.UserID, eventType, data); err != nil {
			s.log.Warn("failed to notify user", "user_id", award.UserID, "event", eventType, "error", err)
		}
	}

	if award.TotalGranted() > 0 {
		send(websocket.XP_AWARDED, map[string]interface{}{
			"xp_awarded": award.XPAwarded,
			"bonus_xp":   award.BonusXP,
			"total_xp":   award.TotalXP,
			"level":      award.Level,
			"reason":     award.Reason,
		})
	}
	if award.LeveledUp {
		send(websocket.LEVEL_UP, map[string]interface{}{
			"level":    award.Level,
			"total_xp": award.TotalXP,
		})
	}
	for _, a := range award.NewlyUnlocked {
		send(websocket.ACHIEVEMENT_UNLOCKED, a)
	}
}

func statsCacheKey(userID uint) string {
	return fmt.Sprintf("%s%d", statsCacheKeyPrefix, userID)
}

func (s *GamificationService) invalidateStats(userID uint) {
	if s.cacheRepo == nil {
		return
	}
	if err := s.cacheRepo.Delete(statsCacheKey(userID)); err != nil {
		s.log.Warn("failed to invalidate stats cache", "user_id", userID, "error", err)
	}
}

// GetUserStats возвращает сводку для дашборда. Сводка кешируется,
// параллельные промахи кеша по одному пользователю собираются в один запрос к БД.
func (s *GamificationService) GetUserStats(ctx context.Context, userID uint) (*UserStats, error) {
	key := statsCacheKey(userID)

	if s.cacheRepo != nil {
		var cached UserStats
		err := s.cacheRepo.GetJSON(key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.log.Warn("stats cache read failed", "user_id", userID, "error", err)
		}
	}

	v, err, _ := s.statsGroup.Do(key, func() (interface{}, error) {
		stats, err := s.buildStats(ctx, userID)
		if err != nil {
			return nil, err
		}
		if s.cacheRepo != nil {
			if err := s.cacheRepo.SetJSON(key, stats, s.statsTTL); err != nil {
				s.log.Warn("stats cache write failed", "user_id", userID, "error", err)
			}
		}
		return stats, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*UserStats), nil
}

func (s *GamificationService) buildStats(ctx context.Context, userID uint) (*UserStats, error) {
	db := s.db.WithContext(ctx)

	profile, err := s.profileRepo.WithTx(db).GetOrCreate(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	userAchievements := s.userAchievementRepo.WithTx(db)
	recent, err := userAchievements.ListRecent(userID, recentAchievementLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent achievements: %w", err)
	}
	newCount, err := userAchievements.CountNew(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count new achievements: %w", err)
	}
	if recent == nil {
		recent = []entity.UserAchievement{}
	}

	return &UserStats{
		UserID:                   userID,
		Level:                    profile.Level,
		TotalXP:                  profile.TotalXP,
		XPForNextLevel:           profile.XPForNextLevel(),
		XPProgressPercentage:     profile.XPProgressPercentage(),
		CurrentStreak:            profile.CurrentStreak,
		LongestStreak:            profile.LongestStreak,
		LastActivityDate:         profile.LastActivityDate,
		TotalActivitiesCompleted: profile.TotalActivitiesCompleted,
		TotalWeeksCompleted:      profile.TotalWeeksCompleted,
		TotalVideosWatched:       profile.TotalVideosWatched,
		TotalQuizzesCompleted:    profile.TotalQuizzesCompleted,
		TotalQuizzesPassed:       profile.TotalQuizzesPassed,
		TotalPerfectScores:       profile.TotalPerfectScores,
		CurrentQuizStreak:        profile.CurrentQuizStreak,
		LongestQuizStreak:        profile.LongestQuizStreak,
		RecentAchievements:       recent,
		NewAchievementsCount:     newCount,
	}, nil
}

// ListAchievements возвращает весь каталог с отметками о получении
func (s *GamificationService) ListAchievements(ctx context.Context, userID uint) ([]AchievementStatus, error) {
	db := s.db.WithContext(ctx)

	catalog, err := s.achievementRepo.WithTx(db).List()
	if err != nil {
		return nil, fmt.Errorf("failed to load achievements: %w", err)
	}
	owned, err := s.userAchievementRepo.WithTx(db).ListByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user achievements: %w", err)
	}

	byID := make(map[uint]entity.UserAchievement, len(owned))
	for _, ua := range owned {
		byID[ua.AchievementID] = ua
	}

	result := make([]AchievementStatus, 0, len(catalog))
	for _, a := range catalog {
		status := AchievementStatus{Achievement: a}
		if ua, ok := byID[a.ID]; ok {
			unlockedAt := ua.UnlockedAt
			status.Unlocked = true
			status.UnlockedAt = &unlockedAt
			status.IsNew = ua.IsNew
		}
		result = append(result, status)
	}
	return result, nil
}

// MarkAchievementsSeen снимает отметку "новое" со всех достижений пользователя
func (s *GamificationService) MarkAchievementsSeen(ctx context.Context, userID uint) (int64, error) {
	count, err := s.userAchievementRepo.WithTx(s.db.WithContext(ctx)).MarkAllSeen(userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark achievements seen: %w", err)
	}
	if count > 0 {
		s.invalidateStats(userID)
	}
	return count, nil
}
