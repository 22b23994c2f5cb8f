package service

import (
	"fmt"
	"time"

	"github.com/yourusername/studyquest-api/internal/domain/entity"
	"github.com/yourusername/studyquest-api/internal/domain/repository"
	"github.com/yourusername/studyquest-api/pkg/logger"
	"gorm.io/gorm"
)

// AchievementEvaluator проверяет условия достижений и выдает новые
type AchievementEvaluator struct {
	achievementRepo     repository.AchievementRepository
	userAchievementRepo repository.UserAchievementRepository
	studyPlanRepo       repository.StudyPlanRepository
	now                 func() time.Time
	log                 *logger.Logger
}

// NewAchievementEvaluator создает новый AchievementEvaluator
func NewAchievementEvaluator(
	achievementRepo repository.AchievementRepository,
	userAchievementRepo repository.UserAchievementRepository,
	studyPlanRepo repository.StudyPlanRepository,
	log *logger.Logger,
) *AchievementEvaluator {
	return &AchievementEvaluator{
		achievementRepo:     achievementRepo,
		userAchievementRepo: userAchievementRepo,
		studyPlanRepo:       studyPlanRepo,
		now:                 time.Now,
		log:                 log.With("component", "achievement_evaluator"),
	}
}

// Evaluate выполняет один проход по еще не полученным достижениям в транзакции tx.
// Метрики снимаются с профиля один раз до выдачи: XP за достижения этого прохода
// не влияет на условия других достижений в нем же.
// Награды начисляются в profile, сохранение профиля остается за вызывающим.
// Возвращает новые достижения и суммарный бонусный XP.
func (e *AchievementEvaluator) Evaluate(tx *gorm.DB, profile *entity.UserProfile) ([]entity.Achievement, int, error) {
	locked, err := e.achievementRepo.WithTx(tx).ListLockedForUser(profile.UserID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load achievements: %w", err)
	}
	if len(locked) == 0 {
		return nil, 0, nil
	}

	snapshot := entity.SnapshotOf(profile)
	plansResolved := false
	unknownLogged := make(map[entity.CriterionKind]bool)
	unlockedAt := e.now()
	userAchievements := e.userAchievementRepo.WithTx(tx)

	var unlocked []entity.Achievement
	bonus := 0

	for _, achievement := range locked {
		criteria := achievement.CriteriaSet()

		for _, kind := range criteria.UnknownKinds() {
			if unknownLogged[kind] {
				continue
			}
			unknownLogged[kind] = true
			if kind.IsMalformed() {
				e.log.Debug("malformed achievement criterion ignored", "criterion", kind, "achievement_id", achievement.ID)
			} else {
				e.log.Debug("unknown achievement criterion ignored", "criterion", kind, "achievement_id", achievement.ID)
			}
		}

		if criteria.Has(entity.CriterionStudyPlansCompleted) && !plansResolved {
			plansResolved = true
			snapshot.StudyPlansCompleted = e.countCompletedPlans(tx, profile.UserID)
		}

		if !criteria.SatisfiedBy(snapshot) {
			continue
		}

		inserted, err := userAchievements.Unlock(profile.UserID, achievement.ID, unlockedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to unlock achievement #%d: %w", achievement.ID, err)
		}
		if !inserted {
			continue
		}

		if achievement.XPReward > 0 {
			if _, err := profile.AddXP(achievement.XPReward); err != nil {
				return nil, 0, err
			}
			bonus += achievement.XPReward
		}
		unlocked = append(unlocked, achievement)
	}

	return unlocked, bonus, nil
}

// countCompletedPlans считает завершенные планы в точке сохранения, чтобы ошибка
// запроса не прерывала транзакцию события. При ошибке возвращает nil.
func (e *AchievementEvaluator) countCompletedPlans(tx *gorm.DB, userID uint) *int {
	var count int
	err := tx.Transaction(func(sp *gorm.DB) error {
		var err error
		count, err = e.studyPlanRepo.WithTx(sp).CountCompletedPlans(userID)
		return err
	})
	if err != nil {
		e.log.Warn("study plan count unavailable, criterion treated as not met", "user_id", userID, "error", err)
		return nil
	}
	return &count
}
