package repository

import (
	"github.com/yourusername/studyquest-api/internal/domain/entity"
	"gorm.io/gorm"
)

// StudyPlanRepository определяет методы для работы с учебными планами и их прогрессом
type StudyPlanRepository interface {
	WithTx(tx *gorm.DB) StudyPlanRepository
	Create(plan *entity.StudyPlan) error
	GetForUser(planID, userID uint) (*entity.StudyPlan, error)
	// GetWeekForUser возвращает неделю с планом и заданиями, если план принадлежит пользователю
	GetWeekForUser(weekID, userID uint) (*entity.StudyWeek, error)
	GetActivityForUser(activityID, userID uint) (*entity.StudyActivity, error)
	GetResourceForUser(resourceID, userID uint) (*entity.LearningResource, error)
	SaveWeekProgress(week *entity.StudyWeek) error
	SaveActivityProgress(activity *entity.StudyActivity) error
	SaveResourceProgress(resource *entity.LearningResource) error
	// IsPlanCompleted сообщает, что в плане есть недели и все завершены
	IsPlanCompleted(planID uint) (bool, error)
	// MarkPlanRewarded атомарно выставляет флаг бонуса за план.
	// Возвращает true только для первого вызова.
	MarkPlanRewarded(planID uint) (bool, error)
	// CountCompletedPlans считает планы пользователя, в которых завершены все недели
	CountCompletedPlans(userID uint) (int, error)
}
