package postgres

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yourusername/studyquest-api/internal/domain/entity"
	"github.com/yourusername/studyquest-api/internal/domain/repository"
)

// StudyPlanRepo реализует repository.StudyPlanRepository
type StudyPlanRepo struct {
	db *gorm.DB
}

// NewStudyPlanRepo создает новый репозиторий учебных планов
func NewStudyPlanRepo(db *gorm.DB) *StudyPlanRepo {
	return &StudyPlanRepo{db: db}
}

// WithTx возвращает копию репозитория, работающую в транзакции
func (r *StudyPlanRepo) WithTx(tx *gorm.DB) repository.StudyPlanRepository {
	return &StudyPlanRepo{db: tx}
}

// Create сохраняет план вместе с неделями, заданиями и ресурсами
func (r *StudyPlanRepo) Create(plan *entity.StudyPlan) error {
	return r.db.Create(plan).Error
}

// GetForUser возвращает план пользователя со всем содержимым
func (r *StudyPlanRepo) GetForUser(planID, userID uint) (*entity.StudyPlan, error) {
	var plan entity.StudyPlan
	err := r.db.
		Preload("Weeks", func(db *gorm.DB) *gorm.DB { return db.Order("week_number ASC, id ASC") }).
		Preload("Weeks.Activities", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, id ASC") }).
		Preload("Weeks.Resources", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id = ? AND user_id = ?", planID, userID).
		First(&plan).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &plan, nil
}

// GetWeekForUser возвращает неделю с планом и заданиями
func (r *StudyPlanRepo) GetWeekForUser(weekID, userID uint) (*entity.StudyWeek, error) {
	var week entity.StudyWeek
	err := r.db.
		Preload("StudyPlan").
		Preload("Activities", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, id ASC") }).
		Select("study_weeks.*").
		Joins("JOIN study_plans ON study_plans.id = study_weeks.study_plan_id").
		Where("study_weeks.id = ? AND study_plans.user_id = ?", weekID, userID).
		First(&week).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &week, nil
}

// GetActivityForUser возвращает задание, если оно из плана пользователя
func (r *StudyPlanRepo) GetActivityForUser(activityID, userID uint) (*entity.StudyActivity, error) {
	var activity entity.StudyActivity
	err := r.db.
		Select("study_activities.*").
		Joins("JOIN study_weeks ON study_weeks.id = study_activities.study_week_id").
		Joins("JOIN study_plans ON study_plans.id = study_weeks.study_plan_id").
		Where("study_activities.id = ? AND study_plans.user_id = ?", activityID, userID).
		First(&activity).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &activity, nil
}

// GetResourceForUser возвращает ресурс, если он из плана пользователя
func (r *StudyPlanRepo) GetResourceForUser(resourceID, userID uint) (*entity.LearningResource, error) {
	var resource entity.LearningResource
	err := r.db.
		Select("learning_resources.*").
		Joins("JOIN study_weeks ON study_weeks.id = learning_resources.study_week_id").
		Joins("JOIN study_plans ON study_plans.id = study_weeks.study_plan_id").
		Where("learning_resources.id = ? AND study_plans.user_id = ?", resourceID, userID).
		First(&resource).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &resource, nil
}

// SaveWeekProgress сохраняет только поля прогресса недели
func (r *StudyPlanRepo) SaveWeekProgress(week *entity.StudyWeek) error {
	return r.db.Model(&entity.StudyWeek{}).Where("id = ?", week.ID).
		Updates(map[string]interface{}{
			"is_completed": week.IsCompleted,
			"completed_at": week.CompletedAt,
			"rewarded":     week.Rewarded,
		}).Error
}

// SaveActivityProgress сохраняет только поля прогресса задания
func (r *StudyPlanRepo) SaveActivityProgress(activity *entity.StudyActivity) error {
	return r.db.Model(&entity.StudyActivity{}).Where("id = ?", activity.ID).
		Updates(map[string]interface{}{
			"is_completed": activity.IsCompleted,
			"completed_at": activity.CompletedAt,
			"rewarded":     activity.Rewarded,
		}).Error
}

// SaveResourceProgress сохраняет только поля просмотра ресурса
func (r *StudyPlanRepo) SaveResourceProgress(resource *entity.LearningResource) error {
	return r.db.Model(&entity.LearningResource{}).Where("id = ?", resource.ID).
		Updates(map[string]interface{}{
			"is_watched": resource.IsWatched,
			"watched_at": resource.WatchedAt,
			"rewarded":   resource.Rewarded,
		}).Error
}

// IsPlanCompleted сообщает, что у плана есть недели и все они завершены
func (r *StudyPlanRepo) IsPlanCompleted(planID uint) (bool, error) {
	var total, open int64
	if err := r.db.Model(&entity.StudyWeek{}).Where("study_plan_id = ?", planID).Count(&total).Error; err != nil {
		return false, fmt.Errorf("count weeks of plan #%d: %w", planID, err)
	}
	if total == 0 {
		return false, nil
	}
	if err := r.db.Model(&entity.StudyWeek{}).
		Where("study_plan_id = ? AND is_completed = ?", planID, false).
		Count(&open).Error; err != nil {
		return false, fmt.Errorf("count open weeks of plan #%d: %w", planID, err)
	}
	return open == 0, nil
}

// MarkPlanRewarded выставляет rewarded = true, если флаг еще не выставлен
func (r *StudyPlanRepo) MarkPlanRewarded(planID uint) (bool, error) {
	result := r.db.Model(&entity.StudyPlan{}).
		Where("id = ? AND rewarded = ?", planID, false).
		Update("rewarded", true)
	if result.Error != nil {
		return false, fmt.Errorf("mark plan #%d rewarded: %w", planID, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// CountCompletedPlans считает планы пользователя, где есть недели и все завершены
func (r *StudyPlanRepo) CountCompletedPlans(userID uint) (int, error) {
	var count int64
	err := r.db.Model(&entity.StudyPlan{}).
		Where("user_id = ?", userID).
		Where("EXISTS (SELECT 1 FROM study_weeks w WHERE w.study_plan_id = study_plans.id)").
		Where("NOT EXISTS (SELECT 1 FROM study_weeks w WHERE w.study_plan_id = study_plans.id AND w.is_completed = ?)", false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count completed plans for user #%d: %w", userID, err)
	}
	return int(count), nil
}
