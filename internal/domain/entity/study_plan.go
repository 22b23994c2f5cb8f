package entity

import (
	"time"

	"gorm.io/datatypes"
)

// StudyPlan - многонедельный учебный план пользователя
type StudyPlan struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	UserID      uint        `gorm:"not null;index" json:"user_id"`
	Title       string      `gorm:"size:255;not null" json:"title"`
	Description string      `gorm:"type:text;not null;default:''" json:"description"`
	// Rewarded выставляется один раз, когда за завершение плана начислен бонус
	Rewarded    bool        `gorm:"not null;default:false" json:"-"`
	Weeks       []StudyWeek `gorm:"foreignKey:StudyPlanID" json:"weeks,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (StudyPlan) TableName() string {
	return "study_plans"
}

// IsCompleted возвращает true, если в плане есть недели и все они завершены
func (p *StudyPlan) IsCompleted() bool {
	if len(p.Weeks) == 0 {
		return false
	}
	for i := range p.Weeks {
		if !p.Weeks[i].IsCompleted {
			return false
		}
	}
	return true
}

// StudyWeek - неделя учебного плана
type StudyWeek struct {
	ID          uint                        `gorm:"primaryKey" json:"id"`
	StudyPlanID uint                        `gorm:"not null;index" json:"study_plan_id"`
	StudyPlan   *StudyPlan                  `gorm:"foreignKey:StudyPlanID" json:"-"`
	WeekNumber  int                         `gorm:"not null" json:"week_number"`
	Title       string                      `gorm:"size:255;not null" json:"title"`
	Description string                      `gorm:"type:text;not null;default:''" json:"description"`
	Objectives  datatypes.JSONSlice[string] `json:"objectives"`
	IsCompleted bool                        `gorm:"not null;default:false" json:"is_completed"`
	CompletedAt *time.Time                  `json:"completed_at,omitempty"`
	Rewarded    bool                        `gorm:"not null;default:false" json:"-"`
	Activities  []StudyActivity             `gorm:"foreignKey:StudyWeekID" json:"activities,omitempty"`
	Resources   []LearningResource          `gorm:"foreignKey:StudyWeekID" json:"resources,omitempty"`
	CreatedAt   time.Time                   `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (StudyWeek) TableName() string {
	return "study_weeks"
}

// StudyActivity - задание внутри недели
type StudyActivity struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	StudyWeekID    uint       `gorm:"not null;index" json:"study_week_id"`
	StudyWeek      *StudyWeek `gorm:"foreignKey:StudyWeekID" json:"-"`
	Title          string     `gorm:"size:255;not null" json:"title"`
	Description    string     `gorm:"type:text;not null;default:''" json:"description"`
	EstimatedHours float64    `gorm:"not null;default:0" json:"estimated_hours"`
	Order          int        `gorm:"column:sort_order;not null;default:0" json:"order"`
	IsCompleted    bool       `gorm:"not null;default:false" json:"is_completed"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	Rewarded       bool       `gorm:"not null;default:false" json:"-"`
}

// TableName определяет имя таблицы для GORM
func (StudyActivity) TableName() string {
	return "study_activities"
}

// LearningResource - видео или статья, прикрепленные к неделе
type LearningResource struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	StudyWeekID uint       `gorm:"not null;index" json:"study_week_id"`
	StudyWeek   *StudyWeek `gorm:"foreignKey:StudyWeekID" json:"-"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	URL         string     `gorm:"size:500;not null" json:"url"`
	Kind        string     `gorm:"size:20;not null;default:'video'" json:"kind"`
	IsWatched   bool       `gorm:"not null;default:false" json:"is_watched"`
	WatchedAt   *time.Time `json:"watched_at,omitempty"`
	Rewarded    bool       `gorm:"not null;default:false" json:"-"`
}

// TableName определяет имя таблицы для GORM
func (LearningResource) TableName() string {
	return "learning_resources"
}

// toggleCompletion переключает флаг завершения и возвращает true, если это первое завершение,
// за которое еще не начислялся XP.
func toggleCompletion(done *bool, at **time.Time, rewarded *bool, now time.Time) bool {
	*done = !*done
	if !*done {
		*at = nil
		return false
	}
	*at = &now
	if *rewarded {
		return false
	}
	*rewarded = true
	return true
}

// ToggleCompleted переключает завершение недели
func (w *StudyWeek) ToggleCompleted(now time.Time) bool {
	return toggleCompletion(&w.IsCompleted, &w.CompletedAt, &w.Rewarded, now)
}

// ToggleCompleted переключает завершение задания
func (a *StudyActivity) ToggleCompleted(now time.Time) bool {
	return toggleCompletion(&a.IsCompleted, &a.CompletedAt, &a.Rewarded, now)
}

// ToggleWatched переключает отметку просмотра
func (r *LearningResource) ToggleWatched(now time.Time) bool {
	return toggleCompletion(&r.IsWatched, &r.WatchedAt, &r.Rewarded, now)
}
