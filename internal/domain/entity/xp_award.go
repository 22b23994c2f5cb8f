package entity

// Причины начисления XP
const (
	XPReasonActivityCompleted  = "activity_completed"
	XPReasonWeekCompleted      = "week_completed"
	XPReasonVideoWatched       = "video_watched"
	XPReasonQuizPassed         = "quiz_passed"
	XPReasonQuizFailed         = "quiz_failed"
	XPReasonDailyCheckIn       = "daily_check_in"
	XPReasonStudyPlanCompleted = "study_plan_completed"
)

// XPAward - итог одного события геймификации
type XPAward struct {
	UserID uint `json:"user_id"`
	// XPAwarded - XP за само событие, без бонусов за достижения
	XPAwarded int `json:"xp_awarded"`
	// BonusXP - XP за достижения, полученные в этом событии
	BonusXP       int           `json:"bonus_xp"`
	TotalXP       int           `json:"total_xp"`
	Level         int           `json:"level"`
	LeveledUp     bool          `json:"leveled_up"`
	Reason        string        `json:"reason"`
	CurrentStreak int           `json:"current_streak"`
	NewlyUnlocked []Achievement `json:"newly_unlocked"`
}

// TotalGranted возвращает весь XP, начисленный событием
func (a *XPAward) TotalGranted() int {
	return a.XPAwarded + a.BonusXP
}
