package entity

import (
	"fmt"
	"time"

	apperrors "github.com/yourusername/studyquest-api/internal/pkg/errors"
)

// XPPerLevel - множитель порога XP для следующего уровня
const XPPerLevel = 100

// UserProfile хранит накопительные счетчики геймификации пользователя.
// Создается лениво при первом событии и не удаляется этим сервисом.
type UserProfile struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;uniqueIndex" json:"user_id"`

	TotalXP int `gorm:"not null;default:0" json:"total_xp"`
	Level   int `gorm:"not null;default:1" json:"level"`

	CurrentStreak    int        `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak    int        `gorm:"not null;default:0" json:"longest_streak"`
	LastActivityDate *time.Time `gorm:"type:date" json:"last_activity_date,omitempty"`

	TotalActivitiesCompleted int `gorm:"not null;default:0" json:"total_activities_completed"`
	TotalWeeksCompleted      int `gorm:"not null;default:0" json:"total_weeks_completed"`
	TotalVideosWatched       int `gorm:"not null;default:0" json:"total_videos_watched"`
	TotalQuizzesCompleted    int `gorm:"not null;default:0" json:"total_quizzes_completed"`
	TotalQuizzesPassed       int `gorm:"not null;default:0" json:"total_quizzes_passed"`
	TotalPerfectScores       int `gorm:"not null;default:0" json:"total_perfect_scores"`
	CurrentQuizStreak        int `gorm:"not null;default:0" json:"current_quiz_streak"`
	LongestQuizStreak        int `gorm:"not null;default:0" json:"longest_quiz_streak"`

	// Version - счетчик оптимистической блокировки
	Version   int       `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (UserProfile) TableName() string {
	return "user_profiles"
}

// NewUserProfile возвращает профиль в начальном состоянии
func NewUserProfile(userID uint) *UserProfile {
	return &UserProfile{UserID: userID, Level: 1}
}

// XPForLevel возвращает порог XP, который сравнивается с общим XP на уровне level
func XPForLevel(level int) int {
	return level * XPPerLevel
}

// XPForNextLevel возвращает порог XP для текущего уровня
func (p *UserProfile) XPForNextLevel() int {
	return XPForLevel(p.Level)
}

// AddXP начисляет XP и повышает уровень, пока общий XP не ниже порога текущего уровня.
// Порог пересчитывается на каждом шаге от текущего уровня.
// Возвращает true, если уровень вырос.
func (p *UserProfile) AddXP(amount int) (bool, error) {
	if amount < 0 {
		return false, fmt.Errorf("%w: xp amount must be non-negative, got %d", apperrors.ErrValidation, amount)
	}
	if p.Level < 1 {
		p.Level = 1
	}

	oldLevel := p.Level
	p.TotalXP += amount
	for p.TotalXP >= p.XPForNextLevel() {
		p.Level++
	}
	return p.Level > oldLevel, nil
}

// XPProgressPercentage возвращает прогресс к следующему уровню в диапазоне [0, 100)
func (p *UserProfile) XPProgressPercentage() float64 {
	threshold := p.XPForNextLevel()
	if threshold <= 0 {
		return 0
	}
	return float64(p.TotalXP%threshold) / float64(threshold) * 100
}

// StreakChange описывает результат обновления серии
type StreakChange string

const (
	StreakStarted   StreakChange = "started"
	StreakUnchanged StreakChange = "unchanged"
	StreakExtended  StreakChange = "extended"
	StreakReset     StreakChange = "reset"
)

// CalendarDate приводит момент времени к календарной дате в loc (полночь UTC той же даты)
func CalendarDate(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RecordActivity обновляет серию дней активности.
// today должен быть календарной датой (см. CalendarDate).
func (p *UserProfile) RecordActivity(today time.Time) StreakChange {
	today = CalendarDate(today, time.UTC)

	if p.LastActivityDate == nil {
		p.CurrentStreak = 1
		p.LongestStreak = max(p.LongestStreak, 1)
		p.LastActivityDate = &today
		return StreakStarted
	}

	last := CalendarDate(*p.LastActivityDate, time.UTC)
	switch {
	case last.Equal(today):
		return StreakUnchanged
	case last.Equal(today.AddDate(0, 0, -1)):
		p.CurrentStreak++
		p.LongestStreak = max(p.LongestStreak, p.CurrentStreak)
		p.LastActivityDate = &today
		return StreakExtended
	default:
		p.CurrentStreak = 1
		p.LastActivityDate = &today
		return StreakReset
	}
}

// RecordQuizOutcome обновляет счетчики квизов после отправки попытки
func (p *UserProfile) RecordQuizOutcome(passed, perfect bool) {
	p.TotalQuizzesCompleted++
	if passed {
		p.TotalQuizzesPassed++
		p.CurrentQuizStreak++
		p.LongestQuizStreak = max(p.LongestQuizStreak, p.CurrentQuizStreak)
	} else {
		p.CurrentQuizStreak = 0
	}
	if perfect {
		p.TotalPerfectScores++
	}
}
