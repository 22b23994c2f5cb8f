package entity

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Типы достижений
const (
	AchievementTypeStreak     = "streak"
	AchievementTypeCompletion = "completion"
	AchievementTypeDedication = "dedication"
	AchievementTypeMilestone  = "milestone"
	AchievementTypeQuiz       = "quiz"
	AchievementTypeSpeed      = "speed"
)

// Редкость достижений
const (
	RarityCommon    = "common"
	RarityRare      = "rare"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"
)

// CriterionKind - распознаваемый ключ условия достижения
type CriterionKind string

const (
	CriterionStreakDays          CriterionKind = "streak_days"
	CriterionActivitiesCompleted CriterionKind = "activities_completed"
	CriterionWeeksCompleted      CriterionKind = "weeks_completed"
	CriterionVideosWatched       CriterionKind = "videos_watched"
	CriterionLevel               CriterionKind = "level"
	CriterionStudyPlansCompleted CriterionKind = "study_plans_completed"
	CriterionQuizzesCompleted    CriterionKind = "quizzes_completed"
	CriterionPerfectScores       CriterionKind = "perfect_scores"
	CriterionQuizStreak          CriterionKind = "quiz_streak"
)

// ProgressSnapshot - значения метрик профиля, по которым проверяются условия.
// StudyPlansCompleted равен nil, если значение не запрашивалось или недоступно.
type ProgressSnapshot struct {
	StreakDays          int
	ActivitiesCompleted int
	WeeksCompleted      int
	VideosWatched       int
	Level               int
	QuizzesCompleted    int
	PerfectScores       int
	QuizStreak          int
	StudyPlansCompleted *int
}

// SnapshotOf снимает метрики с профиля
func SnapshotOf(p *UserProfile) ProgressSnapshot {
	return ProgressSnapshot{
		StreakDays:          p.CurrentStreak,
		ActivitiesCompleted: p.TotalActivitiesCompleted,
		WeeksCompleted:      p.TotalWeeksCompleted,
		VideosWatched:       p.TotalVideosWatched,
		Level:               p.Level,
		QuizzesCompleted:    p.TotalQuizzesCompleted,
		PerfectScores:       p.TotalPerfectScores,
		QuizStreak:          p.CurrentQuizStreak,
	}
}

// criterionMetrics сопоставляет каждому виду условия функцию извлечения метрики.
// Второй результат false означает, что метрика недоступна.
var criterionMetrics = map[CriterionKind]func(s ProgressSnapshot) (int, bool){
	CriterionStreakDays:          func(s ProgressSnapshot) (int, bool) { return s.StreakDays, true },
	CriterionActivitiesCompleted: func(s ProgressSnapshot) (int, bool) { return s.ActivitiesCompleted, true },
	CriterionWeeksCompleted:      func(s ProgressSnapshot) (int, bool) { return s.WeeksCompleted, true },
	CriterionVideosWatched:       func(s ProgressSnapshot) (int, bool) { return s.VideosWatched, true },
	CriterionLevel:               func(s ProgressSnapshot) (int, bool) { return s.Level, true },
	CriterionQuizzesCompleted:    func(s ProgressSnapshot) (int, bool) { return s.QuizzesCompleted, true },
	CriterionPerfectScores:       func(s ProgressSnapshot) (int, bool) { return s.PerfectScores, true },
	CriterionQuizStreak:          func(s ProgressSnapshot) (int, bool) { return s.QuizStreak, true },
	CriterionStudyPlansCompleted: func(s ProgressSnapshot) (int, bool) {
		if s.StudyPlansCompleted == nil {
			return 0, false
		}
		return *s.StudyPlansCompleted, true
	},
}

// IsKnown сообщает, распознается ли вид условия
func (k CriterionKind) IsKnown() bool {
	_, ok := criterionMetrics[k]
	return ok
}

// AchievementCriteria - пороги по видам условий, объединенные через ИЛИ
type AchievementCriteria map[CriterionKind]int

// malformedKindPrefix помечает условие, значение которого не целое число
const malformedKindPrefix = "malformed:"

// IsMalformed сообщает, что условие было записано с нецелым порогом
func (k CriterionKind) IsMalformed() bool {
	return strings.HasPrefix(string(k), malformedKindPrefix)
}

// UnmarshalJSON принимает только целые пороги. Условие с другим значением
// сохраняется под ключом с префиксом malformed: и никогда не выполняется,
// поэтому одна испорченная запись каталога не ломает чтение остальных.
func (c *AchievementCriteria) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*c = AchievementCriteria{CriterionKind(malformedKindPrefix + "criteria"): 0}
		return nil
	}

	criteria := make(AchievementCriteria, len(raw))
	for key, value := range raw {
		var threshold int
		if string(value) == "null" || json.Unmarshal(value, &threshold) != nil {
			criteria[CriterionKind(malformedKindPrefix+key)] = 0
			continue
		}
		criteria[CriterionKind(key)] = threshold
	}
	*c = criteria
	return nil
}

// Kinds возвращает ключи условий в отсортированном порядке
func (c AchievementCriteria) Kinds() []CriterionKind {
	kinds := make([]CriterionKind, 0, len(c))
	for k := range c {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Has сообщает, содержит ли набор условие указанного вида
func (c AchievementCriteria) Has(kind CriterionKind) bool {
	_, ok := c[kind]
	return ok
}

// UnknownKinds возвращает нераспознанные ключи (они никогда не выполняются)
func (c AchievementCriteria) UnknownKinds() []CriterionKind {
	var unknown []CriterionKind
	for _, k := range c.Kinds() {
		if !k.IsKnown() {
			unknown = append(unknown, k)
		}
	}
	return unknown
}

// SatisfiedBy возвращает true, если хотя бы одно распознанное условие выполнено
func (c AchievementCriteria) SatisfiedBy(s ProgressSnapshot) bool {
	for kind, threshold := range c {
		metric, ok := criterionMetrics[kind]
		if !ok {
			continue
		}
		value, available := metric(s)
		if available && value >= threshold {
			return true
		}
	}
	return false
}

// Achievement - элемент глобального каталога достижений
type Achievement struct {
	ID          uint                                    `gorm:"primaryKey" json:"id"`
	Name        string                                  `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Description string                                  `gorm:"type:text;not null" json:"description"`
	Icon        string                                  `gorm:"size:50;not null;default:''" json:"icon"`
	Type        string                                  `gorm:"size:20;not null" json:"type"`
	Rarity      string                                  `gorm:"size:20;not null;default:'common'" json:"rarity"`
	XPReward    int                                     `gorm:"not null;default:0" json:"xp_reward"`
	Criteria    datatypes.JSONType[AchievementCriteria] `json:"criteria"`
	CreatedAt   time.Time                               `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Achievement) TableName() string {
	return "achievements"
}

// CriteriaSet возвращает условия достижения
func (a *Achievement) CriteriaSet() AchievementCriteria {
	return a.Criteria.Data()
}

// UserAchievement - факт получения достижения пользователем, уникален по (user, achievement)
type UserAchievement struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	UserID        uint        `gorm:"not null;uniqueIndex:idx_user_achievement" json:"user_id"`
	AchievementID uint        `gorm:"not null;uniqueIndex:idx_user_achievement" json:"achievement_id"`
	Achievement   Achievement `gorm:"foreignKey:AchievementID" json:"achievement"`
	UnlockedAt    time.Time   `gorm:"not null" json:"unlocked_at"`
	IsNew         bool        `gorm:"not null;default:true" json:"is_new"`
}

// TableName определяет имя таблицы для GORM
func (UserAchievement) TableName() string {
	return "user_achievements"
}
