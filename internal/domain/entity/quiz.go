package entity

import (
	"time"
)

// Уровни сложности квиза
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// DefaultPassingScore - проходной процент по умолчанию
const DefaultPassingScore = 70

// difficultyXPPerQuestion - XP за вопрос в зависимости от сложности
var difficultyXPPerQuestion = map[string]int{
	DifficultyEasy:   2,
	DifficultyMedium: 3,
	DifficultyHard:   5,
}

// IsValidDifficulty проверяет уровень сложности
func IsValidDifficulty(d string) bool {
	_, ok := difficultyXPPerQuestion[d]
	return ok
}

// QuizXPReward рассчитывает награду за прохождение квиза
func QuizXPReward(difficulty string, questionCount int) int {
	perQuestion, ok := difficultyXPPerQuestion[difficulty]
	if !ok {
		perQuestion = difficultyXPPerQuestion[DifficultyMedium]
	}
	return perQuestion * questionCount
}

// Quiz - квиз по неделе учебного плана (не более одного на неделю)
type Quiz struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	StudyWeekID      uint       `gorm:"not null;uniqueIndex" json:"study_week_id"`
	StudyWeek        *StudyWeek `gorm:"foreignKey:StudyWeekID" json:"-"`
	Title            string     `gorm:"size:255;not null" json:"title"`
	Description      string     `gorm:"type:text;not null;default:''" json:"description"`
	Difficulty       string     `gorm:"size:10;not null;default:'medium'" json:"difficulty"`
	TimeLimitMinutes *int       `json:"time_limit_minutes,omitempty"`
	PassingScore     int        `gorm:"not null;default:70" json:"passing_score"`
	XPReward         int        `gorm:"not null;default:0" json:"xp_reward"`
	Questions        []Question `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Quiz) TableName() string {
	return "quizzes"
}

// MaxScore возвращает сумму баллов всех вопросов
func (q *Quiz) MaxScore() int {
	total := 0
	for i := range q.Questions {
		total += q.Questions[i].Points
	}
	return total
}

// QuestionCount возвращает количество вопросов
func (q *Quiz) QuestionCount() int {
	return len(q.Questions)
}
