package entity

import (
	"math"
	"time"

	"gorm.io/datatypes"
)

// Статусы попытки квиза
const (
	AttemptStatusInProgress = "in_progress"
	AttemptStatusCompleted  = "completed"
)

// AttemptAnswers - выбранные ответы: ID вопроса -> ID варианта ответа
type AttemptAnswers map[uint]uint

// QuizAttempt - один запуск квиза пользователем.
// in_progress -> completed, после completed изменений нет.
type QuizAttempt struct {
	ID               uint                               `gorm:"primaryKey" json:"id"`
	UserID           uint                               `gorm:"not null;index:idx_attempt_user_quiz" json:"user_id"`
	QuizID           uint                               `gorm:"not null;index:idx_attempt_user_quiz" json:"quiz_id"`
	Quiz             *Quiz                              `gorm:"foreignKey:QuizID" json:"quiz,omitempty"`
	Status           string                             `gorm:"size:20;not null;default:'in_progress'" json:"status"`
	Answers          datatypes.JSONType[AttemptAnswers] `json:"answers"`
	Score            int                                `gorm:"not null;default:0" json:"score"`
	MaxScore         int                                `gorm:"not null;default:0" json:"max_score"`
	Percentage       float64                            `gorm:"not null;default:0" json:"percentage"`
	Passed           bool                               `gorm:"not null;default:false" json:"passed"`
	XPAwarded        int                                `gorm:"not null;default:0" json:"xp_awarded"`
	TimeTakenSeconds int                                `gorm:"not null;default:0" json:"time_taken_seconds"`
	StartedAt        time.Time                          `gorm:"not null" json:"started_at"`
	CompletedAt      *time.Time                         `json:"completed_at,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

// IsCompleted проверяет, завершена ли попытка
func (a *QuizAttempt) IsCompleted() bool {
	return a.Status == AttemptStatusCompleted
}

// SubmittedAnswers возвращает сохраненные ответы
func (a *QuizAttempt) SubmittedAnswers() AttemptAnswers {
	answers := a.Answers.Data()
	if answers == nil {
		return AttemptAnswers{}
	}
	return answers
}

// QuizScore - итог оценки попытки
type QuizScore struct {
	Score      int
	MaxScore   int
	Percentage float64
	Passed     bool
	Perfect    bool
	// Answers содержит только ответы на вопросы этого квиза
	Answers AttemptAnswers
}

// ScoreAttempt оценивает ответы по вопросам квиза.
// Ответы на чужие вопросы отбрасываются, неотвеченные и неверные дают 0.
func ScoreAttempt(quiz *Quiz, answers AttemptAnswers) QuizScore {
	result := QuizScore{Answers: AttemptAnswers{}}

	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		result.MaxScore += q.Points

		answerID, ok := answers[q.ID]
		if !ok {
			continue
		}
		result.Answers[q.ID] = answerID
		if q.IsCorrect(answerID) {
			result.Score += q.Points
		}
	}

	if result.MaxScore > 0 {
		pct := float64(result.Score) / float64(result.MaxScore) * 100
		result.Percentage = math.Round(pct*10) / 10
		// Сравнение без округления: 69.96% не проходит порог 70
		result.Passed = result.Score*100 >= quiz.PassingScore*result.MaxScore
		result.Perfect = result.Score == result.MaxScore
	}
	return result
}
