package entity

import (
	"time"
)

// Question - вопрос квиза с упорядоченными вариантами ответа
type Question struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	QuizID      uint      `gorm:"not null;index" json:"quiz_id"`
	Text        string    `gorm:"type:text;not null" json:"text"`
	Explanation string    `gorm:"type:text;not null;default:''" json:"explanation"`
	Points      int       `gorm:"not null;default:1" json:"points"`
	Order       int       `gorm:"column:sort_order;not null;default:0" json:"order"`
	Answers     []Answer  `gorm:"foreignKey:QuestionID" json:"answers,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "questions"
}

// IsCorrect проверяет, что answerID принадлежит вопросу и помечен правильным.
// Первое совпадение по ID определяет результат.
func (q *Question) IsCorrect(answerID uint) bool {
	for i := range q.Answers {
		if q.Answers[i].ID == answerID {
			return q.Answers[i].IsCorrect
		}
	}
	return false
}

// FindAnswer возвращает вариант ответа этого вопроса по ID
func (q *Question) FindAnswer(answerID uint) *Answer {
	for i := range q.Answers {
		if q.Answers[i].ID == answerID {
			return &q.Answers[i]
		}
	}
	return nil
}

// CorrectAnswer возвращает первый вариант, помеченный правильным
func (q *Question) CorrectAnswer() *Answer {
	for i := range q.Answers {
		if q.Answers[i].IsCorrect {
			return &q.Answers[i]
		}
	}
	return nil
}

// Answer - вариант ответа
type Answer struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	QuestionID uint   `gorm:"not null;index" json:"question_id"`
	Text       string `gorm:"type:text;not null" json:"text"`
	IsCorrect  bool   `gorm:"not null;default:false" json:"-"` // Скрыто от клиента
	Order      int    `gorm:"column:sort_order;not null;default:0" json:"order"`
}

// TableName определяет имя таблицы для GORM
func (Answer) TableName() string {
	return "answers"
}
