package dto

import (
	"time"

	"github.com/yourusername/studyquest-api/internal/domain/entity"
	"github.com/yourusername/studyquest-api/internal/service"
)

// GenerateQuizRequest - параметры генерации квиза (все поля необязательны)
type GenerateQuizRequest struct {
	Difficulty       string `json:"difficulty"`
	QuestionCount    int    `json:"question_count"`
	PassingScore     int    `json:"passing_score"`
	TimeLimitMinutes *int   `json:"time_limit_minutes"`
}

// ToParams преобразует запрос в параметры сервиса
func (r GenerateQuizRequest) ToParams() service.GenerateQuizParams {
	return service.GenerateQuizParams{
		Difficulty:       r.Difficulty,
		QuestionCount:    r.QuestionCount,
		PassingScore:     r.PassingScore,
		TimeLimitMinutes: r.TimeLimitMinutes,
	}
}

// SubmitAttemptRequest - ответы попытки: ID вопроса -> ID варианта
type SubmitAttemptRequest struct {
	Answers          map[uint]uint `json:"answers"`
	TimeTakenSeconds int           `json:"time_taken_seconds"`
}

// AnswerResponse - вариант ответа без признака правильности
type AnswerResponse struct {
	ID    uint   `json:"id"`
	Text  string `json:"text"`
	Order int    `json:"order"`
}

// QuestionResponse - вопрос квиза для прохождения
type QuestionResponse struct {
	ID      uint             `json:"id"`
	Text    string           `json:"text"`
	Points  int              `json:"points"`
	Order   int              `json:"order"`
	Answers []AnswerResponse `json:"answers"`
}

// QuizResponse представляет квиз в формате для ответа клиенту
type QuizResponse struct {
	ID               uint               `json:"id"`
	StudyWeekID      uint               `json:"study_week_id"`
	Title            string             `json:"title"`
	Description      string             `json:"description,omitempty"`
	Difficulty       string             `json:"difficulty"`
	TimeLimitMinutes *int               `json:"time_limit_minutes,omitempty"`
	PassingScore     int                `json:"passing_score"`
	XPReward         int                `json:"xp_reward"`
	QuestionCount    int                `json:"question_count"`
	MaxScore         int                `json:"max_score"`
	Questions        []QuestionResponse `json:"questions,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
}

// AttemptResponse - попытка квиза
type AttemptResponse struct {
	ID               uint       `json:"id"`
	QuizID           uint       `json:"quiz_id"`
	QuizTitle        string     `json:"quiz_title,omitempty"`
	Status           string     `json:"status"`
	Score            int        `json:"score"`
	MaxScore         int        `json:"max_score"`
	Percentage       float64    `json:"percentage"`
	Passed           bool       `json:"passed"`
	XPAwarded        int        `json:"xp_awarded"`
	TimeTakenSeconds int        `json:"time_taken_seconds"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// QuizDetailResponse - квиз с историей попыток пользователя
type QuizDetailResponse struct {
	Quiz              *QuizResponse     `json:"quiz"`
	Attempts          []AttemptResponse `json:"attempts"`
	InProgressAttempt *AttemptResponse  `json:"in_progress_attempt,omitempty"`
	BestPercentage    *float64          `json:"best_percentage,omitempty"`
}

// StartAttemptResponse - открытая попытка и вопросы для прохождения
type StartAttemptResponse struct {
	Attempt *AttemptResponse `json:"attempt"`
	Resumed bool             `json:"resumed"`
}

// SubmitAttemptResponse - итог отправки попытки
type SubmitAttemptResponse struct {
	Attempt *AttemptResponse `json:"attempt"`
	Award   *XPAwardResponse `json:"award"`
}

// QuestionReviewResponse - разбор вопроса после завершения
type QuestionReviewResponse struct {
	ID               uint             `json:"id"`
	Text             string           `json:"text"`
	Explanation      string           `json:"explanation,omitempty"`
	Points           int              `json:"points"`
	Answers          []AnswerResponse `json:"answers"`
	SelectedAnswerID *uint            `json:"selected_answer_id"`
	CorrectAnswerID  *uint            `json:"correct_answer_id"`
	IsCorrect        bool             `json:"is_correct"`
}

// AttemptReviewResponse - разбор завершенной попытки
type AttemptReviewResponse struct {
	Attempt   *AttemptResponse         `json:"attempt"`
	Quiz      *QuizResponse            `json:"quiz"`
	Questions []QuestionReviewResponse `json:"questions"`
}

func newAnswers(answers []entity.Answer) []AnswerResponse {
	list := make([]AnswerResponse, len(answers))
	for i, a := range answers {
		list[i] = AnswerResponse{ID: a.ID, Text: a.Text, Order: a.Order}
	}
	return list
}

// NewQuizResponse создает DTO для квиза. Правильные ответы не раскрываются.
func NewQuizResponse(quiz *entity.Quiz, includeQuestions bool) *QuizResponse {
	if quiz == nil {
		return nil
	}

	resp := &QuizResponse{
		ID:               quiz.ID,
		StudyWeekID:      quiz.StudyWeekID,
		Title:            quiz.Title,
		Description:      quiz.Description,
		Difficulty:       quiz.Difficulty,
		TimeLimitMinutes: quiz.TimeLimitMinutes,
		PassingScore:     quiz.PassingScore,
		XPReward:         quiz.XPReward,
		QuestionCount:    quiz.QuestionCount(),
		MaxScore:         quiz.MaxScore(),
		CreatedAt:        quiz.CreatedAt,
	}
	if includeQuestions {
		resp.Questions = make([]QuestionResponse, len(quiz.Questions))
		for i, q := range quiz.Questions {
			resp.Questions[i] = QuestionResponse{
				ID:      q.ID,
				Text:    q.Text,
				Points:  q.Points,
				Order:   q.Order,
				Answers: newAnswers(q.Answers),
			}
		}
	}
	return resp
}

// NewAttemptResponse создает DTO для попытки
func NewAttemptResponse(a *entity.QuizAttempt) *AttemptResponse {
	if a == nil {
		return nil
	}
	resp := &AttemptResponse{
		ID:               a.ID,
		QuizID:           a.QuizID,
		Status:           a.Status,
		Score:            a.Score,
		MaxScore:         a.MaxScore,
		Percentage:       a.Percentage,
		Passed:           a.Passed,
		XPAwarded:        a.XPAwarded,
		TimeTakenSeconds: a.TimeTakenSeconds,
		StartedAt:        a.StartedAt,
		CompletedAt:      a.CompletedAt,
	}
	if a.Quiz != nil {
		resp.QuizTitle = a.Quiz.Title
	}
	return resp
}

// NewListAttemptResponse создает слайс DTO для списка попыток
func NewListAttemptResponse(attempts []entity.QuizAttempt) []AttemptResponse {
	list := make([]AttemptResponse, len(attempts))
	for i := range attempts {
		list[i] = *NewAttemptResponse(&attempts[i])
	}
	return list
}

// NewQuizDetailResponse создает DTO для детальной страницы квиза
func NewQuizDetailResponse(detail *service.QuizDetail) *QuizDetailResponse {
	return &QuizDetailResponse{
		Quiz:              NewQuizResponse(detail.Quiz, false),
		Attempts:          NewListAttemptResponse(detail.Attempts),
		InProgressAttempt: NewAttemptResponse(detail.InProgress),
		BestPercentage:    detail.BestPercentage,
	}
}

// NewAttemptReviewResponse создает DTO разбора попытки
func NewAttemptReviewResponse(review *service.AttemptReview) *AttemptReviewResponse {
	resp := &AttemptReviewResponse{
		Attempt:   NewAttemptResponse(review.Attempt),
		Quiz:      NewQuizResponse(review.Quiz, false),
		Questions: make([]QuestionReviewResponse, len(review.Questions)),
	}
	for i, q := range review.Questions {
		resp.Questions[i] = QuestionReviewResponse{
			ID:               q.Question.ID,
			Text:             q.Question.Text,
			Explanation:      q.Question.Explanation,
			Points:           q.Question.Points,
			Answers:          newAnswers(q.Question.Answers),
			SelectedAnswerID: q.SelectedAnswerID,
			CorrectAnswerID:  q.CorrectAnswerID,
			IsCorrect:        q.IsCorrect,
		}
	}
	return resp
}
