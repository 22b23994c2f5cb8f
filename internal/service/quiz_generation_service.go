package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/yourusername/studyquest-api/internal/domain/entity"
	"github.com/yourusername/studyquest-api/internal/domain/repository"
	"github.com/yourusername/studyquest-api/internal/metrics"
	apperrors "github.com/yourusername/studyquest-api/internal/pkg/errors"
	"github.com/yourusername/studyquest-api/pkg/llm"
	"github.com/yourusername/studyquest-api/pkg/logger"
	"gorm.io/gorm"
)

const (
	defaultQuestionCount = 10
	maxQuestionCount     = 30
	generationLockPrefix = "quizgen:lock:"
	generationLockTTL    = 3 * time.Minute
)

// GenerateQuizParams - параметры генерации квиза
type GenerateQuizParams struct {
	Difficulty       string
	QuestionCount    int
	PassingScore     int
	TimeLimitMinutes *int
}

// normalize подставляет значения по умолчанию и проверяет диапазоны
func (p GenerateQuizParams) normalize() (GenerateQuizParams, error) {
	if p.Difficulty == "" {
		p.Difficulty = entity.DifficultyMedium
	}
	if !entity.IsValidDifficulty(p.Difficulty) {
		return p, fmt.Errorf("%w: difficulty must be one of easy, medium, hard", apperrors.ErrValidation)
	}
	if p.QuestionCount == 0 {
		p.QuestionCount = defaultQuestionCount
	}
	if p.QuestionCount < 1 || p.QuestionCount > maxQuestionCount {
		return p, fmt.Errorf("%w: question count must be between 1 and %d", apperrors.ErrValidation, maxQuestionCount)
	}
	if p.PassingScore == 0 {
		p.PassingScore = entity.DefaultPassingScore
	}
	if p.PassingScore < 1 || p.PassingScore > 100 {
		return p, fmt.Errorf("%w: passing score must be between 1 and 100", apperrors.ErrValidation)
	}
	if p.TimeLimitMinutes == nil {
		limit := p.QuestionCount * 2
		p.TimeLimitMinutes = &limit
	} else if *p.TimeLimitMinutes < 1 {
		return p, fmt.Errorf("%w: time limit must be positive", apperrors.ErrValidation)
	}
	return p, nil
}

// generatedQuiz - документ, который возвращает LLM
type generatedQuiz struct {
	Title       string              `json:"title" validate:"required"`
	Description string              `json:"description"`
	Questions   []generatedQuestion `json:"questions" validate:"required,min=1,dive"`
}

type generatedQuestion struct {
	Question    string            `json:"question" validate:"required"`
	Explanation string            `json:"explanation"`
	Points      int               `json:"points" validate:"gte=0"`
	Answers     []generatedAnswer `json:"answers" validate:"required,min=2,dive"`
}

type generatedAnswer struct {
	Text      string `json:"text" validate:"required"`
	IsCorrect bool   `json:"is_correct"`
}

// validateSingleCorrect требует ровно один правильный вариант в вопросе
func validateSingleCorrect(sl validator.StructLevel) {
	q := sl.Current().Interface().(generatedQuestion)
	correct := 0
	for _, a := range q.Answers {
		if a.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		sl.ReportError(q.Answers, "Answers", "answers", "single_correct", "")
	}
}

func newQuizDocumentValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(validateSingleCorrect, generatedQuestion{})
	return v
}

// QuizGenerationService генерирует квизы по неделям плана через LLM
type QuizGenerationService struct {
	db            *gorm.DB
	studyPlanRepo repository.StudyPlanRepository
	quizRepo      repository.QuizRepository
	cacheRepo     repository.CacheRepository
	llmClient     llm.Client
	validate      *validator.Validate
	metrics       *metrics.Metrics
	log           *logger.Logger
}

// NewQuizGenerationService создает новый сервис генерации. cacheRepo может быть nil.
func NewQuizGenerationService(
	db *gorm.DB,
	studyPlanRepo repository.StudyPlanRepository,
	quizRepo repository.QuizRepository,
	cacheRepo repository.CacheRepository,
	llmClient llm.Client,
	m *metrics.Metrics,
	log *logger.Logger,
) *QuizGenerationService {
	return &QuizGenerationService{
		db:            db,
		studyPlanRepo: studyPlanRepo,
		quizRepo:      quizRepo,
		cacheRepo:     cacheRepo,
		llmClient:     llmClient,
		validate:      newQuizDocumentValidator(),
		metrics:       m,
		log:           log.With("component", "quiz_generation"),
	}
}

// GenerateForWeek создает квиз для недели пользователя
func (s *QuizGenerationService) GenerateForWeek(ctx context.Context, userID, weekID uint, params GenerateQuizParams) (*entity.Quiz, error) {
	params, err := params.normalize()
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	week, err := s.studyPlanRepo.WithTx(db).GetWeekForUser(weekID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNoQuiz(db, weekID); err != nil {
		return nil, err
	}

	release, err := s.acquireLock(weekID, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	raw, err := s.llmClient.GenerateJSON(ctx, buildQuizPrompt(week, params))
	if err != nil {
		s.metrics.ObserveQuizGeneration("llm_error")
		return nil, fmt.Errorf("quiz generation failed: %w", err)
	}

	doc, err := s.parseDocument(raw)
	if err != nil {
		s.metrics.ObserveQuizGeneration("invalid_document")
		s.log.Warn("llm returned invalid quiz document", "week_id", weekID, "error", err)
		return nil, err
	}

	quiz := buildQuiz(week, doc, params)
	err = db.Transaction(func(tx *gorm.DB) error {
		return s.quizRepo.WithTx(tx).Create(quiz)
	})
	if err != nil {
		if errors.Is(err, repository.ErrQuizAlreadyExists) {
			s.metrics.ObserveQuizGeneration("conflict")
			if existing, getErr := s.quizRepo.WithTx(db).GetByWeekID(weekID); getErr == nil {
				return nil, &QuizExistsError{QuizID: existing.ID}
			}
		}
		return nil, fmt.Errorf("failed to save quiz: %w", err)
	}

	s.metrics.ObserveQuizGeneration("created")
	s.log.Info("quiz generated",
		"user_id", userID,
		"week_id", weekID,
		"quiz_id", quiz.ID,
		"questions", len(quiz.Questions),
		"difficulty", quiz.Difficulty,
	)
	return quiz, nil
}

func (s *QuizGenerationService) ensureNoQuiz(db *gorm.DB, weekID uint) error {
	existing, err := s.quizRepo.WithTx(db).GetByWeekID(weekID)
	if err == nil {
		return &QuizExistsError{QuizID: existing.ID}
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("failed to check existing quiz: %w", err)
	}
	return nil
}

// acquireLock не дает запускать параллельную генерацию для одной недели.
// При недоступном кеше генерация продолжается без блокировки.
func (s *QuizGenerationService) acquireLock(weekID, userID uint) (func(), error) {
	noop := func() {}
	if s.cacheRepo == nil {
		return noop, nil
	}

	key := fmt.Sprintf("%s%d", generationLockPrefix, weekID)
	ok, err := s.cacheRepo.SetNX(key, userID, generationLockTTL)
	if err != nil {
		s.log.Warn("generation lock unavailable", "week_id", weekID, "error", err)
		return noop, nil
	}
	if !ok {
		return nil, fmt.Errorf("%w: quiz generation already in progress for this week", apperrors.ErrConflict)
	}
	return func() {
		if err := s.cacheRepo.Delete(key); err != nil {
			s.log.Warn("failed to release generation lock", "week_id", weekID, "error", err)
		}
	}, nil
}

func (s *QuizGenerationService) parseDocument(raw []byte) (*generatedQuiz, error) {
	var doc generatedQuiz
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: malformed quiz document: %v", apperrors.ErrExternalService, err)
	}
	if err := s.validate.Struct(&doc); err != nil {
		return nil, fmt.Errorf("%w: invalid quiz document: %v", apperrors.ErrExternalService, err)
	}
	return &doc, nil
}

var difficultyInstructions = map[string]string{
	entity.DifficultyEasy:   "Focus on basic recall and understanding. Questions should test fundamental concepts.",
	entity.DifficultyMedium: "Mix of recall, application, and analysis. Questions should require understanding and application.",
	entity.DifficultyHard:   "Advanced application, analysis, and synthesis. Questions should be challenging and require deep understanding.",
}

// buildQuizPrompt собирает запрос к LLM по содержимому недели
func buildQuizPrompt(week *entity.StudyWeek, params GenerateQuizParams) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an expert educational assessment designer. Create a %s difficulty quiz for the following study topic.\n\n", params.Difficulty)
	if week.StudyPlan != nil {
		fmt.Fprintf(&b, "Study plan: %s\n", week.StudyPlan.Title)
	}
	fmt.Fprintf(&b, "Week %d: %s\n", week.WeekNumber, week.Title)
	if week.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", week.Description)
	}

	if objectives := week.Objectives; len(objectives) > 0 {
		b.WriteString("\nObjectives:\n")
		for _, o := range objectives {
			fmt.Fprintf(&b, "- %s\n", o)
		}
	}
	if len(week.Activities) > 0 {
		b.WriteString("\nLearning activities:\n")
		for _, a := range week.Activities {
			if a.Description != "" {
				fmt.Fprintf(&b, "- %s: %s\n", a.Title, a.Description)
			} else {
				fmt.Fprintf(&b, "- %s\n", a.Title)
			}
		}
	}

	fmt.Fprintf(&b, "\nRequirements:\n- Generate exactly %d multiple-choice questions\n", params.QuestionCount)
	fmt.Fprintf(&b, "- Difficulty: %s. %s\n", params.Difficulty, difficultyInstructions[params.Difficulty])
	b.WriteString("- Each question has 4 answer options and exactly ONE correct answer\n")
	b.WriteString("- Include a brief explanation of the correct answer\n")
	b.WriteString("- Cover different aspects of the topic\n")
	b.WriteString(`
Respond with JSON only:
{
  "title": "Quiz title",
  "description": "What the quiz covers",
  "questions": [
    {
      "question": "Question text",
      "answers": [
        {"text": "Option 1", "is_correct": false},
        {"text": "Option 2", "is_correct": true},
        {"text": "Option 3", "is_correct": false},
        {"text": "Option 4", "is_correct": false}
      ],
      "explanation": "Why the correct answer is right",
      "points": 1
    }
  ]
}
`)
	return b.String()
}

// buildQuiz переносит проверенный документ в сущности.
// Лишние вопросы отбрасываются, награда считается от числа сохраненных вопросов.
func buildQuiz(week *entity.StudyWeek, doc *generatedQuiz, params GenerateQuizParams) *entity.Quiz {
	quiz := &entity.Quiz{
		StudyWeekID:      week.ID,
		Title:            doc.Title,
		Description:      doc.Description,
		Difficulty:       params.Difficulty,
		TimeLimitMinutes: params.TimeLimitMinutes,
		PassingScore:     params.PassingScore,
	}

	questions := doc.Questions
	if len(questions) > params.QuestionCount {
		questions = questions[:params.QuestionCount]
	}
	quiz.XPReward = entity.QuizXPReward(params.Difficulty, len(questions))

	for qi, q := range questions {
		points := q.Points
		if points <= 0 {
			points = 1
		}
		question := entity.Question{
			Text:        q.Question,
			Explanation: q.Explanation,
			Points:      points,
			Order:       qi + 1,
		}
		for ai, a := range q.Answers {
			question.Answers = append(question.Answers, entity.Answer{
				Text:      a.Text,
				IsCorrect: a.IsCorrect,
				Order:     ai + 1,
			})
		}
		quiz.Questions = append(quiz.Questions, question)
	}
	return quiz
}
