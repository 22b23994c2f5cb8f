// Package testutil содержит вспомогательные функции для тестов с in-memory SQLite.
package testutil

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yourusername/studyquest-api/internal/domain/entity"
)

// Models - все таблицы сервиса в порядке создания
var Models = []interface{}{
	&entity.UserProfile{},
	&entity.Achievement{},
	&entity.UserAchievement{},
	&entity.StudyPlan{},
	&entity.StudyWeek{},
	&entity.StudyActivity{},
	&entity.LearningResource{},
	&entity.Quiz{},
	&entity.Question{},
	&entity.Answer{},
	&entity.QuizAttempt{},
}

// NewDB открывает in-memory SQLite и применяет AutoMigrate.
// Одно соединение: каждая новая in-memory база пуста.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(Models...); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// SeedPlan создает план пользователя с weeks неделями, по два задания и одному видео в каждой
func SeedPlan(t *testing.T, db *gorm.DB, userID uint, weeks int) *entity.StudyPlan {
	t.Helper()

	plan := &entity.StudyPlan{UserID: userID, Title: "Distributed Systems"}
	for i := 1; i <= weeks; i++ {
		plan.Weeks = append(plan.Weeks, entity.StudyWeek{
			WeekNumber: i,
			Title:      "Week",
			Activities: []entity.StudyActivity{
				{Title: "Read chapter", Order: 1},
				{Title: "Solve exercises", Order: 2},
			},
			Resources: []entity.LearningResource{
				{Title: "Lecture", URL: "https://example.com/v", Kind: "video"},
			},
		})
	}
	if err := db.Create(plan).Error; err != nil {
		t.Fatalf("failed to seed plan: %v", err)
	}
	return plan
}

// SeedQuiz создает квиз для недели: questions вопросов по 1 баллу, первый ответ правильный
func SeedQuiz(t *testing.T, db *gorm.DB, weekID uint, questions int, passingScore int, xpReward int) *entity.Quiz {
	t.Helper()

	quiz := &entity.Quiz{
		StudyWeekID:  weekID,
		Title:        "Week quiz",
		Difficulty:   entity.DifficultyMedium,
		PassingScore: passingScore,
		XPReward:     xpReward,
	}
	for i := 1; i <= questions; i++ {
		quiz.Questions = append(quiz.Questions, entity.Question{
			Text:   "Question",
			Points: 1,
			Order:  i,
			Answers: []entity.Answer{
				{Text: "right", IsCorrect: true, Order: 1},
				{Text: "wrong", Order: 2},
			},
		})
	}
	if err := db.Create(quiz).Error; err != nil {
		t.Fatalf("failed to seed quiz: %v", err)
	}
	return quiz
}

// CorrectAnswers возвращает ответы, отвечающие правильно на первые correct вопросов
func CorrectAnswers(quiz *entity.Quiz, correct int) entity.AttemptAnswers {
	answers := entity.AttemptAnswers{}
	for i, q := range quiz.Questions {
		for _, a := range q.Answers {
			if (i < correct) == a.IsCorrect {
				answers[q.ID] = a.ID
				break
			}
		}
	}
	return answers
}
