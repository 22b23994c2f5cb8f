package handler

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"github.com/yourusername/studyquest-api/internal/domain/entity"
	"github.com/yourusername/studyquest-api/internal/handler/dto"
	"github.com/yourusername/studyquest-api/internal/handler/helper"
	"github.com/yourusername/studyquest-api/internal/service"
	"github.com/yourusername/studyquest-api/pkg/logger"
)

// QuizProvider - прохождение квизов
type QuizProvider interface {
	StartAttempt(ctx context.Context, userID, quizID uint) (*entity.QuizAttempt, bool, error)
	SubmitAttempt(ctx context.Context, userID, attemptID uint, answers entity.AttemptAnswers, timeTakenSeconds int) (*service.SubmitResult, error)
	GetAttemptResults(ctx context.Context, userID, attemptID uint) (*service.AttemptReview, error)
	GetQuizDetail(ctx context.Context, userID, quizID uint) (*service.QuizDetail, error)
	ListAttempts(ctx context.Context, userID uint) ([]entity.QuizAttempt, error)
}

// QuizGenerator - генерация квиза по неделе плана
type QuizGenerator interface {
	GenerateForWeek(ctx context.Context, userID, weekID uint, params service.GenerateQuizParams) (*entity.Quiz, error)
}

// QuizHandler обрабатывает запросы, связанные с квизами
type QuizHandler struct {
	quizzes   QuizProvider
	generator QuizGenerator
	log       *logger.Logger
}

// NewQuizHandler создает новый обработчик квизов. generator может быть nil,
// тогда генерация отключена.
func NewQuizHandler(quizzes QuizProvider, generator QuizGenerator, log *logger.Logger) *QuizHandler {
	return &QuizHandler{quizzes: quizzes, generator: generator, log: log}
}

// GenerateQuiz создает квиз для недели плана
// POST /api/study-plans/weeks/:id/quiz
func (h *QuizHandler) GenerateQuiz(c *gin.Context) {
	if h.generator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Quiz generation is disabled"})
		return
	}

	userID, err := helper.UserIDFromContext(c)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	weekID, err := helper.UintFromContext(c, "weekID")
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	var req dto.GenerateQuizRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data: " + err.Error()})
			return
		}
	}

	quiz, err := h.generator.GenerateForWeek(c.Request.Context(), userID, weekID, req.ToParams())
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewQuizResponse(quiz, true))
}

// GetQuiz возвращает квиз, попытки пользователя и лучший результат
// GET /api/quizzes/:id
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	userID, quizID, ok := h.ids(c, "quizID")
	if !ok {
		return
	}

	detail, err := h.quizzes.GetQuizDetail(c.Request.Context(), userID, quizID)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuizDetailResponse(detail))
}

// StartAttempt открывает новую попытку или возвращает незавершенную
// POST /api/quizzes/:id/attempts
func (h *QuizHandler) StartAttempt(c *gin.Context) {
	userID, quizID, ok := h.ids(c, "quizID")
	if !ok {
		return
	}

	attempt, created, err := h.quizzes.StartAttempt(c.Request.Context(), userID, quizID)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, dto.StartAttemptResponse{
		Attempt: dto.NewAttemptResponse(attempt),
		Resumed: !created,
	})
}

// SubmitAttempt оценивает попытку
// POST /api/quizzes/attempts/:id/submit
func (h *QuizHandler) SubmitAttempt(c *gin.Context) {
	userID, attemptID, ok := h.ids(c, "attemptID")
	if !ok {
		return
	}

	var req dto.SubmitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data: " + err.Error()})
		return
	}

	result, err := h.quizzes.SubmitAttempt(c.Request.Context(), userID, attemptID, entity.AttemptAnswers(req.Answers), req.TimeTakenSeconds)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.SubmitAttemptResponse{
		Attempt: dto.NewAttemptResponse(result.Attempt),
		Award:   dto.NewXPAwardResponse(result.Award),
	})
}

// GetAttemptResults возвращает разбор завершенной попытки
// GET /api/quizzes/attempts/:id/results
func (h *QuizHandler) GetAttemptResults(c *gin.Context) {
	userID, attemptID, ok := h.ids(c, "attemptID")
	if !ok {
		return
	}

	review, err := h.quizzes.GetAttemptResults(c.Request.Context(), userID, attemptID)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAttemptReviewResponse(review))
}

// ExportAttempts выгружает историю завершенных попыток в CSV или Excel
// GET /api/quizzes/attempts/export?format=csv|xlsx
func (h *QuizHandler) ExportAttempts(c *gin.Context) {
	userID, err := helper.UserIDFromContext(c)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "xlsx" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or xlsx"})
		return
	}

	attempts, err := h.quizzes.ListAttempts(c.Request.Context(), userID)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	filename := fmt.Sprintf("quiz_attempts_%s", time.Now().Format("2006-01-02"))
	if format == "xlsx" {
		h.exportXLSX(c, attempts, filename)
		return
	}
	h.exportCSV(c, attempts, filename)
}

func (h *QuizHandler) ids(c *gin.Context, key string) (uint, uint, bool) {
	userID, err := helper.UserIDFromContext(c)
	if err != nil {
		handleError(c, h.log, err)
		return 0, 0, false
	}
	id, err := helper.UintFromContext(c, key)
	if err != nil {
		handleError(c, h.log, err)
		return 0, 0, false
	}
	return userID, id, true
}

var exportHeaders = []string{"Дата", "Квиз", "Баллы", "Максимум", "Процент", "Сдан", "XP", "Время (сек)"}

// exportRow возвращает значения строки выгрузки
func exportRow(a *entity.QuizAttempt) []interface{} {
	title := ""
	if a.Quiz != nil {
		title = sanitizeForExcel(a.Quiz.Title)
	}
	completed := ""
	if a.CompletedAt != nil {
		completed = a.CompletedAt.Format("2006-01-02 15:04")
	}
	passed := "Нет"
	if a.Passed {
		passed = "Да"
	}
	return []interface{}{completed, title, a.Score, a.MaxScore, a.Percentage, passed, a.XPAwarded, a.TimeTakenSeconds}
}

// exportCSV выгружает попытки в CSV с правильным экранированием спецсимволов
func (h *QuizHandler) exportCSV(c *gin.Context, attempts []entity.QuizAttempt, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	_, _ = c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	if err := writer.Write(exportHeaders); err != nil {
		h.log.Warn("failed to write csv header", "error", err)
		return
	}
	for i := range attempts {
		row := exportRow(&attempts[i])
		record := make([]string, len(row))
		for j, v := range row {
			switch val := v.(type) {
			case string:
				record[j] = val
			case int:
				record[j] = strconv.Itoa(val)
			case float64:
				record[j] = strconv.FormatFloat(val, 'f', 1, 64)
			}
		}
		if err := writer.Write(record); err != nil {
			h.log.Warn("failed to write csv row", "row", i+2, "error", err)
			return
		}
	}
}

// exportXLSX выгружает попытки в Excel через StreamWriter
func (h *QuizHandler) exportXLSX(c *gin.Context, attempts []entity.QuizAttempt, filename string) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Попытки"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		h.log.Error("failed to rename sheet", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		h.log.Error("failed to create stream writer", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	headers := make([]interface{}, len(exportHeaders))
	for i, v := range exportHeaders {
		headers[i] = v
	}
	if err := sw.SetRow("A1", headers); err != nil {
		h.log.Warn("failed to write xlsx header", "error", err)
	}
	for i := range attempts {
		cell := fmt.Sprintf("A%d", i+2)
		if err := sw.SetRow(cell, exportRow(&attempts[i])); err != nil {
			h.log.Warn("failed to write xlsx row", "row", i+2, "error", err)
		}
	}
	if err := sw.Flush(); err != nil {
		h.log.Error("failed to flush xlsx", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))
	if err := f.Write(c.Writer); err != nil {
		h.log.Error("failed to write xlsx response", "error", err)
	}
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
