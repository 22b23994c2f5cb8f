package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/studyquest-api/internal/domain/entity"
	"github.com/yourusername/studyquest-api/internal/handler/dto"
	"github.com/yourusername/studyquest-api/internal/handler/helper"
	"github.com/yourusername/studyquest-api/internal/service"
	"github.com/yourusername/studyquest-api/pkg/logger"
)

// StudyProgressProvider - операции с учебным планом
type StudyProgressProvider interface {
	ImportPlan(ctx context.Context, userID uint, input service.PlanInput) (*entity.StudyPlan, error)
	GetPlan(ctx context.Context, userID, planID uint) (*entity.StudyPlan, error)
	ToggleActivity(ctx context.Context, userID, activityID uint) (*service.ToggleResult, error)
	ToggleVideo(ctx context.Context, userID, resourceID uint) (*service.ToggleResult, error)
	ToggleWeek(ctx context.Context, userID, weekID uint) (*service.ToggleResult, error)
}

// StudyPlanHandler обрабатывает запросы по учебным планам
type StudyPlanHandler struct {
	progress StudyProgressProvider
	log      *logger.Logger
}

// NewStudyPlanHandler создает новый обработчик учебных планов
func NewStudyPlanHandler(progress StudyProgressProvider, log *logger.Logger) *StudyPlanHandler {
	return &StudyPlanHandler{progress: progress, log: log}
}

// ImportPlan сохраняет план из JSON документа
// POST /api/study-plans
func (h *StudyPlanHandler) ImportPlan(c *gin.Context) {
	userID, err := helper.UserIDFromContext(c)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	var req service.PlanInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data: " + err.Error()})
		return
	}

	plan, err := h.progress.ImportPlan(c.Request.Context(), userID, req)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, plan)
}

// GetPlan возвращает план с неделями, заданиями и материалами
// GET /api/study-plans/:id
func (h *StudyPlanHandler) GetPlan(c *gin.Context) {
	h.withIDs(c, "planID", func(userID, planID uint) {
		plan, err := h.progress.GetPlan(c.Request.Context(), userID, planID)
		if err != nil {
			handleError(c, h.log, err)
			return
		}
		c.JSON(http.StatusOK, plan)
	})
}

// ToggleWeek переключает завершение недели
// POST /api/study-plans/weeks/:id/toggle
func (h *StudyPlanHandler) ToggleWeek(c *gin.Context) {
	h.toggle(c, "weekID", h.progress.ToggleWeek)
}

// ToggleActivity переключает выполнение задания
// POST /api/study-plans/activities/:id/toggle
func (h *StudyPlanHandler) ToggleActivity(c *gin.Context) {
	h.toggle(c, "activityID", h.progress.ToggleActivity)
}

// ToggleResource переключает отметку просмотра материала
// POST /api/study-plans/resources/:id/toggle
func (h *StudyPlanHandler) ToggleResource(c *gin.Context) {
	h.toggle(c, "resourceID", h.progress.ToggleVideo)
}

func (h *StudyPlanHandler) toggle(c *gin.Context, key string, fn func(ctx context.Context, userID, id uint) (*service.ToggleResult, error)) {
	h.withIDs(c, key, func(userID, id uint) {
		result, err := fn(c.Request.Context(), userID, id)
		if err != nil {
			handleError(c, h.log, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewToggleResponse(result))
	})
}

// withIDs достает пользователя и ID из контекста и вызывает fn
func (h *StudyPlanHandler) withIDs(c *gin.Context, key string, fn func(userID, id uint)) {
	userID, err := helper.UserIDFromContext(c)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	id, err := helper.UintFromContext(c, key)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	fn(userID, id)
}
