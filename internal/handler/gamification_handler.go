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

// GamificationProvider - операции геймификации, доступные клиенту
type GamificationProvider interface {
	GetUserStats(ctx context.Context, userID uint) (*service.UserStats, error)
	ListAchievements(ctx context.Context, userID uint) ([]service.AchievementStatus, error)
	MarkAchievementsSeen(ctx context.Context, userID uint) (int64, error)
	DailyCheckIn(ctx context.Context, userID uint) (*entity.XPAward, error)
}

// GamificationHandler обрабатывает запросы статистики и достижений
type GamificationHandler struct {
	gamification GamificationProvider
	log          *logger.Logger
}

// NewGamificationHandler создает новый обработчик геймификации
func NewGamificationHandler(gamification GamificationProvider, log *logger.Logger) *GamificationHandler {
	return &GamificationHandler{gamification: gamification, log: log}
}

// GetStats возвращает сводку прогресса пользователя
// GET /api/gamification/stats
func (h *GamificationHandler) GetStats(c *gin.Context) {
	userID, err := helper.UserIDFromContext(c)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	stats, err := h.gamification.GetUserStats(c.Request.Context(), userID)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ListAchievements возвращает каталог достижений с состоянием для пользователя
// GET /api/gamification/achievements
func (h *GamificationHandler) ListAchievements(c *gin.Context) {
	userID, err := helper.UserIDFromContext(c)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	statuses, err := h.gamification.ListAchievements(c.Request.Context(), userID)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	unlocked := 0
	for _, s := range statuses {
		if s.Unlocked {
			unlocked++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"achievements": dto.NewAchievementStatusList(statuses),
		"total":        len(statuses),
		"unlocked":     unlocked,
	})
}

// MarkAchievementsSeen снимает отметку "новое" со всех достижений пользователя
// POST /api/gamification/achievements/seen
func (h *GamificationHandler) MarkAchievementsSeen(c *gin.Context) {
	userID, err := helper.UserIDFromContext(c)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	count, err := h.gamification.MarkAchievementsSeen(c.Request.Context(), userID)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"marked": count})
}

// CheckIn засчитывает ежедневный вход
// POST /api/gamification/check-in
func (h *GamificationHandler) CheckIn(c *gin.Context) {
	userID, err := helper.UserIDFromContext(c)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	award, err := h.gamification.DailyCheckIn(c.Request.Context(), userID)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewXPAwardResponse(award))
}
