package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yourusername/studyquest-api/internal/pkg/errors"
	"github.com/yourusername/studyquest-api/internal/service"
	"github.com/yourusername/studyquest-api/pkg/logger"
)

// handleError преобразует ошибку сервиса в HTTP ответ
func handleError(c *gin.Context, log *logger.Logger, err error) {
	var exists *service.QuizExistsError
	switch {
	case errors.As(err, &exists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "quiz_id": exists.QuizID})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrInvalidState), errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrExternalService):
		log.Warn("external service failure", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "External service is unavailable, try again later"})
	case errors.Is(err, apperrors.ErrUnauthorized), errors.Is(err, apperrors.ErrExpiredToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		log.Error("internal server error", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
