package helper

import (
	"fmt"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yourusername/studyquest-api/internal/pkg/errors"
)

// UserIDFromContext возвращает ID пользователя, выставленный AuthMiddleware
func UserIDFromContext(c *gin.Context) (uint, error) {
	raw, exists := c.Get("user_id")
	if !exists {
		return 0, apperrors.ErrUnauthorized
	}
	userID, ok := raw.(uint)
	if !ok || userID == 0 {
		return 0, fmt.Errorf("%w: invalid user id in context", apperrors.ErrUnauthorized)
	}
	return userID, nil
}

// UintFromContext возвращает числовой параметр, сохраненный ExtractUintParam
func UintFromContext(c *gin.Context, key string) (uint, error) {
	raw, exists := c.Get(key)
	if !exists {
		return 0, fmt.Errorf("%w: missing %s", apperrors.ErrValidation, key)
	}
	id, ok := raw.(uint)
	if !ok {
		return 0, fmt.Errorf("%w: invalid %s", apperrors.ErrValidation, key)
	}
	return id, nil
}
