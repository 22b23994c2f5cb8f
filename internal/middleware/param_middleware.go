package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ExtractUintParam разбирает ID сущности из URL и сохраняет его в контексте под contextKey.
// Идентификаторы начинаются с 1, поэтому 0 отклоняется так же, как нечисловое значение.
func ExtractUintParam(paramName, contextKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param(paramName), 10, 32)
		if err != nil || id == 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + paramName})
			return
		}
		c.Set(contextKey, uint(id))
		c.Next()
	}
}
