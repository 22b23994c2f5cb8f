package helper

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/yourusername/studyquest-api/internal/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestUserIDFromContext(t *testing.T) {
	tests := []struct {
		name    string
		value   interface{}
		set     bool
		want    uint
		wantErr bool
	}{
		{name: "валидный ID", value: uint(42), set: true, want: 42},
		{name: "нет значения", set: false, wantErr: true},
		{name: "неверный тип", value: "42", set: true, wantErr: true},
		{name: "нулевой ID", value: uint(0), set: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			if tt.set {
				c.Set("user_id", tt.value)
			}

			got, err := UserIDFromContext(c)
			if tt.wantErr {
				assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUintFromContext(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set("quizID", uint(7))

	id, err := UintFromContext(c, "quizID")
	require.NoError(t, err)
	assert.Equal(t, uint(7), id)

	_, err = UintFromContext(c, "weekID")
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}
