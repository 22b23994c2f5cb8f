package dto

import (
	"github.com/yourusername/studyquest-api/internal/service"
)

// ToggleResponse - состояние элемента плана после переключения
type ToggleResponse struct {
	ID        uint               `json:"id"`
	Completed bool               `json:"completed"`
	Awards    []*XPAwardResponse `json:"awards"`
}

// NewToggleResponse создает DTO результата переключения
func NewToggleResponse(result *service.ToggleResult) *ToggleResponse {
	return &ToggleResponse{
		ID:        result.ID,
		Completed: result.Completed,
		Awards:    NewXPAwardList(result.Awards),
	}
}
