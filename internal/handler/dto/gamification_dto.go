package dto

import (
	"time"

	"github.com/yourusername/studyquest-api/internal/domain/entity"
	"github.com/yourusername/studyquest-api/internal/service"
)

// AchievementResponse - элемент каталога достижений
type AchievementResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Type        string `json:"type"`
	Rarity      string `json:"rarity"`
	XPReward    int    `json:"xp_reward"`
}

// AchievementStatusResponse - достижение с состоянием для пользователя
type AchievementStatusResponse struct {
	AchievementResponse
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
	IsNew      bool       `json:"is_new"`
}

// XPAwardResponse - результат события прогресса
type XPAwardResponse struct {
	XPAwarded       int                   `json:"xp_awarded"`
	BonusXP         int                   `json:"bonus_xp"`
	TotalXP         int                   `json:"total_xp"`
	Level           int                   `json:"level"`
	LeveledUp       bool                  `json:"leveled_up"`
	Reason          string                `json:"reason"`
	CurrentStreak   int                   `json:"current_streak"`
	NewAchievements []AchievementResponse `json:"new_achievements"`
}

// NewAchievementResponse создает DTO достижения
func NewAchievementResponse(a *entity.Achievement) AchievementResponse {
	return AchievementResponse{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		Icon:        a.Icon,
		Type:        a.Type,
		Rarity:      a.Rarity,
		XPReward:    a.XPReward,
	}
}

// NewAchievementStatusList создает список достижений с состоянием
func NewAchievementStatusList(statuses []service.AchievementStatus) []AchievementStatusResponse {
	list := make([]AchievementStatusResponse, len(statuses))
	for i := range statuses {
		s := &statuses[i]
		list[i] = AchievementStatusResponse{
			AchievementResponse: NewAchievementResponse(&s.Achievement),
			Unlocked:            s.Unlocked,
			UnlockedAt:          s.UnlockedAt,
			IsNew:               s.IsNew,
		}
	}
	return list
}

// NewXPAwardResponse создает DTO начисления
func NewXPAwardResponse(award *entity.XPAward) *XPAwardResponse {
	if award == nil {
		return nil
	}
	resp := &XPAwardResponse{
		XPAwarded:       award.XPAwarded,
		BonusXP:         award.BonusXP,
		TotalXP:         award.TotalXP,
		Level:           award.Level,
		LeveledUp:       award.LeveledUp,
		Reason:          award.Reason,
		CurrentStreak:   award.CurrentStreak,
		NewAchievements: make([]AchievementResponse, len(award.NewlyUnlocked)),
	}
	for i := range award.NewlyUnlocked {
		resp.NewAchievements[i] = NewAchievementResponse(&award.NewlyUnlocked[i])
	}
	return resp
}

// NewXPAwardList создает список DTO начислений
func NewXPAwardList(awards []*entity.XPAward) []*XPAwardResponse {
	list := make([]*XPAwardResponse, 0, len(awards))
	for _, a := range awards {
		list = append(list, NewXPAwardResponse(a))
	}
	return list
}
