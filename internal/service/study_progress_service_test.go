package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/studyquest-api/internal/domain/entity"
	apperrors "github.com/yourusername/studyquest-api/internal/pkg/errors"
	"github.com/yourusername/studyquest-api/internal/testutil"
)

// ============================================================================
// ToggleActivity / ToggleVideo
// ============================================================================

func TestStudyProgressService_ToggleActivity_AwardsOnce(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	plan := testutil.SeedPlan(t, env.db, 1, 1)
	activityID := plan.Weeks[0].Activities[0].ID

	// Первое выполнение
	result, err := env.progress.ToggleActivity(ctx, 1, activityID)
	require.NoError(t, err)
	assert.True(t, result.Completed)
	require.Len(t, result.Awards, 1)
	assert.Equal(t, 10, result.Awards[0].XPAwarded)

	// Снятие отметки не отнимает XP
	result, err = env.progress.ToggleActivity(ctx, 1, activityID)
	require.NoError(t, err)
	assert.False(t, result.Completed)
	assert.Empty(t, result.Awards)

	// Повторное выполнение не начисляет XP
	result, err = env.progress.ToggleActivity(ctx, 1, activityID)
	require.NoError(t, err)
	assert.True(t, result.Completed)
	assert.Empty(t, result.Awards, "XP за задание начисляется один раз")

	p := env.profile(t, 1)
	assert.Equal(t, 10, p.TotalXP)
	assert.Equal(t, 1, p.TotalActivitiesCompleted)
}

func TestStudyProgressService_ToggleVideo(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	plan := testutil.SeedPlan(t, env.db, 1, 1)
	resourceID := plan.Weeks[0].Resources[0].ID

	result, err := env.progress.ToggleVideo(ctx, 1, resourceID)
	require.NoError(t, err)
	assert.True(t, result.Completed)
	require.Len(t, result.Awards, 1)

	p := env.profile(t, 1)
	assert.Equal(t, 5, p.TotalXP)
	assert.Equal(t, 1, p.TotalVideosWatched)
	assert.Equal(t, 1, p.CurrentStreak)
	assert.Contains(t, env.notifier.types(), "XP_AWARDED")
}

func TestStudyProgressService_ForeignItems(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	plan := testutil.SeedPlan(t, env.db, 1, 1)
	week := plan.Weeks[0]

	tests := []struct {
		name string
		call func() error
	}{
		{"задание", func() error { _, err := env.progress.ToggleActivity(ctx, 2, week.Activities[0].ID); return err }},
		{"видео", func() error { _, err := env.progress.ToggleVideo(ctx, 2, week.Resources[0].ID); return err }},
		{"неделя", func() error { _, err := env.progress.ToggleWeek(ctx, 2, week.ID); return err }},
		{"план", func() error { _, err := env.progress.GetPlan(ctx, 2, plan.ID); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			assert.True(t, errors.Is(err, apperrors.ErrNotFound), "Чужой элемент должен возвращать NotFound")
		})
	}

	_, err := env.profiles.GetByUserID(2)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound), "Профиль не создается при отказе")
}

// ============================================================================
// ToggleWeek
// ============================================================================

func TestStudyProgressService_ToggleWeek_CompletesPlanOnce(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	graduate := env.seedAchievement(t, "Graduate", entity.AchievementCriteria{entity.CriterionStudyPlansCompleted: 1}, 100)
	plan := testutil.SeedPlan(t, env.db, 1, 2)

	result, err := env.progress.ToggleWeek(ctx, 1, plan.Weeks[0].ID)
	require.NoError(t, err)
	require.Len(t, result.Awards, 1)
	assert.Equal(t, entity.XPReasonWeekCompleted, result.Awards[0].Reason)

	result, err = env.progress.ToggleWeek(ctx, 1, plan.Weeks[1].ID)
	require.NoError(t, err)
	require.Len(t, result.Awards, 2, "Последняя неделя завершает план")
	assert.Equal(t, entity.XPReasonWeekCompleted, result.Awards[0].Reason)
	require.Len(t, result.Awards[0].NewlyUnlocked, 1)
	assert.Equal(t, graduate.Name, result.Awards[0].NewlyUnlocked[0].Name)
	assert.Equal(t, entity.XPReasonStudyPlanCompleted, result.Awards[1].Reason)
	assert.Equal(t, 500, result.Awards[1].XPAwarded)

	// Снять и снова отметить последнюю неделю
	_, err = env.progress.ToggleWeek(ctx, 1, plan.Weeks[1].ID)
	require.NoError(t, err)
	result, err = env.progress.ToggleWeek(ctx, 1, plan.Weeks[1].ID)
	require.NoError(t, err)
	assert.Empty(t, result.Awards, "Бонус за план начисляется один раз")

	p := env.profile(t, 1)
	assert.Equal(t, 50+50+100+500, p.TotalXP)
	assert.Equal(t, 2, p.TotalWeeksCompleted)

	stored, err := env.progress.GetPlan(ctx, 1, plan.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsCompleted())
}

func TestStudyProgressService_ToggleWeek_Uncomplete(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	plan := testutil.SeedPlan(t, env.db, 1, 2)
	weekID := plan.Weeks[0].ID

	_, err := env.progress.ToggleWeek(ctx, 1, weekID)
	require.NoError(t, err)

	result, err := env.progress.ToggleWeek(ctx, 1, weekID)
	require.NoError(t, err)
	assert.False(t, result.Completed)
	assert.Empty(t, result.Awards)

	stored, err := env.progress.GetPlan(ctx, 1, plan.ID)
	require.NoError(t, err)
	assert.False(t, stored.Weeks[0].IsCompleted)
	assert.Nil(t, stored.Weeks[0].CompletedAt)
}

// ============================================================================
// ImportPlan
// ============================================================================

func TestStudyProgressService_ImportPlan(t *testing.T) {
	validPlan := func() PlanInput {
		return PlanInput{
			Title: "Go in depth",
			Weeks: []WeekInput{
				{
					WeekNumber: 1,
					Title:      "Concurrency",
					Objectives: []string{"Understand channels"},
					Activities: []ActivityInput{{Title: "Read the memory model", EstimatedHours: 2}},
					Resources:  []ResourceInput{{Title: "Talk", URL: "https://example.com/talk"}},
				},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(p *PlanInput)
		wantErr bool
	}{
		{"валидный план", func(p *PlanInput) {}, false},
		{"без названия", func(p *PlanInput) { p.Title = "" }, true},
		{"без недель", func(p *PlanInput) { p.Weeks = nil }, true},
		{"номер недели 0", func(p *PlanInput) { p.Weeks[0].WeekNumber = 0 }, true},
		{"некорректный URL", func(p *PlanInput) { p.Weeks[0].Resources[0].URL = "not a url" }, true},
		{"неизвестный тип материала", func(p *PlanInput) { p.Weeks[0].Resources[0].Kind = "podcast" }, true},
		{"отрицательные часы", func(p *PlanInput) { p.Weeks[0].Activities[0].EstimatedHours = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			input := validPlan()
			tt.mutate(&input)

			plan, err := env.progress.ImportPlan(context.Background(), 1, input)

			if tt.wantErr {
				assert.True(t, errors.Is(err, apperrors.ErrValidation))
				return
			}
			require.NoError(t, err)
			stored, err := env.progress.GetPlan(context.Background(), 1, plan.ID)
			require.NoError(t, err)
			require.Len(t, stored.Weeks, 1)
			assert.Equal(t, []string{"Understand channels"}, []string(stored.Weeks[0].Objectives))
			require.Len(t, stored.Weeks[0].Resources, 1)
			assert.Equal(t, "video", stored.Weeks[0].Resources[0].Kind, "Тип материала по умолчанию")
			assert.Equal(t, 1, stored.Weeks[0].Activities[0].Order)
		})
	}
}
