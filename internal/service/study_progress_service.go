package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/yourusername/studyquest-api/internal/domain/entity"
	"github.com/yourusername/studyquest-api/internal/domain/repository"
	apperrors "github.com/yourusername/studyquest-api/internal/pkg/errors"
	"github.com/yourusername/studyquest-api/pkg/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PlanInput - документ учебного плана для импорта
type PlanInput struct {
	Title       string      `json:"title" validate:"required,max=255"`
	Description string      `json:"description"`
	Weeks       []WeekInput `json:"weeks" validate:"required,min=1,max=52,dive"`
}

// WeekInput - неделя импортируемого плана
type WeekInput struct {
	WeekNumber  int             `json:"week_number" validate:"gte=1"`
	Title       string          `json:"title" validate:"required,max=255"`
	Description string          `json:"description"`
	Objectives  []string        `json:"objectives" validate:"dive,required"`
	Activities  []ActivityInput `json:"activities" validate:"dive"`
	Resources   []ResourceInput `json:"resources" validate:"dive"`
}

// ActivityInput - задание недели
type ActivityInput struct {
	Title          string  `json:"title" validate:"required,max=255"`
	Description    string  `json:"description"`
	EstimatedHours float64 `json:"estimated_hours" validate:"gte=0"`
}

// ResourceInput - учебный материал недели
type ResourceInput struct {
	Title string `json:"title" validate:"required,max=255"`
	URL   string `json:"url" validate:"required,url,max=500"`
	Kind  string `json:"kind" validate:"omitempty,oneof=video article"`
}

// ToggleResult - состояние элемента после переключения и начисления за него
type ToggleResult struct {
	ID        uint
	Completed bool
	Awards    []*entity.XPAward
}

// StudyProgressService переключает прогресс по плану и запускает события геймификации
type StudyProgressService struct {
	db            *gorm.DB
	studyPlanRepo repository.StudyPlanRepository
	gamification  *GamificationService
	validate      *validator.Validate
	now           func() time.Time
	log           *logger.Logger
}

// NewStudyProgressService создает новый StudyProgressService
func NewStudyProgressService(
	db *gorm.DB,
	studyPlanRepo repository.StudyPlanRepository,
	gamification *GamificationService,
	log *logger.Logger,
) *StudyProgressService {
	return &StudyProgressService{
		db:            db,
		studyPlanRepo: studyPlanRepo,
		gamification:  gamification,
		validate:      validator.New(),
		now:           time.Now,
		log:           log.With("component", "study_progress"),
	}
}

// ImportPlan сохраняет план пользователя из документа
func (s *StudyProgressService) ImportPlan(ctx context.Context, userID uint, input PlanInput) (*entity.StudyPlan, error) {
	if err := s.validate.Struct(&input); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	plan := &entity.StudyPlan{
		UserID:      userID,
		Title:       input.Title,
		Description: input.Description,
	}
	for _, w := range input.Weeks {
		week := entity.StudyWeek{
			WeekNumber:  w.WeekNumber,
			Title:       w.Title,
			Description: w.Description,
			Objectives:  datatypes.JSONSlice[string](w.Objectives),
		}
		for i, a := range w.Activities {
			week.Activities = append(week.Activities, entity.StudyActivity{
				Title:          a.Title,
				Description:    a.Description,
				EstimatedHours: a.EstimatedHours,
				Order:          i + 1,
			})
		}
		for _, r := range w.Resources {
			kind := r.Kind
			if kind == "" {
				kind = "video"
			}
			week.Resources = append(week.Resources, entity.LearningResource{
				Title: r.Title,
				URL:   r.URL,
				Kind:  kind,
			})
		}
		plan.Weeks = append(plan.Weeks, week)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.studyPlanRepo.WithTx(tx).Create(plan)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save study plan: %w", err)
	}

	s.log.Info("study plan imported", "user_id", userID, "plan_id", plan.ID, "weeks", len(plan.Weeks))
	return plan, nil
}

// GetPlan возвращает план пользователя с неделями
func (s *StudyProgressService) GetPlan(ctx context.Context, userID, planID uint) (*entity.StudyPlan, error) {
	return s.studyPlanRepo.WithTx(s.db.WithContext(ctx)).GetForUser(planID, userID)
}

// ToggleActivity переключает выполнение задания
func (s *StudyProgressService) ToggleActivity(ctx context.Context, userID, activityID uint) (*ToggleResult, error) {
	return s.toggle(ctx, func(tx *gorm.DB, result *ToggleResult) error {
		plans := s.studyPlanRepo.WithTx(tx)
		activity, err := plans.GetActivityForUser(activityID, userID)
		if err != nil {
			return err
		}

		firstCompletion := activity.ToggleCompleted(s.now())
		if err := plans.SaveActivityProgress(activity); err != nil {
			return fmt.Errorf("failed to save activity progress: %w", err)
		}
		result.ID, result.Completed = activity.ID, activity.IsCompleted

		if firstCompletion {
			award, err := s.gamification.ActivityCompleted(ctx, tx, userID, activity.ID)
			if err != nil {
				return err
			}
			result.Awards = append(result.Awards, award)
		}
		return nil
	})
}

// ToggleVideo переключает отметку просмотра материала
func (s *StudyProgressService) ToggleVideo(ctx context.Context, userID, resourceID uint) (*ToggleResult, error) {
	return s.toggle(ctx, func(tx *gorm.DB, result *ToggleResult) error {
		plans := s.studyPlanRepo.WithTx(tx)
		resource, err := plans.GetResourceForUser(resourceID, userID)
		if err != nil {
			return err
		}

		firstCompletion := resource.ToggleWatched(s.now())
		if err := plans.SaveResourceProgress(resource); err != nil {
			return fmt.Errorf("failed to save resource progress: %w", err)
		}
		result.ID, result.Completed = resource.ID, resource.IsWatched

		if firstCompletion {
			award, err := s.gamification.VideoWatched(ctx, tx, userID, resource.ID)
			if err != nil {
				return err
			}
			result.Awards = append(result.Awards, award)
		}
		return nil
	})
}

// ToggleWeek переключает завершение недели. Когда завершена последняя открытая
// неделя плана, один раз начисляется бонус за план.
func (s *StudyProgressService) ToggleWeek(ctx context.Context, userID, weekID uint) (*ToggleResult, error) {
	return s.toggle(ctx, func(tx *gorm.DB, result *ToggleResult) error {
		plans := s.studyPlanRepo.WithTx(tx)
		week, err := plans.GetWeekForUser(weekID, userID)
		if err != nil {
			return err
		}

		firstCompletion := week.ToggleCompleted(s.now())
		if err := plans.SaveWeekProgress(week); err != nil {
			return fmt.Errorf("failed to save week progress: %w", err)
		}
		result.ID, result.Completed = week.ID, week.IsCompleted

		if firstCompletion {
			award, err := s.gamification.WeekCompleted(ctx, tx, userID, week.ID)
			if err != nil {
				return err
			}
			result.Awards = append(result.Awards, award)
		}
		if !week.IsCompleted {
			return nil
		}

		done, err := plans.IsPlanCompleted(week.StudyPlanID)
		if err != nil {
			return err
		}
		if !done {
			return nil
		}
		first, err := plans.MarkPlanRewarded(week.StudyPlanID)
		if err != nil {
			return err
		}
		if first {
			award, err := s.gamification.StudyPlanCompleted(ctx, tx, userID, week.StudyPlanID)
			if err != nil {
				return err
			}
			result.Awards = append(result.Awards, award)
		}
		return nil
	})
}

func (s *StudyProgressService) toggle(ctx context.Context, fn func(tx *gorm.DB, result *ToggleResult) error) (*ToggleResult, error) {
	result := &ToggleResult{}
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx, result)
	}); err != nil {
		return nil, err
	}
	s.gamification.AfterCommit(ctx, result.Awards...)
	return result, nil
}
