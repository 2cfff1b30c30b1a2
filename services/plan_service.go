package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"karvia/models"
	"karvia/repository"
)

// PlanService defines the interface for reading stage content and moving tasks forward.
type PlanService interface {
	GetStageGoals(ctx context.Context, userID string, stage int) ([]models.Goal, error) // stage 0 means the active stage
	StartTask(ctx context.Context, taskID string, userID string) (*models.Task, error)
	CompleteTask(ctx context.Context, taskID string, userID string) (*models.Task, error)
	SkipTask(ctx context.Context, taskID string, userID string) (*models.Task, error)
	AddReflection(ctx context.Context, taskID string, userID string, reflection string) (*models.Task, error)
}

// maxTaskWriteAttempts bounds the re-reads after a task changed between read and write.
const maxTaskWriteAttempts = 3

type planService struct {
	planRepo    repository.PlanRepository
	journeyRepo repository.JourneyRepository
	evaluator   TransitionEvaluator
	now         func() time.Time
	log         *zap.SugaredLogger
}

// NewPlanService creates a new instance of PlanService. evaluator may be nil.
func NewPlanService(planRepo repository.PlanRepository, journeyRepo repository.JourneyRepository, evaluator TransitionEvaluator, log *zap.SugaredLogger) PlanService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &planService{
		planRepo:    planRepo,
		journeyRepo: journeyRepo,
		evaluator:   evaluator,
		now:         time.Now,
		log:         log,
	}
}

// GetStageGoals retrieves the goals and tasks of a stage.
func (s *planService) GetStageGoals(ctx context.Context, userID string, stage int) ([]models.Goal, error) {
	if userID == "" {
		s.log.Warnf("GetStageGoals called with empty userID.")
		return nil, errors.New("userID cannot be empty")
	}
	if stage == 0 {
		state, err := s.journeyRepo.GetJourney(ctx, userID)
		if err != nil {
			errMsg := fmt.Sprintf("failed to load journey for userID %s", userID)
			s.log.Errorf("%s: %v", errMsg, err)
			return nil, fmt.Errorf("%s: %w", errMsg, err)
		}
		if state == nil {
			return nil, ErrJourneyNotFound
		}
		if state.IsGraduated() {
			return []models.Goal{}, nil
		}
		stage = state.CurrentStage
	}
	goals, err := s.planRepo.GetStageGoals(ctx, userID, stage)
	if err != nil {
		errMsg := fmt.Sprintf("failed to get stage %d goals for userID %s", stage, userID)
		s.log.Errorf("%s: %v", errMsg, err)
		return nil, fmt.Errorf("%s: %w", errMsg, err)
	}
	s.log.Infof("Retrieved %d goals of stage %d for userID %s.", len(goals), stage, userID)
	return goals, nil
}

// StartTask marks a pending task as in progress.
func (s *planService) StartTask(ctx context.Context, taskID string, userID string) (*models.Task, error) {
	return s.changeStatus(ctx, taskID, userID, models.TaskStatusInProgress)
}

// CompleteTask marks a task as completed and triggers a transition evaluation.
func (s *planService) CompleteTask(ctx context.Context, taskID string, userID string) (*models.Task, error) {
	task, err := s.changeStatus(ctx, taskID, userID, models.TaskStatusCompleted)
	if err != nil {
		return nil, err
	}
	s.evaluate(ctx, task)
	return task, nil
}

// SkipTask marks an open task as skipped.
func (s *planService) SkipTask(ctx context.Context, taskID string, userID string) (*models.Task, error) {
	return s.changeStatus(ctx, taskID, userID, models.TaskStatusSkipped)
}

// AddReflection stores the user's reflection on a task and triggers a transition evaluation.
func (s *planService) AddReflection(ctx context.Context, taskID string, userID string, reflection string) (*models.Task, error) {
	reflection = strings.TrimSpace(reflection)
	if reflection == "" {
		s.log.Warnf("UserID '%s' submitted an empty reflection for taskID %s.", userID, taskID)
		return nil, &InputValidationError{Fields: []string{"reflection"}}
	}
	task, err := s.updateOwnedTask(ctx, taskID, userID, "save reflection", func(task *models.Task) (bool, error) {
		if task.Retired {
			s.log.Warnf("UserID '%s' attempted to reflect on retired taskID %s.", userID, taskID)
			return false, fmt.Errorf("%w: task %s was retired", ErrInvalidTaskTransition, taskID)
		}
		task.Reflection = reflection
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Infof("Reflection saved for taskID %s, userID '%s'.", taskID, userID)
	s.evaluate(ctx, task)
	return task, nil
}

func (s *planService) changeStatus(ctx context.Context, taskID string, userID string, next models.TaskStatus) (*models.Task, error) {
	s.log.Infof("UserID '%s' attempting to mark taskID %s as %s.", userID, taskID, next)
	changed := false
	task, err := s.updateOwnedTask(ctx, taskID, userID, fmt.Sprintf("update task to %s", next), func(task *models.Task) (bool, error) {
		if task.Status == next {
			s.log.Infof("TaskID %s is already %s. No action taken for userID '%s'.", taskID, next, userID)
			changed = false
			return false, nil
		}
		if !task.Status.CanTransitionTo(next) {
			s.log.Warnf("UserID '%s' attempted to move taskID %s from %s to %s.", userID, taskID, task.Status, next)
			return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTaskTransition, task.Status, next)
		}
		task.Status = next
		if next == models.TaskStatusCompleted {
			completedAt := s.now()
			task.CompletedAt = &completedAt
		}
		changed = true
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.log.Infof("TaskID %s marked as %s for userID '%s'.", taskID, next, userID)
	}
	return task, nil
}

// updateOwnedTask reads the caller's task, lets apply mutate it and writes it back. apply returns
// false when nothing needs writing. A write rejected because the task changed underneath is
// retried on a fresh read, up to maxTaskWriteAttempts times.
func (s *planService) updateOwnedTask(ctx context.Context, taskID string, userID string, op string, apply func(*models.Task) (bool, error)) (*models.Task, error) {
	for attempt := 1; ; attempt++ {
		task, err := s.ownedTask(ctx, taskID, userID)
		if err != nil {
			return nil, err
		}
		write, err := apply(task)
		if err != nil {
			return nil, err
		}
		if !write {
			return task, nil
		}
		err = s.planRepo.UpdateTask(ctx, task)
		if err == nil {
			return task, nil
		}
		if errors.Is(err, repository.ErrTaskStatusConflict) {
			if attempt < maxTaskWriteAttempts {
				s.log.Warnf("TaskID %s changed concurrently for userID '%s', re-reading (attempt %d).", taskID, userID, attempt)
				continue
			}
			s.log.Warnf("TaskID %s kept changing for userID '%s'; giving up after %d attempts.", taskID, userID, attempt)
			return nil, fmt.Errorf("%w: task %s changed concurrently", ErrInvalidTaskTransition, taskID)
		}
		errMsg := fmt.Sprintf("failed to %s for task ID %s (userID '%s')", op, taskID, userID)
		s.log.Errorf("%s: %v", errMsg, err)
		return nil, fmt.Errorf("%s: %w", errMsg, err)
	}
}

func (s *planService) ownedTask(ctx context.Context, taskID string, userID string) (*models.Task, error) {
	task, err := s.planRepo.GetTaskByID(ctx, taskID)
	if err != nil {
		errMsg := fmt.Sprintf("failed to fetch task ID %s", taskID)
		s.log.Errorf("%s: %v", errMsg, err)
		return nil, fmt.Errorf("%s: %w", errMsg, err)
	}
	if task == nil {
		s.log.Warnf("Task with ID %s not found for userID '%s'.", taskID, userID)
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if task.UserID != userID {
		s.log.Warnf("Unauthorized attempt by userID '%s' to modify taskID %s (belongs to userID '%s').", userID, taskID, task.UserID)
		return nil, fmt.Errorf("%w: task %s", ErrUnauthorized, taskID)
	}
	return task, nil
}

// evaluate runs a transition check for the task's stage. Failures never fail the task update.
func (s *planService) evaluate(ctx context.Context, task *models.Task) {
	if s.evaluator == nil {
		return
	}
	res, err := s.evaluator.EvaluateTransition(ctx, task.UserID, task.Stage)
	if err != nil {
		s.log.Errorf("Transition evaluation after taskID %s failed for userID '%s': %v", task.ID, task.UserID, err)
		return
	}
	s.log.Infof("Transition evaluation after taskID %s for userID '%s': %s (stage %d -> %d).", task.ID, task.UserID, res.Outcome, res.FromStage, res.ToStage)
}
