package repository

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"karvia/models"
)

// PlanRepository defines the interface for reading stage goals and updating individual tasks.
type PlanRepository interface {
	GetStageGoals(ctx context.Context, userID string, stage int) ([]models.Goal, error)
	GetTasksByUserID(ctx context.Context, userID string) ([]models.Task, error)
	GetTaskByID(ctx context.Context, taskID string) (*models.Task, error)
	// UpdateTask writes the status, completion time and reflection of a live task and bumps the
	// owning journey's version so that any in-flight journey write based on the old task set fails
	// its version check. It returns ErrTaskStatusConflict when the stored task is retired or holds
	// a status that cannot move to task.Status.
	UpdateTask(ctx context.Context, task *models.Task) error
}

// ErrTaskStatusConflict is returned when a task changed between read and write.
var ErrTaskStatusConflict = errors.New("task status changed concurrently")

type planRepository struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

// NewPlanRepository creates a new instance of PlanRepository.
func NewPlanRepository(db *gorm.DB, log *zap.SugaredLogger) PlanRepository {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &planRepository{db: db, log: log}
}

// GetStageGoals retrieves the goals of one stage, preloading their tasks in order.
func (r *planRepository) GetStageGoals(ctx context.Context, userID string, stage int) ([]models.Goal, error) {
	var goals []models.Goal
	err := r.db.WithContext(ctx).
		Preload("Tasks", func(db *gorm.DB) *gorm.DB {
			return db.Order("`order` asc, created_at asc")
		}).
		Where("user_id = ? AND stage = ?", userID, stage).
		Order("`order` asc, created_at asc").
		Find(&goals).Error
	if err != nil {
		r.log.Errorf("Failed to retrieve stage %d goals for userID %s: %v", stage, userID, err)
		return nil, fmt.Errorf("failed to retrieve stage %d goals for userID %s: %w", stage, userID, err)
	}
	r.log.Debugf("Retrieved %d goals of stage %d for userID %s.", len(goals), stage, userID)
	return goals, nil // Returns empty slice if no goals found, which is fine
}

// GetTasksByUserID retrieves every task of a user across all stages.
func (r *planRepository) GetTasksByUserID(ctx context.Context, userID string) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("scheduled_date asc, `order` asc").Find(&tasks).Error
	if err != nil {
		r.log.Errorf("Failed to retrieve tasks for userID %s: %v", userID, err)
		return nil, fmt.Errorf("failed to retrieve tasks for userID %s: %w", userID, err)
	}
	return tasks, nil
}

// GetTaskByID returns (nil, nil) for an unknown task.
func (r *planRepository) GetTaskByID(ctx context.Context, taskID string) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).Where("id = ?", taskID).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Infof("Task with ID %s not found.", taskID)
			return nil, nil
		}
		r.log.Errorf("Failed to retrieve task ID %s: %v", taskID, err)
		return nil, fmt.Errorf("failed to retrieve task ID %s: %w", taskID, err)
	}
	return &task, nil
}

func (r *planRepository) UpdateTask(ctx context.Context, task *models.Task) error {
	if task == nil || task.ID == "" {
		r.log.Errorf("UpdateTask: task ID must be provided for update")
		return errors.New("task ID must be provided for update")
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Task{}).
			Where("id = ? AND retired = ? AND status IN ?", task.ID, false, task.Status.WritableFrom()).
			Updates(map[string]interface{}{
				"status":       task.Status,
				"completed_at": task.CompletedAt,
				"reflection":   task.Reflection,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTaskStatusConflict
		}
		return tx.Model(&models.UserJourneyState{}).
			Where("user_id = ?", task.UserID).
			UpdateColumn("version", gorm.Expr("version + ?", 1)).Error
	})
	if err != nil {
		if errors.Is(err, ErrTaskStatusConflict) {
			r.log.Warnf("Task ID %s no longer accepts status %s.", task.ID, task.Status)
			return err
		}
		r.log.Errorf("Failed to update task ID %s ('%s'): %v", task.ID, task.Title, err)
		return fmt.Errorf("failed to update task ID %s: %w", task.ID, err)
	}
	r.log.Infof("Successfully updated task ID %s ('%s') to status %s.", task.ID, task.Title, task.Status)
	return nil
}
