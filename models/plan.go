package models

import (
	"time"
)

// TaskStatus defines the possible statuses for a stage task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusSkipped    TaskStatus = "skipped"
)

// CanTransitionTo reports whether a status change moves forward.
// pending -> in_progress -> completed, or any open status -> skipped.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	switch s {
	case TaskStatusPending:
		return next == TaskStatusInProgress || next == TaskStatusCompleted || next == TaskStatusSkipped
	case TaskStatusInProgress:
		return next == TaskStatusCompleted || next == TaskStatusSkipped
	default:
		return false
	}
}

// WritableFrom lists the stored statuses a task may hold for a write of status s to be accepted:
// s itself and every status that can move forward to s.
func (s TaskStatus) WritableFrom() []TaskStatus {
	from := []TaskStatus{s}
	for _, prev := range []TaskStatus{TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusSkipped} {
		if prev.CanTransitionTo(s) {
			from = append(from, prev)
		}
	}
	return from
}

// Difficulty bounds for tasks.
const (
	DifficultyMin     = 1
	DifficultyDefault = 3
	DifficultyMax     = 5
)

// Goal groups the tasks generated for one stage goal.
type Goal struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"user_id" gorm:"index;not null"`
	Stage     int       `json:"stage" gorm:"index;not null"`
	Title     string    `json:"title" gorm:"not null"`
	Order     int       `json:"order" gorm:"default:0"`
	Tasks     []Task    `json:"tasks" gorm:"foreignKey:GoalID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the Goal model.
func (Goal) TableName() string {
	return "goals"
}

// Task is an individual scheduled task within a Goal.
type Task struct {
	ID                 string                 `json:"id" gorm:"primaryKey;type:varchar(36)"`
	GoalID             string                 `json:"goal_id" gorm:"index;not null"`
	UserID             string                 `json:"user_id" gorm:"index;not null"`
	Stage              int                    `json:"stage" gorm:"index;not null"`
	Title              string                 `json:"title" gorm:"not null"`
	Description        string                 `json:"description" gorm:"type:text"`
	Status             TaskStatus             `json:"status" gorm:"type:varchar(20);default:'pending';not null"`
	ScheduledDate      time.Time              `json:"scheduled_date"`
	CompletedAt        *time.Time             `json:"completed_at,omitempty"`
	Difficulty         int                    `json:"difficulty" gorm:"default:3"`
	EstimatedMinutes   int                    `json:"estimated_minutes"`
	Reflection         string                 `json:"reflection,omitempty" gorm:"type:text"`
	IsMicro            bool                   `json:"is_micro"`
	Retired            bool                   `json:"retired"`
	AppliedAdaptations []AdaptationActionType `json:"applied_adaptations" gorm:"serializer:json"`
	Order              int                    `json:"order" gorm:"default:0"`
	CreatedAt          time.Time              `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt          time.Time              `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the Task model.
func (Task) TableName() string {
	return "tasks"
}

// HasAdaptation reports whether an action was already applied to the task.
func (t *Task) HasAdaptation(action AdaptationActionType) bool {
	for _, a := range t.AppliedAdaptations {
		if a == action {
			return true
		}
	}
	return false
}

// HasReflection reports whether the user wrote a reflection for the task.
func (t *Task) HasReflection() bool {
	return t.Reflection != ""
}

// CloneGoals deep-copies goals and their tasks.
func CloneGoals(goals []Goal) []Goal {
	out := make([]Goal, len(goals))
	for i, g := range goals {
		out[i] = g
		out[i].Tasks = make([]Task, len(g.Tasks))
		for j, t := range g.Tasks {
			out[i].Tasks[j] = t
			out[i].Tasks[j].AppliedAdaptations = append([]AdaptationActionType(nil), t.AppliedAdaptations...)
			if t.CompletedAt != nil {
				completedAt := *t.CompletedAt
				out[i].Tasks[j].CompletedAt = &completedAt
			}
		}
	}
	return out
}
