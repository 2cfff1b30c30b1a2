package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"karvia/models"
	"karvia/utils"
)

// TaskActionRequest carries the acting user for ownership checks.
type TaskActionRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// ReflectionRequest is the body of POST /api/tasks/:taskID/reflection.
type ReflectionRequest struct {
	UserID     string `json:"user_id" binding:"required"`
	Reflection string `json:"reflection" binding:"required"`
}

type taskAction func(ctx context.Context, taskID string, userID string) (*models.Task, error)

func (h *APIHandler) handleTaskAction(c *gin.Context, action taskAction, success, failure string) {
	var req TaskActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendJSONError(c, h.log, http.StatusBadRequest, "Invalid request: user_id is required.", err)
		return
	}
	task, err := action(c.Request.Context(), c.Param("taskID"), req.UserID)
	if err != nil {
		h.sendServiceError(c, failure, err)
		return
	}
	utils.SendJSON(c, http.StatusOK, success, task)
}

// StartTaskHandler marks a task as in progress.
// POST /api/tasks/:taskID/start
func (h *APIHandler) StartTaskHandler(c *gin.Context) {
	h.handleTaskAction(c, h.planService.StartTask, "Task started", "Failed to start task.")
}

// CompleteTaskHandler marks a task as completed.
// POST /api/tasks/:taskID/complete
func (h *APIHandler) CompleteTaskHandler(c *gin.Context) {
	h.handleTaskAction(c, h.planService.CompleteTask, "Task marked as completed", "Failed to complete task.")
}

// SkipTaskHandler marks a task as skipped.
// POST /api/tasks/:taskID/skip
func (h *APIHandler) SkipTaskHandler(c *gin.Context) {
	h.handleTaskAction(c, h.planService.SkipTask, "Task marked as skipped", "Failed to skip task.")
}

// AddReflectionHandler stores a reflection on a task.
// POST /api/tasks/:taskID/reflection
func (h *APIHandler) AddReflectionHandler(c *gin.Context) {
	var req ReflectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendJSONError(c, h.log, http.StatusBadRequest, "Invalid request: user_id and reflection are required.", err)
		return
	}
	task, err := h.planService.AddReflection(c.Request.Context(), c.Param("taskID"), req.UserID, req.Reflection)
	if err != nil {
		h.sendServiceError(c, "Failed to save reflection.", err)
		return
	}
	utils.SendJSON(c, http.StatusOK, "Reflection saved", task)
}
