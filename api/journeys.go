package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"karvia/services"
	"karvia/utils"
)

// InitializeJourneyHandler starts a user at stage 1 with freshly generated content.
// POST /api/journeys/:userID
func (h *APIHandler) InitializeJourneyHandler(c *gin.Context) {
	state, err := h.progressionService.InitializeJourney(c.Request.Context(), c.Param("userID"))
	if err != nil {
		h.sendServiceError(c, "Failed to start journey.", err)
		return
	}
	utils.SendJSON(c, http.StatusCreated, "Journey started", state)
}

// GetJourneyHandler returns the stored journey state.
// GET /api/journeys/:userID
func (h *APIHandler) GetJourneyHandler(c *gin.Context) {
	state, err := h.progressionService.GetJourney(c.Request.Context(), c.Param("userID"))
	if err != nil {
		h.sendServiceError(c, "Failed to fetch journey.", err)
		return
	}
	utils.SendJSON(c, http.StatusOK, "Journey retrieved successfully", state)
}

// EvaluateTransitionHandler runs a stage transition check.
// POST /api/journeys/:userID/evaluate?observed_stage=N
func (h *APIHandler) EvaluateTransitionHandler(c *gin.Context) {
	observed, ok := parseStageQuery(c, "observed_stage")
	if !ok {
		utils.SendJSONError(c, h.log, http.StatusBadRequest, "Invalid observed_stage parameter.", nil)
		return
	}
	res, err := h.progressionService.EvaluateTransition(c.Request.Context(), c.Param("userID"), observed)
	if err != nil {
		h.sendServiceError(c, "Failed to evaluate stage transition.", err)
		return
	}
	utils.SendJSON(c, http.StatusOK, "Transition evaluated", res)
}

// AdaptJourneyHandler classifies recent behavior and adapts the active stage.
// POST /api/journeys/:userID/adapt
func (h *APIHandler) AdaptJourneyHandler(c *gin.Context) {
	res, err := h.progressionService.AdaptJourney(c.Request.Context(), c.Param("userID"))
	if err != nil {
		h.sendServiceError(c, "Failed to adapt journey.", err)
		return
	}
	utils.SendJSON(c, http.StatusOK, "Journey adapted", res)
}

// RecordBeliefRequest is the body of POST /api/journeys/:userID/belief.
type RecordBeliefRequest struct {
	Score *float64 `json:"score" binding:"required"`
}

// RecordBeliefHandler appends a belief check-in sample in [0,1].
// POST /api/journeys/:userID/belief
func (h *APIHandler) RecordBeliefHandler(c *gin.Context) {
	var req RecordBeliefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendJSONError(c, h.log, http.StatusBadRequest, "Invalid request: score is required.", err)
		return
	}
	if *req.Score < 0 || *req.Score > 1 {
		utils.SendJSONError(c, h.log, http.StatusBadRequest, "Score must be between 0 and 1.", nil)
		return
	}
	state, err := h.progressionService.RecordBelief(c.Request.Context(), c.Param("userID"), *req.Score)
	if err != nil {
		h.sendServiceError(c, "Failed to record belief.", err)
		return
	}
	utils.SendJSON(c, http.StatusOK, "Belief recorded", state)
}

// GetStageGoalsHandler lists the goals and tasks of a stage, the active one by default.
// GET /api/journeys/:userID/goals?stage=N
func (h *APIHandler) GetStageGoalsHandler(c *gin.Context) {
	stage, ok := parseStageQuery(c, "stage")
	if !ok {
		utils.SendJSONError(c, h.log, http.StatusBadRequest, "Invalid stage parameter.", nil)
		return
	}
	goals, err := h.planService.GetStageGoals(c.Request.Context(), c.Param("userID"), stage)
	if err != nil {
		h.sendServiceError(c, "Failed to fetch goals.", err)
		return
	}
	utils.SendJSON(c, http.StatusOK, "Goals retrieved successfully", goals)
}

// GetProgressReportHandler handles requests to fetch a user's progress report.
// GET /api/journeys/:userID/progress?period=last_7_days&reference_date=YYYY-MM-DD
func (h *APIHandler) GetProgressReportHandler(c *gin.Context) {
	userID := c.Param("userID")
	period := c.DefaultQuery("period", services.PeriodLast7Days)
	referenceDateStr := c.Query("reference_date")

	if period != services.PeriodLast7Days && period != services.PeriodLast30Days {
		utils.SendJSONError(c, h.log, http.StatusBadRequest,
			fmt.Sprintf("Invalid period type. Allowed values: [%s %s]", services.PeriodLast7Days, services.PeriodLast30Days), nil)
		return
	}
	if referenceDateStr != "" {
		if _, err := time.Parse("2006-01-02", referenceDateStr); err != nil {
			utils.SendJSONError(c, h.log, http.StatusBadRequest, "Invalid reference_date format. Please use YYYY-MM-DD.", err)
			return
		}
	}

	report, err := h.progressService.GenerateProgressReport(c.Request.Context(), userID, period, referenceDateStr)
	if err != nil {
		h.sendServiceError(c, "Failed to generate progress report.", err)
		return
	}
	utils.SendJSON(c, http.StatusOK, "Progress report generated successfully", report)
}

// GetEngagementHandler returns the weekly session and reflection frequencies adaptation works from.
// GET /api/journeys/:userID/engagement
func (h *APIHandler) GetEngagementHandler(c *gin.Context) {
	userID := c.Param("userID")
	signals, err := h.progressService.EngagementSignals(c.Request.Context(), userID)
	if err != nil {
		h.sendServiceError(c, "Failed to compute engagement.", err)
		return
	}
	utils.SendJSON(c, http.StatusOK, "Engagement retrieved successfully", signals)
}
