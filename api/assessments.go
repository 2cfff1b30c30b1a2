package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"karvia/models"
	"karvia/utils"
)

// SubmitAssessmentRequest is the body of POST /api/assessments.
type SubmitAssessmentRequest struct {
	UserID           string                       `json:"user_id" binding:"required"`
	Responses        models.QuestionnaireResponse `json:"responses"`
	ExternalKeywords []string                     `json:"external_keywords"`
}

// SubmitAssessmentHandler scores a questionnaire and stores the result.
// POST /api/assessments
func (h *APIHandler) SubmitAssessmentHandler(c *gin.Context) {
	var req SubmitAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendJSONError(c, h.log, http.StatusBadRequest, "Invalid request: user_id is required.", err)
		return
	}

	assessment, err := h.assessmentService.SubmitAssessment(c.Request.Context(), req.UserID, req.Responses, req.ExternalKeywords)
	if err != nil {
		h.sendServiceError(c, "Failed to score assessment.", err)
		return
	}
	utils.SendJSON(c, http.StatusCreated, "Assessment scored successfully", assessment)
}

// GetLatestAssessmentHandler returns the user's most recent assessment.
// GET /api/assessments/:userID/latest
func (h *APIHandler) GetLatestAssessmentHandler(c *gin.Context) {
	userID := c.Param("userID")
	assessment, err := h.assessmentService.GetLatestAssessment(c.Request.Context(), userID)
	if err != nil {
		h.sendServiceError(c, "Failed to fetch assessment.", err)
		return
	}
	if assessment == nil {
		utils.SendJSONError(c, h.log, http.StatusNotFound, "No assessment found for user.", nil)
		return
	}
	utils.SendJSON(c, http.StatusOK, "Assessment retrieved successfully", assessment)
}

// ListAssessmentsHandler returns the scoring history, oldest first.
// GET /api/assessments/:userID
func (h *APIHandler) ListAssessmentsHandler(c *gin.Context) {
	history, err := h.assessmentService.ListAssessments(c.Request.Context(), c.Param("userID"))
	if err != nil {
		h.sendServiceError(c, "Failed to fetch assessments.", err)
		return
	}
	utils.SendJSON(c, http.StatusOK, "Assessments retrieved successfully", history)
}
