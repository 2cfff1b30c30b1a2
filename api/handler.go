package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"karvia/config"
	"karvia/repository"
	"karvia/services"
	"karvia/utils"
)

// APIHandler holds all dependencies for API handlers.
type APIHandler struct {
	assessmentService  services.AssessmentService
	progressionService services.ProgressionService
	planService        services.PlanService
	progressService    services.ProgressService
	log                *zap.SugaredLogger
}

// NewAPIHandler creates a new APIHandler with necessary dependencies.
func NewAPIHandler(
	assessmentService services.AssessmentService,
	progressionService services.ProgressionService,
	planService services.PlanService,
	progressService services.ProgressService,
	log *zap.SugaredLogger,
) *APIHandler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &APIHandler{
		assessmentService:  assessmentService,
		progressionService: progressionService,
		planService:        planService,
		progressService:    progressService,
		log:                log,
	}
}

// RegisterRoutes mounts every endpoint under /api.
func (h *APIHandler) RegisterRoutes(r gin.IRouter) {
	apiGroup := r.Group("/api")
	{
		assessmentGroup := apiGroup.Group("/assessments")
		{
			assessmentGroup.POST("", h.SubmitAssessmentHandler)
			assessmentGroup.GET("/:userID/latest", h.GetLatestAssessmentHandler)
			assessmentGroup.GET("/:userID", h.ListAssessmentsHandler)
		}

		journeyGroup := apiGroup.Group("/journeys/:userID")
		{
			journeyGroup.POST("", h.InitializeJourneyHandler)
			journeyGroup.GET("", h.GetJourneyHandler)
			journeyGroup.POST("/evaluate", h.EvaluateTransitionHandler)
			journeyGroup.POST("/adapt", h.AdaptJourneyHandler)
			journeyGroup.POST("/belief", h.RecordBeliefHandler)
			journeyGroup.GET("/goals", h.GetStageGoalsHandler)
			journeyGroup.GET("/progress", h.GetProgressReportHandler)
			journeyGroup.GET("/engagement", h.GetEngagementHandler)
		}

		taskGroup := apiGroup.Group("/tasks/:taskID")
		{
			taskGroup.POST("/start", h.StartTaskHandler)
			taskGroup.POST("/complete", h.CompleteTaskHandler)
			taskGroup.POST("/skip", h.SkipTaskHandler)
			taskGroup.POST("/reflection", h.AddReflectionHandler)
		}
	}
}

// sendServiceError maps service and repository errors onto HTTP statuses.
func (h *APIHandler) sendServiceError(c *gin.Context, publicMsg string, err error) {
	var validationErr *services.InputValidationError
	switch {
	case errors.As(err, &validationErr):
		utils.SendJSONError(c, h.log, http.StatusBadRequest, "Invalid request.", err, strings.Join(validationErr.Fields, ","))
	case errors.Is(err, services.ErrTaskNotFound):
		utils.SendJSONError(c, h.log, http.StatusNotFound, "Task not found.", err)
	case errors.Is(err, services.ErrJourneyNotFound):
		utils.SendJSONError(c, h.log, http.StatusNotFound, "Journey not found.", err)
	case errors.Is(err, services.ErrUnauthorized):
		utils.SendJSONError(c, h.log, http.StatusForbidden, "You are not authorized to modify this task.", err)
	case errors.Is(err, services.ErrInvalidTaskTransition):
		utils.SendJSONError(c, h.log, http.StatusConflict, "Task cannot move to the requested status.", err)
	case errors.Is(err, services.ErrJourneyExists):
		utils.SendJSONError(c, h.log, http.StatusConflict, "Journey already exists.", err)
	case errors.Is(err, repository.ErrConcurrencyConflict):
		utils.SendJSONError(c, h.log, http.StatusConflict, "The journey changed concurrently. Please retry.", err)
	case errors.Is(err, config.ErrInvalidConfiguration):
		utils.SendJSONError(c, h.log, http.StatusInternalServerError, "System configuration error.", err)
	default:
		utils.SendJSONError(c, h.log, http.StatusInternalServerError, publicMsg, err)
	}
}

// Helper to parse an optional non-negative integer query parameter.
func parseStageQuery(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
