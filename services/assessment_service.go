package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"karvia/metrics"
	"karvia/models"
	"karvia/repository"
)

// AssessmentService defines the interface for readiness assessment operations.
type AssessmentService interface {
	SubmitAssessment(ctx context.Context, userID string, responses models.QuestionnaireResponse, externalKeywords []string) (*models.ReadinessAssessment, error)
	GetLatestAssessment(ctx context.Context, userID string) (*models.ReadinessAssessment, error)
	ListAssessments(ctx context.Context, userID string) ([]models.ReadinessAssessment, error)
}

// assessmentService implements the AssessmentService interface.
type assessmentService struct {
	repo    repository.AssessmentRepository
	scorer  ReadinessScorer
	metrics *metrics.Metrics
	log     *zap.SugaredLogger
}

// NewAssessmentService creates a new instance of AssessmentService.
func NewAssessmentService(repo repository.AssessmentRepository, scorer ReadinessScorer, m *metrics.Metrics, log *zap.SugaredLogger) AssessmentService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &assessmentService{repo: repo, scorer: scorer, metrics: m, log: log}
}

// SubmitAssessment scores a questionnaire and appends the result to the user's history.
func (s *assessmentService) SubmitAssessment(ctx context.Context, userID string, responses models.QuestionnaireResponse, externalKeywords []string) (*models.ReadinessAssessment, error) {
	if userID == "" {
		s.log.Warnf("SubmitAssessment called with empty userID.")
		return nil, errors.New("userID cannot be empty")
	}
	if err := validateResponses(responses); err != nil {
		s.log.Warnf("Rejected questionnaire from userID '%s': %v", userID, err)
		return nil, err
	}

	result := s.scorer.Score(responses, externalKeywords)
	assessment := &models.ReadinessAssessment{
		UserID:           userID,
		Responses:        responses,
		ExternalKeywords: append([]string(nil), externalKeywords...),
		Result:           result,
		Overall:          result.Overall,
		RiskLevel:        result.RiskLevel,
	}
	if err := s.repo.CreateAssessment(ctx, assessment); err != nil {
		errMsg := fmt.Sprintf("failed to store assessment for userID %s", userID)
		s.log.Errorf("%s: %v", errMsg, err)
		return nil, fmt.Errorf("%s: %w", errMsg, err)
	}
	s.metrics.AssessmentScored(string(result.RiskLevel))
	s.log.Infof("Stored assessment ID %d for userID '%s': overall %d, risk %s, success %d%% (%s).",
		assessment.ID, userID, result.Overall, result.RiskLevel,
		result.SuccessProbability.Percentage, result.SuccessProbability.Confidence)
	return assessment, nil
}

// GetLatestAssessment returns the most recent assessment or (nil, nil).
func (s *assessmentService) GetLatestAssessment(ctx context.Context, userID string) (*models.ReadinessAssessment, error) {
	latest, err := s.repo.GetLatestAssessment(ctx, userID)
	if err != nil {
		errMsg := fmt.Sprintf("failed to get latest assessment for userID %s", userID)
		s.log.Errorf("%s: %v", errMsg, err)
		return nil, fmt.Errorf("%s: %w", errMsg, err)
	}
	return latest, nil
}

func (s *assessmentService) ListAssessments(ctx context.Context, userID string) ([]models.ReadinessAssessment, error) {
	history, err := s.repo.ListAssessments(ctx, userID)
	if err != nil {
		errMsg := fmt.Sprintf("failed to list assessments for userID %s", userID)
		s.log.Errorf("%s: %v", errMsg, err)
		return nil, fmt.Errorf("%s: %w", errMsg, err)
	}
	return history, nil
}

// validateResponses checks the answers every scoring rule depends on.
func validateResponses(r models.QuestionnaireResponse) error {
	var fields []string
	if strings.TrimSpace(r.GoalDescription) == "" {
		fields = append(fields, "goal_description")
	}
	if r.Importance == "" {
		fields = append(fields, "importance")
	}
	if r.BeliefLevel < models.RatingMin || r.BeliefLevel > models.RatingMax {
		fields = append(fields, "belief_level")
	}
	for name, v := range map[string]int{
		"motivation_rating": r.MotivationRating,
		"health_energy":     r.HealthEnergy,
		"fear_of_failure":   r.FearOfFailure,
		"self_discipline":   r.SelfDiscipline,
	} {
		if v != 0 && (v < models.RatingMin || v > models.RatingMax) {
			fields = append(fields, name)
		}
	}
	if len(fields) > 0 {
		sort.Strings(fields)
		return &InputValidationError{Fields: fields}
	}
	return nil
}
