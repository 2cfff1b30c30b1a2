package services

import (
	"context"
	"fmt"

	"karvia/config"
	"karvia/models"
	"karvia/repository"
)

// RequirementChecker answers one named special requirement for a user.
type RequirementChecker interface {
	IsSatisfied(ctx context.Context, userID string) (bool, error)
}

// RequirementCheckerFunc adapts a function to RequirementChecker.
type RequirementCheckerFunc func(ctx context.Context, userID string) (bool, error)

func (f RequirementCheckerFunc) IsSatisfied(ctx context.Context, userID string) (bool, error) {
	return f(ctx, userID)
}

// RequirementRegistry dispatches requirement names to their checkers.
type RequirementRegistry struct {
	checkers map[models.Requirement]RequirementChecker
}

// NewRequirementRegistry fails when a checker is registered for an unknown name or when any
// requirement referenced by the catalog has no checker.
func NewRequirementRegistry(catalog *config.StageCatalog, checkers map[models.Requirement]RequirementChecker) (*RequirementRegistry, error) {
	known := make(map[models.Requirement]bool, len(models.KnownRequirements))
	for _, r := range models.KnownRequirements {
		known[r] = true
	}
	registry := &RequirementRegistry{checkers: make(map[models.Requirement]RequirementChecker, len(checkers))}
	for name, c := range checkers {
		if !known[name] {
			return nil, fmt.Errorf("%w: checker registered for unknown requirement %q", config.ErrInvalidConfiguration, name)
		}
		if c == nil {
			return nil, fmt.Errorf("%w: nil checker for requirement %q", config.ErrInvalidConfiguration, name)
		}
		registry.checkers[name] = c
	}
	for _, r := range catalog.Requirements() {
		if _, ok := registry.checkers[r]; !ok {
			return nil, fmt.Errorf("%w: no checker for requirement %q", config.ErrInvalidConfiguration, r)
		}
	}
	return registry, nil
}

// IsSatisfied checks a single requirement.
func (r *RequirementRegistry) IsSatisfied(ctx context.Context, name models.Requirement, userID string) (bool, error) {
	c, ok := r.checkers[name]
	if !ok {
		return false, fmt.Errorf("%w: no checker for requirement %q", config.ErrInvalidConfiguration, name)
	}
	return c.IsSatisfied(ctx, userID)
}

// BuiltinRequirementCheckers returns the checkers backed by the scoring history and the journey.
func BuiltinRequirementCheckers(assessments repository.AssessmentRepository, journeys repository.JourneyRepository) map[models.Requirement]RequirementChecker {
	return map[models.Requirement]RequirementChecker{
		models.RequirementVisionQuestionnaire: RequirementCheckerFunc(func(ctx context.Context, userID string) (bool, error) {
			latest, err := assessments.GetLatestAssessment(ctx, userID)
			if err != nil {
				return false, err
			}
			return latest != nil, nil
		}),
		models.RequirementBeliefCheckin: RequirementCheckerFunc(func(ctx context.Context, userID string) (bool, error) {
			state, err := journeys.GetJourney(ctx, userID)
			if err != nil || state == nil {
				return false, err
			}
			for _, s := range state.BeliefHistory {
				if !s.RecordedAt.Before(state.StageStartDate) {
					return true, nil
				}
			}
			return false, nil
		}),
		models.RequirementRiskReview: RequirementCheckerFunc(func(ctx context.Context, userID string) (bool, error) {
			latest, err := assessments.GetLatestAssessment(ctx, userID)
			if err != nil || latest == nil {
				return false, err
			}
			if latest.RiskLevel != models.RiskHigh {
				return true, nil
			}
			state, err := journeys.GetJourney(ctx, userID)
			if err != nil || state == nil {
				return false, err
			}
			return !latest.CreatedAt.Before(state.StageStartDate), nil
		}),
	}
}
