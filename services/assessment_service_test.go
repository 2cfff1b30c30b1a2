package services

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"karvia/metrics"
	"karvia/models"
)

func validResponses() models.QuestionnaireResponse {
	r := neutralResponses()
	r.GoalDescription = "Open a neighborhood bakery"
	r.Importance = models.ImportanceVeryImportant
	return r
}

func TestAssessmentService_SubmitAssessment(t *testing.T) {
	ctx := context.Background()
	result := models.ScoringResult{Overall: 64, RiskLevel: models.RiskLow, SuccessProbability: models.SuccessProbability{Percentage: 70}}

	t.Run("Scenario 1: a valid questionnaire is scored and stored", func(t *testing.T) {
		repo, scorer := new(MockAssessmentRepository), new(MockScorer)
		keywords := []string{"baking", "retail"}
		scorer.On("Score", validResponses(), keywords).Return(result).Once()
		repo.On("CreateAssessment", mock.Anything, mock.MatchedBy(func(a *models.ReadinessAssessment) bool {
			return a.UserID == "u1" && a.Overall == 64 && a.RiskLevel == models.RiskLow
		})).Return(nil).Once()
		reg := prometheus.NewRegistry()
		svc := NewAssessmentService(repo, scorer, metrics.MustNewMetrics(reg), zapNop())

		got, err := svc.SubmitAssessment(ctx, "u1", validResponses(), keywords)

		require.NoError(t, err)
		assert.Equal(t, result, got.Result)
		assert.Equal(t, keywords, got.ExternalKeywords)
		keywords[0] = "changed"
		assert.Equal(t, "baking", got.ExternalKeywords[0], "keywords are copied")
		count, err := testutil.GatherAndCount(reg, "karvia_scoring_assessments_total")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		repo.AssertExpectations(t)
		scorer.AssertExpectations(t)
	})

	t.Run("Scenario 2: missing and out-of-range answers are listed in order", func(t *testing.T) {
		repo, scorer := new(MockAssessmentRepository), new(MockScorer)
		r := validResponses()
		r.GoalDescription = "   "
		r.Importance = ""
		r.BeliefLevel = 0
		r.SelfDiscipline = 11
		r.FearOfFailure = -1

		_, err := NewAssessmentService(repo, scorer, nil, nil).SubmitAssessment(ctx, "u1", r, nil)

		var verr *InputValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{"belief_level", "fear_of_failure", "goal_description", "importance", "self_discipline"}, verr.Fields)
		scorer.AssertNotCalled(t, "Score", mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "CreateAssessment", mock.Anything, mock.Anything)
	})

	t.Run("Scenario 3: unanswered optional ratings are accepted", func(t *testing.T) {
		repo, scorer := new(MockAssessmentRepository), new(MockScorer)
		r := validResponses()
		r.MotivationRating, r.HealthEnergy, r.FearOfFailure, r.SelfDiscipline = 0, 0, 0, 0
		scorer.On("Score", r, []string(nil)).Return(result).Once()
		repo.On("CreateAssessment", mock.Anything, mock.Anything).Return(nil).Once()

		_, err := NewAssessmentService(repo, scorer, nil, nil).SubmitAssessment(ctx, "u1", r, nil)

		require.NoError(t, err)
	})

	t.Run("Scenario 4: storage failures are wrapped", func(t *testing.T) {
		repo, scorer := new(MockAssessmentRepository), new(MockScorer)
		dbErr := errors.New("database error")
		scorer.On("Score", mock.Anything, mock.Anything).Return(result).Once()
		repo.On("CreateAssessment", mock.Anything, mock.Anything).Return(dbErr).Once()

		got, err := NewAssessmentService(repo, scorer, nil, nil).SubmitAssessment(ctx, "u1", validResponses(), nil)

		assert.Nil(t, got)
		assert.ErrorIs(t, err, dbErr)
	})

	t.Run("Scenario 5: empty userID", func(t *testing.T) {
		_, err := NewAssessmentService(new(MockAssessmentRepository), new(MockScorer), nil, nil).SubmitAssessment(ctx, "", validResponses(), nil)
		assert.EqualError(t, err, "userID cannot be empty")
	})
}

func TestAssessmentService_History(t *testing.T) {
	ctx := context.Background()

	t.Run("Scenario 1: latest assessment", func(t *testing.T) {
		repo := new(MockAssessmentRepository)
		latest := &models.ReadinessAssessment{ID: 3, UserID: "u1", Overall: 58}
		repo.On("GetLatestAssessment", mock.Anything, "u1").Return(latest, nil).Once()

		got, err := NewAssessmentService(repo, nil, nil, zapNop()).GetLatestAssessment(ctx, "u1")

		require.NoError(t, err)
		assert.Same(t, latest, got)
	})

	t.Run("Scenario 2: no assessment yet is (nil, nil)", func(t *testing.T) {
		repo := new(MockAssessmentRepository)
		repo.On("GetLatestAssessment", mock.Anything, "u1").Return(nil, nil).Once()

		got, err := NewAssessmentService(repo, nil, nil, zapNop()).GetLatestAssessment(ctx, "u1")

		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Scenario 3: history is returned in stored order", func(t *testing.T) {
		repo := new(MockAssessmentRepository)
		history := []models.ReadinessAssessment{{ID: 1, UserID: "u1"}, {ID: 2, UserID: "u1"}}
		repo.On("ListAssessments", mock.Anything, "u1").Return(history, nil).Once()

		got, err := NewAssessmentService(repo, nil, nil, zapNop()).ListAssessments(ctx, "u1")

		require.NoError(t, err)
		assert.Equal(t, history, got)
	})

	t.Run("Scenario 4: list errors are wrapped", func(t *testing.T) {
		repo := new(MockAssessmentRepository)
		dbErr := errors.New("database error")
		repo.On("ListAssessments", mock.Anything, "u1").Return(nil, dbErr).Once()

		_, err := NewAssessmentService(repo, nil, nil, zapNop()).ListAssessments(ctx, "u1")

		assert.ErrorIs(t, err, dbErr)
	})
}
