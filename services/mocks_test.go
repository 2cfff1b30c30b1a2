package services

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"karvia/models"
)

// MockJourneyRepository is a mock type for the JourneyRepository interface
type MockJourneyRepository struct {
	mock.Mock
}

func (m *MockJourneyRepository) GetJourney(ctx context.Context, userID string) (*models.UserJourneyState, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserJourneyState), args.Error(1)
}

func (m *MockJourneyRepository) CreateJourney(ctx context.Context, state *models.UserJourneyState, goals []models.Goal) error {
	args := m.Called(ctx, state, goals)
	return args.Error(0)
}

func (m *MockJourneyRepository) SaveJourney(ctx context.Context, state *models.UserJourneyState, goals []models.Goal) error {
	args := m.Called(ctx, state, goals)
	return args.Error(0)
}

// MockPlanRepository is a mock type for the PlanRepository interface
type MockPlanRepository struct {
	mock.Mock
}

func (m *MockPlanRepository) GetStageGoals(ctx context.Context, userID string, stage int) ([]models.Goal, error) {
	args := m.Called(ctx, userID, stage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Goal), args.Error(1)
}

func (m *MockPlanRepository) GetTasksByUserID(ctx context.Context, userID string) ([]models.Task, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Task), args.Error(1)
}

func (m *MockPlanRepository) GetTaskByID(ctx context.Context, taskID string) (*models.Task, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *MockPlanRepository) UpdateTask(ctx context.Context, task *models.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

// MockAssessmentRepository is a mock type for the AssessmentRepository interface
type MockAssessmentRepository struct {
	mock.Mock
}

func (m *MockAssessmentRepository) CreateAssessment(ctx context.Context, assessment *models.ReadinessAssessment) error {
	args := m.Called(ctx, assessment)
	return args.Error(0)
}

func (m *MockAssessmentRepository) GetLatestAssessment(ctx context.Context, userID string) (*models.ReadinessAssessment, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReadinessAssessment), args.Error(1)
}

func (m *MockAssessmentRepository) ListAssessments(ctx context.Context, userID string) ([]models.ReadinessAssessment, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReadinessAssessment), args.Error(1)
}

// MockContentGenerator is a mock type for the ContentGenerator interface
type MockContentGenerator struct {
	mock.Mock
}

func (m *MockContentGenerator) GenerateStageGoals(ctx context.Context, def models.StageDefinition, profile UserProfile, actx AdaptationContext) (*GeneratedContent, error) {
	args := m.Called(ctx, def, profile, actx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*GeneratedContent), args.Error(1)
}

// MockChatCompleter is a mock type for the OpenAI chat client
type MockChatCompleter struct {
	mock.Mock
}

func (m *MockChatCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(openai.ChatCompletionResponse), args.Error(1)
}

// MockTransitionEvaluator is a mock type for the TransitionEvaluator interface
type MockTransitionEvaluator struct {
	mock.Mock
}

func (m *MockTransitionEvaluator) EvaluateTransition(ctx context.Context, userID string, observedStage int) (*TransitionResult, error) {
	args := m.Called(ctx, userID, observedStage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TransitionResult), args.Error(1)
}

// MockScorer is a mock type for the ReadinessScorer interface
type MockScorer struct {
	mock.Mock
}

func (m *MockScorer) Score(responses models.QuestionnaireResponse, externalKeywords []string) models.ScoringResult {
	args := m.Called(responses, externalKeywords)
	return args.Get(0).(models.ScoringResult)
}

func zapNop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
