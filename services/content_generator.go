package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"karvia/config"
	"karvia/metrics"
	"karvia/models"
)

const (
	defaultTaskMinutes  = 20
	generationMaxTokens = 1500
)

// UserProfile is what the generator knows about the user, taken from the latest scoring.
type UserProfile struct {
	UserID           string             `json:"user_id"`
	GoalDescription  string             `json:"goal_description"`
	Overall          int                `json:"overall"`
	RiskLevel        models.RiskLevel   `json:"risk_level,omitempty"`
	RecommendedFocus []models.Dimension `json:"recommended_focus,omitempty"`
	Strengths        []string           `json:"strengths,omitempty"`
}

// AdaptationContext carries behavioral hints into content generation.
type AdaptationContext struct {
	PreviousStage          int                           `json:"previous_stage,omitempty"`
	PreviousCompletionRate float64                       `json:"previous_completion_rate"`
	RetryCount             int                           `json:"retry_count"`
	Pattern                *models.BehaviorPattern       `json:"pattern,omitempty"`
	Actions                []models.AdaptationActionType `json:"actions,omitempty"`
	MaxGoals               int                           `json:"max_goals,omitempty"` // 0 means the stage default
}

// GeneratedTask is one task as produced by a generator. Day is 1-based within the stage window.
type GeneratedTask struct {
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	EstimatedMinutes int    `json:"estimatedMinutes"`
	Day              int    `json:"day"`
}

// GeneratedGoal is one goal with its tasks.
type GeneratedGoal struct {
	Title string          `json:"title"`
	Tasks []GeneratedTask `json:"tasks"`
}

// GeneratedContent is the full goal set for a stage.
type GeneratedContent struct {
	Goals []GeneratedGoal `json:"goals"`
}

// ContentGenerator produces human-readable goals and tasks for a stage.
// Implementations return ErrGenerationTimeout or ErrGeneration on failure.
type ContentGenerator interface {
	GenerateStageGoals(ctx context.Context, def models.StageDefinition, profile UserProfile, actx AdaptationContext) (*GeneratedContent, error)
}

// chatCompleter is the part of the OpenAI client the generator uses.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type openAIContentGenerator struct {
	client      chatCompleter
	model       string
	temperature float32
	log         *zap.SugaredLogger
}

// NewOpenAIContentGenerator creates a generator talking to an OpenAI-compatible endpoint.
func NewOpenAIContentGenerator(cfg config.ContentGeneration, log *zap.SugaredLogger) ContentGenerator {
	openaiConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		openaiConfig.BaseURL = cfg.BaseURL
	}
	return newOpenAIContentGenerator(openai.NewClientWithConfig(openaiConfig), cfg.Model, cfg.Temperature, log)
}

func newOpenAIContentGenerator(client chatCompleter, model string, temperature float32, log *zap.SugaredLogger) *openAIContentGenerator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &openAIContentGenerator{client: client, model: model, temperature: temperature, log: log}
}

const generationPrompt = `You design short, practical goal plans for a staged personal development program.
Answer with a single JSON object of the form
{"goals":[{"title":"...","tasks":[{"name":"...","description":"...","estimatedMinutes":20,"day":1}]}]}.
Produce exactly the requested number of goals and tasks per goal. Days are 1-based and must not
exceed the stage duration. Keep task names under 80 characters.`

type generationRequest struct {
	Stage        string            `json:"stage"`
	StageNumber  int               `json:"stage_number"`
	DurationDays int               `json:"duration_days"`
	Goals        int               `json:"goals"`
	TasksPerGoal int               `json:"tasks_per_goal"`
	Profile      UserProfile       `json:"profile"`
	Adaptation   AdaptationContext `json:"adaptation"`
}

func (g *openAIContentGenerator) GenerateStageGoals(ctx context.Context, def models.StageDefinition, profile UserProfile, actx AdaptationContext) (*GeneratedContent, error) {
	goalCount := goalCountFor(def, actx)
	payload, err := json.Marshal(generationRequest{
		Stage:        def.Name,
		StageNumber:  def.ID,
		DurationDays: def.DurationDays,
		Goals:        goalCount,
		TasksPerGoal: def.TasksPerGoal,
		Profile:      profile,
		Adaptation:   actx,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode request: %v", ErrGeneration, err)
	}

	g.log.Infof("Requesting stage %d content for userID %s from model %s.", def.ID, profile.UserID, g.model)
	completion, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: generationPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
		Temperature:    g.temperature,
		MaxTokens:      generationMaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrGenerationTimeout
		}
		return nil, fmt.Errorf("%w: model %s: %v", ErrGeneration, g.model, err)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("%w: model %s returned no content", ErrGeneration, g.model)
	}

	var content GeneratedContent
	raw := strings.TrimSpace(completion.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), &content); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrGeneration, err)
	}
	if err := validateContent(&content); err != nil {
		return nil, err
	}
	if len(content.Goals) > goalCount {
		content.Goals = content.Goals[:goalCount]
	}
	return &content, nil
}

func validateContent(c *GeneratedContent) error {
	if len(c.Goals) == 0 {
		return fmt.Errorf("%w: response contains no goals", ErrGeneration)
	}
	for i, goal := range c.Goals {
		if strings.TrimSpace(goal.Title) == "" {
			return fmt.Errorf("%w: goal %d has no title", ErrGeneration, i)
		}
		if len(goal.Tasks) == 0 {
			return fmt.Errorf("%w: goal %q has no tasks", ErrGeneration, goal.Title)
		}
		for _, t := range goal.Tasks {
			if strings.TrimSpace(t.Name) == "" {
				return fmt.Errorf("%w: goal %q has a task without a name", ErrGeneration, goal.Title)
			}
		}
	}
	return nil
}

func goalCountFor(def models.StageDefinition, actx AdaptationContext) int {
	if actx.MaxGoals > 0 && actx.MaxGoals < def.GoalCount {
		return actx.MaxGoals
	}
	return def.GoalCount
}

// generationOutcome reports how stage content was obtained.
type generationOutcome string

const (
	outcomeGenerated generationOutcome = "generated"
	outcomeFallback  generationOutcome = "fallback"
)

type generationResult struct {
	content *GeneratedContent
	err     error
}

// generateWithFallback calls gen under a timeout. A timeout abandons the call at once; any
// failure, or a nil generator, yields the local fallback template. It never returns an error.
func generateWithFallback(ctx context.Context, gen ContentGenerator, timeout time.Duration, def models.StageDefinition, profile UserProfile, actx AdaptationContext, log *zap.SugaredLogger, m *metrics.Metrics) (*GeneratedContent, generationOutcome) {
	if gen == nil {
		m.GenerationFallback("disabled")
		return FallbackContent(def, actx), outcomeFallback
	}

	genCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	results := make(chan generationResult, 1)
	go func() {
		content, err := gen.GenerateStageGoals(genCtx, def, profile, actx)
		results <- generationResult{content: content, err: err}
	}()

	var res generationResult
	select {
	case res = <-results:
	case <-genCtx.Done():
		res.err = ErrGenerationTimeout
	}
	m.ObserveGeneration(time.Since(start))

	if res.err == nil && res.content != nil {
		if err := validateContent(res.content); err != nil {
			res.err = err
		}
	}
	if res.err != nil || res.content == nil {
		reason := "error"
		if errors.Is(res.err, ErrGenerationTimeout) {
			reason = "timeout"
		}
		log.Warnf("Content generation for stage %d (userID %s) failed, using fallback template: %v", def.ID, profile.UserID, res.err)
		m.GenerationFallback(reason)
		return FallbackContent(def, actx), outcomeFallback
	}
	return res.content, outcomeGenerated
}

// stageThemes are the fallback goal titles per stage.
var stageThemes = map[int][]string{
	1: {"Define the outcome", "Map your starting point", "Choose a first milestone", "Name your why", "Clear the runway"},
	2: {"Build a daily anchor habit", "Set up your workspace", "Protect your time", "Gather core resources", "Track the basics"},
	3: {"Ship something small", "Keep a streak alive", "Review the week", "Ask for feedback", "Remove one blocker"},
	4: {"Plan for setbacks", "Recover from a missed day", "Strengthen support", "Reframe a fear", "Lower the friction"},
	5: {"Stretch the scope", "Reach out to your network", "Try a new approach", "Teach what you learned", "Review risks"},
	6: {"Deepen a core skill", "Raise the quality bar", "Measure real results", "Mentor someone", "Refine your system"},
	7: {"Make it part of your identity", "Plan the next horizon", "Celebrate progress", "Write your playbook", "Share the journey"},
}

// FallbackContent builds the deterministic local template for a stage.
func FallbackContent(def models.StageDefinition, actx AdaptationContext) *GeneratedContent {
	goalCount := goalCountFor(def, actx)
	themes := stageThemes[def.ID]
	total := goalCount * def.TasksPerGoal
	duration := max(def.DurationDays, 1)

	content := &GeneratedContent{Goals: make([]GeneratedGoal, 0, goalCount)}
	for gi := 0; gi < goalCount; gi++ {
		title := fmt.Sprintf("%s focus %d", def.Name, gi+1)
		if gi < len(themes) {
			title = themes[gi]
		}
		goal := GeneratedGoal{Title: title, Tasks: make([]GeneratedTask, 0, def.TasksPerGoal)}
		for ti := 0; ti < def.TasksPerGoal; ti++ {
			index := gi*def.TasksPerGoal + ti
			goal.Tasks = append(goal.Tasks, GeneratedTask{
				Name:             fmt.Sprintf("%s: step %d", title, ti+1),
				Description:      fmt.Sprintf("Work on %q for about %d minutes and note what you learned.", strings.ToLower(title), defaultTaskMinutes),
				EstimatedMinutes: defaultTaskMinutes,
				Day:              1 + index*duration/max(total, 1),
			})
		}
		content.Goals = append(content.Goals, goal)
	}
	return content
}

// MaterializeContent turns generated content into persisted goals and tasks for a stage window.
func MaterializeContent(content *GeneratedContent, userID string, def models.StageDefinition, start time.Time, newID func() string) []models.Goal {
	duration := max(def.DurationDays, 1)
	goals := make([]models.Goal, 0, len(content.Goals))
	for gi, g := range content.Goals {
		goal := models.Goal{
			ID:     newID(),
			UserID: userID,
			Stage:  def.ID,
			Title:  g.Title,
			Order:  gi + 1,
		}
		for ti, t := range g.Tasks {
			day := min(max(t.Day, 1), duration)
			minutes := t.EstimatedMinutes
			if minutes <= 0 {
				minutes = defaultTaskMinutes
			}
			goal.Tasks = append(goal.Tasks, models.Task{
				ID:               newID(),
				GoalID:           goal.ID,
				UserID:           userID,
				Stage:            def.ID,
				Title:            t.Name,
				Description:      t.Description,
				Status:           models.TaskStatusPending,
				ScheduledDate:    start.AddDate(0, 0, day-1),
				Difficulty:       models.DifficultyDefault,
				EstimatedMinutes: minutes,
				Order:            ti + 1,
			})
		}
		goals = append(goals, goal)
	}
	return goals
}
