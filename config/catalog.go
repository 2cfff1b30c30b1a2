package config

import (
	"fmt"
	"math"
	"strings"

	"karvia/models"
)

// weightTolerance is the accepted deviation of a weight table from 1.0.
const weightTolerance = 1e-6

// StageCatalog is the immutable, validated set of stage definitions.
type StageCatalog struct {
	stages map[int]models.StageDefinition
}

// DefaultStageDefinitions returns the built-in seven-stage program.
func DefaultStageDefinitions() []models.StageDefinition {
	return []models.StageDefinition{
		{
			ID: 1, Name: "Clarity", DurationDays: 7, GoalCount: 3, TasksPerGoal: 3,
			CompletionThreshold: 0.7, MinReflections: 2,
			SpecialRequirements: []models.Requirement{models.RequirementVisionQuestionnaire},
			UnlockRewards:       []string{"vision_board_template", "clarity_badge"},
			FailureAction:       models.FailureRegenerateSmaller,
			AdaptationRules: map[models.PatternLabel]models.AdaptationActionType{
				"low_engagement": models.ActionSimplifyInstructions,
			},
		},
		{
			ID: 2, Name: "Foundation", DurationDays: 7, GoalCount: 3, TasksPerGoal: 3,
			CompletionThreshold: 0.7, MinReflections: 3,
			UnlockRewards: []string{"habit_tracker", "foundation_badge"},
			FailureAction: models.FailureReduceDifficulty,
			AdaptationRules: map[models.PatternLabel]models.AdaptationActionType{
				"decreasing_belief": models.ActionAddMicroTasks,
			},
		},
		{
			ID: 3, Name: "Momentum", DurationDays: 14, GoalCount: 4, TasksPerGoal: 3,
			CompletionThreshold: 0.75, MinReflections: 3,
			SpecialRequirements: []models.Requirement{models.RequirementBeliefCheckin},
			UnlockRewards:       []string{"streak_multiplier", "momentum_badge"},
			FailureAction:       models.FailureRegenerateSmaller,
			AdaptationRules: map[models.PatternLabel]models.AdaptationActionType{
				"low_engagement":        models.ActionAddMicroTasks,
				"declining_performance": models.ActionReduceDifficulty,
			},
		},
		{
			ID: 4, Name: "Resilience", DurationDays: 14, GoalCount: 4, TasksPerGoal: 3,
			CompletionThreshold: 0.75, MinReflections: 4,
			UnlockRewards: []string{"setback_playbook", "resilience_badge"},
			FailureAction: models.FailureReduceDifficulty,
			AdaptationRules: map[models.PatternLabel]models.AdaptationActionType{
				"low_belief": models.ActionSimplifyInstructions,
			},
		},
		{
			ID: 5, Name: "Expansion", DurationDays: 14, GoalCount: 4, TasksPerGoal: 4,
			CompletionThreshold: 0.8, MinReflections: 4,
			SpecialRequirements: []models.Requirement{models.RequirementRiskReview},
			UnlockRewards:       []string{"network_map", "expansion_badge"},
			FailureAction:       models.FailureExtendDuration,
			AdaptationRules: map[models.PatternLabel]models.AdaptationActionType{
				"high_engagement": models.ActionIncreaseChallenge,
			},
		},
		{
			ID: 6, Name: "Mastery", DurationDays: 21, GoalCount: 5, TasksPerGoal: 3,
			CompletionThreshold: 0.8, MinReflections: 5,
			SpecialRequirements: []models.Requirement{models.RequirementBeliefCheckin},
			UnlockRewards:       []string{"mentor_session", "mastery_badge"},
			FailureAction:       models.FailureReduceDifficulty,
		},
		{
			ID: 7, Name: "Integration", DurationDays: 21, GoalCount: 3, TasksPerGoal: 3,
			CompletionThreshold: 0.85, MinReflections: 5,
			SpecialRequirements: []models.Requirement{models.RequirementBeliefCheckin, models.RequirementRiskReview},
			UnlockRewards:       []string{"graduation_certificate"},
			FailureAction:       models.FailureExtendDuration,
		},
	}
}

// NewStageCatalog validates the definitions, applies overrides and freezes the result.
// Exactly one definition per stage 1..7 is required.
func NewStageCatalog(defs []models.StageDefinition, overrides []StageOverride) (*StageCatalog, error) {
	stages := make(map[int]models.StageDefinition, len(defs))
	for _, d := range defs {
		if _, dup := stages[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate definition for stage %d", ErrInvalidConfiguration, d.ID)
		}
		stages[d.ID] = copyStage(d)
	}

	for _, o := range overrides {
		d, ok := stages[o.ID]
		if !ok {
			return nil, fmt.Errorf("%w: override references unknown stage %d", ErrInvalidConfiguration, o.ID)
		}
		if o.DurationDays != nil {
			d.DurationDays = *o.DurationDays
		}
		if o.CompletionThreshold != nil {
			d.CompletionThreshold = *o.CompletionThreshold
		}
		if o.MinReflections != nil {
			d.MinReflections = *o.MinReflections
		}
		if o.GoalCount != nil {
			d.GoalCount = *o.GoalCount
		}
		if o.TasksPerGoal != nil {
			d.TasksPerGoal = *o.TasksPerGoal
		}
		stages[o.ID] = d
	}

	for id := models.StageFirst; id <= models.StageFinal; id++ {
		d, ok := stages[id]
		if !ok {
			return nil, fmt.Errorf("%w: missing definition for stage %d", ErrInvalidConfiguration, id)
		}
		if err := ValidateStage(d); err != nil {
			return nil, err
		}
	}
	if len(stages) != models.StageFinal {
		return nil, fmt.Errorf("%w: expected %d stage definitions, got %d", ErrInvalidConfiguration, models.StageFinal, len(stages))
	}
	return &StageCatalog{stages: stages}, nil
}

// ValidateStage checks a single definition.
func ValidateStage(d models.StageDefinition) error {
	switch {
	case d.DurationDays <= 0:
		return fmt.Errorf("%w: stage %d duration must be positive", ErrInvalidConfiguration, d.ID)
	case d.GoalCount <= 0 || d.TasksPerGoal <= 0:
		return fmt.Errorf("%w: stage %d needs at least one goal and one task per goal", ErrInvalidConfiguration, d.ID)
	case d.CompletionThreshold <= 0 || d.CompletionThreshold > 1:
		return fmt.Errorf("%w: stage %d completion threshold %.2f outside (0,1]", ErrInvalidConfiguration, d.ID, d.CompletionThreshold)
	case d.MinReflections < 0:
		return fmt.Errorf("%w: stage %d min reflections must not be negative", ErrInvalidConfiguration, d.ID)
	}
	switch d.FailureAction {
	case models.FailureRegenerateSmaller, models.FailureReduceDifficulty, models.FailureExtendDuration:
	default:
		return fmt.Errorf("%w: stage %d has unknown failure action %q", ErrInvalidConfiguration, d.ID, d.FailureAction)
	}
	for _, r := range d.SpecialRequirements {
		if !isKnownRequirement(r) {
			return fmt.Errorf("%w: stage %d references unknown requirement %q", ErrInvalidConfiguration, d.ID, r)
		}
	}
	for label, action := range d.AdaptationRules {
		if !label.IsKnown() {
			return fmt.Errorf("%w: stage %d has a rule for unknown pattern label %q", ErrInvalidConfiguration, d.ID, label)
		}
		if !isKnownAction(action) {
			return fmt.Errorf("%w: stage %d rule %q maps to unknown action %q", ErrInvalidConfiguration, d.ID, label, action)
		}
	}
	return nil
}

// Stage returns a copy of the definition for the given stage.
func (c *StageCatalog) Stage(id int) (models.StageDefinition, error) {
	d, ok := c.stages[id]
	if !ok {
		return models.StageDefinition{}, fmt.Errorf("%w: no definition for stage %d", ErrInvalidConfiguration, id)
	}
	return copyStage(d), nil
}

// Requirements returns every requirement referenced by any stage.
func (c *StageCatalog) Requirements() []models.Requirement {
	seen := make(map[models.Requirement]bool)
	var out []models.Requirement
	for id := models.StageFirst; id <= models.StageFinal; id++ {
		for _, r := range c.stages[id].SpecialRequirements {
			if !seen[r] {
				seen[r] = true
				out = append(out, r)
			}
		}
	}
	return out
}

func copyStage(d models.StageDefinition) models.StageDefinition {
	d.SpecialRequirements = append([]models.Requirement(nil), d.SpecialRequirements...)
	d.UnlockRewards = append([]string(nil), d.UnlockRewards...)
	if d.AdaptationRules != nil {
		rules := make(map[models.PatternLabel]models.AdaptationActionType, len(d.AdaptationRules))
		for k, v := range d.AdaptationRules {
			rules[k] = v
		}
		d.AdaptationRules = rules
	}
	return d
}

func isKnownRequirement(r models.Requirement) bool {
	for _, k := range models.KnownRequirements {
		if k == r {
			return true
		}
	}
	return false
}

func isKnownAction(a models.AdaptationActionType) bool {
	switch a {
	case models.ActionReduceDifficulty, models.ActionIncreaseChallenge, models.ActionAddMicroTasks, models.ActionSimplifyInstructions:
		return true
	}
	return false
}

// DimensionWeights is an immutable weight table over the eight readiness dimensions.
type DimensionWeights struct {
	weights map[models.Dimension]float64
}

// DefaultDimensionWeights returns the built-in weight table.
func DefaultDimensionWeights() map[models.Dimension]float64 {
	return map[models.Dimension]float64{
		models.DimensionVisionClarity:          0.15,
		models.DimensionMotivationAuthenticity: 0.15,
		models.DimensionExecutionReadiness:     0.15,
		models.DimensionFoundationStrength:     0.10,
		models.DimensionKnowledgeDepth:         0.10,
		models.DimensionHiddenAssets:           0.10,
		models.DimensionEnvironmentSupport:     0.10,
		models.DimensionPsychologicalProfile:   0.15,
	}
}

// NewDimensionWeights validates a weight table. Overrides are keyed by dimension name and
// replace the default for that dimension; the final table must still sum to 1.0.
func NewDimensionWeights(base map[models.Dimension]float64, overrides map[string]float64) (*DimensionWeights, error) {
	weights := make(map[models.Dimension]float64, len(models.AllDimensions))
	for k, v := range base {
		weights[k] = v
	}
	for name, w := range overrides {
		dim, ok := lookupDimension(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown dimension %q in weight overrides", ErrInvalidConfiguration, name)
		}
		weights[dim] = w
	}

	sum := 0.0
	for _, dim := range models.AllDimensions {
		w, ok := weights[dim]
		if !ok {
			return nil, fmt.Errorf("%w: missing weight for dimension %s", ErrInvalidConfiguration, dim)
		}
		if w < 0 {
			return nil, fmt.Errorf("%w: negative weight for dimension %s", ErrInvalidConfiguration, dim)
		}
		sum += w
	}
	if len(weights) != len(models.AllDimensions) {
		return nil, fmt.Errorf("%w: weight table has %d entries, want %d", ErrInvalidConfiguration, len(weights), len(models.AllDimensions))
	}
	if math.Abs(sum-1.0) > weightTolerance {
		return nil, fmt.Errorf("%w: dimension weights sum to %.6f, want 1.0", ErrInvalidConfiguration, sum)
	}
	return &DimensionWeights{weights: weights}, nil
}

// Weight returns the weight of a dimension.
func (w *DimensionWeights) Weight(d models.Dimension) float64 {
	return w.weights[d]
}

// Sum returns the total of the table.
func (w *DimensionWeights) Sum() float64 {
	sum := 0.0
	for _, v := range w.weights {
		sum += v
	}
	return sum
}

func lookupDimension(name string) (models.Dimension, bool) {
	for _, d := range models.AllDimensions {
		if strings.EqualFold(string(d), name) {
			return d, true
		}
	}
	return "", false
}
