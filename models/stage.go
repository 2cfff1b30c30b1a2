package models

// Stage numbers. StageGraduated is the terminal state reachable only from StageFinal.
const (
	StageFirst     = 1
	StageFinal     = 7
	StageGraduated = 8
)

// Requirement names a special, externally checked stage requirement.
type Requirement string

const (
	RequirementVisionQuestionnaire Requirement = "vision_questionnaire"
	RequirementBeliefCheckin       Requirement = "belief_checkin"
	RequirementRiskReview          Requirement = "risk_review"
)

// KnownRequirements is the closed set of requirement names a stage may reference.
var KnownRequirements = []Requirement{
	RequirementVisionQuestionnaire,
	RequirementBeliefCheckin,
	RequirementRiskReview,
}

// FailureAction is what happens when a stage window elapses without the requirements met.
type FailureAction string

const (
	FailureRegenerateSmaller FailureAction = "regenerate_smaller"
	FailureReduceDifficulty  FailureAction = "reduce_difficulty"
	FailureExtendDuration    FailureAction = "extend_duration"
)

// StageDefinition is the static description of one program stage.
type StageDefinition struct {
	ID                  int                                   `json:"id" mapstructure:"id"`
	Name                string                                `json:"name" mapstructure:"name"`
	DurationDays        int                                   `json:"duration_days" mapstructure:"duration_days"`
	GoalCount           int                                   `json:"goal_count" mapstructure:"goal_count"`
	TasksPerGoal        int                                   `json:"tasks_per_goal" mapstructure:"tasks_per_goal"`
	CompletionThreshold float64                               `json:"completion_threshold" mapstructure:"completion_threshold"`
	MinReflections      int                                   `json:"min_reflections" mapstructure:"min_reflections"`
	SpecialRequirements []Requirement                         `json:"special_requirements" mapstructure:"special_requirements"`
	UnlockRewards       []string                              `json:"unlock_rewards" mapstructure:"unlock_rewards"`
	FailureAction       FailureAction                         `json:"failure_action" mapstructure:"failure_action"`
	AdaptationRules     map[PatternLabel]AdaptationActionType `json:"adaptation_rules" mapstructure:"adaptation_rules"`
}

