package models

import "time"

// PerformanceCategory bands the trailing task completion rate.
type PerformanceCategory string

const (
	PerformanceHigh       PerformanceCategory = "high_performer"
	PerformanceConsistent PerformanceCategory = "consistent_performer"
	PerformanceDeveloping PerformanceCategory = "developing_performer"
	PerformanceStruggling PerformanceCategory = "struggling_performer"
)

// BeliefCategory bands the latest belief score.
type BeliefCategory string

const (
	BeliefHigh       BeliefCategory = "high_belief"
	BeliefModerate   BeliefCategory = "moderate_belief"
	BeliefDeveloping BeliefCategory = "developing_belief"
	BeliefLow        BeliefCategory = "low_belief"
)

// EngagementCategory bands caller-supplied activity frequency.
type EngagementCategory string

const (
	EngagementHigh   EngagementCategory = "high_engagement"
	EngagementMedium EngagementCategory = "medium_engagement"
	EngagementLow    EngagementCategory = "low_engagement"
)

// Trend describes the direction of a time series.
type Trend string

const (
	TrendImproving  Trend = "improving"
	TrendDeclining  Trend = "declining"
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// PatternLabel is any label a stage adaptation rule can be keyed by.
type PatternLabel string

const (
	LabelDecreasingBelief     PatternLabel = "decreasing_belief"
	LabelDecliningPerformance PatternLabel = "declining_performance"
)

// KnownPatternLabels is the closed set of labels BehaviorPattern.Labels can produce.
var KnownPatternLabels = []PatternLabel{
	PatternLabel(PerformanceHigh),
	PatternLabel(PerformanceConsistent),
	PatternLabel(PerformanceDeveloping),
	PatternLabel(PerformanceStruggling),
	PatternLabel(BeliefHigh),
	PatternLabel(BeliefModerate),
	PatternLabel(BeliefDeveloping),
	PatternLabel(BeliefLow),
	PatternLabel(EngagementHigh),
	PatternLabel(EngagementMedium),
	PatternLabel(EngagementLow),
	LabelDecreasingBelief,
	LabelDecliningPerformance,
}

// IsKnown reports whether l is in KnownPatternLabels.
func (l PatternLabel) IsKnown() bool {
	for _, k := range KnownPatternLabels {
		if l == k {
			return true
		}
	}
	return false
}

// BehaviorPattern is recomputed on every classification and never persisted on its own.
type BehaviorPattern struct {
	PerformanceCategory PerformanceCategory `json:"performance_category"`
	PerformanceTrend    Trend               `json:"performance_trend"`
	RecentRate          float64             `json:"recent_rate"`
	LifetimeRate        float64             `json:"lifetime_rate"`
	BeliefCategory      BeliefCategory      `json:"belief_category"`
	BeliefTrend         Trend               `json:"belief_trend"`
	EngagementCategory  EngagementCategory  `json:"engagement_category"`
}

// Labels returns every label a stage adaptation rule may match for this pattern.
func (p BehaviorPattern) Labels() []PatternLabel {
	labels := []PatternLabel{
		PatternLabel(p.PerformanceCategory),
		PatternLabel(p.BeliefCategory),
		PatternLabel(p.EngagementCategory),
	}
	if p.BeliefTrend == TrendDecreasing {
		labels = append(labels, LabelDecreasingBelief)
	}
	if p.PerformanceTrend == TrendDeclining {
		labels = append(labels, LabelDecliningPerformance)
	}
	return labels
}

// String renders the pattern for audit records.
func (p BehaviorPattern) String() string {
	return string(p.PerformanceCategory) + "/" + string(p.BeliefCategory) + "/" + string(p.EngagementCategory)
}

// EngagementSignals are weekly frequency signals supplied by the caller.
type EngagementSignals struct {
	SessionsPerWeek    float64 `json:"sessions_per_week"`
	ReflectionsPerWeek float64 `json:"reflections_per_week"`
}

// AdaptationActionType is one discrete content mutation.
type AdaptationActionType string

const (
	ActionReduceDifficulty     AdaptationActionType = "reduce_difficulty"
	ActionIncreaseChallenge    AdaptationActionType = "increase_challenge"
	ActionAddMicroTasks        AdaptationActionType = "add_micro_tasks"
	ActionSimplifyInstructions AdaptationActionType = "simplify_instructions"
)

// AdaptationAction is an action with its numeric parameter (step size, count, ...).
type AdaptationAction struct {
	Type      AdaptationActionType `json:"type"`
	Parameter int                  `json:"parameter"`
}

// AdaptationRecord is one entry of the adaptation audit trail.
type AdaptationRecord struct {
	Date          time.Time            `json:"date"`
	Trigger       string               `json:"trigger"`
	Action        AdaptationActionType `json:"action"`
	Applied       bool                 `json:"applied"`
	TasksAffected int                  `json:"tasks_affected"`
}
