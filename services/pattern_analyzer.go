package services

import (
	"sort"
	"time"

	"karvia/models"
)

const (
	defaultTrailingWindow = 14
	beliefTrendSamples    = 3
	trendDelta            = 0.1
)

// PatternAnalyzer classifies recent behavior. It holds no state besides its window size.
type PatternAnalyzer struct {
	window int
}

// NewPatternAnalyzer creates an analyzer over the last window due tasks.
func NewPatternAnalyzer(window int) *PatternAnalyzer {
	if window <= 0 {
		window = defaultTrailingWindow
	}
	return &PatternAnalyzer{window: window}
}

// Classify derives a BehaviorPattern from task history, belief samples and engagement signals.
// Tasks scheduled after now and retired tasks are ignored.
func (a *PatternAnalyzer) Classify(tasks []models.Task, beliefs []models.BeliefSample, signals models.EngagementSignals, now time.Time) models.BehaviorPattern {
	pattern := models.BehaviorPattern{}
	pattern.PerformanceCategory, pattern.PerformanceTrend, pattern.RecentRate, pattern.LifetimeRate = a.performance(tasks, now)
	pattern.BeliefCategory, pattern.BeliefTrend = classifyBelief(beliefs)
	pattern.EngagementCategory = classifyEngagement(signals)
	return pattern
}

func (a *PatternAnalyzer) performance(tasks []models.Task, now time.Time) (models.PerformanceCategory, models.Trend, float64, float64) {
	var due []models.Task
	for _, t := range tasks {
		if t.Retired || t.ScheduledDate.After(now) {
			continue
		}
		due = append(due, t)
	}
	if len(due) == 0 {
		return models.PerformanceDeveloping, models.TrendStable, 0, 0
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].ScheduledDate.Before(due[j].ScheduledDate)
	})

	recent := due
	if len(recent) > a.window {
		recent = recent[len(recent)-a.window:]
	}
	recentRate := completionRate(recent)
	lifetimeRate := completionRate(due)

	var category models.PerformanceCategory
	switch {
	case recentRate >= 0.9:
		category = models.PerformanceHigh
	case recentRate >= 0.7:
		category = models.PerformanceConsistent
	case recentRate >= 0.5:
		category = models.PerformanceDeveloping
	default:
		category = models.PerformanceStruggling
	}

	trend := models.TrendStable
	switch delta := recentRate - lifetimeRate; {
	case delta > trendDelta:
		trend = models.TrendImproving
	case delta < -trendDelta:
		trend = models.TrendDeclining
	}
	return category, trend, recentRate, lifetimeRate
}

func completionRate(tasks []models.Task) float64 {
	if len(tasks) == 0 {
		return 0
	}
	completed := 0
	for _, t := range tasks {
		if t.Status == models.TaskStatusCompleted {
			completed++
		}
	}
	return float64(completed) / float64(len(tasks))
}

func classifyBelief(samples []models.BeliefSample) (models.BeliefCategory, models.Trend) {
	if len(samples) == 0 {
		return models.BeliefModerate, models.TrendStable
	}
	ordered := append([]models.BeliefSample(nil), samples...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].RecordedAt.Before(ordered[j].RecordedAt)
	})

	var category models.BeliefCategory
	switch latest := ordered[len(ordered)-1].Score; {
	case latest > 0.8:
		category = models.BeliefHigh
	case latest >= 0.6:
		category = models.BeliefModerate
	case latest >= 0.4:
		category = models.BeliefDeveloping
	default:
		category = models.BeliefLow
	}

	last := ordered
	if len(last) > beliefTrendSamples {
		last = last[len(last)-beliefTrendSamples:]
	}
	sum := 0.0
	for _, s := range last {
		sum += s.Score
	}
	delta := sum/float64(len(last)) - last[0].Score

	trend := models.TrendStable
	switch {
	case delta > trendDelta:
		trend = models.TrendIncreasing
	case delta < -trendDelta:
		trend = models.TrendDecreasing
	}
	return category, trend
}

// classifyEngagement bands weekly session and reflection frequency.
func classifyEngagement(s models.EngagementSignals) models.EngagementCategory {
	switch {
	case s.SessionsPerWeek >= 5 && s.ReflectionsPerWeek >= 2:
		return models.EngagementHigh
	case s.SessionsPerWeek < 2:
		return models.EngagementLow
	default:
		return models.EngagementMedium
	}
}
