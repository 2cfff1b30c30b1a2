package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"karvia/models"
)

func actionTypes(actions []models.AdaptationAction) []models.AdaptationActionType {
	out := make([]models.AdaptationActionType, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.Type)
	}
	return out
}

func newTestAdaptationEngine() *AdaptationEngine {
	e := NewAdaptationEngine(nil, nil)
	n := 0
	e.newID = func() string {
		n++
		return fmt.Sprintf("micro-%d", n)
	}
	return e
}

func adaptationFixture(now time.Time) []models.Goal {
	done := now.Add(-time.Hour)
	return []models.Goal{{
		ID:    "g1",
		Stage: 2,
		Title: "Build a daily anchor habit",
		Tasks: []models.Task{
			{ID: "pending", GoalID: "g1", UserID: "u1", Stage: 2, Title: "Write 200 words", Description: "Write 200 words. Then edit them twice.", Status: models.TaskStatusPending, Difficulty: 3, EstimatedMinutes: 20, ScheduledDate: now, Order: 1},
			{ID: "done", GoalID: "g1", UserID: "u1", Stage: 2, Title: "Pick a time", Status: models.TaskStatusCompleted, Difficulty: 3, EstimatedMinutes: 20, CompletedAt: &done, Order: 2},
			{ID: "skipped", GoalID: "g1", UserID: "u1", Stage: 2, Title: "Tell a friend", Status: models.TaskStatusSkipped, Difficulty: 3, EstimatedMinutes: 20, Order: 3},
			{ID: "started", GoalID: "g1", UserID: "u1", Stage: 2, Title: "Clear the desk", Status: models.TaskStatusInProgress, Difficulty: 3, EstimatedMinutes: 20, Order: 4},
			{ID: "retired", GoalID: "g1", UserID: "u1", Stage: 2, Title: "Old task", Status: models.TaskStatusPending, Retired: true, Difficulty: 3, EstimatedMinutes: 20, Order: 5},
		},
	}}
}

func TestAdaptationEngine_DetermineActions(t *testing.T) {
	e := newTestAdaptationEngine()

	t.Run("Scenario D: struggling performer gets the three easing actions in order", func(t *testing.T) {
		actions := e.DetermineActions(models.BehaviorPattern{PerformanceCategory: models.PerformanceStruggling})
		assert.Equal(t, []models.AdaptationActionType{
			models.ActionReduceDifficulty,
			models.ActionAddMicroTasks,
			models.ActionSimplifyInstructions,
		}, actionTypes(actions))
	})

	t.Run("Scenario 2: high performer gets more challenge", func(t *testing.T) {
		actions := e.DetermineActions(models.BehaviorPattern{PerformanceCategory: models.PerformanceHigh})
		assert.Equal(t, []models.AdaptationActionType{models.ActionIncreaseChallenge}, actionTypes(actions))
	})

	t.Run("Scenario 3: middle bands get nothing", func(t *testing.T) {
		assert.Empty(t, e.DetermineActions(models.BehaviorPattern{PerformanceCategory: models.PerformanceConsistent}))
		assert.Empty(t, e.DetermineActions(models.BehaviorPattern{PerformanceCategory: models.PerformanceDeveloping}))
	})

	t.Run("Scenario 4: returned slices are private copies", func(t *testing.T) {
		first := e.DetermineActions(models.BehaviorPattern{PerformanceCategory: models.PerformanceStruggling})
		first[0].Type = models.ActionIncreaseChallenge
		second := e.DetermineActions(models.BehaviorPattern{PerformanceCategory: models.PerformanceStruggling})
		assert.Equal(t, models.ActionReduceDifficulty, second[0].Type)
	})
}

func TestAdaptationEngine_ActionsForStage(t *testing.T) {
	e := newTestAdaptationEngine()
	def := models.StageDefinition{
		ID: 3,
		AdaptationRules: map[models.PatternLabel]models.AdaptationActionType{
			"low_belief":        models.ActionSimplifyInstructions,
			"low_engagement":    models.ActionAddMicroTasks,
			"decreasing_belief": models.ActionReduceDifficulty,
		},
	}

	t.Run("Scenario 1: stage rules are appended after the defaults without duplicates", func(t *testing.T) {
		p := models.BehaviorPattern{
			PerformanceCategory: models.PerformanceStruggling,
			BeliefCategory:      models.BeliefLow,
			EngagementCategory:  models.EngagementLow,
		}
		assert.Equal(t, []models.AdaptationActionType{
			models.ActionReduceDifficulty,
			models.ActionAddMicroTasks,
			models.ActionSimplifyInstructions,
		}, actionTypes(e.ActionsForStage(p, def)))
	})

	t.Run("Scenario 2: rules alone drive actions for a middle band", func(t *testing.T) {
		p := models.BehaviorPattern{
			PerformanceCategory: models.PerformanceConsistent,
			BeliefCategory:      models.BeliefLow,
			BeliefTrend:         models.TrendDecreasing,
			EngagementCategory:  models.EngagementHigh,
		}
		actions := e.ActionsForStage(p, def)
		assert.Equal(t, []models.AdaptationActionType{
			models.ActionSimplifyInstructions,
			models.ActionReduceDifficulty,
		}, actionTypes(actions))
		assert.Equal(t, 1, actions[1].Parameter)
	})
}

func TestAdaptationEngine_ApplyActions(t *testing.T) {
	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	struggling := []models.AdaptationAction{
		{Type: models.ActionReduceDifficulty, Parameter: 1},
		{Type: models.ActionAddMicroTasks, Parameter: 1},
		{Type: models.ActionSimplifyInstructions},
	}

	t.Run("Scenario 1: only pending tasks change and the input is untouched", func(t *testing.T) {
		e := newTestAdaptationEngine()
		goals := adaptationFixture(now)
		before := models.CloneGoals(goals)
		state := &models.UserJourneyState{UserID: "u1"}

		out := e.ApplyActions(state, goals, "struggling_performer", struggling, now)

		assert.Equal(t, before, goals)
		require.Len(t, out[0].Tasks, 6)

		pending := out[0].Tasks[0]
		assert.Equal(t, 2, pending.Difficulty)
		assert.Equal(t, 15, pending.EstimatedMinutes)
		assert.Equal(t, "Write 200 words. "+simplifySuffix, pending.Description)
		assert.Equal(t, []models.AdaptationActionType{
			models.ActionReduceDifficulty,
			models.ActionAddMicroTasks,
			models.ActionSimplifyInstructions,
		}, pending.AppliedAdaptations)

		for _, i := range []int{1, 2, 3, 4} {
			assert.Equal(t, goals[0].Tasks[i].Difficulty, out[0].Tasks[i].Difficulty, "task %s", out[0].Tasks[i].ID)
			assert.Equal(t, goals[0].Tasks[i].Description, out[0].Tasks[i].Description, "task %s", out[0].Tasks[i].ID)
			assert.Empty(t, out[0].Tasks[i].AppliedAdaptations, "task %s", out[0].Tasks[i].ID)
		}

		micro := out[0].Tasks[5]
		assert.Equal(t, "micro-1", micro.ID)
		assert.True(t, micro.IsMicro)
		assert.Equal(t, "Warm-up: Write 200 words", micro.Title)
		assert.Equal(t, models.DifficultyMin, micro.Difficulty)
		assert.Equal(t, microTaskMinutes, micro.EstimatedMinutes)
		assert.Equal(t, 6, micro.Order)
		assert.Equal(t, now, micro.ScheduledDate)

		require.Len(t, state.AdaptationHistory, 3)
		for i, rec := range state.AdaptationHistory {
			assert.Equal(t, struggling[i].Type, rec.Action)
			assert.True(t, rec.Applied)
			assert.Equal(t, 1, rec.TasksAffected)
			assert.Equal(t, "struggling_performer", rec.Trigger)
			assert.Equal(t, now, rec.Date)
		}
	})

	t.Run("Scenario 2: reapplying the same actions changes nothing but is still recorded", func(t *testing.T) {
		e := newTestAdaptationEngine()
		state := &models.UserJourneyState{UserID: "u1"}
		once := e.ApplyActions(state, adaptationFixture(now), "struggling_performer", struggling, now)
		twice := e.ApplyActions(state, once, "struggling_performer", struggling, now.Add(time.Hour))

		assert.Equal(t, once, twice)
		require.Len(t, state.AdaptationHistory, 6)
		for _, rec := range state.AdaptationHistory[3:] {
			assert.False(t, rec.Applied)
			assert.Zero(t, rec.TasksAffected)
		}
	})

	t.Run("Scenario 3: increase challenge is clamped to the difficulty range", func(t *testing.T) {
		e := newTestAdaptationEngine()
		goals := []models.Goal{{ID: "g", Tasks: []models.Task{
			{ID: "a", Status: models.TaskStatusPending, Difficulty: models.DifficultyMax, EstimatedMinutes: 20},
			{ID: "b", Status: models.TaskStatusPending, Difficulty: 3, EstimatedMinutes: 20},
		}}}
		state := &models.UserJourneyState{UserID: "u1"}

		out := e.ApplyActions(state, goals, "high_performer", []models.AdaptationAction{{Type: models.ActionIncreaseChallenge, Parameter: 1}}, now)

		assert.Equal(t, models.DifficultyMax, out[0].Tasks[0].Difficulty)
		assert.Equal(t, 4, out[0].Tasks[1].Difficulty)
		assert.Equal(t, 25, out[0].Tasks[1].EstimatedMinutes)
		assert.Equal(t, 2, state.AdaptationHistory[0].TasksAffected)
	})

	t.Run("Scenario 4: nothing eligible still leaves an audit record", func(t *testing.T) {
		e := newTestAdaptationEngine()
		state := &models.UserJourneyState{UserID: "u1"}

		out := e.ApplyActions(state, nil, "struggling_performer", struggling[:1], now)

		assert.Empty(t, out)
		require.Len(t, state.AdaptationHistory, 1)
		assert.False(t, state.AdaptationHistory[0].Applied)
	})
}

func TestSimplifyDescription(t *testing.T) {
	assert.Equal(t, "Read one chapter. "+simplifySuffix, simplifyDescription("Read one chapter. Summarize it. Share it."))
	assert.Equal(t, "Read one chapter. "+simplifySuffix, simplifyDescription("Read one chapter."))
	assert.Equal(t, simplifySuffix, simplifyDescription("  "))
}
