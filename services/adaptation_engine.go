package services

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"karvia/metrics"
	"karvia/models"
)

const (
	microTaskMinutes = 5
	minTaskMinutes   = 5
	simplifySuffix   = "Keep it simple: do only the first step today."
)

// actionTable maps a performance band to its ordered default actions.
var actionTable = map[models.PerformanceCategory][]models.AdaptationAction{
	models.PerformanceStruggling: {
		{Type: models.ActionReduceDifficulty, Parameter: 1},
		{Type: models.ActionAddMicroTasks, Parameter: 1},
		{Type: models.ActionSimplifyInstructions},
	},
	models.PerformanceHigh: {
		{Type: models.ActionIncreaseChallenge, Parameter: 1},
	},
}

// defaultParameters is used for actions that come from stage adaptation rules.
var defaultParameters = map[models.AdaptationActionType]int{
	models.ActionReduceDifficulty:  1,
	models.ActionIncreaseChallenge: 1,
	models.ActionAddMicroTasks:     1,
}

// AdaptationEngine picks and applies content mutations for a behavior pattern.
type AdaptationEngine struct {
	log     *zap.SugaredLogger
	metrics *metrics.Metrics
	newID   func() string
}

// NewAdaptationEngine creates an AdaptationEngine. m may be nil.
func NewAdaptationEngine(log *zap.SugaredLogger, m *metrics.Metrics) *AdaptationEngine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &AdaptationEngine{log: log, metrics: m, newID: uuid.NewString}
}

// DetermineActions returns the fixed actions for the pattern's performance band.
func (e *AdaptationEngine) DetermineActions(p models.BehaviorPattern) []models.AdaptationAction {
	return append([]models.AdaptationAction(nil), actionTable[p.PerformanceCategory]...)
}

// ActionsForStage extends DetermineActions with the stage rules matched by the pattern's labels.
// Duplicates are dropped and the first occurrence keeps its position.
func (e *AdaptationEngine) ActionsForStage(p models.BehaviorPattern, def models.StageDefinition) []models.AdaptationAction {
	actions := e.DetermineActions(p)
	seen := make(map[models.AdaptationActionType]bool, len(actions))
	for _, a := range actions {
		seen[a.Type] = true
	}
	for _, label := range p.Labels() {
		action, ok := def.AdaptationRules[label]
		if !ok || seen[action] {
			continue
		}
		seen[action] = true
		actions = append(actions, models.AdaptationAction{Type: action, Parameter: defaultParameters[action]})
	}
	return actions
}

// ApplyActions returns adapted copies of goals; the input slice is left untouched.
// Only pending tasks change, and a task that already carries an action is skipped for it.
// One record per action is appended to state.AdaptationHistory, applied or not.
func (e *AdaptationEngine) ApplyActions(state *models.UserJourneyState, goals []models.Goal, trigger string, actions []models.AdaptationAction, now time.Time) []models.Goal {
	out := models.CloneGoals(goals)
	for _, action := range actions {
		var affected int
		switch action.Type {
		case models.ActionReduceDifficulty:
			affected = e.eachEligible(out, action.Type, func(t *models.Task) {
				t.Difficulty = clampDifficulty(t.Difficulty - max(action.Parameter, 1))
				t.EstimatedMinutes = max(t.EstimatedMinutes*3/4, minTaskMinutes)
			})
		case models.ActionIncreaseChallenge:
			affected = e.eachEligible(out, action.Type, func(t *models.Task) {
				t.Difficulty = clampDifficulty(t.Difficulty + max(action.Parameter, 1))
				t.EstimatedMinutes = t.EstimatedMinutes * 5 / 4
			})
		case models.ActionSimplifyInstructions:
			affected = e.eachEligible(out, action.Type, func(t *models.Task) {
				t.Description = simplifyDescription(t.Description)
			})
		case models.ActionAddMicroTasks:
			affected = e.addMicroTasks(out, max(action.Parameter, 1))
		default:
			e.log.Warnf("Unknown adaptation action '%s' for userID %s ignored.", action.Type, state.UserID)
		}

		state.AdaptationHistory = append(state.AdaptationHistory, models.AdaptationRecord{
			Date:          now,
			Trigger:       trigger,
			Action:        action.Type,
			Applied:       affected > 0,
			TasksAffected: affected,
		})
		e.metrics.AdaptationApplied(string(action.Type), affected > 0)
		e.log.Infof("Adaptation '%s' (trigger %s) affected %d tasks for userID %s.", action.Type, trigger, affected, state.UserID)
	}
	return out
}

// isAdaptable excludes micro tasks; they are already at the smallest size.
func isAdaptable(t *models.Task, action models.AdaptationActionType) bool {
	return t.Status == models.TaskStatusPending && !t.Retired && !t.IsMicro && !t.HasAdaptation(action)
}

func (e *AdaptationEngine) eachEligible(goals []models.Goal, action models.AdaptationActionType, apply func(t *models.Task)) int {
	affected := 0
	for gi := range goals {
		for ti := range goals[gi].Tasks {
			t := &goals[gi].Tasks[ti]
			if !isAdaptable(t, action) {
				continue
			}
			apply(t)
			t.AppliedAdaptations = append(t.AppliedAdaptations, action)
			affected++
		}
	}
	return affected
}

// addMicroTasks appends count warm-up tasks to every goal that still has an eligible pending task.
// The eligible tasks are marked so the same goal never receives a second batch.
func (e *AdaptationEngine) addMicroTasks(goals []models.Goal, count int) int {
	added := 0
	for gi := range goals {
		g := &goals[gi]
		var first *models.Task
		maxOrder := 0
		for ti := range g.Tasks {
			t := &g.Tasks[ti]
			if t.Order > maxOrder {
				maxOrder = t.Order
			}
			if !isAdaptable(t, models.ActionAddMicroTasks) {
				continue
			}
			if first == nil || t.ScheduledDate.Before(first.ScheduledDate) {
				first = t
			}
		}
		if first == nil {
			continue
		}

		template := *first
		for ti := range g.Tasks {
			t := &g.Tasks[ti]
			if isAdaptable(t, models.ActionAddMicroTasks) {
				t.AppliedAdaptations = append(t.AppliedAdaptations, models.ActionAddMicroTasks)
			}
		}
		for i := 0; i < count; i++ {
			maxOrder++
			g.Tasks = append(g.Tasks, models.Task{
				ID:                 e.newID(),
				GoalID:             g.ID,
				UserID:             template.UserID,
				Stage:              template.Stage,
				Title:              "Warm-up: " + template.Title,
				Description:        "Spend five minutes on the smallest possible piece of this task.",
				Status:             models.TaskStatusPending,
				ScheduledDate:      template.ScheduledDate,
				Difficulty:         models.DifficultyMin,
				EstimatedMinutes:   microTaskMinutes,
				IsMicro:            true,
				AppliedAdaptations: []models.AdaptationActionType{models.ActionAddMicroTasks},
				Order:              maxOrder,
			})
			added++
		}
	}
	return added
}

func simplifyDescription(desc string) string {
	desc = strings.TrimSpace(desc)
	if i := strings.IndexAny(desc, ".!?"); i >= 0 && i < len(desc)-1 {
		desc = desc[:i+1]
	}
	if desc == "" {
		return simplifySuffix
	}
	return desc + " " + simplifySuffix
}

func clampDifficulty(d int) int {
	if d < models.DifficultyMin {
		return models.DifficultyMin
	}
	if d > models.DifficultyMax {
		return models.DifficultyMax
	}
	return d
}
