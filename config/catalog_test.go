package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"karvia/models"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestNewStageCatalog(t *testing.T) {
	t.Run("Scenario 1: the built-in program is valid", func(t *testing.T) {
		catalog, err := NewStageCatalog(DefaultStageDefinitions(), nil)
		require.NoError(t, err)

		for id := models.StageFirst; id <= models.StageFinal; id++ {
			def, err := catalog.Stage(id)
			require.NoError(t, err)
			assert.Equal(t, id, def.ID)
		}
		assert.ElementsMatch(t, models.KnownRequirements, catalog.Requirements())
	})

	t.Run("Scenario 2: overrides replace only the named fields", func(t *testing.T) {
		catalog, err := NewStageCatalog(DefaultStageDefinitions(), []StageOverride{
			{ID: 3, DurationDays: intPtr(10), CompletionThreshold: floatPtr(0.6)},
		})
		require.NoError(t, err)

		def, err := catalog.Stage(3)
		require.NoError(t, err)
		assert.Equal(t, 10, def.DurationDays)
		assert.InDelta(t, 0.6, def.CompletionThreshold, 1e-9)
		assert.Equal(t, 4, def.GoalCount)
		assert.Equal(t, 3, def.MinReflections)
	})

	t.Run("Scenario 3: invalid definitions are rejected", func(t *testing.T) {
		testCases := []struct {
			name      string
			defs      func() []models.StageDefinition
			overrides []StageOverride
		}{
			{"missing stage", func() []models.StageDefinition { return DefaultStageDefinitions()[:6] }, nil},
			{"duplicate stage", func() []models.StageDefinition {
				defs := DefaultStageDefinitions()
				return append(defs, defs[0])
			}, nil},
			{"extra stage", func() []models.StageDefinition {
				defs := DefaultStageDefinitions()
				extra := defs[6]
				extra.ID = 8
				return append(defs, extra)
			}, nil},
			{"threshold above one", DefaultStageDefinitions, []StageOverride{{ID: 1, CompletionThreshold: floatPtr(1.2)}}},
			{"zero duration", DefaultStageDefinitions, []StageOverride{{ID: 2, DurationDays: intPtr(0)}}},
			{"negative reflections", DefaultStageDefinitions, []StageOverride{{ID: 2, MinReflections: intPtr(-1)}}},
			{"unknown override stage", DefaultStageDefinitions, []StageOverride{{ID: 9}}},
			{"unknown failure action", func() []models.StageDefinition {
				defs := DefaultStageDefinitions()
				defs[4].FailureAction = "give_up"
				return defs
			}, nil},
			{"unknown requirement", func() []models.StageDefinition {
				defs := DefaultStageDefinitions()
				defs[0].SpecialRequirements = []models.Requirement{"blood_oath"}
				return defs
			}, nil},
			{"unknown rule action", func() []models.StageDefinition {
				defs := DefaultStageDefinitions()
				defs[1].AdaptationRules = map[models.PatternLabel]models.AdaptationActionType{"low_belief": "pray"}
				return defs
			}, nil},
			{"misspelled rule label", func() []models.StageDefinition {
				defs := DefaultStageDefinitions()
				defs[0].AdaptationRules = map[models.PatternLabel]models.AdaptationActionType{"low_engagment": models.ActionSimplifyInstructions}
				return defs
			}, nil},
			{"rule keyed by a bare trend", func() []models.StageDefinition {
				defs := DefaultStageDefinitions()
				defs[2].AdaptationRules = map[models.PatternLabel]models.AdaptationActionType{"declining": models.ActionReduceDifficulty}
				return defs
			}, nil},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := NewStageCatalog(tc.defs(), tc.overrides)
				assert.ErrorIs(t, err, ErrInvalidConfiguration)
			})
		}
	})

	t.Run("Scenario 4: returned definitions are copies", func(t *testing.T) {
		catalog, err := NewStageCatalog(DefaultStageDefinitions(), nil)
		require.NoError(t, err)

		def, _ := catalog.Stage(1)
		def.UnlockRewards[0] = "tampered"
		def.AdaptationRules["low_engagement"] = models.ActionIncreaseChallenge

		again, _ := catalog.Stage(1)
		assert.Equal(t, "vision_board_template", again.UnlockRewards[0])
		assert.Equal(t, models.ActionSimplifyInstructions, again.AdaptationRules["low_engagement"])
	})

	t.Run("Scenario 5: unknown stage lookups fail", func(t *testing.T) {
		catalog, err := NewStageCatalog(DefaultStageDefinitions(), nil)
		require.NoError(t, err)

		_, err = catalog.Stage(models.StageGraduated)
		assert.ErrorIs(t, err, ErrInvalidConfiguration)
	})
}

func TestNewDimensionWeights(t *testing.T) {
	t.Run("Scenario 1: defaults sum to one", func(t *testing.T) {
		w, err := NewDimensionWeights(DefaultDimensionWeights(), nil)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, w.Sum(), 1e-9)
		assert.InDelta(t, 0.15, w.Weight(models.DimensionVisionClarity), 1e-9)
	})

	t.Run("Scenario 2: balanced overrides are accepted case-insensitively", func(t *testing.T) {
		w, err := NewDimensionWeights(DefaultDimensionWeights(), map[string]float64{
			"visionclarity":  0.20,
			"knowledgeDepth": 0.05,
		})
		require.NoError(t, err)
		assert.InDelta(t, 0.20, w.Weight(models.DimensionVisionClarity), 1e-9)
		assert.InDelta(t, 0.05, w.Weight(models.DimensionKnowledgeDepth), 1e-9)
	})

	t.Run("Scenario 3: invalid tables", func(t *testing.T) {
		_, err := NewDimensionWeights(DefaultDimensionWeights(), map[string]float64{"visionClarity": 0.5})
		assert.ErrorIs(t, err, ErrInvalidConfiguration, "sum is no longer one")

		_, err = NewDimensionWeights(DefaultDimensionWeights(), map[string]float64{"luck": 0.1})
		assert.ErrorIs(t, err, ErrInvalidConfiguration, "unknown dimension")

		base := DefaultDimensionWeights()
		delete(base, models.DimensionHiddenAssets)
		_, err = NewDimensionWeights(base, nil)
		assert.ErrorIs(t, err, ErrInvalidConfiguration, "missing dimension")

		_, err = NewDimensionWeights(DefaultDimensionWeights(), map[string]float64{
			"visionClarity":          0.35,
			"motivationAuthenticity": -0.05,
		})
		assert.ErrorIs(t, err, ErrInvalidConfiguration, "negative weight")
	})
}
