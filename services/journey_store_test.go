package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"karvia/config"
	"karvia/database"
	"karvia/models"
	"karvia/repository"
)

// storeFixture wires the services against a private in-memory SQLite database.
type storeFixture struct {
	journeys    repository.JourneyRepository
	plans       repository.PlanRepository
	assessments repository.AssessmentRepository
	progression ProgressionService
	tasks       PlanService
	now         time.Time
}

func newStoreFixture(t *testing.T) *storeFixture {
	t.Helper()
	name := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db, zap.NewNop()))

	catalog, err := config.NewStageCatalog(config.DefaultStageDefinitions(), nil)
	require.NoError(t, err)
	checkers := make(map[models.Requirement]RequirementChecker)
	for _, r := range models.KnownRequirements {
		checkers[r] = RequirementCheckerFunc(func(context.Context, string) (bool, error) { return true, nil })
	}
	registry, err := NewRequirementRegistry(catalog, checkers)
	require.NoError(t, err)

	f := &storeFixture{
		journeys:    repository.NewJourneyRepository(db, nil),
		plans:       repository.NewPlanRepository(db, nil),
		assessments: repository.NewAssessmentRepository(db, nil),
		now:         time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC),
	}
	n := 0
	f.progression = NewProgressionService(ProgressionDeps{
		Journeys:     f.journeys,
		Plans:        f.plans,
		Assessments:  f.assessments,
		Catalog:      catalog,
		Requirements: registry,
		Clock:        func() time.Time { return f.now },
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%03d", n)
		},
		Log: zapNop(),
	})
	f.tasks = NewPlanService(f.plans, f.journeys, nil, zapNop())
	return f
}

// finishStage completes every live task of the stage and reflects on each.
func (f *storeFixture) finishStage(t *testing.T, userID string, stage int) {
	t.Helper()
	ctx := context.Background()
	goals, err := f.plans.GetStageGoals(ctx, userID, stage)
	require.NoError(t, err)
	require.NotEmpty(t, goals)
	for _, g := range goals {
		for _, task := range g.Tasks {
			if task.Retired {
				continue
			}
			_, err := f.tasks.CompleteTask(ctx, task.ID, userID)
			require.NoError(t, err)
			_, err = f.tasks.AddReflection(ctx, task.ID, userID, "Done and noted.")
			require.NoError(t, err)
		}
	}
}

func (f *storeFixture) firstTask(t *testing.T, userID string, stage int) models.Task {
	t.Helper()
	goals, err := f.plans.GetStageGoals(context.Background(), userID, stage)
	require.NoError(t, err)
	require.NotEmpty(t, goals)
	require.NotEmpty(t, goals[0].Tasks)
	return goals[0].Tasks[0]
}

func TestProgressionService_StoredEvaluation(t *testing.T) {
	ctx := context.Background()

	t.Run("Scenario 1: re-evaluating without new events changes nothing", func(t *testing.T) {
		f := newStoreFixture(t)
		_, err := f.progression.InitializeJourney(ctx, "u1")
		require.NoError(t, err)
		f.finishStage(t, "u1", 1)

		res, err := f.progression.EvaluateTransition(ctx, "u1", 1)
		require.NoError(t, err)
		require.Equal(t, OutcomeAdvanced, res.Outcome)

		advanced, err := f.progression.GetJourney(ctx, "u1")
		require.NoError(t, err)
		require.Equal(t, 2, advanced.CurrentStage)
		require.Len(t, advanced.StageHistory, 1)

		f.now = f.now.Add(time.Hour)
		again, err := f.progression.EvaluateTransition(ctx, "u1", 0)
		require.NoError(t, err)
		assert.Equal(t, OutcomeNoChange, again.Outcome)

		stale, err := f.progression.EvaluateTransition(ctx, "u1", 1)
		require.NoError(t, err)
		assert.Equal(t, OutcomeAlreadyAdvanced, stale.Outcome)
		assert.Equal(t, 2, stale.ToStage)

		after, err := f.progression.GetJourney(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 2, after.CurrentStage)
		assert.Equal(t, advanced.StageHistory, after.StageHistory)
		assert.Equal(t, advanced.StageStartDate.UTC(), after.StageStartDate.UTC())
		assert.Equal(t, advanced.Version, after.Version)
	})

	t.Run("Scenario 2: history grows by one entry per stage increase up to graduation", func(t *testing.T) {
		f := newStoreFixture(t)
		_, err := f.progression.InitializeJourney(ctx, "u1")
		require.NoError(t, err)

		for stage := models.StageFirst; stage <= models.StageFinal; stage++ {
			f.now = f.now.AddDate(0, 0, 1)
			f.finishStage(t, "u1", stage)

			res, err := f.progression.EvaluateTransition(ctx, "u1", stage)
			require.NoError(t, err)
			state, err := f.progression.GetJourney(ctx, "u1")
			require.NoError(t, err)

			if stage < models.StageFinal {
				assert.Equal(t, OutcomeAdvanced, res.Outcome, "stage %d", stage)
				assert.Equal(t, stage+1, state.CurrentStage)
			} else {
				assert.Equal(t, OutcomeGraduated, res.Outcome)
				assert.Equal(t, models.StageGraduated, state.CurrentStage)
			}
			require.Len(t, state.StageHistory, stage, "one entry per stage left")
			assert.Equal(t, stage, state.StageHistory[stage-1].Stage)
			assert.True(t, state.StageHistory[stage-1].Completed)
		}

		res, err := f.progression.EvaluateTransition(ctx, "u1", 0)
		require.NoError(t, err)
		assert.Equal(t, OutcomeAlreadyGraduated, res.Outcome)
		state, err := f.progression.GetJourney(ctx, "u1")
		require.NoError(t, err)
		assert.Len(t, state.StageHistory, models.StageFinal)
	})
}

// racingPlanRepository runs beforeWrite once, after the caller has read its task and before the
// first write reaches the store.
type racingPlanRepository struct {
	repository.PlanRepository
	beforeWrite func()
	once        sync.Once
}

func (r *racingPlanRepository) UpdateTask(ctx context.Context, task *models.Task) error {
	r.once.Do(r.beforeWrite)
	return r.PlanRepository.UpdateTask(ctx, task)
}

func TestPlanService_StoredTaskRaces(t *testing.T) {
	ctx := context.Background()

	t.Run("Scenario 1: a skip landing between read and write wins over the completion", func(t *testing.T) {
		f := newStoreFixture(t)
		_, err := f.progression.InitializeJourney(ctx, "u1")
		require.NoError(t, err)
		task := f.firstTask(t, "u1", 1)

		var skipErr error
		racing := &racingPlanRepository{PlanRepository: f.plans}
		racing.beforeWrite = func() {
			_, skipErr = f.tasks.SkipTask(ctx, task.ID, "u1")
		}

		_, completeErr := NewPlanService(racing, f.journeys, nil, zapNop()).CompleteTask(ctx, task.ID, "u1")

		require.NoError(t, skipErr)
		assert.ErrorIs(t, completeErr, ErrInvalidTaskTransition)
		stored, err := f.plans.GetTaskByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, models.TaskStatusSkipped, stored.Status)
		assert.Nil(t, stored.CompletedAt)
	})

	t.Run("Scenario 2: a retirement landing between read and write rejects the completion", func(t *testing.T) {
		f := newStoreFixture(t)
		_, err := f.progression.InitializeJourney(ctx, "u1")
		require.NoError(t, err)
		task := f.firstTask(t, "u1", 1)

		var retireErr error
		racing := &racingPlanRepository{PlanRepository: f.plans}
		racing.beforeWrite = func() {
			state, err := f.journeys.GetJourney(ctx, "u1")
			if err != nil {
				retireErr = err
				return
			}
			goals, err := f.plans.GetStageGoals(ctx, "u1", 1)
			if err != nil {
				retireErr = err
				return
			}
			retireErr = f.journeys.SaveJourney(ctx, state, retirePending(goals))
		}

		_, completeErr := NewPlanService(racing, f.journeys, nil, zapNop()).CompleteTask(ctx, task.ID, "u1")

		require.NoError(t, retireErr)
		assert.ErrorIs(t, completeErr, ErrInvalidTaskTransition)
		stored, err := f.plans.GetTaskByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, models.TaskStatusSkipped, stored.Status)
		assert.True(t, stored.Retired)
	})

	t.Run("Scenario 3: a duplicate completion landing first still lets the second succeed", func(t *testing.T) {
		f := newStoreFixture(t)
		_, err := f.progression.InitializeJourney(ctx, "u1")
		require.NoError(t, err)
		task := f.firstTask(t, "u1", 1)

		var firstErr error
		racing := &racingPlanRepository{PlanRepository: f.plans}
		racing.beforeWrite = func() {
			_, firstErr = f.tasks.CompleteTask(ctx, task.ID, "u1")
		}

		got, err := NewPlanService(racing, f.journeys, nil, zapNop()).CompleteTask(ctx, task.ID, "u1")

		require.NoError(t, firstErr)
		require.NoError(t, err)
		assert.Equal(t, models.TaskStatusCompleted, got.Status)
		assert.NotNil(t, got.CompletedAt)
	})
}
