package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"karvia/config"
	"karvia/metrics"
	"karvia/models"
	"karvia/repository"
)

const (
	defaultGenerationTimeout = 20 * time.Second
	thresholdEpsilon         = 1e-9
	initialBeliefScore       = 0.5
	// sharedWorkSlack is added to the generation timeout to bound coalesced work.
	sharedWorkSlack          = 10 * time.Second
)

// TransitionOutcome is the result class of one evaluation.
type TransitionOutcome string

const (
	OutcomeAdvanced         TransitionOutcome = "advanced"
	OutcomeGraduated        TransitionOutcome = "graduated"
	OutcomeRetry            TransitionOutcome = "retry"
	OutcomeNoChange         TransitionOutcome = "no_change"
	OutcomeAlreadyAdvanced  TransitionOutcome = "already_advanced"
	OutcomeAlreadyGraduated TransitionOutcome = "already_graduated"
)

// TransitionResult describes what an evaluation observed and did.
type TransitionResult struct {
	Outcome           TransitionOutcome    `json:"outcome"`
	FromStage         int                  `json:"from_stage"`
	ToStage           int                  `json:"to_stage"`
	CompletionRate    float64              `json:"completion_rate"`
	Reflections       int                  `json:"reflections"`
	UnmetRequirements []models.Requirement `json:"unmet_requirements,omitempty"`
	UnlockRewards     []string             `json:"unlock_rewards,omitempty"`
	FailureAction     models.FailureAction `json:"failure_action,omitempty"`
	ContentSource     string               `json:"content_source,omitempty"`
}

// AdaptationResult describes one pattern-driven adaptation pass.
type AdaptationResult struct {
	Pattern models.BehaviorPattern    `json:"pattern"`
	Actions []models.AdaptationAction `json:"actions"`
	Records []models.AdaptationRecord `json:"records"`
}

// TransitionEvaluator is the part of the progression engine that task events trigger.
type TransitionEvaluator interface {
	EvaluateTransition(ctx context.Context, userID string, observedStage int) (*TransitionResult, error)
}

// ProgressionService drives a user through the staged program.
type ProgressionService interface {
	TransitionEvaluator
	InitializeJourney(ctx context.Context, userID string) (*models.UserJourneyState, error)
	AdaptJourney(ctx context.Context, userID string) (*AdaptationResult, error)
	RecordBelief(ctx context.Context, userID string, score float64) (*models.UserJourneyState, error)
	GetJourney(ctx context.Context, userID string) (*models.UserJourneyState, error)
}

// ProgressionDeps wires the progression engine. Generator may be nil, in which case every
// stage uses the fallback template. Clock and NewID default to time.Now and uuid.NewString.
type ProgressionDeps struct {
	Journeys           repository.JourneyRepository
	Plans              repository.PlanRepository
	Assessments        repository.AssessmentRepository
	Catalog            *config.StageCatalog
	Requirements       *RequirementRegistry
	Generator          ContentGenerator
	Analyzer           *PatternAnalyzer
	Adapter            *AdaptationEngine
	GenerationTimeout  time.Duration
	MaxConflictRetries int
	Clock              func() time.Time
	NewID              func() string
	Log                *zap.SugaredLogger
	Metrics            *metrics.Metrics
}

type progressionService struct {
	journeys     repository.JourneyRepository
	plans        repository.PlanRepository
	assessments  repository.AssessmentRepository
	catalog      *config.StageCatalog
	requirements *RequirementRegistry
	generator    ContentGenerator
	analyzer     *PatternAnalyzer
	adapter      *AdaptationEngine
	timeout      time.Duration
	maxRetries   int
	now          func() time.Time
	newID        func() string
	log          *zap.SugaredLogger
	metrics      *metrics.Metrics
	group        singleflight.Group
}

// NewProgressionService creates a new instance of ProgressionService.
func NewProgressionService(d ProgressionDeps) ProgressionService {
	s := &progressionService{
		journeys:     d.Journeys,
		plans:        d.Plans,
		assessments:  d.Assessments,
		catalog:      d.Catalog,
		requirements: d.Requirements,
		generator:    d.Generator,
		analyzer:     d.Analyzer,
		adapter:      d.Adapter,
		timeout:      d.GenerationTimeout,
		maxRetries:   d.MaxConflictRetries,
		now:          d.Clock,
		newID:        d.NewID,
		log:          d.Log,
		metrics:      d.Metrics,
	}
	if s.timeout <= 0 {
		s.timeout = defaultGenerationTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.log == nil {
		s.log = zap.NewNop().Sugar()
	}
	if s.analyzer == nil {
		s.analyzer = NewPatternAnalyzer(defaultTrailingWindow)
	}
	if s.adapter == nil {
		s.adapter = NewAdaptationEngine(s.log, s.metrics)
	}
	return s
}

func (s *progressionService) GetJourney(ctx context.Context, userID string) (*models.UserJourneyState, error) {
	state, err := s.journeys.GetJourney(ctx, userID)
	if err != nil {
		errMsg := fmt.Sprintf("failed to load journey for userID %s", userID)
		s.log.Errorf("%s: %v", errMsg, err)
		return nil, fmt.Errorf("%s: %w", errMsg, err)
	}
	if state == nil {
		return nil, ErrJourneyNotFound
	}
	return state, nil
}

// InitializeJourney starts a user at stage 1 and generates the stage-1 content.
func (s *progressionService) InitializeJourney(ctx context.Context, userID string) (*models.UserJourneyState, error) {
	if userID == "" {
		s.log.Warnf("InitializeJourney called with empty userID.")
		return nil, errors.New("userID cannot be empty")
	}
	s.log.Infof("Attempting to initialize journey for userID: %s", userID)

	existing, err := s.journeys.GetJourney(ctx, userID)
	if err != nil {
		errMsg := fmt.Sprintf("failed to check existing journey for userID %s", userID)
		s.log.Errorf("%s: %v", errMsg, err)
		return nil, fmt.Errorf("%s: %w", errMsg, err)
	}
	if existing != nil {
		s.log.Warnf("Journey for userID %s already exists at stage %d.", userID, existing.CurrentStage)
		return nil, ErrJourneyExists
	}

	def, err := s.catalog.Stage(models.StageFirst)
	if err != nil {
		s.log.Errorf("Stage %d definition unavailable: %v", models.StageFirst, err)
		return nil, err
	}

	now := s.now()
	profile, latest := s.profile(ctx, userID)
	state := &models.UserJourneyState{
		UserID:         userID,
		CurrentStage:   models.StageFirst,
		StageStartDate: now,
		BeliefScore:    initialBeliefScore,
	}
	if latest != nil && latest.Responses.BeliefLevel >= models.RatingMin && latest.Responses.BeliefLevel <= models.RatingMax {
		state.BeliefScore = float64(latest.Responses.BeliefLevel) / float64(models.RatingMax)
	}

	content, source := generateWithFallback(ctx, s.generator, s.timeout, def, profile, AdaptationContext{}, s.log, s.metrics)
	goals := MaterializeContent(content, userID, def, now, s.newID)

	if err := s.journeys.CreateJourney(ctx, state, goals); err != nil {
		errMsg := fmt.Sprintf("failed to create journey for userID %s", userID)
		s.log.Errorf("%s: %v", errMsg, err)
		return nil, fmt.Errorf("%s: %w", errMsg, err)
	}
	s.log.Infof("Initialized journey for userID %s at stage %d with %d goals (%s content).", userID, state.CurrentStage, len(goals), source)
	return state, nil
}

// EvaluateTransition evaluates the active stage. observedStage is the stage the caller saw;
// zero means "whatever is current". Concurrent calls for the same user and stage share one run.
func (s *progressionService) EvaluateTransition(ctx context.Context, userID string, observedStage int) (*TransitionResult, error) {
	key := fmt.Sprintf("evaluate:%s:%d", userID, observedStage)
	v, shared, err := s.coalesce(ctx, key, func(workCtx context.Context) (interface{}, error) {
		var res *TransitionResult
		err := s.withConflictRetry(userID, "transition evaluation", func() error {
			var evalErr error
			res, evalErr = s.evaluateOnce(workCtx, userID, observedStage)
			return evalErr
		})
		return res, err
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.log.Debugf("Transition evaluation for userID %s (stage %d) was shared with a concurrent caller.", userID, observedStage)
	}
	res := *v.(*TransitionResult)
	return &res, nil
}

// coalesce runs fn once for all concurrent callers of key. The shared run keeps the first
// caller's context values but not its cancellation, and is bounded by the generation timeout plus
// sharedWorkSlack. A caller whose own context ends stops waiting; the run goes on for the others.
func (s *progressionService) coalesce(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, bool, error) {
	ch := s.group.DoChan(key, func() (interface{}, error) {
		workCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout+sharedWorkSlack)
		defer cancel()
		return fn(workCtx)
	})
	select {
	case r := <-ch:
		return r.Val, r.Shared, r.Err
	case <-ctx.Done():
		s.log.Warnf("Caller stopped waiting for %s: %v", key, ctx.Err())
		return nil, false, ctx.Err()
	}
}

func (s *progressionService) evaluateOnce(ctx context.Context, userID string, observedStage int) (*TransitionResult, error) {
	state, err := s.GetJourney(ctx, userID)
	if err != nil {
		return nil, err
	}
	res := &TransitionResult{FromStage: state.CurrentStage, ToStage: state.CurrentStage}

	if observedStage != 0 && observedStage != state.CurrentStage {
		res.Outcome = OutcomeAlreadyAdvanced
		if state.IsGraduated() {
			res.Outcome = OutcomeAlreadyGraduated
		}
		s.log.Infof("Stage %d for userID %s was already left (current %d); nothing to do.", observedStage, userID, state.CurrentStage)
		s.metrics.TransitionEvaluated(string(res.Outcome))
		return res, nil
	}
	if state.IsGraduated() {
		res.Outcome = OutcomeAlreadyGraduated
		s.metrics.TransitionEvaluated(string(res.Outcome))
		return res, nil
	}

	def, err := s.catalog.Stage(state.CurrentStage)
	if err != nil {
		s.log.Errorf("Aborting transition for userID %s: %v", userID, err)
		return nil, err
	}

	goals, err := s.plans.GetStageGoals(ctx, userID, state.CurrentStage)
	if err != nil {
		errMsg := fmt.Sprintf("failed to load stage %d content for userID %s", state.CurrentStage, userID)
		s.log.Errorf("%s: %v", errMsg, err)
		return nil, fmt.Errorf("%s: %w", errMsg, err)
	}
	res.CompletionRate, res.Reflections = stageMetrics(goals)
	res.UnmetRequirements = s.unmetRequirements(ctx, def, userID)

	met := res.CompletionRate+thresholdEpsilon >= def.CompletionThreshold &&
		res.Reflections >= def.MinReflections &&
		len(res.UnmetRequirements) == 0
	now := s.now()
	elapsed := !now.Before(state.StageStartDate.AddDate(0, 0, def.DurationDays))

	switch {
	case met && state.CurrentStage < models.StageFinal:
		err = s.advance(ctx, state, def, res, now)
	case met:
		err = s.graduate(ctx, state, def, res, now)
	case elapsed:
		err = s.fail(ctx, state, def, goals, res, now)
	default:
		res.Outcome = OutcomeNoChange
		s.log.Infof("Stage %d for userID %s not complete yet (rate %.2f/%.2f, reflections %d/%d, unmet %v).",
			def.ID, userID, res.CompletionRate, def.CompletionThreshold, res.Reflections, def.MinReflections, res.UnmetRequirements)
	}
	if err != nil {
		return nil, err
	}
	s.metrics.TransitionEvaluated(string(res.Outcome))
	return res, nil
}

func (s *progressionService) advance(ctx context.Context, state *models.UserJourneyState, def models.StageDefinition, res *TransitionResult, now time.Time) error {
	nextDef, err := s.catalog.Stage(state.CurrentStage + 1)
	if err != nil {
		s.log.Errorf("Aborting transition for userID %s: %v", state.UserID, err)
		return err
	}

	next := state.Clone()
	next.StageHistory = append(next.StageHistory, closeStage(state, res.CompletionRate, now))
	next.CurrentStage++
	next.StageStartDate = now
	next.CurrentRetryCount = 0

	profile, _ := s.profile(ctx, state.UserID)
	actx := AdaptationContext{PreviousStage: def.ID, PreviousCompletionRate: res.CompletionRate}
	content, source := generateWithFallback(ctx, s.generator, s.timeout, nextDef, profile, actx, s.log, s.metrics)
	goals := MaterializeContent(content, state.UserID, nextDef, now, s.newID)

	if err := s.save(ctx, next, goals); err != nil {
		return err
	}
	res.Outcome = OutcomeAdvanced
	res.ToStage = next.CurrentStage
	res.UnlockRewards = append([]string(nil), def.UnlockRewards...)
	res.ContentSource = string(source)
	s.log.Infof("UserID %s advanced from stage %d to %d (rate %.2f, %s content).", state.UserID, def.ID, next.CurrentStage, res.CompletionRate, source)
	return nil
}

func (s *progressionService) graduate(ctx context.Context, state *models.UserJourneyState, def models.StageDefinition, res *TransitionResult, now time.Time) error {
	next := state.Clone()
	next.StageHistory = append(next.StageHistory, closeStage(state, res.CompletionRate, now))
	next.CurrentStage = models.StageGraduated
	next.StageStartDate = now
	next.CurrentRetryCount = 0

	if err := s.save(ctx, next, nil); err != nil {
		return err
	}
	res.Outcome = OutcomeGraduated
	res.ToStage = models.StageGraduated
	res.UnlockRewards = append([]string(nil), def.UnlockRewards...)
	s.log.Infof("UserID %s graduated after stage %d.", state.UserID, def.ID)
	return nil
}

func (s *progressionService) fail(ctx context.Context, state *models.UserJourneyState, def models.StageDefinition, goals []models.Goal, res *TransitionResult, now time.Time) error {
	next := state.Clone()
	next.CurrentRetryCount++
	next.StageStartDate = now

	var out []models.Goal
	switch def.FailureAction {
	case models.FailureRegenerateSmaller:
		out = retirePending(goals)
		actx := AdaptationContext{
			PreviousStage:          def.ID,
			PreviousCompletionRate: res.CompletionRate,
			RetryCount:             next.CurrentRetryCount,
			MaxGoals:               max(def.GoalCount-1, 1),
		}
		profile, _ := s.profile(ctx, state.UserID)
		content, source := generateWithFallback(ctx, s.generator, s.timeout, def, profile, actx, s.log, s.metrics)
		out = append(out, MaterializeContent(content, state.UserID, def, now, s.newID)...)
		res.ContentSource = string(source)
	case models.FailureReduceDifficulty:
		trigger := fmt.Sprintf("stage_%d_failure", def.ID)
		action := models.AdaptationAction{Type: models.ActionReduceDifficulty, Parameter: 1}
		out = s.adapter.ApplyActions(next, goals, trigger, []models.AdaptationAction{action}, now)
		reschedulePending(out, state.StageStartDate, now)
	case models.FailureExtendDuration:
		out = models.CloneGoals(goals)
		reschedulePending(out, state.StageStartDate, now)
	default:
		err := fmt.Errorf("%w: stage %d has unknown failure action %q", config.ErrInvalidConfiguration, def.ID, def.FailureAction)
		s.log.Errorf("Aborting transition for userID %s: %v", state.UserID, err)
		return err
	}

	if err := s.save(ctx, next, out); err != nil {
		return err
	}
	res.Outcome = OutcomeRetry
	res.FailureAction = def.FailureAction
	s.log.Infof("Stage %d window elapsed for userID %s; applied %s (retry %d).", def.ID, state.UserID, def.FailureAction, next.CurrentRetryCount)
	return nil
}

// AdaptJourney classifies recent behavior and applies the matching actions to the active stage.
func (s *progressionService) AdaptJourney(ctx context.Context, userID string) (*AdaptationResult, error) {
	key := "adapt:" + userID
	v, _, err := s.coalesce(ctx, key, func(workCtx context.Context) (interface{}, error) {
		var res *AdaptationResult
		err := s.withConflictRetry(userID, "adaptation", func() error {
			var adaptErr error
			res, adaptErr = s.adaptOnce(workCtx, userID)
			return adaptErr
		})
		return res, err
	})
	if err != nil {
		return nil, err
	}
	res := *v.(*AdaptationResult)
	return &res, nil
}

func (s *progressionService) adaptOnce(ctx context.Context, userID string) (*AdaptationResult, error) {
	state, err := s.GetJourney(ctx, userID)
	if err != nil {
		return nil, err
	}
	res := &AdaptationResult{Actions: []models.AdaptationAction{}, Records: []models.AdaptationRecord{}}
	if state.IsGraduated() {
		s.log.Infof("UserID %s has graduated; no adaptation.", userID)
		return res, nil
	}
	def, err := s.catalog.Stage(state.CurrentStage)
	if err != nil {
		s.log.Errorf("Aborting adaptation for userID %s: %v", userID, err)
		return nil, err
	}

	tasks, err := s.plans.GetTasksByUserID(ctx, userID)
	if err != nil {
		errMsg := fmt.Sprintf("failed to load task history for userID %s", userID)
		s.log.Errorf("%s: %v", errMsg, err)
		return nil, fmt.Errorf("%s: %w", errMsg, err)
	}
	now := s.now()
	res.Pattern = s.analyzer.Classify(tasks, state.BeliefHistory, DeriveEngagementSignals(tasks, now), now)
	res.Actions = s.adapter.ActionsForStage(res.Pattern, def)
	if len(res.Actions) == 0 {
		s.log.Infof("Pattern %s for userID %s needs no adaptation.", res.Pattern, userID)
		return res, nil
	}

	goals, err := s.plans.GetStageGoals(ctx, userID, state.CurrentStage)
	if err != nil {
		errMsg := fmt.Sprintf("failed to load stage %d content for userID %s", state.CurrentStage, userID)
		s.log.Errorf("%s: %v", errMsg, err)
		return nil, fmt.Errorf("%s: %w", errMsg, err)
	}
	next := state.Clone()
	adapted := s.adapter.ApplyActions(next, goals, "pattern:"+res.Pattern.String(), res.Actions, now)
	if err := s.save(ctx, next, adapted); err != nil {
		return nil, err
	}
	res.Records = append(res.Records, next.AdaptationHistory[len(state.AdaptationHistory):]...)
	return res, nil
}

// RecordBelief appends a belief sample; the score is clamped to [0,1].
func (s *progressionService) RecordBelief(ctx context.Context, userID string, score float64) (*models.UserJourneyState, error) {
	score = clampUnit(score)
	var out *models.UserJourneyState
	err := s.withConflictRetry(userID, "belief check-in", func() error {
		state, err := s.GetJourney(ctx, userID)
		if err != nil {
			return err
		}
		next := state.Clone()
		next.BeliefHistory = append(next.BeliefHistory, models.BeliefSample{Score: score, RecordedAt: s.now()})
		next.BeliefScore = score
		if err := s.save(ctx, next, nil); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Infof("Recorded belief %.2f for userID %s.", score, userID)
	return out, nil
}

// withConflictRetry reruns fn after a version conflict, up to maxRetries extra attempts.
func (s *progressionService) withConflictRetry(userID, op string, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if !errors.Is(err, repository.ErrConcurrencyConflict) {
			return err
		}
		if attempt >= s.maxRetries {
			errMsg := fmt.Sprintf("%s for userID %s kept conflicting after %d retries", op, userID, s.maxRetries)
			s.log.Errorf("%s: %v", errMsg, err)
			return fmt.Errorf("%s: %w", errMsg, err)
		}
		s.metrics.ConflictRetry()
		s.log.Warnf("Concurrent update during %s for userID %s, re-reading (attempt %d of %d).", op, userID, attempt+1, s.maxRetries)
	}
}

// save passes conflicts through untouched so withConflictRetry can see them.
func (s *progressionService) save(ctx context.Context, state *models.UserJourneyState, goals []models.Goal) error {
	err := s.journeys.SaveJourney(ctx, state, goals)
	if err == nil || errors.Is(err, repository.ErrConcurrencyConflict) {
		return err
	}
	errMsg := fmt.Sprintf("failed to persist journey for userID %s", state.UserID)
	s.log.Errorf("%s: %v", errMsg, err)
	return fmt.Errorf("%s: %w", errMsg, err)
}

// unmetRequirements treats checker errors as unsatisfied.
func (s *progressionService) unmetRequirements(ctx context.Context, def models.StageDefinition, userID string) []models.Requirement {
	var unmet []models.Requirement
	for _, r := range def.SpecialRequirements {
		ok, err := s.requirements.IsSatisfied(ctx, r, userID)
		if err != nil {
			s.log.Warnf("Requirement %s check failed for userID %s, treating as unmet: %v", r, userID, err)
		}
		if !ok || err != nil {
			unmet = append(unmet, r)
		}
	}
	return unmet
}

// profile builds the generator profile from the latest scoring. Lookup failures are logged
// and produce a bare profile.
func (s *progressionService) profile(ctx context.Context, userID string) (UserProfile, *models.ReadinessAssessment) {
	profile := UserProfile{UserID: userID}
	if s.assessments == nil {
		return profile, nil
	}
	latest, err := s.assessments.GetLatestAssessment(ctx, userID)
	if err != nil {
		s.log.Warnf("Could not load latest assessment for userID %s, using a bare profile: %v", userID, err)
		return profile, nil
	}
	if latest == nil {
		return profile, nil
	}
	profile.GoalDescription = latest.Responses.GoalDescription
	profile.Overall = latest.Result.Overall
	profile.RiskLevel = latest.Result.RiskLevel
	profile.RecommendedFocus = append([]models.Dimension(nil), latest.Result.Insights.RecommendedFocus...)
	profile.Strengths = append([]string(nil), latest.Result.Insights.Strengths...)
	return profile, latest
}

func closeStage(state *models.UserJourneyState, rate float64, now time.Time) models.StageHistoryEntry {
	return models.StageHistoryEntry{
		Stage:          state.CurrentStage,
		StartDate:      state.StageStartDate,
		EndDate:        now,
		Completed:      true,
		CompletionRate: rate,
		RetryCount:     state.CurrentRetryCount,
	}
}

// stageMetrics returns the completion rate over non-retired tasks and the reflection count.
func stageMetrics(goals []models.Goal) (float64, int) {
	total, completed, reflections := 0, 0, 0
	for _, g := range goals {
		for i := range g.Tasks {
			t := &g.Tasks[i]
			if t.HasReflection() {
				reflections++
			}
			if t.Retired {
				continue
			}
			total++
			if t.Status == models.TaskStatusCompleted {
				completed++
			}
		}
	}
	if total == 0 {
		return 0, reflections
	}
	return float64(completed) / float64(total), reflections
}

// retirePending returns copies of goals whose pending tasks are skipped and marked retired.
func retirePending(goals []models.Goal) []models.Goal {
	out := models.CloneGoals(goals)
	for gi := range out {
		for ti := range out[gi].Tasks {
			t := &out[gi].Tasks[ti]
			if t.Status == models.TaskStatusPending && !t.Retired {
				t.Status = models.TaskStatusSkipped
				t.Retired = true
			}
		}
	}
	return out
}

// reschedulePending shifts pending tasks by the distance between the old and the new window start.
func reschedulePending(goals []models.Goal, oldStart, newStart time.Time) {
	shift := newStart.Sub(oldStart)
	if shift <= 0 {
		return
	}
	for gi := range goals {
		for ti := range goals[gi].Tasks {
			t := &goals[gi].Tasks[ti]
			if t.Status == models.TaskStatusPending && !t.Retired {
				t.ScheduledDate = t.ScheduledDate.Add(shift)
			}
		}
	}
}
