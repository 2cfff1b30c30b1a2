package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"karvia/config"
	"karvia/models"
	"karvia/repository"
)

const (
	engagementWindowDays = 14
	dateFormat           = "2006-01-02"

	PeriodLast7Days  = "last_7_days"
	PeriodLast30Days = "last_30_days"
)

// ProgressService defines the interface for generating progress reports.
type ProgressService interface {
	GenerateProgressReport(ctx context.Context, userID string, periodType string, referenceDateStr string) (*models.ProgressReportResponse, error)
	EngagementSignals(ctx context.Context, userID string) (models.EngagementSignals, error)
}

type progressService struct {
	planRepo    repository.PlanRepository
	journeyRepo repository.JourneyRepository
	catalog     *config.StageCatalog
	now         func() time.Time
	log         *zap.SugaredLogger
}

// NewProgressService creates a new instance of ProgressService.
func NewProgressService(planRepo repository.PlanRepository, journeyRepo repository.JourneyRepository, catalog *config.StageCatalog, log *zap.SugaredLogger) ProgressService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &progressService{
		planRepo:    planRepo,
		journeyRepo: journeyRepo,
		catalog:     catalog,
		now:         time.Now,
		log:         log,
	}
}

// GenerateProgressReport generates a progress report for a given user and period.
func (s *progressService) GenerateProgressReport(ctx context.Context, userID string, periodType string, referenceDateStr string) (*models.ProgressReportResponse, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty")
	}

	// 1. Determine Date Range
	now := s.now()
	endDate := now
	if referenceDateStr != "" {
		parsedDate, err := time.Parse(dateFormat, referenceDateStr)
		if err != nil {
			s.log.Warnf("Invalid referenceDateStr '%s' for userID %s: %v. Defaulting to now.", referenceDateStr, userID, err)
		} else {
			endDate = parsedDate
		}
	}
	// end of day so all activity on the reference date is included
	endDate = time.Date(endDate.Year(), endDate.Month(), endDate.Day(), 23, 59, 59, 0, endDate.Location())

	var startDate time.Time
	switch periodType {
	case PeriodLast7Days:
		startDate = endDate.AddDate(0, 0, -6)
	case PeriodLast30Days:
		startDate = endDate.AddDate(0, 0, -29)
	default:
		s.log.Warnf("Unsupported periodType '%s' for userID %s. Defaulting to %s.", periodType, userID, PeriodLast7Days)
		periodType = PeriodLast7Days
		startDate = endDate.AddDate(0, 0, -6)
	}
	startDate = time.Date(startDate.Year(), startDate.Month(), startDate.Day(), 0, 0, 0, 0, startDate.Location())

	reportPeriod := models.ReportPeriod{
		StartDate:  startDate.Format(dateFormat),
		EndDate:    endDate.Format(dateFormat),
		PeriodType: periodType,
	}
	s.log.Infof("Generating report for userID %s, period: %s to %s (%s)", userID, reportPeriod.StartDate, reportPeriod.EndDate, periodType)

	// 2. Fetch Data
	tasks, err := s.planRepo.GetTasksByUserID(ctx, userID)
	if err != nil {
		s.log.Errorf("Failed to get tasks for userID %s: %v", userID, err)
		return nil, fmt.Errorf("failed to retrieve tasks: %w", err)
	}
	state, err := s.journeyRepo.GetJourney(ctx, userID)
	if err != nil {
		s.log.Errorf("Failed to get journey for userID %s: %v", userID, err)
		return nil, fmt.Errorf("failed to retrieve journey: %w", err)
	}

	// 3. Summarize the tasks scheduled inside the period
	summary := models.OverallSummary{}
	for i := range tasks {
		t := &tasks[i]
		if t.Retired || t.ScheduledDate.Before(startDate) || t.ScheduledDate.After(endDate) {
			continue
		}
		summary.TotalTasks++
		switch t.Status {
		case models.TaskStatusCompleted:
			if t.CompletedAt != nil && !t.CompletedAt.After(endDate) {
				summary.CompletedTasks++
			}
		case models.TaskStatusSkipped:
			summary.SkippedTasks++
		}
		if t.HasReflection() {
			summary.ReflectionsCount++
		}
	}
	if summary.TotalTasks > 0 {
		summary.CompletionRate = float64(summary.CompletedTasks) / float64(summary.TotalTasks)
	}

	response := &models.ProgressReportResponse{
		UserID:         userID,
		ReportPeriod:   reportPeriod,
		OverallSummary: summary,
		Engagement:     DeriveEngagementSignals(tasks, endDate),
		GeneratedAt:    now.UTC(),
	}

	// 4. Active stage, if the user has a journey
	if state != nil {
		response.Graduated = state.IsGraduated()
		if !response.Graduated {
			active, err := s.activeStage(ctx, state, now)
			if err != nil {
				return nil, err
			}
			response.ActiveStage = active
		}
	}

	s.log.Infof("Successfully generated progress report for userID %s for period %s to %s.", userID, reportPeriod.StartDate, reportPeriod.EndDate)
	return response, nil
}

func (s *progressService) activeStage(ctx context.Context, state *models.UserJourneyState, now time.Time) (*models.StageProgress, error) {
	def, err := s.catalog.Stage(state.CurrentStage)
	if err != nil {
		s.log.Errorf("No definition for active stage %d of userID %s: %v", state.CurrentStage, state.UserID, err)
		return nil, err
	}
	goals, err := s.planRepo.GetStageGoals(ctx, state.UserID, state.CurrentStage)
	if err != nil {
		s.log.Errorf("Failed to get stage %d goals for userID %s: %v", state.CurrentStage, state.UserID, err)
		return nil, fmt.Errorf("failed to retrieve stage goals: %w", err)
	}
	rate, reflections := stageMetrics(goals)
	elapsed := 0
	if now.After(state.StageStartDate) {
		elapsed = int(now.Sub(state.StageStartDate).Hours() / 24)
	}
	return &models.StageProgress{
		Stage:               def.ID,
		StageName:           def.Name,
		CompletionRate:      rate,
		CompletionThreshold: def.CompletionThreshold,
		Reflections:         reflections,
		MinReflections:      def.MinReflections,
		DaysElapsed:         elapsed,
		DurationDays:        def.DurationDays,
		RetryCount:          state.CurrentRetryCount,
	}, nil
}

// EngagementSignals reports the user's weekly activity over the trailing two weeks.
func (s *progressService) EngagementSignals(ctx context.Context, userID string) (models.EngagementSignals, error) {
	if userID == "" {
		s.log.Warnf("EngagementSignals called with empty userID.")
		return models.EngagementSignals{}, errors.New("userID cannot be empty")
	}
	tasks, err := s.planRepo.GetTasksByUserID(ctx, userID)
	if err != nil {
		s.log.Errorf("Failed to get tasks for userID %s: %v", userID, err)
		return models.EngagementSignals{}, fmt.Errorf("failed to retrieve tasks: %w", err)
	}
	return DeriveEngagementSignals(tasks, s.now()), nil
}

// DeriveEngagementSignals counts active days and reflections over the trailing two weeks and
// reports them per week. A day is active when at least one task was completed on it.
func DeriveEngagementSignals(tasks []models.Task, now time.Time) models.EngagementSignals {
	windowStart := now.AddDate(0, 0, -engagementWindowDays)
	activeDays := make(map[string]struct{})
	reflections := 0
	for i := range tasks {
		t := &tasks[i]
		if t.Status != models.TaskStatusCompleted || t.CompletedAt == nil {
			continue
		}
		if t.CompletedAt.Before(windowStart) || t.CompletedAt.After(now) {
			continue
		}
		activeDays[t.CompletedAt.Format(dateFormat)] = struct{}{}
		if t.HasReflection() {
			reflections++
		}
	}
	weeks := float64(engagementWindowDays) / 7
	return models.EngagementSignals{
		SessionsPerWeek:    float64(len(activeDays)) / weeks,
		ReflectionsPerWeek: float64(reflections) / weeks,
	}
}
