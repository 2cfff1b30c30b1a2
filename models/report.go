package models

import "time"

// ReportPeriod defines the time range for the progress report.
type ReportPeriod struct {
	StartDate  string `json:"start_date"`  // YYYY-MM-DD
	EndDate    string `json:"end_date"`    // YYYY-MM-DD
	PeriodType string `json:"period_type"` // e.g., "last_7_days", "last_30_days"
}

// OverallSummary provides a high-level summary of progress.
type OverallSummary struct {
	TotalTasks       int     `json:"total_tasks"`       // Tasks scheduled inside the period, retired excluded
	CompletedTasks   int     `json:"completed_tasks"`   // Tasks completed within the period
	SkippedTasks     int     `json:"skipped_tasks"`     // Tasks skipped by the user within the period
	ReflectionsCount int     `json:"reflections_count"` // Reflections written for tasks in the period
	CompletionRate   float64 `json:"completion_rate"`   // CompletedTasks / TotalTasks
}

// StageProgress tracks the active stage against its requirements.
type StageProgress struct {
	Stage               int     `json:"stage"`
	StageName           string  `json:"stage_name"`
	CompletionRate      float64 `json:"completion_rate"`
	CompletionThreshold float64 `json:"completion_threshold"`
	Reflections         int     `json:"reflections"`
	MinReflections      int     `json:"min_reflections"`
	DaysElapsed         int     `json:"days_elapsed"`
	DurationDays        int     `json:"duration_days"`
	RetryCount          int     `json:"retry_count"`
}

// ProgressReportResponse is the main structure for the progress report API.
type ProgressReportResponse struct {
	UserID         string            `json:"user_id"`
	ReportPeriod   ReportPeriod      `json:"report_period"`
	OverallSummary OverallSummary    `json:"overall_summary"`
	ActiveStage    *StageProgress    `json:"active_stage,omitempty"` // nil once graduated
	Engagement     EngagementSignals `json:"engagement"`
	Graduated      bool              `json:"graduated"`
	GeneratedAt    time.Time         `json:"generated_at"`
}
