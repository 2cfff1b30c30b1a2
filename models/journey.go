package models

import (
	"time"
)

// BeliefSample is one self-reported belief score.
type BeliefSample struct {
	Score      float64   `json:"score"`
	RecordedAt time.Time `json:"recorded_at"`
}

// StageHistoryEntry is written exactly once when a stage is closed.
type StageHistoryEntry struct {
	Stage          int       `json:"stage"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	Completed      bool      `json:"completed"`
	CompletionRate float64   `json:"completion_rate"`
	RetryCount     int       `json:"retry_count"`
}

// UserJourneyState is the per-user aggregate owned by the progression engine.
// Version is checked and incremented on every write.
type UserJourneyState struct {
	UserID            string              `json:"user_id" gorm:"primaryKey;type:varchar(64)"`
	CurrentStage      int                 `json:"current_stage" gorm:"not null;default:1"`
	StageStartDate    time.Time           `json:"stage_start_date"`
	BeliefScore       float64             `json:"belief_score"`
	BeliefHistory     []BeliefSample      `json:"belief_history" gorm:"serializer:json"`
	StageHistory      []StageHistoryEntry `json:"stage_history" gorm:"serializer:json"`
	AdaptationHistory []AdaptationRecord  `json:"adaptation_history" gorm:"serializer:json"`
	CurrentRetryCount int                 `json:"current_retry_count"`
	Version           int64               `json:"version" gorm:"not null;default:0"`
	CreatedAt         time.Time           `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time           `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the UserJourneyState model.
func (UserJourneyState) TableName() string {
	return "user_journeys"
}

// IsGraduated reports whether the journey reached the terminal state.
func (s *UserJourneyState) IsGraduated() bool {
	return s.CurrentStage >= StageGraduated
}

// Clone returns a deep copy so a transition can be prepared without touching the loaded state.
func (s *UserJourneyState) Clone() *UserJourneyState {
	c := *s
	c.BeliefHistory = append([]BeliefSample(nil), s.BeliefHistory...)
	c.StageHistory = append([]StageHistoryEntry(nil), s.StageHistory...)
	c.AdaptationHistory = append([]AdaptationRecord(nil), s.AdaptationHistory...)
	return &c
}
