package models

import (
	"time"
)

// Dimension names one of the eight independently scored readiness facets.
type Dimension string

const (
	DimensionVisionClarity          Dimension = "visionClarity"
	DimensionMotivationAuthenticity Dimension = "motivationAuthenticity"
	DimensionExecutionReadiness     Dimension = "executionReadiness"
	DimensionFoundationStrength     Dimension = "foundationStrength"
	DimensionKnowledgeDepth         Dimension = "knowledgeDepth"
	DimensionHiddenAssets           Dimension = "hiddenAssets"
	DimensionEnvironmentSupport     Dimension = "environmentSupport"
	DimensionPsychologicalProfile   Dimension = "psychologicalProfile"
)

// AllDimensions lists the dimensions in scoring order.
var AllDimensions = []Dimension{
	DimensionVisionClarity,
	DimensionMotivationAuthenticity,
	DimensionExecutionReadiness,
	DimensionFoundationStrength,
	DimensionKnowledgeDepth,
	DimensionHiddenAssets,
	DimensionEnvironmentSupport,
	DimensionPsychologicalProfile,
}

// RiskLevel is the coarse risk classification of a scoring result.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Confidence qualifies a success probability estimate.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
)

// Categorical answer values. Anything outside these sets is treated as unanswered.
const (
	ImportanceNiceToHave    = "nice_to_have"
	ImportanceImportant     = "important"
	ImportanceVeryImportant = "very_important"
	ImportanceObsessed      = "obsessed"

	TimelineOneMonth    = "1_month"
	TimelineThreeMonths = "3_months"
	TimelineSixMonths   = "6_months"
	TimelineOneYear     = "1_year"
	TimelineNoDeadline  = "no_deadline"

	MotivationIntrinsic        = "intrinsic"
	MotivationExternalPressure = "external_pressure"
	MotivationFinancial        = "financial"
	MotivationProveOthers      = "prove_others"
	MotivationMixed            = "mixed"

	WeeklyHoursUnder2 = "lt_2"
	WeeklyHours2To5   = "2_5"
	WeeklyHours5To10  = "5_10"
	WeeklyHours10To20 = "10_20"
	WeeklyHoursOver20 = "gt_20"

	PlanningDetailed    = "detailed_planner"
	PlanningLoose       = "loose_plan"
	PlanningSpontaneous = "spontaneous"

	RunwayNone   = "none"
	RunwayUnder3 = "lt_3_months"
	Runway3To6   = "3_6_months"
	RunwayOver6  = "gt_6_months"

	ExperienceNone         = "none"
	ExperienceBeginner     = "beginner"
	ExperienceIntermediate = "intermediate"
	ExperienceAdvanced     = "advanced"
	ExperienceExpert       = "expert"

	SupportStrong       = "strong"
	SupportSome         = "some"
	SupportNeutral      = "neutral"
	SupportUnsupportive = "unsupportive"
	SupportHostile      = "hostile"

	AccountabilityYes     = "yes"
	AccountabilityLooking = "looking"
	AccountabilityNo      = "no"

	SetbackLearnAdapt   = "learn_adapt"
	SetbackPushHarder   = "push_harder"
	SetbackPauseReflect = "pause_reflect"
	SetbackGiveUp       = "give_up"
)

// Rating bounds for the numeric answers.
const (
	RatingMin      = 1
	RatingMax      = 10
	RatingMidpoint = 5
)

// QuestionnaireResponse is one immutable readiness questionnaire submission.
// Ratings use the 1..10 scale; zero means "not answered".
type QuestionnaireResponse struct {
	// Vision
	GoalDescription string `json:"goal_description"`
	WhyImportant    string `json:"why_important"`
	SuccessVision   string `json:"success_vision"`
	Importance      string `json:"importance"`
	Timeline        string `json:"timeline"`
	BeliefLevel     int    `json:"belief_level"`

	// Motivation
	MotivationSource string `json:"motivation_source"`
	PastAttempts     string `json:"past_attempts"`
	WhatChanged      string `json:"what_changed"`
	MotivationRating int    `json:"motivation_rating"`

	// Execution
	WeeklyHours   string `json:"weekly_hours"`
	DailyRoutine  string `json:"daily_routine"`
	FirstSteps    string `json:"first_steps"`
	PlanningStyle string `json:"planning_style"`

	// Foundation
	CurrentSkills      string `json:"current_skills"`
	ResourcesAvailable string `json:"resources_available"`
	FinancialRunway    string `json:"financial_runway"`
	HealthEnergy       int    `json:"health_energy"`

	// Knowledge
	DomainExperience  string `json:"domain_experience"`
	LearningResources string `json:"learning_resources"`
	KnowledgeGaps     string `json:"knowledge_gaps"`

	// Hidden assets
	UniqueStrengths        string `json:"unique_strengths"`
	Network                string `json:"network"`
	TransferableExperience string `json:"transferable_experience"`

	// Environment
	SupportSystem  string `json:"support_system"`
	Obstacles      string `json:"obstacles"`
	Accountability string `json:"accountability"`

	// Psychology
	FearOfFailure   int    `json:"fear_of_failure"`
	SetbackResponse string `json:"setback_response"`
	SelfDiscipline  int    `json:"self_discipline"`
	BiggestFear     string `json:"biggest_fear"`
}

// Insights groups the notes produced while scoring.
type Insights struct {
	Strengths        []string    `json:"strengths"`
	RedFlags         []string    `json:"red_flags"`
	Inconsistencies  []string    `json:"inconsistencies"`
	RiskFactors      []string    `json:"risk_factors"`
	RecommendedFocus []Dimension `json:"recommended_focus"`
}

// SuccessProbability is the synthesized likelihood of completing the program.
type SuccessProbability struct {
	Percentage int        `json:"percentage"`
	Confidence Confidence `json:"confidence"`
}

// ScoringResult is the output of one scoring call.
type ScoringResult struct {
	DimensionScores    map[Dimension]int  `json:"dimension_scores"`
	Overall            int                `json:"overall"`
	Insights           Insights           `json:"insights"`
	RiskLevel          RiskLevel          `json:"risk_level"`
	SuccessProbability SuccessProbability `json:"success_probability"`
}

// ReadinessAssessment is one append-only entry of a user's scoring history.
type ReadinessAssessment struct {
	ID               uint                  `json:"id" gorm:"primaryKey"`
	UserID           string                `json:"user_id" gorm:"index;not null"`
	Responses        QuestionnaireResponse `json:"responses" gorm:"serializer:json"`
	ExternalKeywords []string              `json:"external_keywords" gorm:"serializer:json"`
	Result           ScoringResult         `json:"result" gorm:"serializer:json"`
	Overall          int                   `json:"overall"`
	RiskLevel        RiskLevel             `json:"risk_level" gorm:"type:varchar(10)"`
	CreatedAt        time.Time             `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for the ReadinessAssessment model.
func (ReadinessAssessment) TableName() string {
	return "readiness_assessments"
}
