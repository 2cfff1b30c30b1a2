package services

import (
	"fmt"

	"karvia/models"
)

// dimensionInput is the read-only view every dimension scorer works from.
type dimensionInput struct {
	r        models.QuestionnaireResponse
	keywords []string
	analyzer *TextSignalAnalyzer
}

func (in dimensionInput) text(s string) TextSignals {
	return in.analyzer.Analyze(s)
}

// insightLedger accumulates notes while the dimensions are scored. Methods return a new
// ledger and never write into the receiver's backing arrays.
type insightLedger struct {
	strengths       []string
	redFlags        []string
	inconsistencies []string
	riskFactors     []string
}

func (l insightLedger) strength(dim models.Dimension, note string) insightLedger {
	l.strengths = appendNote(l.strengths, dim, note)
	return l
}

func (l insightLedger) redFlag(dim models.Dimension, note string) insightLedger {
	l.redFlags = appendNote(l.redFlags, dim, note)
	return l
}

func (l insightLedger) inconsistency(dim models.Dimension, note string) insightLedger {
	l.inconsistencies = appendNote(l.inconsistencies, dim, note)
	return l
}

func (l insightLedger) riskFactor(dim models.Dimension, note string) insightLedger {
	l.riskFactors = appendNote(l.riskFactors, dim, note)
	return l
}

func (l insightLedger) insights() models.Insights {
	return models.Insights{
		Strengths:       nonNil(l.strengths),
		RedFlags:        nonNil(l.redFlags),
		Inconsistencies: nonNil(l.inconsistencies),
		RiskFactors:     nonNil(l.riskFactors),
	}
}

func appendNote(list []string, dim models.Dimension, note string) []string {
	entry := note
	if dim != "" {
		entry = fmt.Sprintf("%s: %s", dim, note)
	}
	return append(list[:len(list):len(list)], entry)
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return append([]string(nil), list...)
}

// rating normalizes a 1..10 self rating. Zero and out-of-range values count as the midpoint.
func rating(v int) int {
	if v < models.RatingMin || v > models.RatingMax {
		return models.RatingMidpoint
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func scoreVisionClarity(in dimensionInput, ledger insightLedger) (float64, insightLedger) {
	const dim = models.DimensionVisionClarity
	score := float64(dimensionBaseline)
	r := in.r

	goal := in.text(r.GoalDescription)
	if goal.Provided() {
		switch {
		case goal.WordCount < 5:
			score -= 10
			ledger = ledger.riskFactor(dim, "goal statement is too brief to act on")
		case goal.SpecificityScore >= 0.5:
			score += 15
			ledger = ledger.strength(dim, "goal is specific and measurable")
		case goal.IsVague:
			score -= 10
			ledger = ledger.riskFactor(dim, "goal description is vague")
		}
	}

	vision := in.text(r.SuccessVision)
	if vision.Provided() {
		if vision.WordCount >= 15 && (vision.HasNumbers || vision.HasScheduleDetails || vision.SpecificityScore >= 0.4) {
			score += 10
			ledger = ledger.strength(dim, "success vision is concrete")
		}
		if goal.Provided() && in.analyzer.Similarity(r.GoalDescription, r.SuccessVision) > 0.8 {
			score -= 5
			ledger = ledger.riskFactor(dim, "success vision only restates the goal")
		}
	}

	if why := in.text(r.WhyImportant); why.HasPersonalStory {
		score += 5
		ledger = ledger.strength(dim, "goal is anchored in a personal reason")
	}

	belief := rating(r.BeliefLevel)
	switch r.Importance {
	case models.ImportanceObsessed:
		if belief <= 3 {
			score -= 15
			ledger = ledger.inconsistency(dim, fmt.Sprintf("obsession vs low belief: goal is rated obsessive but belief is only %d/10", belief))
		} else {
			score += 8
			ledger = ledger.strength(dim, "intense commitment to the goal")
		}
	case models.ImportanceVeryImportant:
		score += 5
		ledger = ledger.strength(dim, "goal carries high personal importance")
	case models.ImportanceNiceToHave:
		score -= 10
		ledger = ledger.riskFactor(dim, "goal is only a nice-to-have")
	}

	switch r.Timeline {
	case models.TimelineOneMonth:
		score -= 5
		ledger = ledger.riskFactor(dim, "one-month timeline is likely unrealistic")
	case models.TimelineThreeMonths, models.TimelineSixMonths, models.TimelineOneYear:
		score += 5
		ledger = ledger.strength(dim, "realistic timeline")
	case models.TimelineNoDeadline:
		score -= 5
		ledger = ledger.riskFactor(dim, "no deadline set")
	}

	switch {
	case belief >= 8:
		score += float64(belief-models.RatingMidpoint) * 3
		ledger = ledger.strength(dim, fmt.Sprintf("strong belief in achieving the goal (%d/10)", belief))
	case belief <= 3:
		score -= float64(models.RatingMidpoint-belief) * 4
		ledger = ledger.redFlag(dim, fmt.Sprintf("very low belief in achieving the goal (%d/10)", belief))
	}
	return score, ledger
}

func scoreMotivationAuthenticity(in dimensionInput, ledger insightLedger) (float64, insightLedger) {
	const dim = models.DimensionMotivationAuthenticity
	score := float64(dimensionBaseline)
	r := in.r

	switch r.MotivationSource {
	case models.MotivationIntrinsic:
		score += 12
		ledger = ledger.strength(dim, "intrinsic motivation")
	case models.MotivationMixed:
		score += 5
		ledger = ledger.strength(dim, "balanced motivation sources")
	case models.MotivationFinancial:
		score -= 5
		ledger = ledger.riskFactor(dim, "motivation is primarily financial")
	case models.MotivationExternalPressure:
		score -= 12
		ledger = ledger.redFlag(dim, "motivation driven by external pressure")
	case models.MotivationProveOthers:
		score -= 8
		ledger = ledger.riskFactor(dim, "motivation centred on proving others wrong")
	}

	why := in.text(r.WhyImportant)
	if why.Provided() {
		switch {
		case why.WordCount < 5:
			score -= 5
			ledger = ledger.riskFactor(dim, "reason for pursuing the goal is thin")
		case why.EmotionalIntensity >= 0.67 && why.WordCount >= 10:
			score += 8
			ledger = ledger.strength(dim, "emotionally grounded reason")
		}
	}

	past := in.text(r.PastAttempts)
	changed := in.text(r.WhatChanged)
	switch {
	case past.Provided() && !changed.Provided():
		score -= 8
		ledger = ledger.riskFactor(dim, "past attempts without saying what is different now")
	case past.Provided() && in.analyzer.Similarity(r.PastAttempts, r.WhatChanged) > 0.6:
		score -= 8
		ledger = ledger.inconsistency(dim, "what changed repeats the past attempt")
	case changed.Provided() && changed.SpecificityScore >= 0.4:
		score += 8
		ledger = ledger.strength(dim, "clear lesson drawn from earlier attempts")
	}

	m := rating(r.MotivationRating)
	switch {
	case m >= 8:
		score += float64(m-models.RatingMidpoint) * 3
		ledger = ledger.strength(dim, fmt.Sprintf("high self-rated motivation (%d/10)", m))
	case m <= 3:
		score -= float64(models.RatingMidpoint-m) * 4
		ledger = ledger.redFlag(dim, fmt.Sprintf("self-rated motivation is very low (%d/10)", m))
	}

	if r.MotivationSource == models.MotivationIntrinsic && m <= 3 {
		score -= 5
		ledger = ledger.inconsistency(dim, "intrinsic motivation claimed but motivation rated low")
	}
	return score, ledger
}

func scoreExecutionReadiness(in dimensionInput, ledger insightLedger) (float64, insightLedger) {
	const dim = models.DimensionExecutionReadiness
	score := float64(dimensionBaseline)
	r := in.r

	switch r.WeeklyHours {
	case models.WeeklyHoursUnder2:
		score -= 15
		ledger = ledger.redFlag(dim, "less than two hours per week available")
	case models.WeeklyHours2To5:
		score -= 5
		ledger = ledger.riskFactor(dim, "limited weekly time")
	case models.WeeklyHours5To10:
		score += 5
		ledger = ledger.strength(dim, "solid weekly time budget")
	case models.WeeklyHours10To20:
		score += 10
		ledger = ledger.strength(dim, "generous weekly time budget")
	case models.WeeklyHoursOver20:
		score += 12
		ledger = ledger.strength(dim, "substantial weekly time commitment")
	}

	routine := in.text(r.DailyRoutine)
	switch {
	case routine.HasScheduleDetails:
		score += 8
		ledger = ledger.strength(dim, "daily routine has concrete time slots")
	case routine.Provided() && routine.WordCount < 5:
		score -= 5
		ledger = ledger.riskFactor(dim, "daily routine is barely described")
	}

	first := in.text(r.FirstSteps)
	switch {
	case first.Provided() && first.SpecificityScore >= 0.5:
		score += 10
		ledger = ledger.strength(dim, "first steps are concrete")
	case first.IsVague:
		score -= 8
		ledger = ledger.riskFactor(dim, "first steps are vague")
	}

	switch r.PlanningStyle {
	case models.PlanningDetailed:
		score += 5
		ledger = ledger.strength(dim, "plans in detail")
		if first.Provided() && first.SpecificityScore < 0.2 {
			score -= 5
			ledger = ledger.inconsistency(dim, "detailed planner without concrete first steps")
		}
	case models.PlanningSpontaneous:
		score -= 5
		ledger = ledger.riskFactor(dim, "spontaneous planning style")
	}
	return score, ledger
}

func scoreFoundationStrength(in dimensionInput, ledger insightLedger) (float64, insightLedger) {
	const dim = models.DimensionFoundationStrength
	score := float64(dimensionBaseline)
	r := in.r

	skills := in.text(r.CurrentSkills)
	if skills.WordCount >= 10 {
		score += 8
		ledger = ledger.strength(dim, "articulated relevant skills")
	}
	if resources := in.text(r.ResourcesAvailable); resources.HasNumbers {
		score += 5
		ledger = ledger.strength(dim, "resources are quantified")
	}

	if len(in.keywords) > 0 {
		overlap := in.analyzer.KeywordOverlap(r.CurrentSkills+" "+r.ResourcesAvailable, in.keywords)
		switch {
		case overlap > 0:
			score += float64(minInt(overlap*4, 16))
			ledger = ledger.strength(dim, fmt.Sprintf("%d skill or resource keywords match the goal domain", overlap))
		case skills.Provided():
			score -= 5
			ledger = ledger.riskFactor(dim, "listed skills do not match the goal domain")
		}
	}

	switch r.FinancialRunway {
	case models.RunwayNone:
		score -= 12
		ledger = ledger.redFlag(dim, "no financial runway")
	case models.RunwayUnder3:
		score -= 5
		ledger = ledger.riskFactor(dim, "less than three months of financial runway")
	case models.Runway3To6:
		score += 5
		ledger = ledger.strength(dim, "three to six months of financial runway")
	case models.RunwayOver6:
		score += 10
		ledger = ledger.strength(dim, "more than six months of financial runway")
	}

	h := rating(r.HealthEnergy)
	switch {
	case h >= 8:
		score += float64(h-models.RatingMidpoint) * 2
		ledger = ledger.strength(dim, fmt.Sprintf("high energy levels (%d/10)", h))
	case h <= 3:
		score -= float64(models.RatingMidpoint-h) * 3
		ledger = ledger.riskFactor(dim, fmt.Sprintf("low health or energy (%d/10)", h))
	}
	return score, ledger
}

func scoreKnowledgeDepth(in dimensionInput, ledger insightLedger) (float64, insightLedger) {
	const dim = models.DimensionKnowledgeDepth
	score := float64(dimensionBaseline)
	r := in.r

	gaps := in.text(r.KnowledgeGaps)
	switch r.DomainExperience {
	case models.ExperienceNone:
		score -= 10
		ledger = ledger.riskFactor(dim, "no prior domain experience")
		if !gaps.Provided() {
			score -= 5
			ledger = ledger.riskFactor(dim, "new to the domain without naming knowledge gaps")
		}
	case models.ExperienceBeginner:
		score -= 5
		ledger = ledger.riskFactor(dim, "beginner in the domain")
	case models.ExperienceIntermediate:
		score += 5
		ledger = ledger.strength(dim, "intermediate domain experience")
	case models.ExperienceAdvanced:
		score += 10
		ledger = ledger.strength(dim, "advanced domain experience")
	case models.ExperienceExpert:
		score += 15
		ledger = ledger.strength(dim, "expert domain experience")
		if gaps.WordCount >= 20 {
			score -= 5
			ledger = ledger.inconsistency(dim, "claims expertise but lists extensive knowledge gaps")
		}
	}

	learning := in.text(r.LearningResources)
	if learning.HasExamples || learning.WordCount >= 10 {
		score += 8
		ledger = ledger.strength(dim, "named concrete learning resources")
	}
	if gaps.WordCount >= 5 {
		score += 5
		ledger = ledger.strength(dim, "aware of own knowledge gaps")
	}

	if len(in.keywords) > 0 {
		if overlap := in.analyzer.KeywordOverlap(r.LearningResources+" "+r.KnowledgeGaps, in.keywords); overlap > 0 {
			score += float64(minInt(overlap*4, 12))
			ledger = ledger.strength(dim, fmt.Sprintf("%d learning keywords match the goal domain", overlap))
		}
	}
	return score, ledger
}

func scoreHiddenAssets(in dimensionInput, ledger insightLedger) (float64, insightLedger) {
	const dim = models.DimensionHiddenAssets
	score := float64(dimensionBaseline)
	r := in.r

	strengths := in.text(r.UniqueStrengths)
	if strengths.WordCount >= 8 {
		score += 10
		ledger = ledger.strength(dim, "describes unique strengths")
	}
	if strengths.HasExamples {
		score += 5
		ledger = ledger.strength(dim, "strengths are backed by examples")
	}
	if network := in.text(r.Network); network.WordCount >= 5 {
		score += 8
		ledger = ledger.strength(dim, "has a network to draw on")
	}
	if transfer := in.text(r.TransferableExperience); transfer.HasPersonalStory || transfer.SpecificityScore >= 0.4 {
		score += 8
		ledger = ledger.strength(dim, "brings transferable experience")
	}
	return score, ledger
}

func scoreEnvironmentSupport(in dimensionInput, ledger insightLedger) (float64, insightLedger) {
	const dim = models.DimensionEnvironmentSupport
	score := float64(dimensionBaseline)
	r := in.r

	switch r.SupportSystem {
	case models.SupportStrong:
		score += 15
		ledger = ledger.strength(dim, "strong support system")
	case models.SupportSome:
		score += 8
		ledger = ledger.strength(dim, "some support available")
	case models.SupportUnsupportive:
		score -= 10
		ledger = ledger.riskFactor(dim, "unsupportive environment")
	case models.SupportHostile:
		score -= 20
		ledger = ledger.redFlag(dim, "hostile environment")
	}

	obstacles := in.text(r.Obstacles)
	if obstacles.WordCount >= 5 {
		score += 5
		ledger = ledger.strength(dim, "obstacles identified in advance")
	}
	if obstacles.EmotionalIntensity >= 0.67 {
		score -= 5
		ledger = ledger.riskFactor(dim, "obstacles described with high distress")
	}

	switch r.Accountability {
	case models.AccountabilityYes:
		score += 8
		ledger = ledger.strength(dim, "has an accountability partner")
	case models.AccountabilityLooking:
		score += 3
		ledger = ledger.strength(dim, "looking for an accountability partner")
	case models.AccountabilityNo:
		score -= 5
		ledger = ledger.riskFactor(dim, "no accountability")
	}
	return score, ledger
}

func scorePsychologicalProfile(in dimensionInput, ledger insightLedger) (float64, insightLedger) {
	const dim = models.DimensionPsychologicalProfile
	score := float64(dimensionBaseline)
	r := in.r

	fear := rating(r.FearOfFailure)
	switch {
	case fear >= 8:
		score -= float64(fear-models.RatingMidpoint) * 3
		ledger = ledger.riskFactor(dim, fmt.Sprintf("strong fear of failure (%d/10)", fear))
	case fear <= 2:
		score += 5
		ledger = ledger.strength(dim, "low fear of failure")
	}

	switch r.SetbackResponse {
	case models.SetbackLearnAdapt:
		score += 12
		ledger = ledger.strength(dim, "learns and adapts after setbacks")
	case models.SetbackPauseReflect:
		score += 6
		ledger = ledger.strength(dim, "pauses to reflect after setbacks")
	case models.SetbackPushHarder:
		score += 3
		ledger = ledger.strength(dim, "persists through setbacks")
	case models.SetbackGiveUp:
		score -= 15
		ledger = ledger.redFlag(dim, "tends to give up after setbacks")
	}

	discipline := rating(r.SelfDiscipline)
	switch {
	case discipline >= 8:
		score += float64(discipline-models.RatingMidpoint) * 3
		ledger = ledger.strength(dim, fmt.Sprintf("high self-discipline (%d/10)", discipline))
	case discipline <= 3:
		score -= float64(models.RatingMidpoint-discipline) * 4
		ledger = ledger.redFlag(dim, fmt.Sprintf("very low self-discipline (%d/10)", discipline))
	}

	biggest := in.text(r.BiggestFear)
	switch {
	case biggest.EmotionalIntensity >= 0.67:
		score -= 5
		ledger = ledger.riskFactor(dim, "fear described with high emotional intensity")
	case biggest.WordCount >= 8:
		score += 3
		ledger = ledger.strength(dim, "articulates fears calmly")
	}

	if r.SetbackResponse == models.SetbackGiveUp && discipline >= 8 {
		score -= 8
		ledger = ledger.inconsistency(dim, "high self-discipline but gives up after setbacks")
	}
	return score, ledger
}
