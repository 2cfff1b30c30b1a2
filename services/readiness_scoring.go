package services

import (
	"math"
	"sort"

	"karvia/config"
	"karvia/models"
)

const (
	dimensionBaseline = 50
	focusThreshold    = 45
	maxFocusAreas     = 3
)

// ReadinessScorer scores a questionnaire into readiness dimensions.
type ReadinessScorer interface {
	Score(responses models.QuestionnaireResponse, externalKeywords []string) models.ScoringResult
}

// dimensionScorer is a pure function over one dimension. It receives the insight ledger
// by value and hands back the extended copy.
type dimensionScorer func(in dimensionInput, ledger insightLedger) (float64, insightLedger)

type readinessScoringEngine struct {
	analyzer *TextSignalAnalyzer
	weights  *config.DimensionWeights
	scorers  []struct {
		dim   models.Dimension
		score dimensionScorer
	}
}

// NewReadinessScoringEngine creates a scoring engine over validated weights.
func NewReadinessScoringEngine(analyzer *TextSignalAnalyzer, weights *config.DimensionWeights) ReadinessScorer {
	e := &readinessScoringEngine{analyzer: analyzer, weights: weights}
	e.scorers = []struct {
		dim   models.Dimension
		score dimensionScorer
	}{
		{models.DimensionVisionClarity, scoreVisionClarity},
		{models.DimensionMotivationAuthenticity, scoreMotivationAuthenticity},
		{models.DimensionExecutionReadiness, scoreExecutionReadiness},
		{models.DimensionFoundationStrength, scoreFoundationStrength},
		{models.DimensionKnowledgeDepth, scoreKnowledgeDepth},
		{models.DimensionHiddenAssets, scoreHiddenAssets},
		{models.DimensionEnvironmentSupport, scoreEnvironmentSupport},
		{models.DimensionPsychologicalProfile, scorePsychologicalProfile},
	}
	return e
}

// Score never fails: malformed or missing answers degrade to neutral defaults.
func (e *readinessScoringEngine) Score(responses models.QuestionnaireResponse, externalKeywords []string) models.ScoringResult {
	in := dimensionInput{r: responses, keywords: externalKeywords, analyzer: e.analyzer}
	ledger := insightLedger{}

	scores := make(map[models.Dimension]int, len(e.scorers))
	for _, s := range e.scorers {
		var raw float64
		raw, ledger = s.score(in, ledger)
		scores[s.dim] = clampScore(raw)
	}

	ledger = crossValidate(scores, ledger)

	overall := 0.0
	for _, dim := range models.AllDimensions {
		overall += float64(scores[dim]) * e.weights.Weight(dim)
	}

	insights := ledger.insights()
	insights.RecommendedFocus = recommendedFocus(scores)

	result := models.ScoringResult{
		DimensionScores: scores,
		Overall:         clampScore(overall),
		Insights:        insights,
	}
	result.RiskLevel = riskLevel(insights)
	result.SuccessProbability = successProbability(result.Overall, insights)
	return result
}

// riskLevel weighs red flags 3, inconsistencies 2 and risk factors 1.
func riskLevel(in models.Insights) models.RiskLevel {
	points := 3*len(in.RedFlags) + 2*len(in.Inconsistencies) + len(in.RiskFactors)
	switch {
	case points >= 10:
		return models.RiskHigh
	case points >= 5:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

func successProbability(overall int, in models.Insights) models.SuccessProbability {
	pct := overall - 5*len(in.RedFlags) + 2*len(in.Strengths)
	confidence := models.ConfidenceHigh
	if len(in.Inconsistencies) >= 3 {
		confidence = models.ConfidenceMedium
	}
	return models.SuccessProbability{Percentage: clampScore(float64(pct)), Confidence: confidence}
}

// recommendedFocus returns up to three dimensions below the focus threshold, weakest first.
func recommendedFocus(scores map[models.Dimension]int) []models.Dimension {
	var weak []models.Dimension
	for _, dim := range models.AllDimensions {
		if scores[dim] < focusThreshold {
			weak = append(weak, dim)
		}
	}
	sort.SliceStable(weak, func(i, j int) bool {
		return scores[weak[i]] < scores[weak[j]]
	})
	if len(weak) > maxFocusAreas {
		weak = weak[:maxFocusAreas]
	}
	return weak
}

func clampScore(v float64) int {
	r := int(math.Round(v))
	if r < 0 {
		return 0
	}
	if r > 100 {
		return 100
	}
	return r
}
