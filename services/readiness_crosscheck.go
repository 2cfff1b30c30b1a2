package services

import "karvia/models"

type bucket int

const (
	bucketStrength bucket = iota
	bucketRedFlag
	bucketInconsistency
	bucketRiskFactor
)

// threshold is one side of a pairwise rule: above when Above is set, otherwise below.
type threshold struct {
	Dim   models.Dimension
	Above bool
	Value int
}

func (t threshold) matches(scores map[models.Dimension]int) bool {
	if t.Above {
		return scores[t.Dim] > t.Value
	}
	return scores[t.Dim] < t.Value
}

type crossRule struct {
	A, B   threshold
	Bucket bucket
	Note   string
}

// crossRules is evaluated once, in order, after every dimension has been scored.
var crossRules = []crossRule{
	{
		A:      threshold{models.DimensionMotivationAuthenticity, true, 70},
		B:      threshold{models.DimensionExecutionReadiness, false, 40},
		Bucket: bucketInconsistency,
		Note:   "high motivation is not matched by execution readiness",
	},
	{
		A:      threshold{models.DimensionVisionClarity, false, 40},
		B:      threshold{models.DimensionMotivationAuthenticity, true, 70},
		Bucket: bucketInconsistency,
		Note:   "strong drive without a clear vision",
	},
	{
		A:      threshold{models.DimensionVisionClarity, true, 75},
		B:      threshold{models.DimensionKnowledgeDepth, false, 35},
		Bucket: bucketRiskFactor,
		Note:   "clear vision but shallow domain knowledge",
	},
	{
		A:      threshold{models.DimensionExecutionReadiness, true, 70},
		B:      threshold{models.DimensionFoundationStrength, false, 35},
		Bucket: bucketRiskFactor,
		Note:   "ready to execute on a weak foundation",
	},
	{
		A:      threshold{models.DimensionPsychologicalProfile, false, 35},
		B:      threshold{models.DimensionEnvironmentSupport, false, 35},
		Bucket: bucketRedFlag,
		Note:   "fragile mindset without a support system",
	},
	{
		A:      threshold{models.DimensionHiddenAssets, true, 70},
		B:      threshold{models.DimensionKnowledgeDepth, true, 65},
		Bucket: bucketStrength,
		Note:   "hidden assets and domain knowledge reinforce each other",
	},
	{
		A:      threshold{models.DimensionEnvironmentSupport, true, 75},
		B:      threshold{models.DimensionPsychologicalProfile, true, 70},
		Bucket: bucketStrength,
		Note:   "supportive environment and a resilient mindset",
	},
}

// crossValidate only adds notes; the dimension scores are left as they are.
func crossValidate(scores map[models.Dimension]int, ledger insightLedger) insightLedger {
	for _, rule := range crossRules {
		if !rule.A.matches(scores) || !rule.B.matches(scores) {
			continue
		}
		switch rule.Bucket {
		case bucketStrength:
			ledger = ledger.strength("", rule.Note)
		case bucketRedFlag:
			ledger = ledger.redFlag("", rule.Note)
		case bucketInconsistency:
			ledger = ledger.inconsistency("", rule.Note)
		case bucketRiskFactor:
			ledger = ledger.riskFactor("", rule.Note)
		}
	}
	return ledger
}
