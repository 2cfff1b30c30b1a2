package services

import (
	"strings"
	"unicode"

	"karvia/config"
)

// TextSignals is the normalized feature vector extracted from one free-text answer.
type TextSignals struct {
	WordCount          int     `json:"word_count"`
	SpecificityScore   float64 `json:"specificity_score"`
	EmotionalIntensity float64 `json:"emotional_intensity"`
	HasNumbers         bool    `json:"has_numbers"`
	HasExamples        bool    `json:"has_examples"`
	HasPersonalStory   bool    `json:"has_personal_story"`
	HasScheduleDetails bool    `json:"has_schedule_details"`
	IsVague            bool    `json:"is_vague"`
	Complexity         float64 `json:"complexity"`
}

// Provided reports whether the answer had any content at all.
func (s TextSignals) Provided() bool {
	return s.WordCount > 0
}

// TextSignalAnalyzer extracts text features using fixed marker vocabularies. It is pure.
type TextSignalAnalyzer struct {
	vocab config.MarkerVocabulary
}

// NewTextSignalAnalyzer creates an analyzer over a private copy of the vocabulary.
func NewTextSignalAnalyzer(vocab config.MarkerVocabulary) *TextSignalAnalyzer {
	return &TextSignalAnalyzer{vocab: vocab.Clone()}
}

// Analyze extracts the feature vector. Empty or whitespace-only text yields the zero vector.
func (a *TextSignalAnalyzer) Analyze(text string) TextSignals {
	words := strings.Fields(text)
	if len(words) == 0 {
		return TextSignals{}
	}
	lower := strings.ToLower(text)

	signals := TextSignals{
		WordCount:          len(words),
		HasNumbers:         strings.IndexFunc(text, unicode.IsDigit) >= 0,
		HasExamples:        containsAny(lower, a.vocab.Examples),
		HasPersonalStory:   containsAny(lower, a.vocab.Personal),
		HasScheduleDetails: containsAny(lower, a.vocab.Schedule),
		IsVague:            containsAny(lower, a.vocab.Vague),
	}

	lengthFactor := clampUnit(float64(signals.WordCount) / 50.0)
	specificity := 0.3 * lengthFactor
	if signals.HasNumbers {
		specificity += 0.3
	}
	if signals.HasScheduleDetails {
		specificity += 0.2
	}
	if signals.HasExamples {
		specificity += 0.2
	}
	if signals.IsVague {
		specificity -= 0.2
	}
	signals.SpecificityScore = clampUnit(specificity)

	emotionalHits := countMatches(lower, a.vocab.Emotional) + strings.Count(text, "!")
	signals.EmotionalIntensity = clampUnit(float64(emotionalHits) / 3.0)

	tokens := tokenize(text)
	if len(tokens) > 0 {
		unique := make(map[string]struct{}, len(tokens))
		letters := 0
		for _, t := range tokens {
			unique[t] = struct{}{}
			letters += len([]rune(t))
		}
		uniqueRatio := float64(len(unique)) / float64(len(tokens))
		avgWordLen := float64(letters) / float64(len(tokens))
		signals.Complexity = clampUnit(0.5*uniqueRatio + 0.5*clampUnit(avgWordLen/8.0))
	}
	return signals
}

// Similarity returns the Jaccard similarity of the token sets of a and b.
// It is symmetric and returns 0 when either side has no tokens.
func (a *TextSignalAnalyzer) Similarity(x, y string) float64 {
	return jaccard(tokenSet(x), tokenSet(y))
}

// KeywordOverlap counts distinct keywords that occur in text.
func (a *TextSignalAnalyzer) KeywordOverlap(text string, keywords []string) int {
	if text == "" || len(keywords) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	seen := make(map[string]bool, len(keywords))
	count := 0
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		if strings.Contains(lower, k) {
			count++
		}
	}
	return count
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(text string) map[string]struct{} {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		// punctuation-only text still compares equal to itself
		tokens = strings.Fields(strings.ToLower(text))
	}
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// tokenize lower-cases text and splits on anything that is not a letter or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func containsAny(lower string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func countMatches(lower string, markers []string) int {
	n := 0
	for _, m := range markers {
		if strings.Contains(lower, m) {
			n++
		}
	}
	return n
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
