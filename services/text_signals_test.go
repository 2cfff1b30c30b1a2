package services

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"

	"karvia/config"
)

func TestTextSignalAnalyzer_Analyze(t *testing.T) {
	analyzer := NewTextSignalAnalyzer(config.DefaultMarkerVocabulary())

	testCases := []struct {
		name string
		text string
		want TextSignals
	}{
		{
			name: "empty text yields the zero vector",
			text: "",
			want: TextSignals{},
		},
		{
			name: "whitespace only yields the zero vector",
			text: "   \n\t ",
			want: TextSignals{},
		},
		{
			name: "specific answer with numbers, schedule and example",
			text: "I run 5 km every morning, for example on Monday",
			want: TextSignals{
				WordCount:          10,
				SpecificityScore:   0.3*10/50 + 0.3 + 0.2 + 0.2,
				HasNumbers:         true,
				HasExamples:        true,
				HasScheduleDetails: true,
			},
		},
		{
			name: "vague answer loses specificity",
			text: "maybe something",
			want: TextSignals{
				WordCount:        2,
				SpecificityScore: 0,
				IsVague:          true,
			},
		},
		{
			name: "emotional intensity saturates at one",
			text: "I love this and I am so excited!",
			want: TextSignals{
				WordCount:          8,
				SpecificityScore:   0.3 * 8 / 50,
				EmotionalIntensity: 1,
			},
		},
	}

	// complexity is covered separately
	ignoreComplexity := cmpopts.IgnoreFields(TextSignals{}, "Complexity")
	approx := cmpopts.EquateApprox(0, 1e-9)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := analyzer.Analyze(tc.text)
			if diff := cmp.Diff(tc.want, got, ignoreComplexity, approx); diff != "" {
				t.Errorf("Analyze(%q) mismatch (-want +got):\n%s", tc.text, diff)
			}
		})
	}
}

func TestTextSignalAnalyzer_Complexity(t *testing.T) {
	analyzer := NewTextSignalAnalyzer(config.DefaultMarkerVocabulary())

	repetitive := analyzer.Analyze("go go go go go go")
	varied := analyzer.Analyze("deliberate practice compounds remarkably over months")

	assert.Greater(t, varied.Complexity, repetitive.Complexity)
	assert.LessOrEqual(t, varied.Complexity, 1.0)
	assert.GreaterOrEqual(t, repetitive.Complexity, 0.0)
}

func TestTextSignalAnalyzer_Similarity(t *testing.T) {
	analyzer := NewTextSignalAnalyzer(config.DefaultMarkerVocabulary())

	t.Run("Scenario 1: identical text is fully similar", func(t *testing.T) {
		assert.Equal(t, 1.0, analyzer.Similarity("Start a bakery", "start a BAKERY"))
	})

	t.Run("Scenario 2: similarity is symmetric", func(t *testing.T) {
		a, b := "open a small bakery downtown", "a bakery in the suburbs"
		assert.Equal(t, analyzer.Similarity(a, b), analyzer.Similarity(b, a))
		assert.InDelta(t, 2.0/8.0, analyzer.Similarity(a, b), 1e-9)
	})

	t.Run("Scenario 3: disjoint or empty text has no similarity", func(t *testing.T) {
		assert.Equal(t, 0.0, analyzer.Similarity("learn piano", "run marathons"))
		assert.Equal(t, 0.0, analyzer.Similarity("", "run marathons"))
		assert.Equal(t, 0.0, analyzer.Similarity("", ""))
	})

	t.Run("Scenario 4: punctuation-only text still equals itself", func(t *testing.T) {
		assert.Equal(t, 1.0, analyzer.Similarity("?!", "?!"))
	})
}

func TestTextSignalAnalyzer_KeywordOverlap(t *testing.T) {
	analyzer := NewTextSignalAnalyzer(config.DefaultMarkerVocabulary())

	assert.Equal(t, 2, analyzer.KeywordOverlap("Fluent in Go and PostgreSQL", []string{"go", "postgresql", "GO", " "}))
	assert.Equal(t, 0, analyzer.KeywordOverlap("", []string{"go"}))
	assert.Equal(t, 0, analyzer.KeywordOverlap("Fluent in Go", nil))
}

func TestNewTextSignalAnalyzer_CopiesVocabulary(t *testing.T) {
	vocab := config.DefaultMarkerVocabulary()
	analyzer := NewTextSignalAnalyzer(vocab)

	vocab.Vague[0] = "bakery"

	assert.False(t, analyzer.Analyze("open a bakery").IsVague)
}
