package config

// MarkerVocabulary holds the fixed marker lists used for text signal detection.
// All entries are lower case; matching is case-insensitive substring matching.
type MarkerVocabulary struct {
	Emotional []string
	Examples  []string
	Personal  []string
	Schedule  []string
	Vague     []string
}

// DefaultMarkerVocabulary returns the built-in vocabularies.
func DefaultMarkerVocabulary() MarkerVocabulary {
	return MarkerVocabulary{
		Emotional: []string{
			"love", "hate", "passion", "dream", "desperate", "afraid", "scared", "excited",
			"frustrated", "angry", "terrified", "obsessed", "burning", "need to", "must",
			"can't stand", "sick of", "tired of", "deeply", "heart",
		},
		Examples: []string{
			"for example", "for instance", "such as", "e.g.", "like when", "specifically",
			"one time", "to illustrate",
		},
		Personal: []string{
			"i remember", "when i was", "my experience", "i once", "years ago", "last year",
			"growing up", "my father", "my mother", "my family", "i learned", "i realized",
		},
		Schedule: []string{
			"every day", "daily", "each morning", "every morning", "in the morning", "evening",
			"weekend", "weekday", "monday", "tuesday", "wednesday", "thursday", "friday",
			"saturday", "sunday", "a.m.", "p.m.", "o'clock", "per week", "each week",
			"every week", "hours a", "minutes a", "before work", "after work", "lunch break",
		},
		Vague: []string{
			"something", "somehow", "maybe", "stuff", "things", "whatever", "not sure",
			"i don't know", "be better", "be happy", "be successful", "someday",
		},
	}
}

// Clone returns a copy whose slices do not alias the receiver.
func (v MarkerVocabulary) Clone() MarkerVocabulary {
	return MarkerVocabulary{
		Emotional: append([]string(nil), v.Emotional...),
		Examples:  append([]string(nil), v.Examples...),
		Personal:  append([]string(nil), v.Personal...),
		Schedule:  append([]string(nil), v.Schedule...),
		Vague:     append([]string(nil), v.Vague...),
	}
}
