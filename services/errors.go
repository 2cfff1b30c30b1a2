package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrGenerationTimeout is returned when the content generator does not answer in time.
	ErrGenerationTimeout = errors.New("content generation timed out")
	// ErrGeneration is returned for any other content generator failure.
	ErrGeneration = errors.New("content generation failed")
	// ErrJourneyNotFound is returned when a user has no journey yet.
	ErrJourneyNotFound = errors.New("journey not found")
	// ErrJourneyExists is returned when a journey is initialized twice.
	ErrJourneyExists = errors.New("journey already exists")
	// ErrTaskNotFound is returned for unknown task IDs.
	ErrTaskNotFound = errors.New("task not found")
	// ErrUnauthorized is returned when a user touches another user's task.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidTaskTransition is returned when a task status would move backwards.
	ErrInvalidTaskTransition = errors.New("invalid task status transition")
)

// InputValidationError lists the questionnaire fields rejected before scoring.
type InputValidationError struct {
	Fields []string
}

func (e *InputValidationError) Error() string {
	return fmt.Sprintf("invalid questionnaire submission: %s", strings.Join(e.Fields, ", "))
}
