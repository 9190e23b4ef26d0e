package completion

import (
	"context"
	"errors"
)

// Completer turns a prompt into a free-form text answer.
type Completer interface {
	// Complete sends prompt to the provider and returns its text answer.
	Complete(ctx context.Context, prompt string) (string, error)

	// Name identifies the provider in logs, reports and metrics.
	Name() string
}

var (
	// ErrEmptyCompletion is returned when the provider answered without any text.
	ErrEmptyCompletion = errors.New("completion returned no text")

	// ErrEmptyPrompt is returned when Complete is called with an empty prompt.
	ErrEmptyPrompt = errors.New("prompt must not be empty")
)
