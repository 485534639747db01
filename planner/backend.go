// Package planner turns a natural-language goal plus the registry's tool
// schemas into an executable Plan via an external reasoning backend.
package planner

import "context"

// CompletionRequest is a single-shot completion input.
type CompletionRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature *float64
}

// Backend produces a text completion from a reasoning model.
type Backend interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
