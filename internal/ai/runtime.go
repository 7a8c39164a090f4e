package ai

import "context"

// Runtime is the minimal interface implemented by text generation backends.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// StreamRuntime is an optional extension that supports streaming output.
// Implementors invoke onDelta with each partial content chunk.
type StreamRuntime interface {
	GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(string)) error
}

// ModelLister is implemented by runtimes that can report installed models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Provider identifiers used for selection.
const (
	ProviderOllama = "ollama"
	ProviderLocal  = "local"
	// ProviderNone disables insight generation.
	ProviderNone = "none"
)
