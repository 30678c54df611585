package llm

import "errors"

var (
	// ErrAPIKeyNotSet is returned when a hosted provider is configured without a token.
	ErrAPIKeyNotSet = errors.New("API key not set: please set OPENAI_TOKEN")

	// ErrNoChoices is returned when a completion response carries no candidates.
	ErrNoChoices = errors.New("no completion choices returned")

	// ErrNoInput is returned when an embedding request has no texts.
	ErrNoInput = errors.New("no texts provided")

	// ErrEmbeddingCount is returned when the number of vectors differs from the number of inputs.
	ErrEmbeddingCount = errors.New("embedding count does not match input count")

	// ErrUnknownProvider is returned by New for an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown llm provider")
)
