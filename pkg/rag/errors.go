package rag

import (
	"errors"
	"fmt"
)

// Stage names one step of a run.
type Stage string

const (
	StageInitialChat   Stage = "initial-chat"
	StageEmbed         Stage = "embed"
	StageRetrieve      Stage = "retrieve"
	StageAugmentedChat Stage = "augmented-chat"

	// StageIngest covers the scrape, chunk, embed and insert steps of an
	// ingestion.
	StageIngest Stage = "ingest"
)

// ErrNoEmbedding is returned when the embedder answers with no vector.
var ErrNoEmbedding = errors.New("embedding client returned no vector")

// StageError records which step of a run failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Recoverable reports whether the run could still finish with a partial
// result. Only the initial question is required.
func (e *StageError) Recoverable() bool {
	return e.Stage != StageInitialChat
}

// StageOf returns the stage carried by err, if any.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}

func stageErr(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}
