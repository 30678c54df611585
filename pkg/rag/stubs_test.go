package rag

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/xhad/ragask/internal/models"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

type stubChat struct {
	answers []string
	errs    map[int]error // by call index
	calls   [][]models.Message
}

func (s *stubChat) Complete(_ context.Context, messages []models.Message) (string, error) {
	i := len(s.calls)
	s.calls = append(s.calls, append([]models.Message(nil), messages...))
	if err := s.errs[i]; err != nil {
		return "", err
	}
	return s.answers[i%len(s.answers)], nil
}

func (s *stubChat) Model() string { return "stub" }

type stubEmbedder struct {
	vector models.Embedding
	err    error
	got    [][]string
}

func (s *stubEmbedder) CreateEmbedding(_ context.Context, texts []string) ([]models.Embedding, error) {
	s.got = append(s.got, texts)
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.Embedding, len(texts))
	for i := range texts {
		out[i] = s.vector
	}
	return out, nil
}

// keywordEmbedder places a text on three axes: curling, gold, norway.
type keywordEmbedder struct {
	calls int
	err   error
	errAt int
}

func (k *keywordEmbedder) CreateEmbedding(_ context.Context, texts []string) ([]models.Embedding, error) {
	k.calls++
	if k.err != nil && k.calls == k.errAt {
		return nil, k.err
	}
	out := make([]models.Embedding, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		v := make(models.Embedding, 3)
		for j, word := range []string{"curling", "gold", "norway"} {
			if strings.Contains(lower, word) {
				v[j] = 1
			}
		}
		out[i] = v
	}
	return out, nil
}

type stubStore struct {
	rows      []models.ScoredResult
	err       error
	gotVector models.Embedding
	gotLimit  int
	closed    bool
}

func (s *stubStore) Query(_ context.Context, embedding models.Embedding, limit int) ([]models.ScoredResult, error) {
	s.gotVector = embedding
	s.gotLimit = limit
	return s.rows, s.err
}

func (s *stubStore) Close() error {
	s.closed = true
	return nil
}

type fixedTokens struct{ n int }

func (f fixedTokens) CountMessages(messages []models.Message) int { return f.n * len(messages) }

type stubScraper struct {
	docs []models.Document
	err  error
}

func (s *stubScraper) Scrape(context.Context, string) ([]models.Document, error) {
	return s.docs, s.err
}

type recordingWriter struct {
	ensured bool
	batches [][]models.DocumentRow
	err     error
}

func (w *recordingWriter) EnsureSchema(context.Context) error {
	w.ensured = true
	return nil
}

func (w *recordingWriter) Insert(_ context.Context, rows []models.DocumentRow) error {
	if w.err != nil {
		return w.err
	}
	w.batches = append(w.batches, rows)
	return nil
}
