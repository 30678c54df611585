package processor

import (
	"strings"
	"unicode"

	"github.com/xhad/ragask/internal/models"
	"github.com/xhad/ragask/internal/types"
)

const DefaultChunkSize = 1000

// Config controls chunking. Sizes are in bytes. A zero MinChunkLength keeps
// every chunk; a zero ChunkOverlap starts each chunk fresh.
type Config struct {
	ChunkSize       int
	ChunkOverlap    int
	MinChunkLength  int
	RemoveStopwords bool
	CustomStopwords []string
	Lowercase       bool
}

// Processor normalises document text and splits it into sentence-aligned
// chunks suitable for embedding.
type Processor struct {
	config    Config
	stopwords map[string]struct{}
}

var _ types.Processor = (*Processor)(nil)

func New(config Config) *Processor {
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkSize
	}
	if config.ChunkOverlap < 0 || config.ChunkOverlap >= config.ChunkSize {
		config.ChunkOverlap = config.ChunkSize / 5
	}

	p := &Processor{config: config}
	if config.RemoveStopwords {
		p.stopwords = make(map[string]struct{}, len(stopwords)+len(config.CustomStopwords))
		for _, w := range stopwords {
			p.stopwords[w] = struct{}{}
		}
		for _, w := range config.CustomStopwords {
			p.stopwords[strings.ToLower(w)] = struct{}{}
		}
	}
	return p
}

func (p *Processor) Process(docs []models.Document) ([]models.ProcessedDocument, error) {
	processed := make([]models.ProcessedDocument, 0, len(docs))
	for _, doc := range docs {
		processed = append(processed, models.ProcessedDocument{
			Document: doc,
			Chunks:   p.chunk(p.normalize(doc.Content)),
		})
	}
	return processed, nil
}

// normalize collapses whitespace and applies the optional case folding and
// stopword filtering.
func (p *Processor) normalize(text string) string {
	if p.config.Lowercase {
		text = strings.ToLower(text)
	}

	words := strings.Fields(text)
	if p.stopwords != nil {
		kept := words[:0]
		for _, w := range words {
			bare := strings.ToLower(strings.TrimFunc(w, unicode.IsPunct))
			if _, stop := p.stopwords[bare]; !stop {
				kept = append(kept, w)
			}
		}
		words = kept
	}
	return strings.Join(words, " ")
}

func (p *Processor) chunk(text string) []string {
	var (
		chunks  []string
		current strings.Builder
		fresh   bool // current holds text not yet emitted
	)

	flush := func() {
		c := strings.TrimSpace(current.String())
		if len(c) >= p.config.MinChunkLength && c != "" {
			chunks = append(chunks, c)
		}
		current.Reset()
		if tail := overlapTail(c, p.config.ChunkOverlap); tail != "" {
			current.WriteString(tail)
			current.WriteByte(' ')
		}
		fresh = false
	}

	for _, sentence := range splitSentences(text) {
		for _, piece := range splitLong(sentence, p.config.ChunkSize) {
			if fresh && current.Len()+len(piece) > p.config.ChunkSize {
				flush()
			}
			current.WriteString(piece)
			current.WriteByte(' ')
			fresh = true
		}
	}
	if fresh {
		flush()
	}

	return chunks
}

// overlapTail returns roughly the last n bytes of s, starting on a word
// boundary.
func overlapTail(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return ""
	}
	start := len(s) - n
	i := strings.IndexByte(s[start:], ' ')
	if i < 0 {
		return ""
	}
	return s[start+i+1:]
}

// splitSentences cuts after '.', '!' or '?' when followed by a space or the
// end of text. Input is expected to be whitespace-normalised.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			if i+1 == len(text) || text[i+1] == ' ' {
				if s := strings.TrimSpace(text[start : i+1]); s != "" {
					sentences = append(sentences, s)
				}
				start = i + 1
			}
		}
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

// splitLong breaks a sentence longer than size at word boundaries. A single
// word longer than size is kept whole.
func splitLong(sentence string, size int) []string {
	if len(sentence) <= size {
		return []string{sentence}
	}

	var (
		pieces []string
		b      strings.Builder
	)
	for _, w := range strings.Fields(sentence) {
		if b.Len() > 0 && b.Len()+1+len(w) > size {
			pieces = append(pieces, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w)
	}
	if b.Len() > 0 {
		pieces = append(pieces, b.String())
	}
	return pieces
}

var stopwords = []string{
	"a", "an", "and", "are", "as", "at", "be", "by", "for",
	"from", "has", "he", "in", "is", "it", "its", "of", "on",
	"that", "the", "to", "was", "were", "will", "with",
}
