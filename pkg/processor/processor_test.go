package processor_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/ragask/internal/models"
	"github.com/xhad/ragask/pkg/processor"
)

func process(t *testing.T, config processor.Config, content string) []string {
	t.Helper()
	p := processor.New(config)
	docs, err := p.Process([]models.Document{{ID: "doc-1", URL: "https://example.com", Content: content}})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-1", docs[0].ID)
	return docs[0].Chunks
}

func TestProcessChunking(t *testing.T) {
	tests := []struct {
		name    string
		config  processor.Config
		content string
		want    []string
	}{
		{
			name:    "sentences packed up to chunk size",
			config:  processor.Config{ChunkSize: 50, MinChunkLength: 10},
			content: "Sweden won gold.  Italy won mixed doubles.\n\nGreat Britain won the women's event.",
			want: []string{
				"Sweden won gold. Italy won mixed doubles.",
				"Great Britain won the women's event.",
			},
		},
		{
			name:    "overlap starts on a word boundary",
			config:  processor.Config{ChunkSize: 40, ChunkOverlap: 15},
			content: "alpha beta gamma delta. epsilon zeta eta theta. iota kappa lambda mu.",
			want: []string{
				"alpha beta gamma delta.",
				"gamma delta. epsilon zeta eta theta.",
				"eta theta. iota kappa lambda mu.",
			},
		},
		{
			name:    "long sentence split at words",
			config:  processor.Config{ChunkSize: 20},
			content: "aaaa bbbb cccc dddd eeee ffff gggg hhhh",
			want:    []string{"aaaa bbbb cccc dddd", "eeee ffff gggg hhhh"},
		},
		{
			name:    "short chunks dropped",
			config:  processor.Config{ChunkSize: 100, MinChunkLength: 30},
			content: "Too short.",
			want:    nil,
		},
		{
			name:    "empty content",
			config:  processor.Config{},
			content: "   ",
			want:    nil,
		},
		{
			name:    "stopwords removed",
			config:  processor.Config{RemoveStopwords: true, CustomStopwords: []string{"Curling"}},
			content: "The curling event was held in Beijing.",
			want:    []string{"event held Beijing."},
		},
		{
			name:    "lowercase",
			config:  processor.Config{Lowercase: true},
			content: "Mixed Doubles CURLING.",
			want:    []string{"mixed doubles curling."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, process(t, tt.config, tt.content))
		})
	}
}

func TestProcessChunksStayWithinSize(t *testing.T) {
	sentence := "The 2022 Winter Olympics curling tournaments were held at the Beijing National Aquatics Centre. "
	chunks := process(t, processor.Config{ChunkSize: 200}, strings.Repeat(sentence, 20))

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 200+40)
		assert.True(t, strings.HasSuffix(c, "."), c)
	}
}

func TestProcessKeepsDocumentOrder(t *testing.T) {
	p := processor.New(processor.Config{})
	docs, err := p.Process([]models.Document{
		{ID: "a", Content: "First page."},
		{ID: "b", Content: ""},
		{ID: "c", Content: "Third page."},
	})
	require.NoError(t, err)

	require.Len(t, docs, 3)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, []string{"First page."}, docs[0].Chunks)
	assert.Empty(t, docs[1].Chunks)
	assert.Equal(t, "c", docs[2].ID)
}
