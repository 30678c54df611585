package llm

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
	"github.com/xhad/ragask/internal/models"
	"github.com/xhad/ragask/internal/types"
)

const fallbackEncoding = "cl100k_base"

// TokenCounter estimates prompt sizes with the tokenizer of a chat model.
type TokenCounter struct {
	tkm *tiktoken.Tiktoken
}

var _ types.TokenCounter = (*TokenCounter)(nil)

// NewTokenCounter loads the encoding for model, falling back to cl100k_base
// for models tiktoken does not know (e.g. local Ollama models).
func NewTokenCounter(model string) (*TokenCounter, error) {
	tkm, err := tiktoken.EncodingForModel(model)
	if err != nil {
		tkm, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("failed to load token encoding: %w", err)
		}
	}
	return &TokenCounter{tkm: tkm}, nil
}

// CountMessages follows the chat accounting used by OpenAI: each message costs
// three tokens of framing plus its role and content, and the reply is primed
// with three more.
func (tc *TokenCounter) CountMessages(messages []models.Message) int {
	const perMessage, replyPriming = 3, 3

	total := replyPriming
	for _, m := range messages {
		total += perMessage
		total += len(tc.tkm.Encode(string(m.Role), nil, nil))
		total += len(tc.tkm.Encode(m.Content, nil, nil))
	}
	return total
}
