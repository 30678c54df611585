package llm

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"github.com/xhad/ragask/internal/models"
	"github.com/xhad/ragask/internal/types"
)

const (
	DefaultChatModel      = "gpt-3.5-turbo"
	DefaultEmbeddingModel = "text-embedding-ada-002"
	DefaultTimeout        = 60 * time.Second
)

// OpenAIClient talks to the OpenAI API (or a compatible endpoint) with the
// official SDK. It serves both chat completions and embeddings.
type OpenAIClient struct {
	client         openai.Client
	chatModel      string
	embeddingModel string
	temperature    float64
	maxTokens      int
}

var (
	_ types.ChatClient = (*OpenAIClient)(nil)
	_ types.Embedder   = (*OpenAIClient)(nil)
)

type openAIOptions struct {
	baseURL        string
	chatModel      string
	embeddingModel string
	temperature    float64
	maxTokens      int
	maxRetries     int
	timeout        time.Duration
	httpClient     *http.Client
}

// OpenAIOption configures an OpenAIClient.
type OpenAIOption func(*openAIOptions)

func WithBaseURL(url string) OpenAIOption {
	return func(o *openAIOptions) { o.baseURL = url }
}

func WithChatModel(model string) OpenAIOption {
	return func(o *openAIOptions) { o.chatModel = model }
}

func WithEmbeddingModel(model string) OpenAIOption {
	return func(o *openAIOptions) { o.embeddingModel = model }
}

func WithTemperature(t float64) OpenAIOption {
	return func(o *openAIOptions) { o.temperature = t }
}

func WithMaxTokens(n int) OpenAIOption {
	return func(o *openAIOptions) { o.maxTokens = n }
}

// WithMaxRetries sets the SDK retry count. The default is 0: one attempt.
func WithMaxRetries(n int) OpenAIOption {
	return func(o *openAIOptions) { o.maxRetries = n }
}

func WithTimeout(d time.Duration) OpenAIOption {
	return func(o *openAIOptions) { o.timeout = d }
}

func WithHTTPClient(c *http.Client) OpenAIOption {
	return func(o *openAIOptions) { o.httpClient = c }
}

// NewOpenAIClient creates a client authenticated with apiKey.
func NewOpenAIClient(apiKey string, opts ...OpenAIOption) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	o := openAIOptions{
		chatModel:      DefaultChatModel,
		embeddingModel: DefaultEmbeddingModel,
		timeout:        DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(o.maxRetries),
		option.WithRequestTimeout(o.timeout),
	}
	if o.baseURL != "" {
		base := o.baseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		reqOpts = append(reqOpts, option.WithBaseURL(base))
	}
	if o.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(o.httpClient))
	}

	return &OpenAIClient{
		client:         openai.NewClient(reqOpts...),
		chatModel:      o.chatModel,
		embeddingModel: o.embeddingModel,
		temperature:    o.temperature,
		maxTokens:      o.maxTokens,
	}, nil
}

func (c *OpenAIClient) Model() string {
	return c.chatModel
}

// Complete sends the conversation and returns the first choice's content.
func (c *OpenAIClient) Complete(ctx context.Context, messages []models.Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.chatModel),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)),
	}
	for _, m := range messages {
		params.Messages = append(params.Messages, messageParam(m))
	}
	if c.temperature > 0 {
		params.Temperature = openai.Float(c.temperature)
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.maxTokens))
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", ErrNoChoices
	}

	return completion.Choices[0].Message.Content, nil
}

// CreateEmbedding returns one vector per input text, in input order.
func (c *OpenAIClient) CreateEmbedding(ctx context.Context, texts []string) ([]models.Embedding, error) {
	if len(texts) == 0 {
		return nil, ErrNoInput
	}

	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrEmbeddingCount, len(resp.Data), len(texts))
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	embeddings := make([]models.Embedding, len(data))
	for i, d := range data {
		vector := make(models.Embedding, len(d.Embedding))
		for j, v := range d.Embedding {
			vector[j] = float32(v)
		}
		embeddings[i] = vector
	}
	return embeddings, nil
}

func messageParam(m models.Message) openai.ChatCompletionMessageParamUnion {
	switch m.Role {
	case models.RoleUser:
		return openai.UserMessage(m.Content)
	case models.RoleAssistant:
		return openai.AssistantMessage(m.Content)
	default:
		return openai.SystemMessage(m.Content)
	}
}
