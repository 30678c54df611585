package llm

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tmc/langchaingo/llms/ollama"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
	"github.com/xhad/ragask/internal/types"
	"github.com/xhad/ragask/pkg/logging"
	"go.uber.org/zap"
)

const (
	ProviderOpenAI          = "openai"
	ProviderLangChainOpenAI = "langchain-openai"
	ProviderOllama          = "ollama"
)

// ClientConfig selects and configures a provider.
type ClientConfig struct {
	Provider       string
	BaseURL        string
	APIKey         string
	ChatModel      string
	EmbeddingModel string
	Temperature    float64
	MaxTokens      int
	MaxRetries     int
	Timeout        time.Duration
	Logger         *zap.Logger
}

// Clients bundles the chat and embedding halves of a provider.
type Clients struct {
	Chat     types.ChatClient
	Embedder types.Embedder
}

// New builds the chat and embedding clients for cfg.Provider.
func New(cfg ClientConfig) (*Clients, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}

	switch cfg.Provider {
	case ProviderOpenAI, "":
		client, err := NewOpenAIClient(cfg.APIKey,
			WithBaseURL(cfg.BaseURL),
			WithChatModel(cfg.ChatModel),
			WithEmbeddingModel(cfg.EmbeddingModel),
			WithTemperature(cfg.Temperature),
			WithMaxTokens(cfg.MaxTokens),
			WithMaxRetries(cfg.MaxRetries),
			WithTimeout(cfg.Timeout),
		)
		if err != nil {
			return nil, err
		}
		return &Clients{Chat: client, Embedder: client}, nil

	case ProviderLangChainOpenAI:
		if cfg.APIKey == "" {
			return nil, ErrAPIKeyNotSet
		}
		httpClient := newHTTPClient(cfg.MaxRetries, cfg.Timeout, cfg.Logger)
		httpClient.Transport = &indexOrder{next: httpClient.Transport}
		options := []lcopenai.Option{
			lcopenai.WithHTTPClient(httpClient),
			lcopenai.WithModel(cfg.ChatModel),
			lcopenai.WithEmbeddingModel(cfg.EmbeddingModel),
			lcopenai.WithToken(cfg.APIKey),
		}
		if cfg.BaseURL != "" {
			options = append(options, lcopenai.WithBaseURL(cfg.BaseURL))
		}
		model, err := lcopenai.New(options...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LLM: %w", err)
		}
		chat, err := NewChatEngine(model, ChatConfig{
			Model:       cfg.ChatModel,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		return &Clients{Chat: chat, Embedder: NewEmbedder(model, cfg.EmbeddingModel)}, nil

	case ProviderOllama:
		httpClient := newHTTPClient(cfg.MaxRetries, cfg.Timeout, cfg.Logger)
		chatModel, err := ollama.New(
			ollama.WithModel(cfg.ChatModel),
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithHTTPClient(httpClient),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LLM: %w", err)
		}
		// Ollama embeds with whatever model the client was created for.
		embedModel, err := ollama.New(
			ollama.WithModel(cfg.EmbeddingModel),
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithHTTPClient(httpClient),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedding model: %w", err)
		}
		chat, err := NewChatEngine(chatModel, ChatConfig{
			Model:       cfg.ChatModel,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		return &Clients{Chat: chat, Embedder: NewEmbedder(embedModel, cfg.EmbeddingModel)}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// newHTTPClient returns a standard client whose transport retries up to
// maxRetries times on connection errors and 5xx/429 responses. The last
// response is handed back as is, so the caller can read the API's error body.
func newHTTPClient(maxRetries int, timeout time.Duration, logger *zap.Logger) *http.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = maxRetries
	client.HTTPClient.Timeout = timeout
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.Logger = &leveledZap{logger: logging.OrNop(logger).Sugar()}
	return client.StandardClient()
}

// leveledZap adapts zap to retryablehttp.LeveledLogger.
type leveledZap struct {
	logger *zap.SugaredLogger
}

var _ retryablehttp.LeveledLogger = (*leveledZap)(nil)

func (l *leveledZap) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, keysAndValues...)
}

func (l *leveledZap) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Infow(msg, keysAndValues...)
}

func (l *leveledZap) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l *leveledZap) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warnw(msg, keysAndValues...)
}
