package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultQuestion        = "Who won the gold medal for curling in Olympics 2022?"
	DefaultSimilarityQuery = "curling gold medal"
	DefaultInstruction     = "Use the below articles on the 2022 Winter Olympics to answer the subsequent question. If the answer cannot be found in the articles, write 'I could not find an answer.'"
)

type Config struct {
	LLM struct {
		Provider       string        `yaml:"provider"`
		BaseURL        string        `yaml:"base_url"`
		APIKey         string        `yaml:"api_key"`
		ChatModel      string        `yaml:"chat_model"`
		EmbeddingModel string        `yaml:"embedding_model"`
		MaxTokens      int           `yaml:"max_tokens"`
		Temperature    float64       `yaml:"temperature"`
		MaxRetries     int           `yaml:"max_retries"`
		Timeout        time.Duration `yaml:"timeout"`
	} `yaml:"llm"`

	Database struct {
		Driver      string `yaml:"driver"`
		URL         string `yaml:"url"`
		Host        string `yaml:"host"`
		Port        int    `yaml:"port"`
		Name        string `yaml:"name"`
		User        string `yaml:"user"`
		Password    string `yaml:"password"`
		TableName   string `yaml:"table_name"`
		VectorDim   int    `yaml:"vector_dim"`
		BatchSize   int    `yaml:"batch_size"`
		SearchLimit int    `yaml:"search_limit"`
		HNSWIndex   bool   `yaml:"hnsw_index"`
	} `yaml:"database"`

	Pipeline struct {
		Question        string `yaml:"question"`
		SimilarityQuery string `yaml:"similarity_query"`
		Instruction     string `yaml:"instruction"`
	} `yaml:"pipeline"`

	Scraper struct {
		MaxDepth          int      `yaml:"max_depth"`
		RateLimit         float64  `yaml:"rate_limit"`
		IgnorePatterns    []string `yaml:"ignore_patterns"`
		AllowedExtensions []string `yaml:"allowed_extensions"`
	} `yaml:"scraper"`

	Processor struct {
		ChunkSize       int      `yaml:"chunk_size"`
		ChunkOverlap    int      `yaml:"chunk_overlap"`
		MinChunkLength  int      `yaml:"min_chunk_length"`
		RemoveStopwords bool     `yaml:"remove_stopwords"`
		CustomStopwords []string `yaml:"custom_stopwords"`
		Lowercase       bool     `yaml:"lowercase"`
	} `yaml:"processor"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	UI struct {
		Progress bool `yaml:"progress"`
	} `yaml:"ui"`
}

func LoadConfig(path string) (*Config, error) {
	loadDotEnv(".env")

	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/ragask/config.yaml"),
			"/etc/ragask/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := Config{}
	config.UI.Progress = true
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	config.UI.Progress = true
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

// loadDotEnv populates the process environment from a dotenv file. Variables
// already set in the environment win.
func loadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: could not load %s: %v\n", path, err)
	}
}

func applyDefaults(config *Config) {
	if config.LLM.Provider == "" {
		config.LLM.Provider = "openai"
	}
	chatModel, embeddingModel := defaultModels(config.LLM.Provider)
	if config.LLM.ChatModel == "" {
		config.LLM.ChatModel = chatModel
	}
	if config.LLM.EmbeddingModel == "" {
		config.LLM.EmbeddingModel = embeddingModel
	}
	if config.LLM.BaseURL == "" && config.LLM.Provider == "ollama" {
		config.LLM.BaseURL = ollamaURL()
	}
	if config.LLM.Timeout == 0 {
		config.LLM.Timeout = 60 * time.Second
	}

	if config.Database.Driver == "" {
		config.Database.Driver = "singlestore"
	}
	if config.Database.Port == 0 {
		config.Database.Port = 3306
	}
	if config.Database.Name == "" {
		config.Database.Name = "winter_wikipedia"
	}
	if config.Database.User == "" {
		config.Database.User = "admin"
	}
	if config.Database.TableName == "" {
		config.Database.TableName = "winter_olympics_2022"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 1536
	}
	if config.Database.BatchSize == 0 {
		config.Database.BatchSize = 100
	}
	if config.Database.SearchLimit == 0 {
		config.Database.SearchLimit = 5
	}

	if config.Pipeline.Question == "" {
		config.Pipeline.Question = DefaultQuestion
	}
	if config.Pipeline.SimilarityQuery == "" {
		config.Pipeline.SimilarityQuery = DefaultSimilarityQuery
	}
	if config.Pipeline.Instruction == "" {
		config.Pipeline.Instruction = DefaultInstruction
	}

	if config.Scraper.MaxDepth == 0 {
		config.Scraper.MaxDepth = 1
	}
	if config.Scraper.RateLimit == 0 {
		config.Scraper.RateLimit = 2.0
	}
	if len(config.Scraper.AllowedExtensions) == 0 {
		config.Scraper.AllowedExtensions = []string{".html", ".htm", "/", ""}
	}

	if config.Processor.ChunkSize == 0 {
		config.Processor.ChunkSize = 1000
	}
	if config.Processor.ChunkOverlap == 0 {
		config.Processor.ChunkOverlap = 200
	}
	if config.Processor.MinChunkLength == 0 {
		config.Processor.MinChunkLength = 100
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "console"
	}
}

const defaultOllamaURL = "http://localhost:11434"

// ollamaURL is the Ollama server used when the ollama provider has no
// base_url. OLLAMA_BASE_URL only ever applies to that provider.
func ollamaURL() string {
	if u := os.Getenv("OLLAMA_BASE_URL"); u != "" {
		return u
	}
	return defaultOllamaURL
}

func defaultModels(provider string) (chat, embedding string) {
	if provider == "ollama" {
		return "mistral", "nomic-embed-text:latest"
	}
	return "gpt-3.5-turbo", "text-embedding-ada-002"
}

// SetProvider switches the LLM provider. Model names and base URL that were
// filled in as defaults for the previous provider are replaced by the new
// provider's defaults; explicitly configured values are kept.
func (c *Config) SetProvider(provider string) {
	if provider == c.LLM.Provider {
		return
	}

	chat, embedding := defaultModels(c.LLM.Provider)
	if c.LLM.ChatModel == chat {
		c.LLM.ChatModel = ""
	}
	if c.LLM.EmbeddingModel == embedding {
		c.LLM.EmbeddingModel = ""
	}
	if c.LLM.Provider == "ollama" && c.LLM.BaseURL == ollamaURL() {
		c.LLM.BaseURL = ""
	}

	c.LLM.Provider = provider
	applyDefaults(c)
}

func mergeWithEnv(config *Config) {
	if token := os.Getenv("OPENAI_TOKEN"); token != "" {
		config.LLM.APIKey = token
	}
	if host := os.Getenv("S2_HOST"); host != "" {
		config.Database.Host = host
	}
	if password := os.Getenv("S2_PASSWORD"); password != "" {
		config.Database.Password = password
	}
	if port := os.Getenv("S2_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Database.Port = p
		}
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
}
