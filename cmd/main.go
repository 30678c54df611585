package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhad/ragask/pkg/config"
	"github.com/xhad/ragask/pkg/llm"
	"github.com/xhad/ragask/pkg/logging"
	"github.com/xhad/ragask/pkg/store"
	"go.uber.org/zap"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "ragask",
	Short: "Ask a language model, then ask again with context retrieved by vector similarity",
	Long: `ragask asks a chat model a question, retrieves the rows most similar to a
fixed query from a vector store, and asks the question again with those rows
as context.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or $HOME/.config/ragask/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "L", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json)")

	rootCmd.AddCommand(askCmd, ingestCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		var r *reportedError
		if !errors.As(err, &r) {
			fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		}
		os.Exit(1)
	}
}

// reportedError marks a failure that has already been logged.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// setup loads configuration and applies the persistent flags.
func setup() (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	return cfg, nil
}

func validate(cfg *config.Config) error {
	verrs := cfg.Validate()
	if len(verrs) == 0 {
		return nil
	}
	errs := make([]error, len(verrs))
	for i := range verrs {
		errs[i] = verrs[i]
	}
	return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	lc := logging.DefaultConfig()
	if cfg.Log.Level != "" {
		lc.Level = cfg.Log.Level
	}
	if cfg.Log.Format != "" {
		lc.Format = cfg.Log.Format
	}
	return logging.New(lc)
}

func llmConfig(cfg *config.Config, logger *zap.Logger) llm.ClientConfig {
	return llm.ClientConfig{
		Provider:       cfg.LLM.Provider,
		BaseURL:        cfg.LLM.BaseURL,
		APIKey:         cfg.LLM.APIKey,
		ChatModel:      cfg.LLM.ChatModel,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		Temperature:    cfg.LLM.Temperature,
		MaxTokens:      cfg.LLM.MaxTokens,
		MaxRetries:     cfg.LLM.MaxRetries,
		Timeout:        cfg.LLM.Timeout,
		Logger:         logger,
	}
}

func storeConfig(cfg *config.Config, logger *zap.Logger) store.Config {
	return store.Config{
		Driver:      cfg.Database.Driver,
		URL:         cfg.Database.URL,
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		Name:        cfg.Database.Name,
		User:        cfg.Database.User,
		Password:    cfg.Database.Password,
		TableName:   cfg.Database.TableName,
		VectorDim:   cfg.Database.VectorDim,
		SearchLimit: cfg.Database.SearchLimit,
		HNSWIndex:   cfg.Database.HNSWIndex,
		Logger:      logger,
	}
}
