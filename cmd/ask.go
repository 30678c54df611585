package main

import (
	"errors"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/xhad/ragask/pkg/llm"
	"github.com/xhad/ragask/pkg/rag"
	"github.com/xhad/ragask/pkg/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var askOpts struct {
	strict          bool
	metricsFile     string
	question        string
	similarityQuery string
	driver          string
	provider        string
	noProgress      bool
}

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask the question, retrieve context and ask again",
	Long: `Ask sends the configured question to the chat model and prints the answer.
It then embeds the similarity query, prints the closest rows from the vector
store and asks the question again with those rows as context.

A failure after the first answer is logged and, unless --strict is set, the
command still exits successfully.`,
	RunE: runAsk,
}

func init() {
	f := askCmd.Flags()
	f.BoolVar(&askOpts.strict, "strict", false, "exit non-zero when retrieval or the second question fails")
	f.StringVar(&askOpts.metricsFile, "metrics-file", "", "write Prometheus stage metrics to this textfile")
	f.StringVarP(&askOpts.question, "question", "q", "", "question to ask (overrides pipeline.question)")
	f.StringVar(&askOpts.similarityQuery, "similarity-query", "", "text embedded for retrieval (overrides pipeline.similarity_query)")
	f.StringVar(&askOpts.driver, "driver", "", "vector store driver: singlestore, postgres or sqlite")
	f.StringVar(&askOpts.provider, "provider", "", "LLM provider: openai, langchain-openai or ollama")
	f.BoolVar(&askOpts.noProgress, "no-progress", false, "disable progress spinners")
}

func runAsk(cmd *cobra.Command, _ []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.SetProvider(askOpts.provider)
	}
	if flags.Changed("driver") {
		cfg.Database.Driver = askOpts.driver
	}
	if askOpts.question != "" {
		cfg.Pipeline.Question = askOpts.question
	}
	if askOpts.similarityQuery != "" {
		cfg.Pipeline.SimilarityQuery = askOpts.similarityQuery
	}
	if err := validate(cfg); err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()
	logger = logger.With(zap.String("run_id", uuid.NewString()))

	clients, err := llm.New(llmConfig(cfg, logger))
	if err != nil {
		return err
	}

	db := store.NewLazy(storeConfig(cfg, logger))
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("failed to close store", zap.Error(err))
		}
	}()

	var metrics *rag.Metrics
	if askOpts.metricsFile != "" {
		metrics = rag.NewMetrics()
	}

	o := &rag.Orchestrator{
		Chat:            clients.Chat,
		Embedder:        clients.Embedder,
		Store:           db,
		Metrics:         metrics,
		Logger:          logger,
		Out:             cmd.OutOrStdout(),
		Question:        cfg.Pipeline.Question,
		SimilarityQuery: cfg.Pipeline.SimilarityQuery,
		Instruction:     cfg.Pipeline.Instruction,
		Limit:           cfg.Database.SearchLimit,
	}
	// Loading an encoding may download it, so only pay for it when asked.
	if logger.Core().Enabled(zapcore.DebugLevel) {
		if counter, err := llm.NewTokenCounter(cfg.LLM.ChatModel); err == nil {
			o.Tokens = counter
		} else {
			logger.Debug("token counting disabled", zap.Error(err))
		}
	}
	if cfg.UI.Progress && !askOpts.noProgress && isTerminal(os.Stderr) {
		o.OnStage = stageSpinners(os.Stderr)
	}

	logger.Info("starting run",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", clients.Chat.Model()),
		zap.String("driver", cfg.Database.Driver))

	_, runErr := o.Run(cmd.Context())

	if metrics != nil {
		if err := metrics.WriteToTextfile(askOpts.metricsFile); err != nil {
			logger.Error("failed to write metrics", zap.String("path", askOpts.metricsFile), zap.Error(err))
		}
	}

	if runErr != nil {
		var se *rag.StageError
		if errors.As(runErr, &se) && se.Recoverable() && !askOpts.strict {
			return nil
		}
		return &reportedError{err: runErr}
	}
	return nil
}
