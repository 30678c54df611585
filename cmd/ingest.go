package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhad/ragask/pkg/llm"
	"github.com/xhad/ragask/pkg/processor"
	"github.com/xhad/ragask/pkg/rag"
	"github.com/xhad/ragask/pkg/scraper"
	"github.com/xhad/ragask/pkg/store"
	"go.uber.org/zap"
)

var ingestOpts struct {
	url         string
	maxDepth    int
	createTable bool
	metricsFile string
	noProgress  bool
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Scrape a site and store embedded chunks in the vector store",
	RunE:  runIngest,
}

func init() {
	f := ingestCmd.Flags()
	f.StringVar(&ingestOpts.url, "url", "", "start page to scrape")
	f.IntVar(&ingestOpts.maxDepth, "max-depth", 0, "link depth to follow (overrides scraper.max_depth)")
	f.BoolVar(&ingestOpts.createTable, "create-table", false, "create the table if it does not exist")
	f.StringVar(&ingestOpts.metricsFile, "metrics-file", "", "write Prometheus ingest metrics to this textfile")
	f.BoolVar(&ingestOpts.noProgress, "no-progress", false, "disable progress bars")
	ingestCmd.MarkFlagRequired("url")
}

func runIngest(cmd *cobra.Command, _ []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("max-depth") {
		cfg.Scraper.MaxDepth = ingestOpts.maxDepth
	}
	if err := validate(cfg); err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	clients, err := llm.New(llmConfig(cfg, logger))
	if err != nil {
		return err
	}

	db, err := store.Open(cmd.Context(), storeConfig(cfg, logger))
	if err != nil {
		return err
	}
	defer db.Close()

	var metrics *rag.Metrics
	if ingestOpts.metricsFile != "" {
		metrics = rag.NewMetrics()
	}

	progress := newIngestProgress(os.Stderr, cfg.UI.Progress && !ingestOpts.noProgress && isTerminal(os.Stderr))

	in := &rag.Ingester{
		Scraper: scraper.New(scraper.Config{
			MaxDepth:          cfg.Scraper.MaxDepth,
			RateLimit:         cfg.Scraper.RateLimit,
			IgnorePatterns:    cfg.Scraper.IgnorePatterns,
			AllowedExtensions: cfg.Scraper.AllowedExtensions,
			Timeout:           cfg.LLM.Timeout,
			Logger:            logger,
			OnProgress:        progress.page,
		}),
		Processor: processor.New(processor.Config{
			ChunkSize:       cfg.Processor.ChunkSize,
			ChunkOverlap:    cfg.Processor.ChunkOverlap,
			MinChunkLength:  cfg.Processor.MinChunkLength,
			RemoveStopwords: cfg.Processor.RemoveStopwords,
			CustomStopwords: cfg.Processor.CustomStopwords,
			Lowercase:       cfg.Processor.Lowercase,
		}),
		Embedder:    clients.Embedder,
		Writer:      db,
		BatchSize:   cfg.Database.BatchSize,
		CreateTable: ingestOpts.createTable,
		Logger:      logger,
		Metrics:     metrics,
		OnBatch:     progress.batch,
	}

	n, err := in.Ingest(cmd.Context(), ingestOpts.url)
	progress.finish()

	if metrics != nil {
		if werr := metrics.WriteToTextfile(ingestOpts.metricsFile); werr != nil {
			logger.Error("failed to write metrics", zap.String("path", ingestOpts.metricsFile), zap.Error(werr))
		}
	}
	if err != nil {
		return err
	}

	logger.Info("ingest complete", zap.String("url", ingestOpts.url), zap.Int("rows", n))
	color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Stored %d chunks from %s\n", n, ingestOpts.url)
	return nil
}
