// lexgraph is the CLI for the legal document-intelligence extraction
// engine: it sizes, routes, chunks and extracts entities and
// relationships from legal text against OpenAI-compatible LLM backends.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"lexgraph/internal/chunker"
	"lexgraph/internal/config"
	"lexgraph/internal/extract"
	"lexgraph/internal/logging"
	"lexgraph/internal/router"
	"lexgraph/internal/sizing"
	"lexgraph/internal/types"
)

var (
	// Global flags
	verbose    bool
	configPath string
	logDir     string

	// Extract flags
	docID         string
	relationships bool
	outputPath    string

	logger *zap.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "lexgraph",
	Short: "lexgraph - legal document intelligence extraction engine",
	Long: `lexgraph extracts typed entity spans and relationships from legal
documents (opinions, contracts, statutes, briefs) using a multi-wave
LLM pipeline with grammar-constrained JSON output.

Documents are sized and routed to a strategy (single pass, three or
four waves, or chunked waves for large inputs), and the merged result
is emitted as JSON.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg = config.Default()
		if configPath != "" {
			cfg, err = config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
		}
		cfg.ApplyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return err
		}

		return logging.Initialize(logDir, logging.Options{
			DebugMode: verbose && logDir != "",
			Level:     cfg.Logging.Level,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Run the full extraction pipeline on a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		id := docID
		if id == "" {
			id = args[0]
		}
		doc := types.NewDocument(id, string(text), nil)

		engine, err := extract.New(cfg)
		if err != nil {
			return err
		}
		defer engine.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("starting extraction",
			zap.String("document", id),
			zap.Int("chars", doc.CharLength),
			zap.Bool("relationships", relationships))

		res, err := engine.Extract(ctx, doc, extract.Options{ExtractRelationships: relationships})
		if err != nil {
			return err
		}
		logger.Info("extraction complete",
			zap.String("strategy", res.StrategyName),
			zap.Int("entities", len(res.Entities)),
			zap.Int("relationships", len(res.Relationships)),
			zap.Int("tokens", res.TokensUsed))
		for svc, s := range engine.Stats() {
			logger.Debug("backend client counters",
				zap.String("service", string(svc)),
				zap.Int64("requests", s.Requests),
				zap.Int64("retries", s.Retries),
				zap.Int64("failures", s.Failures),
				zap.Int64("tokens", s.TokensUsed))
		}

		return writeJSON(res)
	},
}

var routeCmd = &cobra.Command{
	Use:   "route <file>",
	Short: "Show the size profile and strategy a document would route to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		info := sizing.NewDetector(cfg.Sizing).Detect(string(text))
		decision := router.Route(info, relationships)
		return writeJSON(map[string]interface{}{
			"size":      info,
			"strategy":  decision.Strategy.String(),
			"rationale": decision.Rationale,
		})
	},
}

var chunkCmd = &cobra.Command{
	Use:   "chunk <file>",
	Short: "Split a document into chunks without calling the backend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		c := chunker.New(cfg.Chunking, nil)
		chunks, stats := c.Split(string(text))
		logger.Info("chunked document",
			zap.Int("chunks", stats.TotalChunks),
			zap.String("subtype", string(chunker.DetectSubtype(string(text)))))
		return writeJSON(map[string]interface{}{
			"statistics": stats,
			"chunks":     chunks,
		})
	},
}

func writeJSON(v interface{}) error {
	out := os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Directory for categorized debug logs")
	rootCmd.PersistentFlags().StringVarP(&outputPath, "output", "o", "", "Write JSON output to file instead of stdout")

	extractCmd.Flags().StringVar(&docID, "id", "", "Document ID (default: file path)")
	extractCmd.Flags().BoolVarP(&relationships, "relationships", "r", false, "Extract relationships as well as entities")
	routeCmd.Flags().BoolVarP(&relationships, "relationships", "r", false, "Route as if relationships were requested")

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(chunkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
