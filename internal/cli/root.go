// Package cli provides the command-line interface for sessionscout.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ashahq/sessionscout/internal/config"
	"github.com/ashahq/sessionscout/internal/corpus"
	"github.com/ashahq/sessionscout/internal/embedding"
	"github.com/ashahq/sessionscout/internal/index"
	"github.com/ashahq/sessionscout/internal/memory"
	"github.com/ashahq/sessionscout/internal/metrics"
	"github.com/ashahq/sessionscout/internal/service"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	cfgFile string
	verbose bool
	userID  string

	cfg        config.Config
	logCleanup func() error

	sessions    corpus.Corpus
	mongoCorpus *corpus.Mongo
	vecIndex    *index.Index
	assistant   *service.Assistant
	collector   = metrics.NewCollector()
)

const contextPurgeInterval = 5 * time.Minute

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sessionscout",
	Short: "Conversational session discovery for career guidance",
	Long: `Sessionscout finds career guidance sessions, workshops, and events from
plain-language questions like "sessions about interviewing by Marissa next
month", keeps per-user conversation context so followups such as "when is
that one?" resolve naturally, and answers general career questions with a
configurable chat model.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		if cfgFile != "" {
			var err error
			if cfg, err = config.LoadFile(cfg, cfgFile); err != nil {
				return err
			}
		}
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}

		logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		slog.SetDefault(logger)
		logCleanup = cleanup

		ctx := context.Background()
		if err := openCorpus(ctx); err != nil {
			return err
		}

		if embedder, err := embedding.New(cfg); err != nil {
			slog.Warn("embedding backend unavailable, running keyword-only", "error", err)
		} else {
			vecIndex = index.New(embedder, index.Options{
				BatchSize:       cfg.EmbedBatchSize,
				CacheDir:        cfg.CacheDir,
				RebuildInterval: cfg.RebuildInterval,
			})
		}

		store := memory.NewStore(memory.WithLimits(cfg.ContextMaxSessions, cfg.ContextTTL))

		opts := service.Options{
			MaxResults:           cfg.MaxResults,
			RebuildInterval:      cfg.RebuildInterval,
			ContextPurgeInterval: contextPurgeInterval,
			Metrics:              collector,
			Logger:               slog.Default(),
		}
		if vecIndex != nil {
			assistant = service.NewAssistant(sessions, vecIndex, store, opts)
		} else {
			assistant = service.NewAssistant(sessions, nil, store, opts)
		}
		return assistant.Init(ctx)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if assistant != nil {
			assistant.Shutdown()
		}
		if mongoCorpus != nil {
			if err := mongoCorpus.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close corpus: %v\n", err)
			}
		}
		if logCleanup != nil {
			_ = logCleanup()
		}
	},
}

// openCorpus connects the configured session source: a local JSON file when
// one is set, MongoDB otherwise.
func openCorpus(ctx context.Context) error {
	if cfg.SessionsFile != "" {
		mem, err := corpus.LoadFile(cfg.SessionsFile)
		if err != nil {
			return fmt.Errorf("load sessions file: %w", err)
		}
		sessions = mem
		return nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	mongo, err := corpus.NewMongo(connectCtx, corpus.MongoConfig{
		URI:        cfg.MongoURI,
		Database:   cfg.MongoDatabase,
		Collection: cfg.MongoCollection,
	})
	if err != nil {
		return fmt.Errorf("connect to session corpus: %w", err)
	}
	mongoCorpus = mongo
	sessions = mongo
	return nil
}

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", defaultUser(), "user ID for conversation context")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(reindexCmd)
}

// exitWithError prints an error message and exits with code 1.
func exitWithError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
