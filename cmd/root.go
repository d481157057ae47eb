package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/abhisek/pdfquiz/internal/blob"
	"github.com/abhisek/pdfquiz/internal/config"
	"github.com/abhisek/pdfquiz/internal/ingest"
	"github.com/abhisek/pdfquiz/internal/llm"
	"github.com/abhisek/pdfquiz/internal/logging"
	"github.com/abhisek/pdfquiz/internal/quizgen"
	"github.com/abhisek/pdfquiz/internal/rotation"
	"github.com/abhisek/pdfquiz/internal/store"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pdfquiz",
	Short: "Quiz yourself on your PDFs",
	Long: "pdfquiz turns PDF documents into multiple-choice question sets with an LLM\n" +
		"and runs timed quizzes over them in the terminal or over HTTP.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuiz(cmd, "", 0)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides PDFQUIZ_DB env var)")
	rootCmd.PersistentFlags().String("env-file", ".env", "Load environment variables from this file if it exists")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (overrides PDFQUIZ_LOG_LEVEL)")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(quizCmd)
	rootCmd.AddCommand(docsCmd)
	rootCmd.AddCommand(attemptsCmd)
	rootCmd.AddCommand(rotationCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// env is the configuration and open resources shared by a command.
type env struct {
	cfg    config.Config
	log    *slog.Logger
	store  *store.Store
	closer []func() error
}

// envOptions control how a command's env is set up.
type envOptions struct {
	// logFile sends logs to the configured log file instead of stderr,
	// for commands that own the terminal.
	logFile bool
}

// setup loads configuration with flag overrides, installs the logger and
// opens the store. Callers must Close the env.
func setup(cmd *cobra.Command, opts envOptions) (*env, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.DBPath = p
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	e := &env{cfg: cfg}

	var w io.Writer = os.Stderr
	if opts.logFile {
		f, err := logging.OpenFile(cfg.LogFile)
		if err != nil {
			return nil, err
		}
		e.closer = append(e.closer, f.Close)
		w = f
	}
	if e.log, err = logging.Setup(w, cfg.LogLevel, cfg.LogFormat); err != nil {
		e.Close()
		return nil, err
	}

	if err := store.EnsureDir(cfg.DBPath); err != nil {
		e.Close()
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	e.store, err = store.Open(cfg.DBPath, store.WithTemplateTTL(cfg.TemplateTTL))
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	e.closer = append(e.closer, e.store.Close)
	return e, nil
}

// Close releases resources in reverse order of acquisition.
func (e *env) Close() {
	for i := len(e.closer) - 1; i >= 0; i-- {
		if err := e.closer[i](); err != nil && e.log != nil {
			e.log.Warn("close failed", "error", err)
		}
	}
	e.closer = nil
}

// blobs returns the S3 store when S3 is configured, else the local one.
func (e *env) blobs(ctx context.Context) (blob.Store, error) {
	b, err := blob.New(ctx, e.cfg.S3, e.cfg.BlobDir)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	return b, nil
}

// selector builds the rotation selector on the configured backend.
func (e *env) selector(ctx context.Context) (*rotation.Selector, error) {
	var kv rotation.KV
	switch e.cfg.Rotation.Backend {
	case config.BackendMemory:
		kv = rotation.NewMemoryKV()
	case config.BackendRedis:
		client, err := rotation.NewRedisClient(ctx, e.cfg.Rotation.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		e.closer = append(e.closer, client.Close)
		kv = rotation.NewRedisKV(client)
	default:
		fkv, err := rotation.NewFileKV(e.cfg.Rotation.StateDir)
		if err != nil {
			return nil, fmt.Errorf("open rotation state: %w", err)
		}
		kv = fkv
	}
	return rotation.NewSelector(kv,
		rotation.WithResetRatio(e.cfg.Rotation.ResetRatio),
		rotation.WithLogger(e.log),
	), nil
}

// ingester wires the full ingest pipeline: LLM provider, generator, blob
// store and rotation.
func (e *env) ingester(ctx context.Context, sel *rotation.Selector) (*ingest.Service, error) {
	provider, err := llm.NewProvider(ctx, e.cfg.LLM, e.store.EventRepo())
	if err != nil {
		return nil, fmt.Errorf("LLM provider: %w", err)
	}
	blobs, err := e.blobs(ctx)
	if err != nil {
		return nil, err
	}
	gen := quizgen.New(provider, e.cfg.QuizGen(), e.log)
	return ingest.NewService(e.store.Documents(), e.store.Templates(), blobs, gen, sel, e.cfg.Ingest(), e.log), nil
}
