// Package config loads application settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/abhisek/pdfquiz/internal/blob"
	"github.com/abhisek/pdfquiz/internal/chunker"
	"github.com/abhisek/pdfquiz/internal/ingest"
	"github.com/abhisek/pdfquiz/internal/llm"
	"github.com/abhisek/pdfquiz/internal/pdftext"
	"github.com/abhisek/pdfquiz/internal/quiz"
	"github.com/abhisek/pdfquiz/internal/quizgen"
	"github.com/abhisek/pdfquiz/internal/rotation"
	"github.com/abhisek/pdfquiz/internal/store"
	"github.com/joho/godotenv"
)

// Rotation backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Config is the full application configuration.
type Config struct {
	DBPath  string
	BlobDir string
	LogFile string
	S3      blob.S3Config

	Rotation RotationConfig
	Gen      GenConfig

	TemplateTTL     time.Duration
	QuestionTimeout time.Duration

	HTTPAddr  string
	LogLevel  string
	LogFormat string // "text" or "json"

	LLM llm.Config
}

// RotationConfig selects where rotation state lives.
type RotationConfig struct {
	Backend    string
	RedisURL   string
	StateDir   string
	ResetRatio float64
}

// GenConfig tunes chunking and question generation.
type GenConfig struct {
	MaxChunkSize      int
	MaxChars          int
	QuestionsPerChunk int
	Concurrency       int
	BatchDelay        time.Duration
}

// DefaultConfig returns the defaults, with paths under the XDG data and
// state directories.
func DefaultConfig() Config {
	dataDir, err := store.DataDir()
	if err != nil {
		dataDir = ".pdfquiz"
	}
	stateDir, err := rotation.DefaultStateDir()
	if err != nil {
		stateDir = filepath.Join(dataDir, "rotation")
	}
	gen := quizgen.DefaultConfig()

	return Config{
		DBPath:  filepath.Join(dataDir, "pdfquiz.db"),
		BlobDir: filepath.Join(dataDir, "blobs"),
		LogFile: filepath.Join(dataDir, "pdfquiz.log"),
		Rotation: RotationConfig{
			Backend:    BackendFile,
			StateDir:   stateDir,
			ResetRatio: rotation.DefaultResetRatio,
		},
		Gen: GenConfig{
			MaxChunkSize:      chunker.DefaultMaxSize,
			MaxChars:          pdftext.DefaultMaxChars,
			QuestionsPerChunk: gen.QuestionsPerChunk,
			Concurrency:       gen.Concurrency,
			BatchDelay:        gen.BatchDelay,
		},
		TemplateTTL:     store.DefaultTemplateTTL,
		QuestionTimeout: quiz.DefaultQuestionTimeout,
		HTTPAddr:        ":8080",
		LogLevel:        "info",
		LogFormat:       "text",
		LLM:             llm.DefaultConfig(),
	}
}

// Load reads envFile into the environment, then builds a Config from
// PDFQUIZ_* variables on top of the defaults. A missing envFile is not an
// error; variables already set in the environment win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := DefaultConfig()
	var p parser

	p.str(&cfg.DBPath, "PDFQUIZ_DB")
	p.str(&cfg.BlobDir, "PDFQUIZ_BLOB_DIR")
	p.str(&cfg.LogFile, "PDFQUIZ_LOG_FILE")

	p.str(&cfg.S3.Bucket, "PDFQUIZ_S3_BUCKET")
	p.str(&cfg.S3.Endpoint, "PDFQUIZ_S3_ENDPOINT")
	p.str(&cfg.S3.Region, "PDFQUIZ_S3_REGION")
	p.str(&cfg.S3.AccessKeyID, "PDFQUIZ_S3_ACCESS_KEY_ID")
	p.str(&cfg.S3.SecretAccessKey, "PDFQUIZ_S3_SECRET_ACCESS_KEY")
	p.str(&cfg.S3.PublicURL, "PDFQUIZ_S3_PUBLIC_URL")

	p.str(&cfg.Rotation.Backend, "PDFQUIZ_ROTATION_BACKEND")
	p.str(&cfg.Rotation.RedisURL, "PDFQUIZ_REDIS_URL")
	p.str(&cfg.Rotation.StateDir, "PDFQUIZ_ROTATION_DIR")
	p.float(&cfg.Rotation.ResetRatio, "PDFQUIZ_ROTATION_RESET_RATIO")

	p.int(&cfg.Gen.MaxChunkSize, "PDFQUIZ_MAX_CHUNK_SIZE")
	p.int(&cfg.Gen.MaxChars, "PDFQUIZ_MAX_CHARS")
	p.int(&cfg.Gen.QuestionsPerChunk, "PDFQUIZ_QUESTIONS_PER_CHUNK")
	p.int(&cfg.Gen.Concurrency, "PDFQUIZ_GEN_CONCURRENCY")
	p.duration(&cfg.Gen.BatchDelay, "PDFQUIZ_GEN_BATCH_DELAY")

	p.duration(&cfg.TemplateTTL, "PDFQUIZ_TEMPLATE_TTL")
	p.duration(&cfg.QuestionTimeout, "PDFQUIZ_QUESTION_TIMEOUT")

	p.str(&cfg.HTTPAddr, "PDFQUIZ_HTTP_ADDR")
	p.str(&cfg.LogLevel, "PDFQUIZ_LOG_LEVEL")
	p.str(&cfg.LogFormat, "PDFQUIZ_LOG_FORMAT")

	cfg.LLM = llm.ConfigFromEnv()

	if err := errors.Join(p.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and cross-field requirements. LLM credentials are
// checked separately by LLM.Validate, since only some commands need them.
func (c Config) Validate() error {
	var errs []error
	if c.DBPath == "" {
		errs = append(errs, errors.New("database path must be set"))
	}
	switch c.Rotation.Backend {
	case BackendMemory, BackendFile:
	case BackendRedis:
		if c.Rotation.RedisURL == "" {
			errs = append(errs, errors.New("PDFQUIZ_REDIS_URL is required for the redis rotation backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown rotation backend %q", c.Rotation.Backend))
	}
	if c.Rotation.ResetRatio <= 0 || c.Rotation.ResetRatio > 1 {
		errs = append(errs, fmt.Errorf("rotation reset ratio must be in (0, 1], got %v", c.Rotation.ResetRatio))
	}
	if c.Gen.MaxChunkSize < 100 {
		errs = append(errs, fmt.Errorf("max chunk size must be at least 100, got %d", c.Gen.MaxChunkSize))
	}
	if c.Gen.MaxChars < c.Gen.MaxChunkSize {
		errs = append(errs, fmt.Errorf("max chars (%d) must not be below the chunk size (%d)", c.Gen.MaxChars, c.Gen.MaxChunkSize))
	}
	if c.Gen.QuestionsPerChunk < 1 || c.Gen.QuestionsPerChunk > 20 {
		errs = append(errs, fmt.Errorf("questions per chunk must be between 1 and 20, got %d", c.Gen.QuestionsPerChunk))
	}
	if c.Gen.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("generation concurrency must be at least 1, got %d", c.Gen.Concurrency))
	}
	if c.Gen.BatchDelay < 0 {
		errs = append(errs, fmt.Errorf("batch delay must not be negative, got %s", c.Gen.BatchDelay))
	}
	if c.TemplateTTL <= 0 {
		errs = append(errs, fmt.Errorf("template TTL must be positive, got %s", c.TemplateTTL))
	}
	if c.QuestionTimeout <= 0 {
		errs = append(errs, fmt.Errorf("question timeout must be positive, got %s", c.QuestionTimeout))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log format must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// QuizGen returns the generator settings.
func (c Config) QuizGen() quizgen.Config {
	gen := quizgen.DefaultConfig()
	gen.QuestionsPerChunk = c.Gen.QuestionsPerChunk
	gen.Concurrency = c.Gen.Concurrency
	gen.BatchDelay = c.Gen.BatchDelay
	return gen
}

// Ingest returns the pipeline settings.
func (c Config) Ingest() ingest.Config {
	return ingest.Config{MaxChunkSize: c.Gen.MaxChunkSize, MaxChars: c.Gen.MaxChars}
}

// parser reads typed env values and collects parse failures.
type parser struct {
	errs []error
}

func (p *parser) str(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (p *parser) int(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return
	}
	*dst = n
}

func (p *parser) float(dst *float64, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not a number", key, v))
		return
	}
	*dst = f
}

func (p *parser) duration(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not a duration", key, v))
		return
	}
	*dst = d
}
