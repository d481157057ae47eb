package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/abhisek/pdfquiz/internal/store"
)

// clearEnv unsets every PDFQUIZ_ variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "PDFQUIZ_") {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", t.TempDir())
}

func TestDefaultConfig_Valid(t *testing.T) {
	clearEnv(t)
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.TemplateTTL != store.DefaultTemplateTTL {
		t.Errorf("template TTL = %s", cfg.TemplateTTL)
	}
	if cfg.Rotation.Backend != BackendFile {
		t.Errorf("backend = %q", cfg.Rotation.Backend)
	}
	if !strings.HasPrefix(cfg.DBPath, os.Getenv("XDG_DATA_HOME")) {
		t.Errorf("db path %q not under XDG_DATA_HOME", cfg.DBPath)
	}
}

func TestLoad_Env(t *testing.T) {
	clearEnv(t)
	t.Setenv("PDFQUIZ_DB", "/tmp/quiz.db")
	t.Setenv("PDFQUIZ_ROTATION_BACKEND", "redis")
	t.Setenv("PDFQUIZ_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("PDFQUIZ_ROTATION_RESET_RATIO", "0.25")
	t.Setenv("PDFQUIZ_MAX_CHUNK_SIZE", "2000")
	t.Setenv("PDFQUIZ_GEN_CONCURRENCY", "5")
	t.Setenv("PDFQUIZ_GEN_BATCH_DELAY", "250ms")
	t.Setenv("PDFQUIZ_QUESTION_TIMEOUT", "30s")
	t.Setenv("PDFQUIZ_S3_BUCKET", "quizzes")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.DBPath != "/tmp/quiz.db" || cfg.Rotation.Backend != "redis" || cfg.Rotation.ResetRatio != 0.25 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Gen.MaxChunkSize != 2000 || cfg.Gen.Concurrency != 5 || cfg.Gen.BatchDelay != 250*time.Millisecond {
		t.Errorf("unexpected gen config %+v", cfg.Gen)
	}
	if cfg.QuestionTimeout != 30*time.Second || cfg.S3.Bucket != "quizzes" {
		t.Errorf("unexpected config %+v", cfg)
	}

	gen := cfg.QuizGen()
	if gen.Concurrency != 5 || gen.BatchDelay != 250*time.Millisecond {
		t.Errorf("quizgen config not carried over: %+v", gen)
	}
	if cfg.Ingest().MaxChunkSize != 2000 {
		t.Errorf("ingest config not carried over: %+v", cfg.Ingest())
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	os.WriteFile(path, []byte("PDFQUIZ_HTTP_ADDR=:9999\nPDFQUIZ_LOG_FORMAT=json\n"), 0o644)
	t.Cleanup(func() {
		os.Unsetenv("PDFQUIZ_HTTP_ADDR")
		os.Unsetenv("PDFQUIZ_LOG_FORMAT")
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTPAddr != ":9999" || cfg.LogFormat != "json" {
		t.Errorf("env file not applied: addr=%q format=%q", cfg.HTTPAddr, cfg.LogFormat)
	}
}

func TestLoad_MissingEnvFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Fatalf("missing env file should be ignored: %v", err)
	}
}

func TestLoad_BadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PDFQUIZ_GEN_CONCURRENCY", "many")
	t.Setenv("PDFQUIZ_TEMPLATE_TTL", "a week")

	_, err := Load("")
	if err == nil {
		t.Fatal("expected parse errors")
	}
	for _, key := range []string{"PDFQUIZ_GEN_CONCURRENCY", "PDFQUIZ_TEMPLATE_TTL"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error should name %s: %v", key, err)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown backend", func(c *Config) { c.Rotation.Backend = "etcd" }, "unknown rotation backend"},
		{"redis without url", func(c *Config) { c.Rotation.Backend = BackendRedis }, "PDFQUIZ_REDIS_URL"},
		{"ratio zero", func(c *Config) { c.Rotation.ResetRatio = 0 }, "reset ratio"},
		{"ratio above one", func(c *Config) { c.Rotation.ResetRatio = 1.5 }, "reset ratio"},
		{"tiny chunks", func(c *Config) { c.Gen.MaxChunkSize = 10 }, "chunk size"},
		{"zero concurrency", func(c *Config) { c.Gen.Concurrency = 0 }, "concurrency"},
		{"too many questions", func(c *Config) { c.Gen.QuestionsPerChunk = 50 }, "questions per chunk"},
		{"no timeout", func(c *Config) { c.QuestionTimeout = 0 }, "question timeout"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}
