package rotation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by KV.Get for a missing key.
var ErrNotFound = errors.New("rotation: key not found")

// KV is the byte store rotation state lives in.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte) error
	Delete(ctx context.Context, key string) error
}

// MemoryKV keeps state in process memory.
type MemoryKV struct {
	mu sync.RWMutex
	m  map[string][]byte
}

// NewMemoryKV returns an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{m: make(map[string][]byte)}
}

func (kv *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	v, ok := kv.m[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (kv *MemoryKV) Set(_ context.Context, key string, val []byte) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.m[key] = append([]byte(nil), val...)
	return nil
}

func (kv *MemoryKV) Delete(_ context.Context, key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	delete(kv.m, key)
	return nil
}

// FileKV stores each key as a JSON file in a directory.
type FileKV struct {
	dir string
}

// NewFileKV creates dir if needed and returns a FileKV rooted there.
func NewFileKV(dir string) (*FileKV, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create rotation dir: %w", err)
	}
	return &FileKV{dir: dir}, nil
}

// DefaultStateDir returns $XDG_STATE_HOME/pdfquiz/rotation, defaulting to
// ~/.local/state/pdfquiz/rotation.
func DefaultStateDir() (string, error) {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		stateHome = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateHome, "pdfquiz", "rotation"), nil
}

func (kv *FileKV) path(key string) string {
	return filepath.Join(kv.dir, url.PathEscape(key)+".json")
}

func (kv *FileKV) Get(_ context.Context, key string) ([]byte, error) {
	b, err := os.ReadFile(kv.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return b, err
}

// Set writes through a temp file and rename so readers never see a
// partial file.
func (kv *FileKV) Set(_ context.Context, key string, val []byte) error {
	tmp, err := os.CreateTemp(kv.dir, ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(val); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), kv.path(key))
}

func (kv *FileKV) Delete(_ context.Context, key string) error {
	err := os.Remove(kv.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// RedisPrefix namespaces rotation keys in Redis.
const RedisPrefix = "pdfquiz:rotation:"

// RedisKV stores state in Redis, shared across server instances.
type RedisKV struct {
	client *redis.Client
	prefix string
}

// NewRedisKV wraps client. Keys are stored under RedisPrefix.
func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client, prefix: RedisPrefix}
}

// NewRedisClient parses a redis:// URL and checks the connection.
func NewRedisClient(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (kv *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := kv.client.Get(ctx, kv.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return b, err
}

func (kv *RedisKV) Set(ctx context.Context, key string, val []byte) error {
	return kv.client.Set(ctx, kv.prefix+key, val, 0).Err()
}

func (kv *RedisKV) Delete(ctx context.Context, key string) error {
	return kv.client.Del(ctx, kv.prefix+key).Err()
}

// State is the persisted rotation history of one document.
type State struct {
	Revision string `json:"revision"`
	Used     []int  `json:"used"`
}

func loadState(ctx context.Context, kv KV, key string) (State, error) {
	var st State
	b, err := kv.Get(ctx, key)
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(b, &st); err != nil {
		return State{}, fmt.Errorf("decode rotation state: %w", err)
	}
	return st, nil
}
