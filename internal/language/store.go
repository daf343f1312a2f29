package language

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// PreferenceKey is the fixed name the preference is stored under.
const PreferenceKey = "preferred-language"

// ErrNotFound is returned when a client has no stored preference.
var ErrNotFound = errors.New("language preference not found")

// Store persists one language name per client.
type Store interface {
	Get(ctx context.Context, clientID string) (string, error)
	Set(ctx context.Context, clientID, name string) error
	Close() error
}

// Resolve reads a client's preference and maps it to a supported language,
// returning fallback when there is no store or nothing usable is stored.
func Resolve(ctx context.Context, s Store, clientID string, fallback Language) Language {
	if s == nil {
		return fallback
	}
	name, err := s.Get(ctx, clientID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.Warn("reading language preference failed", "client_id", clientID, "error", err)
		}
		return fallback
	}
	l, ok := Lookup(name)
	if !ok {
		slog.Warn("stored language preference is not supported", "client_id", clientID, "value", name)
		return fallback
	}
	return l
}

// FileStore persists preferences in a single JSON file on disk, keyed by
// client id.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a JSON-backed preference store.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Get returns the client's stored language name.
func (s *FileStore) Get(_ context.Context, clientID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs, err := s.load()
	if err != nil {
		return "", err
	}
	name, ok := prefs[clientID][PreferenceKey]
	if !ok {
		return "", ErrNotFound
	}
	return name, nil
}

// Set writes the client's language name, creating the file and its parent
// directories as needed.
func (s *FileStore) Set(_ context.Context, clientID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs, err := s.load()
	if err != nil {
		return err
	}
	if prefs[clientID] == nil {
		prefs[clientID] = map[string]string{}
	}
	prefs[clientID][PreferenceKey] = name

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating preference directory: %w", err)
	}
	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error { return nil }

// load must be called with s.mu held. A missing file is an empty store.
func (s *FileStore) load() (map[string]map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading preferences: %w", err)
	}

	prefs := map[string]map[string]string{}
	if err := json.Unmarshal(data, &prefs); err != nil {
		return nil, fmt.Errorf("decoding preferences: %w", err)
	}
	return prefs, nil
}

// RedisStore persists preferences in Redis under
// "drishti:<clientID>:preferred-language".
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	slog.Info("connected to redis preference store", "addr", opts.Addr)
	return &RedisStore{client: client}, nil
}

func redisKey(clientID string) string {
	return "drishti:" + clientID + ":" + PreferenceKey
}

// Get returns the client's stored language name.
func (s *RedisStore) Get(ctx context.Context, clientID string) (string, error) {
	name, err := s.client.Get(ctx, redisKey(clientID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return name, nil
}

// Set stores the client's language name without expiry.
func (s *RedisStore) Set(ctx context.Context, clientID, name string) error {
	if err := s.client.Set(ctx, redisKey(clientID), name, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
