package storage

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// KV is the durable key/value store the training data lives in.
// Values are opaque serialized blobs.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Type selects a KV backend
type Type string

const (
	TypeFile   Type = "file"
	TypeSQLite Type = "sqlite"
	TypeRedis  Type = "redis"
	TypeMemory Type = "memory"
)

// Config selects and configures the KV backend
type Config struct {
	Type     Type   `yaml:"type"`
	Path     string `yaml:"path"`
	RedisURL string `yaml:"redis_url"`
	// Prefix namespaces redis keys
	Prefix string `yaml:"prefix"`
}

// Open creates the configured backend
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (KV, error) {
	var (
		kv  KV
		err error
	)
	switch Type(strings.ToLower(string(cfg.Type))) {
	case TypeFile, "":
		kv, err = asKV(NewFileKV(cfg.Path, logger))
	case TypeSQLite:
		kv, err = asKV(NewSQLiteKV(cfg.Path, logger))
	case TypeRedis:
		kv, err = asKV(NewRedisKV(ctx, RedisConfig{URL: cfg.RedisURL, Prefix: cfg.Prefix}, logger))
	case TypeMemory:
		kv = NewMemoryKV()
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}
	return kv, nil
}

// asKV keeps a failed constructor from yielding a non-nil interface around a nil pointer
func asKV[T KV](v T, err error) (KV, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}
