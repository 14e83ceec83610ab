package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/tender-checklist/constants"
	"github.com/joseph-ayodele/tender-checklist/internal/common"
)

// ObjectStore is the blob store holding source documents and job artifacts.
// Get returns an error wrapping common.ErrNotFound for missing keys.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// New builds the store selected by cfg.Backend.
func New(ctx context.Context, cfg common.StorageConfig, logger *slog.Logger) (ObjectStore, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "s3":
		s, err := NewS3Store(ctx, S3Config{
			Bucket:          cfg.Bucket,
			Region:          cfg.Region,
			Endpoint:        cfg.Endpoint,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			ForcePathStyle:  cfg.ForcePathStyle,
		}, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "fs":
		s, err := NewFSStore(cfg.LocalDir, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, common.NewAppError("CONFIG_ERROR",
			fmt.Sprintf("unknown storage backend %q", cfg.Backend), common.ErrInvalidConfiguration)
	}
}

// PutJSON writes v as indented JSON.
func PutJSON(ctx context.Context, s ObjectStore, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Put(ctx, key, data, constants.ContentTypeJSON)
}

// PutText writes a UTF-8 text artifact.
func PutText(ctx context.Context, s ObjectStore, key, text string) error {
	return s.Put(ctx, key, []byte(text), constants.ContentTypeText)
}
