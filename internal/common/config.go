package common

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Storage     StorageConfig     `yaml:"storage"`
	LLM         LLMConfig         `yaml:"llm"`
	RecordStore RecordStoreConfig `yaml:"record_store"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	OCR         OCRConfig         `yaml:"ocr"`
	Ledger      LedgerConfig      `yaml:"ledger"`
	Queue       QueueConfig       `yaml:"queue"`
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
}

// StorageConfig selects and configures the artifact/object store.
type StorageConfig struct {
	Backend         string `yaml:"backend"` // "s3" | "fs"
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	ForcePathStyle  bool   `yaml:"force_path_style"`
	LocalDir        string `yaml:"local_dir"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	RepairModel string        `yaml:"repair_model"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// RecordStoreConfig points at the checklist API. Empty BaseURL or Token disables it.
type RecordStoreConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// PipelineConfig holds chunking and dedup tuning.
type PipelineConfig struct {
	ChunkWindowPages    int     `yaml:"chunk_window_pages"`
	ChunkOverlapPages   int     `yaml:"chunk_overlap_pages"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	ExtractConcurrency  int     `yaml:"extract_concurrency"`
}

// OCRConfig names the poppler binaries.
type OCRConfig struct {
	Pdftotext string `yaml:"pdftotext"`
	Pdfinfo   string `yaml:"pdfinfo"`
}

// LedgerConfig holds job-run ledger database configuration. Empty Driver disables it.
type LedgerConfig struct {
	Driver           string        `yaml:"driver"` // "" | "sqlite" | "postgres"
	DSN              string        `yaml:"dsn"`
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

// QueueConfig covers both the Temporal transport and the in-process queue.
type QueueConfig struct {
	TemporalHostPort  string        `yaml:"temporal_host_port"`
	TemporalNamespace string        `yaml:"temporal_namespace"`
	TaskQueue         string        `yaml:"task_queue"`
	Workers           int           `yaml:"workers"`
	MaxRetries        int           `yaml:"max_retries"`
	TimeLimit         time.Duration `yaml:"time_limit"`
	RetryBackoff      time.Duration `yaml:"retry_backoff"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HealthAddr string `yaml:"health_addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" | "text"
}

// DefaultConfig returns the built-in defaults before any file or env overrides.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend:  "s3",
			Region:   "us-east-1",
			LocalDir: "./artifacts",
		},
		LLM: LLMConfig{
			BaseURL:     "https://api.anthropic.com",
			Model:       "claude-3-5-sonnet-20241022",
			RepairModel: "claude-3-haiku-20240307",
			Temperature: 0,
			Timeout:     120 * time.Second,
		},
		RecordStore: RecordStoreConfig{
			Timeout: 30 * time.Second,
		},
		Pipeline: PipelineConfig{
			ChunkWindowPages:    5,
			ChunkOverlapPages:   1,
			SimilarityThreshold: 0.92,
			ExtractConcurrency:  1,
		},
		OCR: OCRConfig{
			Pdftotext: "pdftotext",
			Pdfinfo:   "pdfinfo",
		},
		Ledger: LedgerConfig{
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Queue: QueueConfig{
			TemporalHostPort:  "localhost:7233",
			TemporalNamespace: "default",
			TaskQueue:         "tender-checklist",
			Workers:           2,
			MaxRetries:        3,
			TimeLimit:         60 * time.Minute,
			RetryBackoff:      15 * time.Second,
		},
		Server: ServerConfig{
			HealthAddr: ":8090",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig layers defaults, an optional YAML file at path, and environment variables.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return NewAppError("CONFIG_ERROR", "parse "+path, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err))
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Storage.Backend = strings.ToLower(getEnv("STORAGE_BACKEND", c.Storage.Backend))
	c.Storage.Bucket = getEnv("S3_BUCKET", c.Storage.Bucket)
	c.Storage.Region = getEnv("AWS_REGION", c.Storage.Region)
	c.Storage.Endpoint = getEnv("S3_ENDPOINT", c.Storage.Endpoint)
	c.Storage.AccessKeyID = getEnv("AWS_ACCESS_KEY_ID", c.Storage.AccessKeyID)
	c.Storage.SecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", c.Storage.SecretAccessKey)
	c.Storage.ForcePathStyle = getEnvAsBool("S3_FORCE_PATH_STYLE", c.Storage.ForcePathStyle)
	c.Storage.LocalDir = getEnv("ARTIFACT_DIR", c.Storage.LocalDir)

	c.LLM.APIKey = getEnv("ANTHROPIC_API_KEY", c.LLM.APIKey)
	c.LLM.BaseURL = getEnv("ANTHROPIC_BASE_URL", c.LLM.BaseURL)
	c.LLM.Model = getEnv("ANTHROPIC_MODEL", c.LLM.Model)
	c.LLM.RepairModel = getEnv("ANTHROPIC_REPAIR_MODEL", c.LLM.RepairModel)
	c.LLM.Temperature = getEnvAsFloat32("LLM_TEMPERATURE", c.LLM.Temperature)
	c.LLM.Timeout = getEnvAsDuration("LLM_TIMEOUT", c.LLM.Timeout)

	c.RecordStore.BaseURL = getEnv("API_BASE", c.RecordStore.BaseURL)
	c.RecordStore.Token = getEnv("WORKER_INGEST_TOKEN", c.RecordStore.Token)
	c.RecordStore.Timeout = getEnvAsDuration("RECORDSTORE_TIMEOUT", c.RecordStore.Timeout)

	c.Pipeline.ChunkWindowPages = getEnvAsInt("CHUNK_WINDOW_PAGES", c.Pipeline.ChunkWindowPages)
	c.Pipeline.ChunkOverlapPages = getEnvAsInt("CHUNK_OVERLAP_PAGES", c.Pipeline.ChunkOverlapPages)
	c.Pipeline.SimilarityThreshold = getEnvAsFloat64("SIMILARITY_THRESHOLD", c.Pipeline.SimilarityThreshold)
	c.Pipeline.ExtractConcurrency = getEnvAsInt("EXTRACT_CONCURRENCY", c.Pipeline.ExtractConcurrency)

	c.OCR.Pdftotext = getEnv("PDFTOTEXT", c.OCR.Pdftotext)
	c.OCR.Pdfinfo = getEnv("PDFINFO", c.OCR.Pdfinfo)

	c.Ledger.Driver = strings.ToLower(getEnv("LEDGER_DRIVER", c.Ledger.Driver))
	c.Ledger.DSN = getEnv("LEDGER_DSN", c.Ledger.DSN)
	c.Ledger.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Ledger.MaxConns)
	c.Ledger.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Ledger.MinConns)
	c.Ledger.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Ledger.MaxConnLifetime)
	c.Ledger.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Ledger.MaxConnIdleTime)
	c.Ledger.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Ledger.DialTimeout)
	c.Ledger.StatementTimeout = getEnvAsDuration("DB_STATEMENT_TIMEOUT", c.Ledger.StatementTimeout)

	c.Queue.TemporalHostPort = getEnv("TEMPORAL_HOST_PORT", c.Queue.TemporalHostPort)
	c.Queue.TemporalNamespace = getEnv("TEMPORAL_NAMESPACE", c.Queue.TemporalNamespace)
	c.Queue.TaskQueue = getEnv("TEMPORAL_TASK_QUEUE", c.Queue.TaskQueue)
	c.Queue.Workers = getEnvAsInt("WORKERS", c.Queue.Workers)
	c.Queue.MaxRetries = getEnvAsInt("JOB_MAX_RETRIES", c.Queue.MaxRetries)
	c.Queue.TimeLimit = getEnvAsDuration("JOB_TIME_LIMIT", c.Queue.TimeLimit)
	c.Queue.RetryBackoff = getEnvAsDuration("JOB_RETRY_BACKOFF", c.Queue.RetryBackoff)

	c.Server.HealthAddr = getEnv("HEALTH_ADDR", c.Server.HealthAddr)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the settings a worker needs before it accepts jobs.
func (c *Config) Validate() error {
	v := NewValidator().
		Field("ANTHROPIC_API_KEY", c.LLM.APIKey, Required).
		Field("ANTHROPIC_MODEL", c.LLM.Model, Required).
		Field("CHUNK_WINDOW_PAGES", c.Pipeline.ChunkWindowPages, Positive).
		Field("CHUNK_OVERLAP_PAGES", c.Pipeline.ChunkOverlapPages, NonNegative).
		Field("EXTRACT_CONCURRENCY", c.Pipeline.ExtractConcurrency, Positive).
		Field("JOB_MAX_RETRIES", c.Queue.MaxRetries, NonNegative).
		Field("JOB_TIME_LIMIT", c.Queue.TimeLimit, Positive)

	switch c.Storage.Backend {
	case "s3":
		v.Field("S3_BUCKET", c.Storage.Bucket, Required)
	case "fs":
		v.Field("ARTIFACT_DIR", c.Storage.LocalDir, Required)
	default:
		v.Field("STORAGE_BACKEND", c.Storage.Backend, OneOf("s3", "fs"))
	}

	switch c.Ledger.Driver {
	case "":
	case "sqlite", "postgres":
		v.Field("LEDGER_DSN", c.Ledger.DSN, Required)
	default:
		v.Field("LEDGER_DRIVER", c.Ledger.Driver, OneOf("sqlite", "postgres"))
	}

	if t := c.Pipeline.SimilarityThreshold; t <= 0 || t > 1 {
		v.Field("SIMILARITY_THRESHOLD", t, func(name string, value interface{}) *ValidationError {
			return &ValidationError{Field: name, Value: value, Message: "must be in (0, 1]"}
		})
	}

	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidConfiguration)
	}
	return nil
}
