package main

import (
	"context"
	"fmt"

	"github.com/joseph-ayodele/tender-checklist/internal/export"
	"github.com/joseph-ayodele/tender-checklist/internal/llm"
	"github.com/joseph-ayodele/tender-checklist/internal/llm/anthropic"
	"github.com/joseph-ayodele/tender-checklist/internal/ocr"
	"github.com/joseph-ayodele/tender-checklist/internal/pipeline"
	"github.com/joseph-ayodele/tender-checklist/internal/recordstore"
	"github.com/joseph-ayodele/tender-checklist/internal/repository"
	"github.com/joseph-ayodele/tender-checklist/internal/storage"
)

// app holds the wired job runner and whatever needs closing afterwards.
type app struct {
	orchestrator *pipeline.Orchestrator
	ledgerDB     *repository.DB
}

func (a *app) Close() {
	if a.ledgerDB != nil {
		a.ledgerDB.Close()
	}
}

func buildApp(ctx context.Context) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("object storage: %w", err)
	}

	provider := anthropic.NewClient(anthropic.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Timeout: cfg.LLM.Timeout,
	}, logger)

	extractor, err := llm.NewExtractionClient(provider, llm.ExtractionConfig{
		Model:       cfg.LLM.Model,
		RepairModel: cfg.LLM.RepairModel,
		Temperature: cfg.LLM.Temperature,
	}, logger)
	if err != nil {
		return nil, err
	}
	evaluator, err := llm.NewPromptEvaluator(provider, llm.EvaluatorConfig{
		Model:       cfg.LLM.Model,
		RepairModel: cfg.LLM.RepairModel,
		Temperature: cfg.LLM.Temperature,
	}, logger)
	if err != nil {
		return nil, err
	}

	records := recordstore.NewClient(recordstore.Config{
		BaseURL: cfg.RecordStore.BaseURL,
		Token:   cfg.RecordStore.Token,
		Timeout: cfg.RecordStore.Timeout,
	}, logger)
	if !records.Enabled() {
		logger.Warn("recordstore.disabled", "reason", "API_BASE or WORKER_INGEST_TOKEN not set")
	}

	a := &app{}
	deps := pipeline.Dependencies{
		Store:    store,
		Uploader: provider,
		Pages: ocr.NewPageExtractor(ocr.Config{
			Pdftotext: cfg.OCR.Pdftotext,
			Pdfinfo:   cfg.OCR.Pdfinfo,
		}, logger),
		Extractor:   extractor,
		Evaluator:   evaluator,
		RecordStore: records,
		Exporter:    export.NewService(logger),
	}

	if cfg.Ledger.Driver != "" {
		db, err := openLedger(ctx)
		if err != nil {
			return nil, err
		}
		a.ledgerDB = db
		deps.Ledger = repository.NewJobRunRepository(db, logger)
	}

	a.orchestrator, err = pipeline.NewOrchestrator(deps, pipeline.Config{
		ChunkWindowPages:    cfg.Pipeline.ChunkWindowPages,
		ChunkOverlapPages:   cfg.Pipeline.ChunkOverlapPages,
		SimilarityThreshold: cfg.Pipeline.SimilarityThreshold,
		ExtractConcurrency:  cfg.Pipeline.ExtractConcurrency,
	}, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func openLedger(ctx context.Context) (*repository.DB, error) {
	db, err := repository.Open(ctx, repository.Config{
		Driver:           cfg.Ledger.Driver,
		DSN:              cfg.Ledger.DSN,
		MaxConns:         cfg.Ledger.MaxConns,
		MinConns:         cfg.Ledger.MinConns,
		MaxConnLifetime:  cfg.Ledger.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Ledger.MaxConnIdleTime,
		DialTimeout:      cfg.Ledger.DialTimeout,
		StatementTimeout: cfg.Ledger.StatementTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return db, nil
}
