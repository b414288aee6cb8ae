package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/deep-researcher/internal/adapters/driven/ai"
	"github.com/custodia-labs/deep-researcher/internal/adapters/driven/config/file"
	"github.com/custodia-labs/deep-researcher/internal/adapters/driven/loader/filesystem"
	"github.com/custodia-labs/deep-researcher/internal/adapters/driven/storage/indexfile"
	"github.com/custodia-labs/deep-researcher/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/deep-researcher/internal/adapters/driving/cli"
	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driving"
	"github.com/custodia-labs/deep-researcher/internal/core/services"
	"github.com/custodia-labs/deep-researcher/internal/logger"
	"github.com/custodia-labs/deep-researcher/internal/normalisers"
	"github.com/custodia-labs/deep-researcher/internal/postprocessors"
)

// app wires adapters into services for the CLI.
type app struct{}

var _ cli.Bootstrap = (*app)(nil)

// Settings opens the config file only, so configuration commands work
// even when a provider is unreachable.
func (a *app) Settings(configDir string) (driving.SettingsService, driven.ConfigStore, error) {
	dir, err := resolveConfigDir(configDir)
	if err != nil {
		return nil, nil, err
	}
	store, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("open config: %w", err)
	}
	return services.NewSettingsService(store, ai.NewProbe(0)), store, nil
}

// Services builds the full graph: stores, AI adapters, ingestion and
// the research facade.
func (a *app) Services(ctx context.Context, configDir string) (*cli.Services, error) {
	dir, err := resolveConfigDir(configDir)
	if err != nil {
		return nil, err
	}
	settingsSvc, _, err := a.Settings(dir)
	if err != nil {
		return nil, err
	}
	if err := settingsSvc.Validate(); err != nil {
		return nil, err
	}
	settings, err := settingsSvc.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	dataDir := resolveDataDir(dir, settings.DataDir)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sqlite.NewStore(dir)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	prompts, err := file.NewPromptStore(filepath.Join(dir, "prompts"))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open prompts: %w", err)
	}

	aiResult, err := ai.Init(ctx, *settings, prompts)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	pipeline, err := postprocessors.NewDefaultPipeline(settings.Chunker)
	if err != nil {
		aiResult.Close()
		_ = db.Close()
		return nil, err
	}

	loader := filesystem.New(dataDir)
	ingest := services.NewIngestService(loader, normalisers.NewDefaultRegistry(), pipeline, db.ChunkStore())
	indexer := services.NewIndexerService(aiResult.EmbeddingService,
		services.WithMetric(settings.Index.Metric),
		services.WithBatchSize(settings.Embedding.BatchSize),
	)
	indexes := services.NewIndexManager(services.NewIndexHandle(nil), indexer, ingest, indexfile.New(dataDir))

	search := services.NewSearchService(aiResult.EmbeddingService, db.ChunkStore())
	research := services.NewResearchService(search, aiResult.Reasoner)

	var convoOpts []services.ConversationOption
	if aiResult.LLMService != nil {
		convoOpts = append(convoOpts, services.WithLLMRewriter(aiResult.LLMService, prompts))
	}
	convo := services.NewConversationService(db.ConversationStore(), convoOpts...)

	logger.Debug("Wired services: data=%s db=%s reasoner=%s embedder=%s",
		dataDir, db.Path(), aiResult.Reasoner.Name(), aiResult.EmbeddingService.ModelName())

	return &cli.Services{
		Indexes:       indexes,
		Ingest:        ingest,
		Researcher:    services.NewResearcher(indexes, search, research, convo),
		Conversations: convo,
		Corpus:        loader,
		DataDir:       dataDir,
		Reasoner:      aiResult.Reasoner.Name(),
		Warnings:      aiResult.Warnings,
		Close: func() error {
			aiResult.Close()
			return db.Close()
		},
	}, nil
}

func resolveConfigDir(configDir string) (string, error) {
	if configDir != "" {
		return configDir, nil
	}
	dir, err := file.DefaultDir()
	if err != nil {
		return "", errors.Join(domain.ErrInvalidConfig, err)
	}
	return dir, nil
}

// resolveDataDir makes a relative data directory relative to the config directory.
func resolveDataDir(configDir, dataDir string) string {
	if dataDir == "" {
		dataDir = domain.DefaultAppSettings().DataDir
	}
	if filepath.IsAbs(dataDir) {
		return dataDir
	}
	return filepath.Join(configDir, dataDir)
}
