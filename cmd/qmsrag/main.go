// Command qmsrag answers questions about ISO 13485 quality documentation.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/qms-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/qms-rag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/qms-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/qms-rag/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/qms-rag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/qms-rag/internal/adapters/driving/cli"
	"github.com/custodia-labs/qms-rag/internal/core/domain"
	"github.com/custodia-labs/qms-rag/internal/core/ports/driven"
	"github.com/custodia-labs/qms-rag/internal/core/services"
	"github.com/custodia-labs/qms-rag/internal/logger"
	"github.com/custodia-labs/qms-rag/internal/normalisers"
	"github.com/custodia-labs/qms-rag/internal/normalisers/text"
	"github.com/custodia-labs/qms-rag/internal/postprocessors"
	"github.com/custodia-labs/qms-rag/internal/procedures"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	_ = godotenv.Load() //nolint:errcheck // .env is optional

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)

	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// bootstrap wires settings, storage, AI adapters and the pipeline.
func bootstrap(ctx context.Context, opts cli.Options) (*cli.Services, func(), error) {
	configStore, promptDir, err := openConfig(opts.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open config: %w", domain.ErrConfiguration, err)
	}

	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsService.Get()
	if err != nil {
		return nil, nil, fmt.Errorf("load settings: %w", err)
	}
	// Settings stay editable even when the rest cannot be wired.
	out := &cli.Services{Settings: settingsService}

	if err := settings.Validate(); err != nil {
		logger.Error("%v (see 'qmsrag settings show')", err)
		return out, nil, nil
	}

	aiServices, err := ai.NewServices(ctx, *settings)
	if err != nil {
		logger.Error("AI providers unavailable: %v", err)
		aiServices = &ai.Services{}
	}

	store, err := openCollectionStore(ctx, settings.Index, opts.Ephemeral)
	if err != nil {
		aiServices.Close()
		return nil, nil, err
	}

	release := func() {
		aiServices.Close()
		if err := store.Close(); err != nil {
			logger.Warn("closing collection store: %v", err)
		}
	}

	var catalogue *procedures.Store
	if settings.Procedures.Path != "" {
		catalogue, err = procedures.LoadFile(settings.Procedures.Path)
		if err != nil {
			release()
			return nil, nil, fmt.Errorf("load procedures: %w", err)
		}
		logger.Debug("Loaded %d procedures from %s", catalogue.Len(), settings.Procedures.Path)
	}

	registry := normalisers.DefaultRegistry(text.Options{StripPageNumbers: settings.Chunking.StripPageNumbers})
	processors := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(processors)
	pipeline, err := postprocessors.BuildPipeline(processors, domain.PipelineConfigFor(settings.Chunking))
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("build pipeline: %w", err)
	}

	prompts, err := file.NewPromptStore(promptDir)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("open prompts: %w", err)
	}

	indexService := services.NewIndexService(
		store,
		services.NewSourceLoader(registry),
		pipeline,
		aiServices.Embedding,
		services.NewCollections(),
		settings.Index.Collection,
	)

	var procedureStore driven.ProcedureStore
	var procedureService *services.ProcedureService
	if catalogue != nil {
		procedureStore = catalogue
		procedureService = services.NewProcedureService(catalogue)
	}

	retriever := services.NewRetriever(
		procedureStore,
		indexService,
		aiServices.QueryEmbedding,
		settings.Retrieval,
		settings.Index.Collection,
	)
	retriever.SetQueryRewriter(aiServices.LLM)
	retriever.SetPromptStore(prompts)

	synthesizer := services.NewSynthesizer(aiServices.LLM, settings.Retrieval.ContextItems, settings.LLM.Temperature)
	synthesizer.SetPromptStore(prompts)

	p := &services.Pipeline{
		Index:       indexService,
		Retriever:   retriever,
		Synthesizer: synthesizer,
		Procedures:  procedureService,
	}

	out.Index = indexService
	out.Retrieval = retriever
	out.Ask = p
	if procedureService != nil {
		out.Procedures = procedureService
	}
	return out, release, nil
}

// openConfig returns the config store and the prompt directory beside it.
func openConfig(path string) (*file.ConfigStore, string, error) {
	if path == "" {
		store, err := file.NewConfigStore("")
		if err != nil {
			return nil, "", err
		}
		return store, filepath.Join(filepath.Dir(store.Path()), "prompts"), nil
	}
	store, err := file.NewConfigStoreFile(path)
	if err != nil {
		return nil, "", err
	}
	return store, filepath.Join(filepath.Dir(path), "prompts"), nil
}

func openCollectionStore(ctx context.Context, cfg domain.IndexSettings, ephemeral bool) (driven.CollectionStore, error) {
	if ephemeral {
		return memory.NewCollectionStore(), nil
	}

	switch cfg.Backend {
	case domain.IndexBackendMemory:
		return memory.NewCollectionStore(), nil
	case domain.IndexBackendPostgres:
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	default:
		store, err := sqlite.NewStore(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	}
}
