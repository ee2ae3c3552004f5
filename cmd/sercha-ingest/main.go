// Command sercha-ingest ingests PDF and JSON documents into a vector store
// and serves semantic search over them from a CLI and an MCP server.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/cache"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/vectorstore"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-ingest/internal/config"
	"github.com/custodia-labs/sercha-ingest/internal/core/services"
	"github.com/custodia-labs/sercha-ingest/internal/loaders"
	"github.com/custodia-labs/sercha-ingest/internal/loaders/jsondoc"
	"github.com/custodia-labs/sercha-ingest/internal/loaders/pdf"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

const shutdownTimeout = 5 * time.Second

func main() {
	settings := config.Load()
	if err := logger.SetFormat(settings.LogFormat); err != nil {
		logger.Warn("config.log_format err=%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetBuilder(builder(settings))
	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// builder wires the driven adapters into the core services.
func builder(settings *config.Settings) cli.Builder {
	return func(_ context.Context, opts cli.Options) (*cli.Services, func(), error) {
		profilesPath := settings.ProfilesPath
		if opts.ProfilesPath != "" {
			profilesPath = opts.ProfilesPath
		}

		store, err := sqlite.NewStore(settings.JobsDBPath)
		if err != nil {
			return nil, nil, err
		}

		caches := cache.NewProvider(store.EmbeddingCache(), settings.BadgerDir)
		backends := ai.NewFactory()
		backends.CloudflareRPS = settings.CloudflareRPS

		components := &services.Components{
			Backends: backends,
			Stores:   vectorstore.NewFactory(settings.Profiles.VectorDBURL),
			Caches:   caches,
		}

		pdfLoader := pdf.New()
		registry := loaders.NewRegistry(pdfLoader, pdfLoader, jsondoc.New())
		profiles := file.NewProfileStore(profilesPath, settings.Profiles)

		ingestion := services.NewIngestionService(profiles, registry, store.JobStore(), components)

		logger.Debug("app.wire profiles=%s jobs_db=%s badger=%s", profilesPath, store.Path(), settings.BadgerDir)

		cleanup := func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			err := errors.Join(
				ingestion.Shutdown(ctx),
				caches.Close(),
				store.Close(),
			)
			if err != nil {
				logger.Warn("app.shutdown err=%v", err)
			}
		}

		return &cli.Services{
			Ingestion: ingestion,
			Search:    services.NewSearchService(profiles, components),
			Health:    services.NewHealthService(profiles, components),
			Profiles:  services.NewProfileService(profiles),
			Watcher:   profiles,
			MCPAddr:   settings.MCPAddr,
		}, cleanup, nil
	}
}
