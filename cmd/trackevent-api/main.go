package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"example.com/trackevent/internal/config"
	"example.com/trackevent/internal/domain"
	"example.com/trackevent/internal/eventid"
	"example.com/trackevent/internal/ingest"
	"example.com/trackevent/internal/logger"
	"example.com/trackevent/internal/storage"
	"example.com/trackevent/internal/storage/elastic"
	spg "example.com/trackevent/internal/storage/postgres"
	"example.com/trackevent/internal/telemetry"
	transport "example.com/trackevent/internal/transport/http"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "trackevent-api: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn().Err(err).Msg("tracer shutdown")
		}
	}()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	normalizer := domain.NewNormalizer(func() time.Time { return time.Now().UTC() }, eventid.NewGenerator())
	ingestor := ingest.NewIngestor(store, cfg.Backend, normalizer, log, cfg.StoreTimeout)

	deps := &transport.ServerDeps{
		Ingestor:     ingestor,
		Backend:      store,
		Log:          log,
		MaxBodyBytes: cfg.MaxBodyBytes,
	}
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           deps.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("backend", cfg.Backend).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}

// openStore builds the configured backend. The returned func releases it.
func openStore(ctx context.Context, cfg config.Config, log *zerolog.Logger) (storage.Store, func(), error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		db, err := spg.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("db connect: %w", err)
		}
		if err := db.RunMigrations(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrations: %w", err)
		}
		log.Info().Msg("db: migrations applied")
		return spg.NewStore(db.Pool), db.Close, nil

	case config.BackendElasticsearch:
		es, err := elastic.New(elastic.Config{
			Addresses:  cfg.Elasticsearch.URLs,
			Username:   cfg.Elasticsearch.Username,
			Password:   cfg.Elasticsearch.Password,
			WriteIndex: cfg.Elasticsearch.WriteIndex,
			ReadIndex:  cfg.Elasticsearch.ReadIndex,
		})
		if err != nil {
			return nil, nil, err
		}
		return es, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}
