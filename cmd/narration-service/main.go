// main package for the narration-service
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/narration-service/internal/artifact"
	"github.com/book-expert/narration-service/internal/config"
	"github.com/book-expert/narration-service/internal/core"
	"github.com/book-expert/narration-service/internal/extract"
	"github.com/book-expert/narration-service/internal/jobstore"
	"github.com/book-expert/narration-service/internal/pipeline"
	"github.com/book-expert/narration-service/internal/queue"
	"github.com/book-expert/narration-service/internal/server"
	"github.com/book-expert/narration-service/internal/tts"
	"github.com/book-expert/narration-service/internal/worker"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
	bytesPerMB        = 1 << 20
)

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, "narration-service.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

// artifactStores opens the source and audio stores, backed by NATS object
// storage when a NATS URL is configured and by the local filesystem
// otherwise.
func artifactStores(
	cfg *config.Config,
	log *logger.Logger,
) (core.ArtifactStore, core.ArtifactStore, error) {
	if cfg.NATS.URL == "" {
		sources, err := artifact.NewFileStore(cfg.Paths.UploadsDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open uploads store: %w", err)
		}

		outputs, err := artifact.NewFileStore(cfg.Paths.AudioDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open audio store: %w", err)
		}

		return sources, outputs, nil
	}

	conn, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}

	jetstreamContext, err := conn.JetStream()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	sources, err := artifact.NewNatsStore(jetstreamContext, cfg.NATS.SourceBucket)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open source bucket: %w", err)
	}

	outputs, err := artifact.NewNatsStore(jetstreamContext, cfg.NATS.AudioBucket)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open audio bucket: %w", err)
	}

	log.Info("Using NATS object storage at %s", cfg.NATS.URL)

	return sources, outputs, nil
}

func buildExtractService(cfg *config.Config, log *logger.Logger) *extract.Service {
	if cfg.Extractor.URL == "" {
		log.Warn("No extraction service configured, PDF uploads will be rejected")

		return extract.NewService(nil, log)
	}

	client := extract.NewClient(
		cfg.Extractor.URL,
		time.Duration(cfg.Extractor.TimeoutSeconds)*time.Second,
	)

	return extract.NewService(client, log)
}

func run() error {
	bootstrapLog, err := logger.New(os.TempDir(), "narration-service-bootstrap.log")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return fmt.Errorf("failed to create bootstrap logger: %w", err)
	}

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := setupLogger(cfg.Paths.BaseLogsDir)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := log.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing logger: %v\n", closeErr)
		}
	}()

	return serve(cfg, log)
}

func serve(cfg *config.Config, log *logger.Logger) error {
	store, err := jobstore.Open(cfg.Paths.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open job store: %w", err)
	}

	defer func() { _ = store.Close() }()

	sources, outputs, err := artifactStores(cfg, log)
	if err != nil {
		return err
	}

	workQueue := queue.New()
	jobPipeline := pipeline.New(store, workQueue, sources, outputs, log)

	extractor := buildExtractService(cfg, log)
	engine := tts.NewEngine(
		tts.NewHTTPClient(cfg.TTS.URL, time.Duration(cfg.TTS.TimeoutSeconds)*time.Second),
		cfg.Narration.SampleRate,
	)

	narrationWorker := worker.New(
		store, workQueue, sources, outputs, extractor, engine,
		worker.Settings{
			Voice: cfg.TTS.Voice,
			Gap:   time.Duration(cfg.Narration.GapMilliseconds) * time.Millisecond,
		},
		log,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Jobs stranded by the previous run go back on the queue before the
	// worker starts.
	err = jobPipeline.Recover(ctx)
	if err != nil {
		return fmt.Errorf("failed to recover pending jobs: %w", err)
	}

	workerDone := make(chan struct{})

	go func() {
		narrationWorker.Run(ctx)
		close(workerDone)
	}()

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           server.New(jobPipeline, sources, outputs, cfg.Server.MaxUploadMB*bytesPerMB, log).Router(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)

	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()

	log.System("Narration service listening on %s", httpServer.Addr)

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err = <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			workQueue.Close()

			return fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err = httpServer.Shutdown(shutdownCtx)
	if err != nil {
		log.Error("HTTP shutdown failed: %v", err)
	}

	// Closing the queue lets the worker drain what it already holds and
	// stop.
	workQueue.Close()
	<-workerDone

	log.Info("Narration service stopped")

	return nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
