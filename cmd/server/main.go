package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"crparser/internal/config"
	"crparser/internal/extraction"
	"crparser/internal/handler"
	"crparser/internal/metrics"
	"crparser/internal/middleware"
	"crparser/internal/notify"
	"crparser/internal/port"
	"crparser/internal/render"
	"crparser/internal/repository/postgres"
	"crparser/internal/router"
	"crparser/internal/service"
	s3storage "crparser/internal/storage/s3"
)

// shutdownTimeout bounds draining HTTP requests and in-flight jobs.
const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	gin.SetMode(cfg.GinMode())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(ctx, &cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	jobRepo := postgres.NewJobRepo(db)

	// Initialize storage; an empty bucket disables the backup copy.
	var storage port.ObjectStorage
	if cfg.S3.Bucket != "" {
		storage, err = s3storage.NewS3Client(ctx, &cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 client: %w", err)
		}
	} else {
		log.Printf("S3 bucket not configured; raw reports are not backed up")
	}

	notifier, err := notify.New(ctx, &cfg.Notify)
	if err != nil {
		return fmt.Errorf("failed to initialize notifier: %w", err)
	}

	// Document pipeline
	renderer, err := render.New(cfg.Extraction.Renderer, cfg.Extraction.DPI, cfg.Extraction.PdftoppmPath)
	if err != nil {
		return fmt.Errorf("failed to initialize renderer: %w", err)
	}
	extractor := extraction.NewExtractor(renderer, extraction.ExtractorConfig{
		Flavor:    extraction.Flavor(cfg.Extraction.Flavor),
		LineScale: cfg.Extraction.LineScale,
		Pages:     cfg.Extraction.Pages,
	})
	processor := extraction.NewProcessor(extractor,
		extraction.WithPages(cfg.Extraction.Pages),
		extraction.WithWorkDir(cfg.Extraction.WorkDir),
	)

	// Initialize services
	m := metrics.New()
	runner := service.NewJobRunner(processor, jobRepo, notifier, m, service.JobRunnerConfig{
		WorkDir:   cfg.Extraction.WorkDir,
		ChunkSize: cfg.Extraction.ChunkSize,
	})
	pool := service.NewWorkerPool(service.WorkerPoolConfig{
		Workers:    cfg.Queue.Workers,
		Capacity:   cfg.Queue.Capacity,
		JobTimeout: cfg.Queue.JobTimeout,
	}, runner, m)
	jobSvc := service.NewJobService(jobRepo, storage, pool, m, &cfg.S3, &cfg.Extraction)
	janitor := service.NewJanitor(jobRepo, notifier, service.JanitorConfig{
		Schedule:   cfg.Janitor.Schedule,
		Dirs:       []string{cfg.Extraction.UploadDir, cfg.Extraction.WorkDir},
		MaxFileAge: cfg.Janitor.MaxFileAge,
		StaleAfter: cfg.Janitor.StaleAfter,
	})

	// Initialize handlers
	jobH := handler.NewJobHandler(jobSvc, cfg.Extraction.MaxFileSizeMB<<20)
	healthH := handler.NewHealthHandler(db)

	// Setup router
	opts := router.Options{Metrics: m.Handler()}
	if cfg.Auth.JWTSecret != "" {
		opts.Verifier = middleware.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	}
	if cfg.RateLimit.RequestsPerSecond > 0 {
		opts.Limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}
	r := router.Setup(jobH, healthH, opts)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if err := janitor.Start(); err != nil {
		return fmt.Errorf("failed to start janitor: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pool.Start(gctx)
		return nil
	})
	g.Go(func() error {
		log.Printf("Server starting on %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Printf("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		<-janitor.Stop().Done()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
