package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/shieldhq/threatwatch/internal/application"
	apppipeline "github.com/shieldhq/threatwatch/internal/application/pipeline"
	appthreats "github.com/shieldhq/threatwatch/internal/application/threats"
	"github.com/shieldhq/threatwatch/internal/config"
	"github.com/shieldhq/threatwatch/internal/domain/classify"
	"github.com/shieldhq/threatwatch/internal/domain/runs"
	"github.com/shieldhq/threatwatch/internal/domain/threats"
	openaiClassifier "github.com/shieldhq/threatwatch/internal/infra/classify/openai"
	rulesClassifier "github.com/shieldhq/threatwatch/internal/infra/classify/rules"
	mysqlp "github.com/shieldhq/threatwatch/internal/infra/db/mysql"
	postgresp "github.com/shieldhq/threatwatch/internal/infra/db/postgres"
	sqlitep "github.com/shieldhq/threatwatch/internal/infra/db/sqlite"
	"github.com/shieldhq/threatwatch/internal/infra/httpserver"
	"github.com/shieldhq/threatwatch/internal/infra/news/newsapi"
	"github.com/shieldhq/threatwatch/internal/infra/scheduler"
	minioStore "github.com/shieldhq/threatwatch/internal/infra/storage"
	"github.com/shieldhq/threatwatch/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()

	// connect database
	db, threatRepo, runRepo, err := openDatabase(ctx, cfg)
	if err != nil {
		log.Fatalf("database error: %v", err)
	}
	defer db.Close()

	// init classifier
	classifier, err := buildClassifier(cfg)
	if err != nil {
		log.Fatalf("classifier error: %v", err)
	}

	// init minio (optional artifact archive)
	var artifacts runs.ArtifactStore
	if cfg.Minio.Enabled {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			log.Fatalf("minio init error: %v", err)
		}
		artifacts = store
	}

	clock := application.SystemClock{}

	// init services
	threatsSvc := &appthreats.Service{
		Repo:  threatRepo,
		Clock: clock,
	}
	pipelineSvc := &apppipeline.Service{
		Source:                    newsapi.NewClient(cfg.News.Endpoint, cfg.News.APIKey, cfg.News.Country),
		Classifier:                classifier,
		Threats:                   threatRepo,
		Runs:                      runRepo,
		Artifacts:                 artifacts,
		Clock:                     clock,
		Retention:                 cfg.Retention(),
		ReviewConfidenceThreshold: cfg.AI.ReviewConfidenceThreshold,
	}

	// scheduled runs
	var sched *scheduler.IntervalScheduler
	if cfg.Pipeline.Enabled {
		sched = scheduler.NewIntervalScheduler(cfg.Interval())
		sched.Start(ctx, func(time.Time) {
			middleware.IncrementRuns()
			sum, err := pipelineSvc.RunUntilDone()
			if err != nil {
				if !errors.Is(err, apppipeline.ErrRunInProgress) {
					middleware.IncrementRunsFailed()
				}
				log.Printf("scheduled pipeline run error: %v", err)
				return
			}
			middleware.AddThreatsPersisted(sum.Persisted)
		})
		log.Printf("pipeline scheduler started, interval %s", cfg.Interval())
	}

	// init router
	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.RateLimitMiddleware(100, 10))

	mux.Get("/health", middleware.HealthHandler(map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
	}))
	mux.Get("/metrics", middleware.MetricsHandler)
	mux.Mount("/", httpserver.NewRouter(threatsSvc, pipelineSvc, runRepo))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	if sched != nil {
		sched.Stop()
	}

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, threats.Repository, runs.Repository, error) {
	switch cfg.Database.Driver {
	case "sqlite", "":
		db, err := sqlitep.Connect(ctx, cfg.Database.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := sqlitep.EnsureSchema(ctx, db); err != nil {
			return nil, nil, nil, err
		}
		return db, sqlitep.NewThreatRepository(db), sqlitep.NewRunRepository(db), nil
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, nil, nil, err
		}
		if err := mysqlp.EnsureSchema(ctx, db); err != nil {
			return nil, nil, nil, err
		}
		return db, mysqlp.NewThreatRepository(db), mysqlp.NewRunRepository(db), nil
	case "postgres":
		db, err := postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, nil, nil, err
		}
		if err := postgresp.EnsureSchema(ctx, db); err != nil {
			return nil, nil, nil, err
		}
		return db, postgresp.NewThreatRepository(db), postgresp.NewRunRepository(db), nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func buildClassifier(cfg *config.Config) (classify.Classifier, error) {
	switch cfg.AI.Provider {
	case "rules", "":
		return rulesClassifier.New(), nil
	case "openai":
		if cfg.AI.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an api key")
		}
		return openaiClassifier.NewClient(cfg.AI.APIKey, cfg.AI.Model), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.AI.Provider)
	}
}
