package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"dag-console/annotation"
	"dag-console/auth"
	"dag-console/blocksource"
	"dag-console/config"
	"dag-console/dag"
	"dag-console/dashboard"
	"dag-console/db"
	"dag-console/handlers"
	"dag-console/logger"
	"dag-console/repository"
	"dag-console/routers"
)

func main() {
	defaultPath := "config/config.yaml"
	if p := os.Getenv("DAGCONSOLE_CONFIG"); p != "" {
		defaultPath = p
	}
	configPath := flag.String("config", defaultPath, "path to the YAML config file")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Println("Config file error:", err)
		os.Exit(1)
	}

	if err := logger.InitLogger(cfg.Log.AppLogFile, cfg.Log.Level); err != nil {
		fmt.Println("Failed to initialize logger:", err)
		os.Exit(1)
	}
	defer logger.Logger.Sync()

	logger.Logger.Info("Starting DAG console...")

	// Connect to LevelDB; no path keeps everything in memory
	var ldb *db.LevelDB
	if cfg.LevelDB.Path == "" {
		ldb, err = db.NewMemLevelDB()
	} else {
		ldb, err = db.NewLevelDB(cfg.LevelDB.Path)
	}
	if err != nil {
		logger.Logger.Fatal("Failed to open leveldb", zap.Error(err))
	}
	defer ldb.Close()

	// Initialize repositories
	kv := repository.NewKVStore(ldb)
	sessionRepo := repository.NewSessionRepository(kv)
	annotationRepo := repository.NewAnnotationRepository(kv)
	layoutRepo := repository.NewLayoutRepository(kv)

	engine := annotation.NewEngine(annotation.WithPersister(annotationRepo, "main"))
	if err := engine.Load(); err != nil {
		logger.Logger.Warn("Starting with an empty annotation set", zap.Error(err))
	}

	model := dag.NewModel()

	manager := auth.NewManager(
		auth.NewHTTPExchange(cfg.Auth.BaseURL, cfg.Auth.RequestTimeout),
		sessionRepo,
		auth.Options{
			SessionLifetime:  cfg.Auth.SessionLifetime,
			InactivityWindow: cfg.Auth.InactivityWindow,
			CheckInterval:    cfg.Auth.CheckInterval,
			RequestTimeout:   cfg.Auth.RequestTimeout,
			ActivityThrottle: cfg.Auth.ActivityThrottle,
		},
	)
	defer manager.Close()
	logger.Logger.Info("Session restored", zap.String("state", string(manager.Restore())))

	board := dashboard.NewService(layoutRepo, nil)

	// Feed the DAG model from the node API
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.BlockSource.BaseURL != "" || cfg.BlockSource.StreamURL != "" {
		source := blocksource.NewClient(blocksource.Config{
			BaseURL:        cfg.BlockSource.BaseURL,
			StreamURL:      cfg.BlockSource.StreamURL,
			RequestTimeout: cfg.Auth.RequestTimeout,
			ReconnectDelay: cfg.BlockSource.ReconnectDelay,
			Token:          manager.Credential,
		})
		if cfg.BlockSource.BaseURL != "" {
			if err := source.Sync(ctx, model); err != nil {
				logger.Logger.Warn("Initial DAG snapshot unavailable", zap.Error(err))
			}
		}
		if cfg.BlockSource.StreamURL != "" {
			go source.Stream(ctx, model)
		}
	}

	// Initialize HTTP handlers
	h := handlers.NewHandler(manager, model, engine, board, cfg.Annotation.HitTolerance, cfg.Annotation.MinDrag)

	// Setup router
	r := mux.NewRouter()
	routers.RegisterRoutes(r, h)

	// HTTP Server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Error("Server stopped", zap.Error(err))
		}
	}()

	logger.Logger.Info("Server running on port", zap.Int("port", cfg.Server.Port))

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Logger.Info("Shutdown signal received, exiting...")
	cancel()
	if err := engine.Save(); err != nil {
		logger.Logger.Error("Failed flushing annotations", zap.Error(err))
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Warn("Forced server close", zap.Error(err))
		srv.Close()
	}
}
