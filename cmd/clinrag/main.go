package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/medscribe/clinrag/internal/ai"
	"github.com/medscribe/clinrag/internal/config"
	"github.com/medscribe/clinrag/internal/embedcache"
	"github.com/medscribe/clinrag/internal/filestore"
	"github.com/medscribe/clinrag/internal/handler"
	"github.com/medscribe/clinrag/internal/job"
	"github.com/medscribe/clinrag/internal/repo"
	"github.com/medscribe/clinrag/internal/schedule"
	"github.com/medscribe/clinrag/internal/service"
	"github.com/medscribe/clinrag/internal/vectorstore"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "clinrag",
		Short: "clinrag question answering server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run clinrag server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
			return runServer(cfg)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("vector_store", cfg.VectorStore.Type),
		zap.String("ai_provider", cfg.AI.Provider),
	)

	var db *sql.DB
	if cfg.VectorStore.Type == "postgres" {
		var err error
		db, err = repo.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		if err := repo.ApplyMigrations(db); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
	}

	providerArgs := cfg.AI.Data
	genProvider, err := ai.NewProvider(cfg.AI.Provider, providerArgs)
	if err != nil {
		return fmt.Errorf("init gen provider: %w", err)
	}
	if cfg.AI.Fallback != nil {
		fallback, err := ai.NewProvider(cfg.AI.Fallback.Provider, cfg.AI.Fallback.Data)
		if err != nil {
			return fmt.Errorf("init fallback provider: %w", err)
		}
		genProvider = ai.NewGroupGenProvider([]ai.GenEntry{
			{Name: cfg.AI.Provider, Provider: genProvider},
			{Name: cfg.AI.Fallback.Provider, Model: cfg.AI.Fallback.Model, Provider: fallback},
		})
	}
	embedProvider, err := ai.NewEmbedProvider(cfg.AI.EmbedProvider, providerArgs)
	if err != nil {
		return fmt.Errorf("init embed provider: %w", err)
	}
	embedder := ai.NewEmbedder(embedProvider, cfg.AI.EmbedModel)
	if db != nil {
		embedder = embedcache.WrapDBCache(embedder, repo.NewEmbeddingCacheRepo(db))
	}
	embedder = embedcache.WrapLRUCache(embedder, cfg.AI.CacheSize,
		time.Duration(cfg.AI.CacheTTLMinutes)*time.Minute)

	var store vectorstore.Store
	var docRepo *repo.DocumentRepo
	if db != nil {
		store = vectorstore.NewPostgresStore(db, cfg.AI.EmbedDim)
		docRepo = repo.NewDocumentRepo(db)
	} else {
		store = vectorstore.NewMemoryStore(cfg.AI.EmbedDim)
	}

	var archive filestore.Store
	if cfg.FileStore.Type != "" {
		archive, err = filestore.New(filestore.Config{Type: cfg.FileStore.Type, Data: cfg.FileStore.Data})
		if err != nil {
			return fmt.Errorf("init file store: %w", err)
		}
	}

	embedTimeout := time.Duration(cfg.AI.TimeoutSeconds) * time.Second
	retrievalService := service.NewRetrievalService(store, embedder, service.RetrievalOptions{
		ChunkSize:    cfg.Chunking.Size,
		ChunkOverlap: *cfg.Chunking.Overlap,
		TopK:         cfg.Retrieval.TopK,
		MinScore:     *cfg.Retrieval.MinScore,
		EmbedTimeout: embedTimeout,
	})
	answerService := service.NewAnswerService(retrievalService, genProvider, service.AnswerOptions{
		DefaultModel:  cfg.AI.Model,
		MaxInputChars: cfg.AI.MaxInputChars,
		GenTimeout:    2 * embedTimeout,
	})
	documentService := service.NewDocumentService(retrievalService, docRepo, archive, service.DocumentOptions{})

	scheduler := schedule.NewCronScheduler()
	if db != nil {
		cleanup := job.NewEmbeddingCacheCleanupJob(repo.NewEmbeddingCacheRepo(db), cfg.Jobs.EmbedCacheMaxAgeDays)
		if err := scheduler.AddJob(cleanup, cfg.Jobs.EmbedCacheCleanupSpec); err != nil {
			return fmt.Errorf("schedule cleanup job: %w", err)
		}
	}

	router := handler.NewRouter(handler.RouterDeps{
		Ask:             handler.NewAskHandler(answerService),
		Documents:       handler.NewDocumentHandler(documentService),
		Status:          handler.NewStatusHandler(documentService),
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitWindow: time.Duration(cfg.RateLimitSeconds) * time.Second,
	})

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler.Start(ctx)
	defer scheduler.Stop()

	go func() {
		logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
