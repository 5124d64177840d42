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

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/tanyadoc/tanyadoc/internal/ai"
	"github.com/tanyadoc/tanyadoc/internal/bot"
	"github.com/tanyadoc/tanyadoc/internal/config"
	"github.com/tanyadoc/tanyadoc/internal/db"
	"github.com/tanyadoc/tanyadoc/internal/embedcache"
	"github.com/tanyadoc/tanyadoc/internal/extract"
	"github.com/tanyadoc/tanyadoc/internal/filestore"
	"github.com/tanyadoc/tanyadoc/internal/handler"
	"github.com/tanyadoc/tanyadoc/internal/ingest"
	"github.com/tanyadoc/tanyadoc/internal/job"
	"github.com/tanyadoc/tanyadoc/internal/middleware"
	"github.com/tanyadoc/tanyadoc/internal/rag"
	"github.com/tanyadoc/tanyadoc/internal/repo"
	"github.com/tanyadoc/tanyadoc/internal/schedule"
	"github.com/tanyadoc/tanyadoc/internal/segment"
	"github.com/tanyadoc/tanyadoc/internal/session"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "tanyadoc",
		Short: "telegram document question-answering bot",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the bot",
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

			if cfg.Extract.PDFLicenseKey != "" {
				if err := license.SetMeteredKey(cfg.Extract.PDFLicenseKey); err != nil {
					return fmt.Errorf("set pdf license: %w", err)
				}
			}

			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return run(cfg, conn)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func run(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting bot",
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("embed_model", cfg.AI.EmbedModel),
		zap.Int("ops_port", cfg.Ops.Port),
	)

	provider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	timeout := time.Duration(cfg.AI.TimeoutSeconds) * time.Second
	generator := ai.NewGenerator(provider, cfg.AI.GenerateModel, timeout)
	describer := ai.NewDescriber(provider, cfg.AI.VisionModel, timeout)
	embedder := ai.NewEmbedder(provider, cfg.AI.EmbedModel, timeout)

	cacheRepo := repo.NewEmbeddingCacheRepo(conn)
	embedder = embedcache.WrapDB(embedder, cacheRepo)
	embedder = embedcache.WrapLRU(embedder, cfg.AI.CacheSize, time.Duration(cfg.AI.CacheTTLHours)*time.Hour)

	chunkRepo := repo.NewChunkRepo(conn)

	extractors := extract.NewRegistry()
	extractors.Register("pdf", extract.NewPDF(describer))
	extractors.Register("docx", extract.NewDocx())
	extractors.Register("txt", extract.NewText())
	extractors.Register("md", extract.NewMarkdown())

	segmenter := segment.New(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	ingestor := ingest.New(extractors, segmenter, embedder, chunkRepo, cfg.Ingest.BatchSize)

	ragService := rag.NewService(
		rag.NewRefiner(generator),
		rag.NewRetriever(embedder, chunkRepo, cfg.Retrieval.Threshold, cfg.Retrieval.TopK),
		rag.NewAnswerer(generator),
	)

	sessions := session.NewManager()

	archive, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	tgBot, err := bot.New(cfg.Telegram, bot.Deps{
		Sessions:   sessions,
		Ingestor:   ingestor,
		RAG:        ragService,
		Chunks:     chunkRepo,
		Extractors: extractors,
		Archive:    archive,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Ops.Port > 0 {
		if err := startOpsServer(ctx, cfg, chunkRepo, sessions); err != nil {
			return err
		}
	}

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewEmbedCacheCleanupJob(cacheRepo, cfg.Jobs.EmbedCacheKeepDays), cfg.Jobs.EmbedCacheCleanupSpec); err != nil {
		return err
	}
	if err := scheduler.AddJob(job.NewSessionSweepJob(sessions, time.Duration(cfg.Jobs.SessionIdleHours)*time.Hour), cfg.Jobs.SessionSweepSpec); err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	return tgBot.Run(ctx)
}

func startOpsServer(ctx context.Context, cfg *config.Config, chunkRepo *repo.ChunkRepo, sessions *session.Manager) error {
	deps := handler.RouterDeps{
		Ops: handler.NewOpsHandler(chunkRepo, sessions),
	}
	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Ops.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.Ops.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init ops server: %w", err)
	}
	logutil.GetLogger(ctx).Info("ops server listening", zap.Int("port", cfg.Ops.Port))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(ctx).Error("ops server error", zap.Error(err))
		}
	}()
	return nil
}
