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
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/ragcore/internal/ai"
	"github.com/xxxsen/ragcore/internal/config"
	"github.com/xxxsen/ragcore/internal/db"
	"github.com/xxxsen/ragcore/internal/embedcache"
	"github.com/xxxsen/ragcore/internal/filegen"
	"github.com/xxxsen/ragcore/internal/filestore"
	"github.com/xxxsen/ragcore/internal/handler"
	"github.com/xxxsen/ragcore/internal/ingestion"
	"github.com/xxxsen/ragcore/internal/job"
	"github.com/xxxsen/ragcore/internal/loader"
	"github.com/xxxsen/ragcore/internal/memory"
	"github.com/xxxsen/ragcore/internal/middleware"
	"github.com/xxxsen/ragcore/internal/pdfrender"
	"github.com/xxxsen/ragcore/internal/rag"
	"github.com/xxxsen/ragcore/internal/repo"
	"github.com/xxxsen/ragcore/internal/schedule"
	"github.com/xxxsen/ragcore/internal/splitter"
	"github.com/xxxsen/ragcore/internal/stream"
	"github.com/xxxsen/ragcore/internal/vectorstore"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "ragcore",
		Short: "ragcore backend server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run ragcore server",
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

			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
		zap.String("vector_store", fmt.Sprintf("%s:%d", cfg.VectorStore.Host, cfg.VectorStore.Port)),
	)

	projectRepo := repo.NewProjectRepo(conn)
	documentRepo := repo.NewDocumentRepo(conn)
	conversationRepo := repo.NewConversationRepo(conn)
	messageRepo := repo.NewMessageRepo(conn)
	embeddingCacheRepo := repo.NewEmbeddingCacheRepo(conn)
	generatedFileRepo := repo.NewGeneratedFileRepo(conn)
	generatedFileVersionRepo := repo.NewGeneratedFileVersionRepo(conn)

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	chatProvider, err := ai.NewChatProvider(cfg.AI.ChatProvider, chatProviderArgs(cfg.AI))
	if err != nil {
		return fmt.Errorf("init chat provider: %w", err)
	}
	embedProvider, err := ai.NewEmbedProvider(cfg.AI.EmbedProvider, embedProviderArgs(cfg.AI))
	if err != nil {
		return fmt.Errorf("init embed provider: %w", err)
	}
	chatModel := ai.NewChatModel(chatProvider, chatModelName(cfg.AI))
	embedder := ai.NewEmbedder(embedProvider, embedModelName(cfg.AI), ai.EmbeddingDimension(embedModelName(cfg.AI), cfg.AI.EmbeddingDimension))
	embedder = embedcache.WrapDBCacheToEmbedder(embedder, embeddingCacheRepo)
	embedder = embedcache.WrapLruCacheToEmbedder(embedder, 4096, 10*time.Minute)

	gateway, err := vectorstore.NewQdrantGateway(vectorstore.QdrantConfig{
		Host:   cfg.VectorStore.Host,
		Port:   cfg.VectorStore.Port,
		APIKey: cfg.VectorStore.APIKey,
		UseTLS: cfg.VectorStore.UseTLS,
	})
	if err != nil {
		return fmt.Errorf("init vector store gateway: %w", err)
	}

	docLoader := loader.New()
	docSplitter := splitter.New(splitter.Config{
		ChunkSize:  cfg.Ingestion.ChunkSize,
		Overlap:    cfg.Ingestion.ChunkOverlap,
		Separators: splitter.DefaultSeparators,
	})
	coordinator := ingestion.New(documentRepo, projectRepo, store, docLoader, docSplitter, embedder, gateway)

	memoryMgr := memory.New(messageRepo, chatModel, memory.Config{
		MaxTokens:        cfg.Memory.MaxTokens,
		MaxMessages:      cfg.Memory.MaxMessages,
		SummaryThreshold: cfg.Memory.SummaryThreshold,
		EntityThreshold:  cfg.Memory.EntityThreshold,
	})
	engine := rag.New(projectRepo, documentRepo, embedder, gateway, chatModel, memoryMgr, rag.Config{
		MaxChunks:           cfg.Ingestion.MaxChunks,
		SimilarityThreshold: cfg.Ingestion.SimilarityThreshold,
	})
	ownership := stream.NewRepoOwnershipChecker(projectRepo)

	pdfEngine := pdfrender.New()
	progress := filegen.NewProgressBroadcaster()
	generator := filegen.New(generatedFileRepo, generatedFileVersionRepo, projectRepo, documentRepo, embedder, gateway, chatModel, store, pdfEngine, progress)

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewReingestSweepJob(coordinator), "*/15 * * * *"); err != nil {
		return fmt.Errorf("schedule reingest sweep: %w", err)
	}
	if err := scheduler.AddJob(job.NewEmbeddingCacheCleanupJob(embeddingCacheRepo, 30), "0 3 * * *"); err != nil {
		return fmt.Errorf("schedule embedding cache cleanup: %w", err)
	}

	projectHandler := handler.NewProjectHandler(projectRepo)
	deps := handler.RouterDeps{
		Projects:  projectHandler,
		Documents: handler.NewDocumentHandler(documentRepo, projectHandler, store, coordinator),
		Query:     handler.NewQueryHandler(engine, projectHandler, conversationRepo),
		Stream:    handler.NewStreamHandler(engine, conversationRepo, messageRepo, ownership),
		FileGen:   handler.NewFileGenHandler(generator, projectHandler),
		JWTSecret: []byte(cfg.JWTSecret),
	}

	webEngine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(nil),
			middleware.RateLimit(0),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler.Start(ctx)
	defer scheduler.Stop()

	go func() {
		if err := webEngine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

// chatProviderArgs/embedProviderArgs/chatModelName/embedModelName translate
// the flat AIConfig into the per-provider shapes ai.NewChatProvider and
// ai.NewEmbedProvider decode via their own config structs, and the model
// name each provider call is made with.
func chatProviderArgs(cfg config.AIConfig) interface{} {
	switch cfg.ChatProvider {
	case "gemini":
		return map[string]interface{}{"api_key": cfg.GeminiAPIKey}
	default:
		return map[string]interface{}{"api_key": cfg.OpenAIAPIKey, "base_url": cfg.OpenAIBaseURL}
	}
}

func embedProviderArgs(cfg config.AIConfig) interface{} {
	switch cfg.EmbedProvider {
	case "gemini":
		return map[string]interface{}{"api_key": cfg.GeminiAPIKey}
	default:
		return map[string]interface{}{"api_key": cfg.OpenAIAPIKey, "base_url": cfg.OpenAIBaseURL}
	}
}

func chatModelName(cfg config.AIConfig) string {
	if cfg.ChatProvider == "gemini" {
		return cfg.GeminiChatModel
	}
	return cfg.OpenAIChatModel
}

func embedModelName(cfg config.AIConfig) string {
	if cfg.EmbedProvider == "gemini" {
		return cfg.GeminiEmbedModel
	}
	return cfg.OpenAIEmbeddingModel
}
