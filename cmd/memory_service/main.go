package main

import (
	"Mnemo_1.0/internal/config"
	"Mnemo_1.0/internal/database/kafka"
	"Mnemo_1.0/internal/database/milvus"
	"Mnemo_1.0/internal/database/mongo"
	"Mnemo_1.0/internal/database/neo4j"
	"Mnemo_1.0/internal/database/redis"
	"Mnemo_1.0/internal/embedding"
	"Mnemo_1.0/internal/llm"
	"Mnemo_1.0/internal/memory/api"
	"Mnemo_1.0/internal/memory/consumer"
	"Mnemo_1.0/internal/memory/extractor"
	"Mnemo_1.0/internal/memory/reconciler"
	"Mnemo_1.0/internal/memory/service"
	"Mnemo_1.0/internal/memory/store"
	"Mnemo_1.0/internal/memory/window"
	"Mnemo_1.0/internal/models"
	"Mnemo_1.0/pkg/logger"
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	level, err := logrus.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.Init(level)
	appLogger := logger.New("memory_service", "", "")

	// Initialize database clients
	ctx := context.Background()
	milvusClient, err := milvus.GetClient(ctx, &cfg.Databases.Milvus)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	defer milvusClient.Close()

	// A collection whose dimension disagrees with the configuration must
	// stop the service here, before any request is accepted.
	if err := milvusClient.EnsureCollection(ctx); err != nil {
		appLogger.Fatal(err.Error())
	}

	neo4jClient, err := neo4j.GetClient(ctx, &cfg.Databases.Neo4j)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	defer neo4jClient.Close(ctx)

	redisClient, err := redis.GetClient(ctx, &cfg.Databases.Redis)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	defer redisClient.Close()

	mongoClient, err := mongo.GetClient(ctx, &cfg.Databases.MongoDB)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	defer mongoClient.Close(ctx)

	// Initialize embedding and LLM clients
	embedder, err := embedding.NewEmdModel(embeddingParams(&cfg.Embedding))
	if err != nil {
		appLogger.Fatal(err.Error())
	}

	llmClient, err := llm.NewLLM(llmParams(&cfg.LLM))
	if err != nil {
		appLogger.Fatal(err.Error())
	}

	// Initialize stores
	vecStore := store.NewMilvusFactStore(milvusClient)
	graphStore := store.NewNeo4jGraphStore(neo4jClient)
	historyStore := store.NewMongoHistoryStore(mongoClient)
	turnWindow := window.NewTurnWindow(redisClient.Client, cfg.Engine.WindowSize)

	// Initialize extractors and the reconciler
	factExtractor := extractor.NewLlmExtractor(llmClient)
	graphExtractor := extractor.NewGraphExtractor(llmClient)

	rec, err := reconciler.NewReconciler(vecStore, graphStore, historyStore, embedder, llmClient, &cfg.Engine, appLogger)
	if err != nil {
		appLogger.Fatal(err.Error())
	}

	// Initialize the memory engine
	memoryService, err := service.NewMemoryService(factExtractor, graphExtractor, vecStore, graphStore,
		historyStore, rec, embedder, turnWindow, &cfg.Engine, cfg.Embedding.Dim, appLogger)
	if err != nil {
		appLogger.Fatal(err.Error())
	}

	// Start the HTTP API
	router := api.SetupRouter(api.NewHandler(memoryService, appLogger), &cfg.Middleware)
	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal(err.Error())
		}
	}()

	// Start the Kafka consumer when a broker is configured
	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	if len(cfg.Databases.Kafka.Brokers) > 0 {
		reader := kafka.NewReader(&cfg.Databases.Kafka)
		defer kafka.CloseReader(reader)
		turnConsumer := consumer.NewTurnConsumer(reader, memoryService, appLogger)
		go func() {
			if err := turnConsumer.Run(consumerCtx); err != nil {
				appLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("kafka consumer stopped")
			}
		}()
	}

	appLogger.Info("Memory service started")

	// Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	stopConsumer()
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("http server shutdown failed")
	}

	appLogger.Info("Memory service stopped")
}

// llmParams 根据提供商选择 LLM 的模型与凭据。
func llmParams(cfg *config.LLMConfig) (provider, model, apiKey, baseURL string) {
	switch cfg.Provider {
	case "openai":
		return cfg.Provider, cfg.OpenAI.Model, cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL
	case "ollama":
		return cfg.Provider, cfg.Ollama.Model, "", cfg.Ollama.BaseURL
	default:
		return cfg.Provider, cfg.Gemini.Model, cfg.Gemini.APIKey, ""
	}
}

// embeddingParams 根据提供商选择 Embedding 的模型与凭据。
func embeddingParams(cfg *config.EmbeddingConfig) (provider, model, apiKey, baseURL string) {
	switch cfg.Provider {
	case "openai":
		return cfg.Provider, cfg.OpenAI.Model, cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL
	case "ollama":
		return cfg.Provider, cfg.Ollama.Model, "", cfg.Ollama.BaseURL
	default:
		return cfg.Provider, cfg.Gemini.Model, cfg.Gemini.APIKey, ""
	}
}
