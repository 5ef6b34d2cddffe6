package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/meditrack-ai/platform/pkg/analysis"
	"github.com/meditrack-ai/platform/pkg/cache"
	"github.com/meditrack-ai/platform/pkg/chat"
	"github.com/meditrack-ai/platform/pkg/clinical"
	"github.com/meditrack-ai/platform/pkg/common/config"
	"github.com/meditrack-ai/platform/pkg/common/database"
	"github.com/meditrack-ai/platform/pkg/common/kafka"
	"github.com/meditrack-ai/platform/pkg/common/logger"
	"github.com/meditrack-ai/platform/pkg/gateway/routes"
	"github.com/meditrack-ai/platform/pkg/llm"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.NewPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redisClient, err := database.NewRedis(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisClient.Close()

	clinicalRepo := clinical.NewRepository(db)
	if err := clinicalRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate clinical tables")
	}
	reportRepo := analysis.NewRepository(db)
	if err := reportRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate analysis tables")
	}

	scoring, err := analysis.LoadScoringConfig(cfg.ScoringConfigPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load scoring config")
	}

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaEventTopic)
	defer producer.Close()

	writer := analysis.NewWriter(reportRepo, producer, cfg.WriterQueueSize)
	redisCache := cache.NewRedis(redisClient)
	llmClient := llm.New(cfg)

	analysisService := analysis.NewService(clinicalRepo, reportRepo, redisCache, llmClient, writer, scoring, cfg.AnalysisCacheTTL)
	chatService := chat.NewService(clinicalRepo, llmClient)

	// Patient-change events invalidate the cached analyses and dashboards
	// derived from that patient's data.
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaEventTopic, cfg.KafkaGroupID)
	go func() {
		err := consumer.Consume(consumerCtx, func(ctx context.Context, event kafka.Event) error {
			if event.Type != "patient.updated" && event.Type != "patient.data.changed" {
				return nil
			}
			patientID, _ := event.Data["patient_id"].(string)
			if patientID == "" {
				return nil
			}
			if _, err := redisCache.DeleteMatching(ctx, fmt.Sprintf("ai_analysis:%s:*", patientID)); err != nil {
				return err
			}
			_, err := redisCache.DeleteMatching(ctx, "dashboard:*")
			return err
		})
		if err != nil && consumerCtx.Err() == nil {
			logger.Log.WithError(err).Error("cache invalidation consumer stopped")
		}
	}()

	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheck).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	routes.NewAnalysisHandler(analysisService).Register(api)
	routes.NewChatHandler(chatService, cfg.HeartbeatInterval).Register(api)

	server := &http.Server{
		Addr:        fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:     router,
		ReadTimeout: cfg.ReadTimeout,
		// WriteTimeout stays generous so SSE streams are not cut off.
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Analysis Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Analysis Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	stopConsumer()
	consumer.Close()
	writer.Close()

	logger.Log.Info("Analysis Service stopped")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
