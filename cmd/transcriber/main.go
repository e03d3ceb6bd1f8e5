// Command transcriber serves the transcription API: synchronous and batch
// transcription over HTTP, optional Kafka ingestion, Redis-backed job and
// result records, and webhook callbacks.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tinkervoid/transcriber/internal/audio"
	"github.com/tinkervoid/transcriber/internal/config"
	"github.com/tinkervoid/transcriber/internal/consumer"
	"github.com/tinkervoid/transcriber/internal/engine"
	"github.com/tinkervoid/transcriber/internal/engine/whisper"
	"github.com/tinkervoid/transcriber/internal/logger"
	"github.com/tinkervoid/transcriber/internal/orchestrator"
	"github.com/tinkervoid/transcriber/internal/server"
	"github.com/tinkervoid/transcriber/internal/status"
	"github.com/tinkervoid/transcriber/internal/storage"
	"github.com/tinkervoid/transcriber/internal/webhook"
)

const serviceName = "transcriber"

func main() {
	var cfg config.Config
	if err := config.Load(&cfg); err != nil {
		logger.NewDefault(serviceName).Fatal("Configuration error", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
	}

	log := logger.New(&cfg.Log, serviceName)
	ctx := context.Background()

	blobs, err := storage.NewClient(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal("Storage client error", map[string]interface{}{logger.FieldError: err.Error()})
	}

	store, err := status.NewStore(cfg.Redis, log)
	if err != nil {
		log.Fatal("Status store error", map[string]interface{}{logger.FieldError: err.Error()})
	}
	defer store.Close()

	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	if err := store.Ping(pingCtx); err != nil {
		log.Warn("Redis unreachable at startup, continuing", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
	}
	cancelPing()

	normalizer, err := audio.NewNormalizer(cfg.Audio, log)
	if err != nil {
		log.Fatal("Normalizer error", map[string]interface{}{logger.FieldError: err.Error()})
	}

	guard := engine.NewGuard(whisper.New(log), normalizer, log)
	if err := guard.Load(ctx, cfg.Engine.ModelPath); err != nil {
		log.Fatal("Model load failed", map[string]interface{}{
			logger.FieldError: err.Error(),
			"model_path":      cfg.Engine.ModelPath,
		})
	}
	defer guard.Close()

	webhookTimeout, _ := time.ParseDuration(cfg.Webhook.Timeout)
	notifier := webhook.NewClient(webhookTimeout, log)

	runner := orchestrator.NewRunner(blobs, guard, store, notifier, log)
	tracker := orchestrator.NewTracker(log)

	srv := server.New(cfg.Server, log)
	server.NewHandlers(runner, tracker, guard, store, log).Register(srv.GinEngine())

	var queue *consumer.Consumer
	if cfg.Kafka.Enabled {
		queue, err = consumer.New(cfg.Kafka, log)
		if err != nil {
			log.Fatal("Consumer error", map[string]interface{}{logger.FieldError: err.Error()})
		}
		handler := consumer.TranscribeHandler(runner, log)
		tracker.Go("consumer", func(bg context.Context) {
			if err := queue.Consume(bg, handler); err != nil && bg.Err() == nil {
				log.Error("Consume loop exited", map[string]interface{}{
					logger.FieldError: err.Error(),
				})
			}
		})
	}

	if err := srv.Start(ctx); err != nil {
		log.Fatal("Server start failed", map[string]interface{}{logger.FieldError: err.Error()})
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("Shutdown signal received", map[string]interface{}{"signal": sig.String()})

	// Stop intake first, then drain in-flight batch jobs within the grace
	// period. Interrupted jobs mark themselves so pollers see it.
	if err := srv.Stop(ctx); err != nil {
		log.Error("Server stop error", map[string]interface{}{logger.FieldError: err.Error()})
	}

	grace, _ := time.ParseDuration(cfg.Shutdown.Grace)
	if !tracker.Drain(grace) {
		log.Warn("Shutdown grace period expired with work in flight")
	}

	if queue != nil {
		if err := queue.Close(); err != nil {
			log.Error("Consumer close error", map[string]interface{}{logger.FieldError: err.Error()})
		}
	}

	log.Info("Shutdown complete")
}
