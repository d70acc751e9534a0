// Command worker processes queued document parse jobs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/ResumeDrop/internal/config"
	"github.com/dharsanguruparan/ResumeDrop/internal/database"
	"github.com/dharsanguruparan/ResumeDrop/internal/extract"
	"github.com/dharsanguruparan/ResumeDrop/internal/logger"
	"github.com/dharsanguruparan/ResumeDrop/internal/parsing"
	"github.com/dharsanguruparan/ResumeDrop/internal/redact"
	"github.com/dharsanguruparan/ResumeDrop/internal/repository"
	"github.com/dharsanguruparan/ResumeDrop/internal/s3storage"
	"github.com/dharsanguruparan/ResumeDrop/internal/storage"
	"github.com/dharsanguruparan/ResumeDrop/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("load config")
	}
	logPtr, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("init logger")
	}
	log := *logPtr

	if cfg.RedisAddr == "" || cfg.DatabaseURL == "" {
		log.Fatal().Msg("worker needs RESUMEDROP_REDIS_ADDR and RESUMEDROP_DATABASE_URL")
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("ensure schema")
	}
	repo := repository.NewDocumentRepository(pool)

	disk, err := storage.NewDiskStore(cfg.UploadRoot)
	if err != nil {
		log.Fatal().Err(err).Msg("init upload root")
	}
	parser := parsing.New(disk.Root(), extract.New(log), redact.Redactor{}, log)

	var objects worker.Objects
	if cfg.S3Endpoint != "" {
		store, err := s3storage.New(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("init storage")
		}
		if err := store.EnsureBuckets(ctx); err != nil {
			log.Fatal().Err(err).Msg("ensure buckets")
		}
		objects = store
	}

	server := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Logger:      asynqLogger{log.With().Str("component", "asynq").Logger()},
	})
	processor := worker.NewProcessor(repo, objects, parser, log)
	mux := processor.Handler()

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	log.Info().Int("concurrency", cfg.WorkerConcurrency).Msg("worker started")
	if err := server.Run(mux); err != nil {
		log.Error().Err(err).Msg("worker stopped")
		os.Exit(1)
	}
}

// asynqLogger routes asynq's internal logs through zerolog.
type asynqLogger struct {
	log zerolog.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.log.Debug().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{}) { l.log.Info().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{}) { l.log.Warn().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.log.Error().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) { l.log.Fatal().Msg(fmt.Sprint(args...)) }
