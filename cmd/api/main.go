// Command api serves the ResumeDrop file endpoints.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/ResumeDrop/internal/api"
	"github.com/dharsanguruparan/ResumeDrop/internal/auth"
	"github.com/dharsanguruparan/ResumeDrop/internal/config"
	"github.com/dharsanguruparan/ResumeDrop/internal/database"
	"github.com/dharsanguruparan/ResumeDrop/internal/extract"
	"github.com/dharsanguruparan/ResumeDrop/internal/logger"
	"github.com/dharsanguruparan/ResumeDrop/internal/parsing"
	"github.com/dharsanguruparan/ResumeDrop/internal/profile"
	"github.com/dharsanguruparan/ResumeDrop/internal/queue"
	"github.com/dharsanguruparan/ResumeDrop/internal/redact"
	"github.com/dharsanguruparan/ResumeDrop/internal/repository"
	"github.com/dharsanguruparan/ResumeDrop/internal/s3storage"
	"github.com/dharsanguruparan/ResumeDrop/internal/security"
	"github.com/dharsanguruparan/ResumeDrop/internal/storage"
	"github.com/dharsanguruparan/ResumeDrop/internal/upload"
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

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("api stopped")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	if cfg.EphemeralSecret {
		log.Warn().Msg("no jwt secret configured, using a random one for this process")
	}
	disk, err := storage.NewDiskStore(cfg.UploadRoot)
	if err != nil {
		return err
	}

	var profiles profile.Store = profile.NewMemoryStore()
	if cfg.MongoURI != "" {
		mongoStore, err := profile.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return err
		}
		profiles = mongoStore
	} else {
		log.Warn().Msg("no mongo uri configured, upload history is kept in memory")
	}
	defer profiles.Close(context.Background())

	parser := parsing.New(disk.Root(), extract.New(log), redact.Redactor{}, log)
	deps := upload.Deps{
		Validator: security.NewValidator(log),
		Disk:      disk,
		Parser:    parser,
		Profiles:  profiles,
		Mode:      cfg.ProcessMode,
		Logger:    log,
	}
	apiDeps := api.Deps{
		Profiles: profiles,
		Auth:     auth.NewManager(cfg.JWTSecret, cfg.JWTExpiry),
		Logger:   log,
	}

	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := database.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		docs := repository.NewDocumentRepository(pool)
		audit := repository.NewAuditRepository(pool)
		deps.Audit = audit
		deps.Documents = docs
		apiDeps.Documents = docs
		apiDeps.Audit = audit
	}

	if cfg.S3Endpoint != "" {
		objects, err := s3storage.New(cfg)
		if err != nil {
			return err
		}
		if err := objects.EnsureBuckets(ctx); err != nil {
			return err
		}
		deps.Mirror = objects
		apiDeps.Presigner = objects
	}

	if cfg.ProcessMode == config.ProcessQueue {
		client := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()
		deps.Queue = queue.NewClient(client)
	}

	apiDeps.Uploads = upload.NewService(deps)
	log.Info().
		Str("upload_root", disk.Root()).
		Str("process_mode", cfg.ProcessMode).
		Bool("postgres", cfg.DatabaseURL != "").
		Bool("object_storage", cfg.S3Endpoint != "").
		Msg("starting api")
	return api.New(cfg, apiDeps).Run(ctx)
}
