// Package app assembles the store, object storage and services shared by the binaries.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"postboard/internal/config"
	"postboard/internal/repository/sqlite"
	"postboard/internal/service"
	"postboard/internal/storage"
)

// App holds the wired services.
type App struct {
	DB       *sql.DB
	Storage  storage.Service
	Users    service.UserService
	Profiles service.ProfileService
	Posts    service.PostService
	Comments service.CommentService
}

// NewLogger builds the process logger at the configured level.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level == "" {
		return logger
	}
	if lvl, err := logrus.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.Warnf("unknown log level %q, using info", level)
	}
	return logger
}

// Build opens the database, creates the schema and wires every service.
func Build(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*App, error) {
	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	userRepo := sqlite.NewUserRepository(db)
	profileRepo := sqlite.NewProfileRepository(db)
	postRepo := sqlite.NewPostRepository(db)
	commentRepo := sqlite.NewCommentRepository(db)

	if err := sqlite.InitAll(ctx, userRepo, profileRepo, postRepo, commentRepo); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	storageSvc, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	return &App{
		DB:       db,
		Storage:  storageSvc,
		Users:    service.NewUserService(userRepo, profileRepo, postRepo, storageSvc, logger),
		Profiles: service.NewProfileService(profileRepo, storageSvc, logger),
		Posts:    service.NewPostService(postRepo, storageSvc, logger),
		Comments: service.NewCommentService(commentRepo, postRepo),
	}, nil
}

func (a *App) Close() error {
	return a.DB.Close()
}

// URLExpiry is how long presigned image URLs stay valid.
func URLExpiry(cfg config.Config) time.Duration {
	return time.Duration(cfg.Storage.URLExpiry) * time.Minute
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	if cfg.Storage.Driver == config.StorageDriverMemory {
		logger.Warn("using in-memory image storage, uploads are lost on restart")
		return storage.NewMemoryService(cfg.Storage.KeyPrefix), nil
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client, storage.Options{
		Bucket:    cfg.Storage.Bucket,
		KeyPrefix: cfg.Storage.KeyPrefix,
	})
}
