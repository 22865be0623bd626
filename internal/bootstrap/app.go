package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	googleauth "ats-backend/internal/auth"
	"ats-backend/internal/candidates"
	"ats-backend/internal/capabilities"
	"ats-backend/internal/intake"
	"ats-backend/internal/queue"
	"ats-backend/internal/shared/config"
	"ats-backend/internal/shared/server"
	"ats-backend/internal/shared/storage/db"
	"ats-backend/internal/shared/storage/object"
	localstore "ats-backend/internal/shared/storage/object/local"
	s3store "ats-backend/internal/shared/storage/object/s3"
)

// App holds shared dependencies for the API server and workers.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client

	CandidatesRepo candidates.Repo
	TaskRepo       intake.TaskRepo

	IntakeService     *intake.Service
	CandidatesService *candidates.Service
	Resolver          *capabilities.Resolver

	IntakeHandler      *intake.Handler
	CandidatesHandler  *candidates.Handler
	PermissionsHandler *capabilities.Handler
	GoogleAuth         *googleauth.GoogleService

	// TaskProcessor allows tests to override upload task execution.
	TaskProcessor TaskProcessor
}

// TaskProcessor executes a staged upload task.
type TaskProcessor interface {
	ProcessTask(ctx context.Context, taskID string) error
}

// Build prepares shared dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
	}

	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:             app.Config,
		Resolver:           app.Resolver,
		IntakeHandler:      app.IntakeHandler,
		CandidatesHandler:  app.CandidatesHandler,
		PermissionsHandler: app.PermissionsHandler,
		GoogleAuth:         app.GoogleAuth,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.TaskQueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.TaskQueueURL, cfg.AWSRegion)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(app *App) {
	var candRepo candidates.Repo
	var taskRepo intake.TaskRepo
	var capStore capabilities.Store

	if app.DB != nil {
		candRepo = &candidates.PGRepo{DB: app.DB}
		taskRepo = &intake.PGRepo{DB: app.DB}
		capStore = &capabilities.PGStore{DB: app.DB}
	} else {
		candRepo = candidates.NewMemoryRepo()
		taskRepo = intake.NewMemoryRepo()
		capStore = capabilities.NewMemoryStore()
	}

	var enqueuer intake.TaskEnqueuer
	if app.Queue != nil {
		enqueuer = &queue.TaskEnqueuer{Client: app.Queue}
	}

	intakeSvc := &intake.Service{
		Tasks:      taskRepo,
		Candidates: candRepo,
		Store:      app.Store,
		Queue:      enqueuer,
	}
	candSvc := &candidates.Service{Repo: candRepo}
	resolver := capabilities.NewResolver(capStore)

	app.CandidatesRepo = candRepo
	app.TaskRepo = taskRepo
	app.IntakeService = intakeSvc
	app.CandidatesService = candSvc
	app.Resolver = resolver
	app.TaskProcessor = intakeSvc

	app.IntakeHandler = intake.NewHandler(intakeSvc)
	app.CandidatesHandler = candidates.NewHandler(candSvc)
	app.PermissionsHandler = capabilities.NewHandler(resolver)
	app.GoogleAuth = googleauth.NewGoogleService(
		app.Config.GoogleClientID,
		app.Config.GoogleClientSecret,
		app.Config.GoogleRedirectURL,
		app.Config.UIRedirectURL,
	)
}
