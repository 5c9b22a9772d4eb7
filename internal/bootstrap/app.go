package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"resume-analyzer/internal/analysis"
	"resume-analyzer/internal/auth"
	"resume-analyzer/internal/extract"
	"resume-analyzer/internal/llm"
	"resume-analyzer/internal/llm/gemini"
	"resume-analyzer/internal/llm/openai"
	"resume-analyzer/internal/queue"
	"resume-analyzer/internal/resumes"
	"resume-analyzer/internal/resumes/progress"
	"resume-analyzer/internal/services/health"
	"resume-analyzer/internal/shared/config"
	"resume-analyzer/internal/shared/server"
	"resume-analyzer/internal/shared/storage/db"
	"resume-analyzer/internal/shared/storage/object"
	localstore "resume-analyzer/internal/shared/storage/object/local"
	s3store "resume-analyzer/internal/shared/storage/object/s3"
	"resume-analyzer/internal/shared/storage/object/simulated"
	"resume-analyzer/internal/shared/telemetry"
	"resume-analyzer/internal/users"
)

// Role selects pool sizing and dispatch behavior for the process being built.
type Role string

const (
	RoleAPI    Role = "api"
	RoleWorker Role = "worker"
	// RoleLambda shares one pool per container and leaves migrations to cmd/migrate.
	RoleLambda Role = "lambda"
)

const asyncAnalysisTimeout = 10 * time.Minute

// App holds shared dependencies.
type App struct {
	Config        config.Config
	Router        *gin.Engine
	DB            *sql.DB
	Store         object.ObjectStore
	Queue         queue.Client
	ProgressStore progress.Store
	Generator     llm.Generator
	Analyzer      *analysis.Analyzer
	Extractor     *extract.Extractor
	ResumesRepo   resumes.Repo
	UsersRepo     users.Repo
	Resumes       *resumes.Service
	Users         *users.Service
	Passwords     *auth.PasswordService
	Health        *health.Service
	GoogleAuth    *auth.GoogleService

	closers []func() error
}

// Build prepares every dependency for role and mounts the HTTP routes.
func Build(ctx context.Context, cfg config.Config, role Role) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	app := &App{Config: cfg}

	sqlDB, err := buildDB(ctx, cfg, role)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB

	if app.Store, err = NewStore(ctx, cfg); err != nil {
		return nil, err
	}
	if app.Generator, err = NewGenerator(ctx, cfg); err != nil {
		return nil, err
	}
	if app.ProgressStore, err = app.buildProgressStore(ctx, cfg); err != nil {
		return nil, err
	}
	if app.Queue, err = buildQueue(ctx, cfg); err != nil {
		return nil, err
	}
	if err := checkProgressSharing(cfg, role, app.ProgressStore, app.Queue != nil); err != nil {
		return nil, err
	}

	app.Analyzer = analysis.NewAnalyzer(app.Generator)
	app.Extractor = extract.NewExtractor(extract.PDFLoader{})

	app.buildServices(cfg)

	var progressPinger health.Pinger
	if rs, ok := app.ProgressStore.(*progress.RedisStore); ok {
		progressPinger = health.PingFunc(rs.Ping)
	}
	var dbPinger health.Pinger
	if app.DB != nil {
		dbPinger = app.DB
	}
	app.Health = health.NewService(dbPinger, progressPinger, app.Analyzer)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:        cfg,
		ResumeHandler: resumes.NewHandler(app.Resumes),
		AuthHandler:   auth.NewHandler(app.Passwords),
		GoogleAuth:    app.GoogleAuth,
		UserHandler:   users.NewHandler(app.Users),
		HealthHandler: health.NewHandler(app.Health),
	})

	return app, nil
}

// Close releases connections opened by Build.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			telemetry.Warn("bootstrap.close_failed", map[string]any{"error": err})
		}
	}
	a.closers = nil
}

func buildDB(ctx context.Context, cfg config.Config, role Role) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Info("bootstrap.memory_repositories", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, errors.New("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	switch role {
	case RoleWorker, RoleLambda:
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultWorkerOptions()))
	default:
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "database connect failed", "error": err})
			return nil, nil
		}
		return nil, err
	}

	if role == RoleAPI {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

// NewStore returns the object store selected by OBJECT_STORE.
func NewStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, errors.New("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "simulated":
		return simulated.New(time.Duration(cfg.SimulatedStoreDelayMs) * time.Millisecond), nil
	default:
		return localstore.New(cfg.LocalStoreDir, cfg.LocalStorePublicURL), nil
	}
}

// NewGenerator picks the model provider. A missing key is not fatal: the
// placeholder fails every call so uploads fall back to the content heuristics.
func NewGenerator(ctx context.Context, cfg config.Config) (llm.Generator, error) {
	switch cfg.LLMProvider {
	case "gemini":
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			telemetry.Warn("bootstrap.llm_unconfigured", map[string]any{"provider": "gemini"})
			return llm.PlaceholderGenerator{}, nil
		}
		return gemini.NewGenerator(ctx, cfg.GeminiAPIKey, cfg.LLMModel)
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			telemetry.Warn("bootstrap.llm_unconfigured", map[string]any{"provider": "openai"})
			return llm.PlaceholderGenerator{}, nil
		}
		return openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel)
	default:
		return llm.PlaceholderGenerator{}, nil
	}
}

func (a *App) buildProgressStore(ctx context.Context, cfg config.Config) (progress.Store, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return progress.NewMemoryStore(), nil
	}
	store, err := progress.NewRedisStore(ctx, cfg.RedisURL)
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_progress", map[string]any{"error": err})
			return progress.NewMemoryStore(), nil
		}
		return nil, err
	}
	a.closers = append(a.closers, store.Close)
	return store, nil
}

// checkProgressSharing rejects process-local progress when another process
// runs the analysis, since the API would only see its own snapshots.
func checkProgressSharing(cfg config.Config, role Role, store progress.Store, queued bool) error {
	if isDevLike(cfg.Env) {
		return nil
	}
	if _, local := store.(*progress.MemoryStore); !local {
		return nil
	}
	if queued || role != RoleAPI {
		return errors.New("queued analysis requires REDIS_URL for shared progress outside dev")
	}
	return nil
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.QueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.QueueURL)
}

func (a *App) buildServices(cfg config.Config) {
	var resetStore auth.ResetStore
	if a.DB != nil {
		a.ResumesRepo = &resumes.PGRepo{DB: a.DB}
		a.UsersRepo = &users.PGRepo{DB: a.DB}
		resetStore = &auth.PGResetStore{DB: a.DB}
	} else {
		a.ResumesRepo = resumes.NewMemoryRepo()
		a.UsersRepo = users.NewMemoryRepo()
		resetStore = auth.NewMemoryResetStore()
	}

	svc := &resumes.Service{
		Repo:      a.ResumesRepo,
		Store:     a.Store,
		Extractor: a.Extractor,
		Analyzer:  a.Analyzer,
		Tracker:   progress.NewTracker(a.ProgressStore),
	}
	if a.Queue != nil {
		svc.Dispatcher = resumes.QueueDispatcher{Queue: a.Queue}
	} else {
		svc.Dispatcher = resumes.AsyncDispatcher{Processor: svc, Timeout: asyncAnalysisTimeout}
	}
	a.Resumes = svc

	a.Users = users.NewService(a.UsersRepo)
	a.Passwords = auth.NewPasswordService(a.UsersRepo, resetStore, auth.LogMailer{}, cfg.PasswordResetURL)
	a.GoogleAuth = auth.NewGoogleService(
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.GoogleRedirectURL,
		cfg.UIRedirectURL,
		a.Users,
	)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}
