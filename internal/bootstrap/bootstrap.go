package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	appControllers "github.com/commandinlaw/academy/internal/app/controllers"
	appMigrations "github.com/commandinlaw/academy/internal/app/migrations"
	appRepos "github.com/commandinlaw/academy/internal/app/repositories"
	pgRepos "github.com/commandinlaw/academy/internal/app/repositories/pg"
	restRepos "github.com/commandinlaw/academy/internal/app/repositories/rest"
	appRoutes "github.com/commandinlaw/academy/internal/app/routes"
	appServices "github.com/commandinlaw/academy/internal/app/services"
	"github.com/commandinlaw/academy/internal/config"
	"github.com/commandinlaw/academy/internal/db"
	appMiddleware "github.com/commandinlaw/academy/internal/middleware"
	pkgAuth "github.com/commandinlaw/academy/internal/pkg/auth"
	"github.com/commandinlaw/academy/internal/pkg/helpers"
	"github.com/commandinlaw/academy/internal/pkg/identity"
	"github.com/commandinlaw/academy/internal/pkg/logger"
	"github.com/commandinlaw/academy/internal/pkg/media"
	"github.com/commandinlaw/academy/internal/pkg/observability"
	"github.com/commandinlaw/academy/internal/pkg/postgrest"
	"github.com/commandinlaw/academy/internal/pkg/session"
	"github.com/commandinlaw/academy/internal/pkg/submitguard"
	"github.com/commandinlaw/academy/internal/seed"
	"github.com/commandinlaw/academy/internal/web"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos               *appRepos.Repositories
	Identity            identity.Provider
	Services            *appServices.Services
	Media               media.Host
	LocalMedia          *media.LocalStorage // set when media is stored on disk
	Guard               submitguard.Guard
	Drafts              session.DraftStore
	Sessions            *session.Manager
	AuthMiddleware      *appMiddleware.AuthMiddleware
	PageController      *appControllers.PageController
	AuthController      *appControllers.AuthController
	DashboardController *appControllers.DashboardController
	ManageController    *appControllers.ManageController
	APIController       *appControllers.APIController
	Logger              zerolog.Logger

	closers []func(context.Context) error
}

// Close releases connections opened while building the dependencies.
func (d *Dependencies) Close(ctx context.Context) error {
	var firstErr error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ConfigPath returns the config file location, overridable with CONFIG_PATH.
func ConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return filepath.Join("configs", "config.yaml")
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(ConfigPath())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	lgr := logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: strings.ToLower(cfg.Logging.Format) == "text",
	})

	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupTracing installs the tracer provider and returns its shutdown function.
func SetupTracing(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) func(context.Context) error {
	shutdown := observability.InitOTel(ctx, observability.OtelConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Server.Mode,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	lgr.Info().Bool("enabled", cfg.Tracing.Enabled).Msg("Tracing configured")
	return shutdown
}

// SetupDatabase connects to Postgres and applies migrations. It is only
// used by the postgres backend.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	lgr.Info().Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(database)
	if dir := cfg.Database.MigrationsDir; dir != "" {
		if _, err := os.Stat(dir); err != nil {
			database.Close()
			return nil, fmt.Errorf("migrations directory not found at %s: %w", dir, err)
		}
		err = migrator.MigrateFromDirectory(ctx, dir)
	} else {
		err = migrator.MigrateEmbedded(ctx)
	}
	if err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		database.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	return database, nil
}

// BuildDependencies initializes the collaborators, repositories, services
// and controllers for the configured backends.
func BuildDependencies(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}
	httpClient := observability.NewHTTPClient(helpers.ParseDuration(cfg.HTTPClient.Timeout, time.Minute))

	var verifier appServices.TokenVerifier
	switch cfg.Backend {
	case config.BackendPostgres:
		database, err := SetupDatabase(ctx, cfg, lgr)
		if err != nil {
			return nil, err
		}
		deps.closers = append(deps.closers, func(context.Context) error {
			database.Close()
			return nil
		})

		jwtService := pkgAuth.NewJWTService(pkgAuth.JWTConfig{
			SecretKey:       cfg.Auth.JWTSecret,
			AccessTokenExp:  helpers.ParseDuration(cfg.Auth.AccessTokenExpiration, time.Hour),
			RefreshTokenExp: helpers.ParseDuration(cfg.Auth.RefreshTokenExpiration, 720*time.Hour),
			TokenIssuer:     cfg.Auth.Issuer,
		})
		local := identity.NewLocalProvider(database, jwtService)
		if err := seed.CreateDefaultAdmin(ctx, local, cfg.Auth.SeedAdminEmail, cfg.Auth.SeedAdminPassword, lgr); err != nil {
			lgr.Error().Err(err).Msg("Failed to create default admin, proceeding anyway...")
		}

		deps.Repos = pgRepos.NewRepositories(database)
		deps.Identity = local
		verifier = jwtService

	case config.BackendSupabase:
		deps.Repos = restRepos.NewRepositories(postgrest.NewClient(cfg.Supabase.URL, cfg.Supabase.AnonKey, httpClient))
		deps.Identity = identity.NewGoTrueClient(cfg.Supabase.URL, cfg.Supabase.AnonKey, httpClient)
		if cfg.Supabase.JWTSecret != "" {
			verifier = pkgAuth.NewJWTService(pkgAuth.JWTConfig{SecretKey: cfg.Supabase.JWTSecret})
		}

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	lgr.Info().Str("backend", cfg.Backend).Bool("localTokenCheck", verifier != nil).Msg("Content store configured")

	if err := deps.setupMedia(cfg, httpClient); err != nil {
		_ = deps.Close(ctx)
		return nil, err
	}
	if err := deps.setupStores(ctx, cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, err
	}

	deps.Sessions = session.NewManager(session.Options{
		Name:   cfg.Session.Name,
		Secret: cfg.Session.Secret,
		MaxAge: cfg.Session.MaxAge,
		Secure: cfg.Session.Secure,
		Drafts: deps.Drafts,
	})

	deps.Services = appServices.NewServices(deps.Repos, deps.Identity, deps.Media, appServices.Options{
		SaveAllMode: cfg.Manage.SaveAllMode,
		Verifier:    verifier,
	})

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.Sessions, deps.Services.Auth, deps.Services.Dashboard)

	deps.PageController = appControllers.NewPageController(deps.Services.Catalog, deps.Media, deps.Sessions)
	deps.AuthController = appControllers.NewAuthController(deps.Services.Auth, deps.Sessions, logger.Component("auth"))
	deps.DashboardController = appControllers.NewDashboardController(deps.Services.Dashboard, deps.Services.Course, deps.Guard, deps.Sessions)
	deps.ManageController = appControllers.NewManageController(deps.Services.Course, deps.Media, deps.Guard, deps.Sessions,
		helpers.MegabytesToBytes(cfg.Server.MaxUploadMB))
	deps.APIController = appControllers.NewAPIController(deps.Services.Catalog, deps.Media, cfg.Backend, cfg.Media.Provider)

	return deps, nil
}

// setupMedia selects the media host.
func (d *Dependencies) setupMedia(cfg *config.Config, httpClient *http.Client) error {
	switch cfg.Media.Provider {
	case config.MediaLocal:
		storage, err := media.NewLocalStorage(cfg.Media.StoragePath, baseURL(cfg)+uploadsPath)
		if err != nil {
			return fmt.Errorf("failed to initialize media storage: %w", err)
		}
		d.Media = storage
		d.LocalMedia = storage
	case config.MediaCloudinary:
		d.Media = media.NewCloudinary(media.CloudinaryConfig{
			CloudName:    cfg.Media.CloudName,
			UploadPreset: cfg.Media.UploadPreset,
			APIKey:       cfg.Media.APIKey,
			APISecret:    cfg.Media.APISecret,
		}, httpClient)
	default:
		return fmt.Errorf("unknown media provider %q", cfg.Media.Provider)
	}
	d.Logger.Info().Str("provider", cfg.Media.Provider).Msg("Media host configured")
	return nil
}

// setupStores selects where one-time form tokens and course drafts live.
// Both share one redis connection when either needs it.
func (d *Dependencies) setupStores(ctx context.Context, cfg *config.Config) error {
	var client *redis.Client
	redisClient := func() (*redis.Client, error) {
		if client != nil {
			return client, nil
		}
		c, err := submitguard.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, func(context.Context) error { return c.Close() })
		client = c
		return c, nil
	}

	ttl := helpers.ParseDuration(cfg.SubmitGuard.TTL, time.Hour)
	switch cfg.SubmitGuard.Provider {
	case config.GuardRedis:
		c, err := redisClient()
		if err != nil {
			return err
		}
		d.Guard = submitguard.NewRedisGuard(c, ttl)
	case config.GuardMemory:
		d.Guard = submitguard.NewMemoryGuard(ttl, cfg.SubmitGuard.MaxTokens)
	default:
		return fmt.Errorf("unknown submit guard provider %q", cfg.SubmitGuard.Provider)
	}
	d.Logger.Info().Str("provider", cfg.SubmitGuard.Provider).Dur("ttl", ttl).Msg("Submit guard configured")

	draftTTL := helpers.ParseDuration(cfg.Session.DraftTTL, 24*time.Hour)
	switch cfg.Session.DraftStore {
	case config.GuardRedis:
		c, err := redisClient()
		if err != nil {
			return err
		}
		d.Drafts = session.NewRedisDraftStore(c, draftTTL)
	case config.GuardMemory:
		d.Drafts = session.NewMemoryDraftStore(draftTTL, cfg.Session.MaxDrafts)
	default:
		return fmt.Errorf("unknown draft store %q", cfg.Session.DraftStore)
	}
	d.Logger.Info().Str("provider", cfg.Session.DraftStore).Dur("ttl", draftTTL).Msg("Draft store configured")
	return nil
}

const uploadsPath = "/uploads"

// baseURL is the public origin of the server.
func baseURL(cfg *config.Config) string {
	if cfg.Server.BaseURL != "" {
		return strings.TrimRight(cfg.Server.BaseURL, "/")
	}
	return "http://localhost:" + cfg.Server.Port
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	renderer, err := web.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	router := gin.New()
	router.HTMLRender = renderer
	router.Use(
		gin.Recovery(),
		otelgin.Middleware(cfg.Tracing.ServiceName),
		appMiddleware.AttachTraceContext(),
		appMiddleware.RequestLogger(),
	)

	appRoutes.SetupRouter(router,
		deps.PageController,
		deps.AuthController,
		deps.DashboardController,
		deps.ManageController,
		deps.APIController,
		deps.AuthMiddleware,
		cfg.CORS.AllowedOrigins,
	)

	if deps.LocalMedia != nil {
		router.Static(uploadsPath, deps.LocalMedia.BasePath())
		lgr.Info().Str("path", deps.LocalMedia.BasePath()).Msg("Static file serving configured for uploads directory")
	}

	return router, nil
}
