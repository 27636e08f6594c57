package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Content store backends
const (
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"
)

// Media host backends
const (
	MediaCloudinary = "cloudinary"
	MediaLocal      = "local"
)

// Backends of the submit guard and the draft store
const (
	GuardMemory = "memory"
	GuardRedis  = "redis"
)

// Save All Changes behaviour on the course management page
const (
	SaveAllInvoke = "invoke"
	SaveAllNoop   = "noop"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port         string `yaml:"port" env:"SERVER_PORT"`
		Mode         string `yaml:"mode" env:"SERVER_MODE"`
		BaseURL      string `yaml:"base_url" env:"SERVER_BASE_URL"`
		ReadTimeout  string `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
		WriteTimeout string `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
		MaxUploadMB  int    `yaml:"max_upload_mb" env:"SERVER_MAX_UPLOAD_MB"`
	} `yaml:"server"`

	// Backend selects which content store and identity provider are used.
	Backend string `yaml:"backend" env:"APP_BACKEND"`

	Supabase struct {
		URL       string `yaml:"url" env:"SUPABASE_URL"`
		AnonKey   string `yaml:"anon_key" env:"SUPABASE_ANON_KEY"`
		JWTSecret string `yaml:"jwt_secret" env:"SUPABASE_JWT_SECRET"`
	} `yaml:"supabase"`

	Database struct {
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		MigrationsDir   string `yaml:"migrations_dir" env:"DB_MIGRATIONS_DIR"`
	} `yaml:"database"`

	// Auth configures the local identity provider used with the postgres backend.
	Auth struct {
		JWTSecret              string `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
		Issuer                 string `yaml:"issuer" env:"AUTH_ISSUER"`
		AccessTokenExpiration  string `yaml:"access_token_expiration" env:"AUTH_ACCESS_TOKEN_EXPIRATION"`
		RefreshTokenExpiration string `yaml:"refresh_token_expiration" env:"AUTH_REFRESH_TOKEN_EXPIRATION"`
		SeedAdminEmail         string `yaml:"seed_admin_email" env:"AUTH_SEED_ADMIN_EMAIL"`
		SeedAdminPassword      string `yaml:"seed_admin_password" env:"AUTH_SEED_ADMIN_PASSWORD"`
	} `yaml:"auth"`

	Media struct {
		Provider     string `yaml:"provider" env:"MEDIA_PROVIDER"`
		CloudName    string `yaml:"cloud_name" env:"CLOUDINARY_CLOUD_NAME"`
		UploadPreset string `yaml:"upload_preset" env:"CLOUDINARY_UPLOAD_PRESET"`
		APIKey       string `yaml:"api_key" env:"CLOUDINARY_API_KEY"`
		APISecret    string `yaml:"api_secret" env:"CLOUDINARY_API_SECRET"`
		StoragePath  string `yaml:"storage_path" env:"MEDIA_STORAGE_PATH"`
	} `yaml:"media"`

	Session struct {
		Name   string `yaml:"name" env:"SESSION_NAME"`
		Secret string `yaml:"secret" env:"SESSION_SECRET"`
		MaxAge int    `yaml:"max_age" env:"SESSION_MAX_AGE"`
		Secure bool   `yaml:"secure" env:"SESSION_SECURE"`
		// Unsaved course edits live server-side, keyed by session.
		DraftStore string `yaml:"draft_store" env:"SESSION_DRAFT_STORE"`
		DraftTTL   string `yaml:"draft_ttl" env:"SESSION_DRAFT_TTL"`
		MaxDrafts  int    `yaml:"max_drafts" env:"SESSION_MAX_DRAFTS"`
	} `yaml:"session"`

	SubmitGuard struct {
		Provider  string `yaml:"provider" env:"SUBMIT_GUARD_PROVIDER"`
		TTL       string `yaml:"ttl" env:"SUBMIT_GUARD_TTL"`
		MaxTokens int    `yaml:"max_tokens" env:"SUBMIT_GUARD_MAX_TOKENS"`
	} `yaml:"submit_guard"`

	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
	} `yaml:"redis"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
	} `yaml:"cors"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled" env:"OTEL_ENABLED"`
		Endpoint    string  `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
		Insecure    bool    `yaml:"insecure" env:"OTEL_EXPORTER_OTLP_INSECURE"`
		SampleRatio float64 `yaml:"sample_ratio" env:"OTEL_SAMPLER_RATIO"`
		ServiceName string  `yaml:"service_name" env:"OTEL_SERVICE_NAME"`
	} `yaml:"tracing"`

	Manage struct {
		SaveAllMode string `yaml:"save_all_mode" env:"MANAGE_SAVE_ALL_MODE"`
	} `yaml:"manage"`

	HTTPClient struct {
		Timeout string `yaml:"timeout" env:"HTTP_CLIENT_TIMEOUT"`
	} `yaml:"http_client"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`
}

// LoadConfig loads configuration from an optional .env file, a YAML file and
// environment variables, in increasing order of precedence.
func LoadConfig(configPath string) (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := processStructFields(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.ReadTimeout = "30s"
	config.Server.WriteTimeout = "120s"
	config.Server.MaxUploadMB = 200

	config.Backend = BackendSupabase

	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "academy"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 2
	config.Database.MaxOpenConns = 10
	config.Database.ConnMaxLifetime = "1h"

	config.Auth.Issuer = "academy"
	config.Auth.AccessTokenExpiration = "1h"
	config.Auth.RefreshTokenExpiration = "720h"

	config.Media.Provider = MediaCloudinary
	config.Media.UploadPreset = "ml_default"
	config.Media.StoragePath = "uploads"

	config.Session.Name = "academy-session"
	config.Session.MaxAge = 7 * 24 * 3600
	config.Session.DraftStore = GuardMemory
	config.Session.DraftTTL = "24h"
	config.Session.MaxDrafts = 10000

	config.SubmitGuard.Provider = GuardMemory
	config.SubmitGuard.TTL = "1h"
	config.SubmitGuard.MaxTokens = 10000

	config.Tracing.SampleRatio = 0.1
	config.Tracing.ServiceName = "academy"

	config.Manage.SaveAllMode = SaveAllInvoke

	config.HTTPClient.Timeout = "60s"

	config.Logging.Level = "info"
	config.Logging.Format = "json"
}

// validateConfig ensures that the configuration is usable
func validateConfig(config *Config) error {
	switch config.Backend {
	case BackendSupabase:
		if config.Supabase.URL == "" {
			return fmt.Errorf("supabase url is required for the %s backend", BackendSupabase)
		}
		if config.Supabase.AnonKey == "" {
			return fmt.Errorf("supabase anon key is required for the %s backend", BackendSupabase)
		}
	case BackendPostgres:
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required for the %s backend", BackendPostgres)
		}
		if config.Auth.JWTSecret == "" {
			return fmt.Errorf("auth jwt secret is required for the %s backend", BackendPostgres)
		}
		for _, d := range []string{config.Auth.AccessTokenExpiration, config.Auth.RefreshTokenExpiration, config.Database.ConnMaxLifetime} {
			if _, err := time.ParseDuration(d); err != nil {
				return fmt.Errorf("invalid duration %q: %w", d, err)
			}
		}
	default:
		return fmt.Errorf("unknown backend %q", config.Backend)
	}

	switch config.Media.Provider {
	case MediaCloudinary:
		if config.Media.CloudName == "" {
			return fmt.Errorf("cloudinary cloud name is required")
		}
		if config.Media.UploadPreset == "" {
			return fmt.Errorf("cloudinary upload preset is required")
		}
	case MediaLocal:
		if config.Media.StoragePath == "" {
			return fmt.Errorf("media storage path is required")
		}
	default:
		return fmt.Errorf("unknown media provider %q", config.Media.Provider)
	}

	if len(config.Session.Secret) < 32 {
		return fmt.Errorf("session secret must be at least 32 bytes")
	}

	switch config.SubmitGuard.Provider {
	case GuardMemory:
	case GuardRedis:
		if config.Redis.Addr == "" {
			return fmt.Errorf("redis addr is required for the redis submit guard")
		}
	default:
		return fmt.Errorf("unknown submit guard provider %q", config.SubmitGuard.Provider)
	}

	switch config.Session.DraftStore {
	case GuardMemory:
	case GuardRedis:
		if config.Redis.Addr == "" {
			return fmt.Errorf("redis addr is required for the redis draft store")
		}
	default:
		return fmt.Errorf("unknown session.draft_store %q", config.Session.DraftStore)
	}

	switch config.Manage.SaveAllMode {
	case SaveAllInvoke, SaveAllNoop:
	default:
		return fmt.Errorf("unknown manage.save_all_mode %q", config.Manage.SaveAllMode)
	}

	for _, d := range []string{config.Server.ReadTimeout, config.Server.WriteTimeout, config.SubmitGuard.TTL, config.Session.DraftTTL, config.HTTPClient.Timeout} {
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("invalid duration %q: %w", d, err)
		}
	}

	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Mode, "production")
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}
