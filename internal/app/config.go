package app

import (
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/recommend-backend/internal/clients/redis"
	"github.com/yungbote/recommend-backend/internal/observability"
	"github.com/yungbote/recommend-backend/internal/platform/envutil"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
	"github.com/yungbote/recommend-backend/internal/services"
)

const (
	serviceName      = "recommend"
	defaultJWTSecret = "defaultsecret"
)

type Config struct {
	Env     string
	LogMode string
	Port    string

	DBDriver    string
	PostgresDSN string
	SQLitePath  string
	AutoMigrate bool

	Redis redis.Config

	JWTSecretKey string
	Site         services.Site

	RunServer bool
	RunWorker bool

	ModuleEnabled    bool
	DispatchInterval time.Duration
	Cooldown         time.Duration

	AllowedOrigins []string
	MetricsAddr    string
	Otel           observability.OtelConfig
}

// LoadEnv reads a .env file when present. Variables already set in the
// environment win.
func LoadEnv(paths ...string) {
	_ = godotenv.Load(paths...)
}

// LogMode picks the logger mode before the config is loaded.
func LogMode() string {
	return envutil.String("LOG_MODE", "development")
}

func LoadConfig(log *logger.Logger) Config {
	env := envutil.String("APP_ENV", "development")
	cfg := Config{
		Env:     env,
		LogMode: LogMode(),
		Port:    envutil.String("PORT", "8080"),

		DBDriver:    strings.ToLower(envutil.String("DB_DRIVER", "postgres")),
		PostgresDSN: envutil.String("POSTGRES_DSN", ""),
		SQLitePath:  envutil.String("SQLITE_PATH", "recommend.db"),
		AutoMigrate: envutil.Bool("DB_AUTO_MIGRATE", true),

		Redis: redis.Config{
			Addr:     envutil.String("REDIS_ADDR", ""),
			Password: envutil.String("REDIS_PASSWORD", ""),
			DB:       envutil.Int("REDIS_DB", 0),
			Channel:  envutil.String("REDIS_CHANNEL", "recommend:realtime"),
		},

		JWTSecretKey: envutil.String("JWT_SECRET_KEY", defaultJWTSecret),
		Site: services.Site{
			Name:         envutil.String("SITE_NAME", "Moodle"),
			AdminSignoff: envutil.String("SITE_ADMIN_SIGNOFF", "Site administrator"),
			BaseURL:      envutil.String("PUBLIC_BASE_URL", "http://localhost:8080/"),
		},

		RunServer: envutil.Bool("RUN_SERVER", true),
		RunWorker: envutil.Bool("RUN_WORKER", true),

		ModuleEnabled:    envutil.Bool("RECOMMEND_MODULE_ENABLED", true),
		DispatchInterval: envutil.Duration("RECOMMEND_DISPATCH_INTERVAL", time.Minute),
		Cooldown:         envutil.Duration("RECOMMEND_COOLDOWN", services.DefaultCooldown),

		AllowedOrigins: envutil.List("CORS_ALLOWED_ORIGINS", nil),
		MetricsAddr:    envutil.String("METRICS_ADDR", ""),
		Otel:           observability.OtelConfigFromEnv(serviceName, env),
	}
	if cfg.JWTSecretKey == defaultJWTSecret {
		log.Warn("JWT_SECRET_KEY not set; using the development default")
	}
	if cfg.DispatchInterval < time.Second {
		cfg.DispatchInterval = time.Second
	}
	return cfg
}
