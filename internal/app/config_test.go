package app

import (
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/recommend-backend/internal/platform/logger"
	"github.com/yungbote/recommend-backend/internal/realtime/bus"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_DRIVER", "REDIS_ADDR", "JWT_SECRET_KEY", "RECOMMEND_DISPATCH_INTERVAL", "RECOMMEND_COOLDOWN", "CORS_ALLOWED_ORIGINS", "RUN_SERVER", "RUN_WORKER", "RECOMMEND_MODULE_ENABLED"} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig(logger.NewNop())

	if cfg.Port != "8080" {
		t.Fatalf("Port: %q", cfg.Port)
	}
	if cfg.DBDriver != "postgres" {
		t.Fatalf("DBDriver: %q", cfg.DBDriver)
	}
	if cfg.DispatchInterval != time.Minute {
		t.Fatalf("DispatchInterval: %v", cfg.DispatchInterval)
	}
	if cfg.Cooldown != 15*time.Minute {
		t.Fatalf("Cooldown: %v", cfg.Cooldown)
	}
	if cfg.JWTSecretKey != defaultJWTSecret {
		t.Fatalf("JWTSecretKey: %q", cfg.JWTSecretKey)
	}
	if !cfg.RunServer || !cfg.RunWorker || !cfg.ModuleEnabled {
		t.Fatalf("expected server, worker and module enabled by default: %+v", cfg)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/r.db")
	t.Setenv("RECOMMEND_DISPATCH_INTERVAL", "10ms")
	t.Setenv("RECOMMEND_MODULE_ENABLED", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("SITE_NAME", "Campus")

	cfg := LoadConfig(logger.NewNop())
	if cfg.DBDriver != "sqlite" || cfg.SQLitePath != "/tmp/r.db" {
		t.Fatalf("db: driver=%q path=%q", cfg.DBDriver, cfg.SQLitePath)
	}
	if cfg.DispatchInterval != time.Second {
		t.Fatalf("DispatchInterval should be clamped to 1s, got %v", cfg.DispatchInterval)
	}
	if cfg.ModuleEnabled {
		t.Fatalf("ModuleEnabled: expected false")
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example.com" {
		t.Fatalf("AllowedOrigins: %v", cfg.AllowedOrigins)
	}
	if cfg.Site.Name != "Campus" {
		t.Fatalf("Site.Name: %q", cfg.Site.Name)
	}
}

func TestGinMode(t *testing.T) {
	cases := map[string]string{
		"production":  gin.ReleaseMode,
		"test":        gin.TestMode,
		"development": gin.DebugMode,
	}
	for env, want := range cases {
		if got := ginMode(env); got != want {
			t.Fatalf("ginMode(%q): want=%q got=%q", env, want, got)
		}
	}
}

func TestWireClientsWithoutRedis(t *testing.T) {
	t.Setenv("SENDGRID_API_KEY", "")
	t.Setenv("SMTP_HOST", "")

	clients, err := wireClients(logger.NewNop(), Config{})
	if err != nil {
		t.Fatalf("wireClients: %v", err)
	}
	defer clients.Close()

	if clients.Redis != nil {
		t.Fatalf("expected no redis client")
	}
	if _, ok := clients.Bus.(*bus.MemoryBus); !ok {
		t.Fatalf("expected the in-process bus, got %T", clients.Bus)
	}
	if clients.Locker == nil || clients.Mailer == nil {
		t.Fatalf("expected locker and mailer to be wired")
	}
}

func TestOpenDBRejectsUnknownDriver(t *testing.T) {
	if _, err := OpenDB(logger.NewNop(), Config{DBDriver: "oracle"}); err == nil {
		t.Fatalf("expected an error for an unknown driver")
	}
}
