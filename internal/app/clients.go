package app

import (
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/recommend-backend/internal/clients/redis"
	"github.com/yungbote/recommend-backend/internal/jobs/worker"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
	"github.com/yungbote/recommend-backend/internal/platform/mailer"
	"github.com/yungbote/recommend-backend/internal/realtime/bus"
)

type Clients struct {
	Redis  *goredis.Client
	Bus    bus.Bus
	Locker worker.Locker
	Mailer mailer.Mailer
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	var out Clients

	// Redis (optional): event bus fan-out and the task lock.
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		rdb, err := redis.NewClient(log, cfg.Redis)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		b, err := bus.NewRedisBus(log, rdb, cfg.Redis.Channel)
		if err != nil {
			_ = rdb.Close()
			return Clients{}, fmt.Errorf("init redis bus: %w", err)
		}
		out.Redis = rdb
		out.Bus = b
		out.Locker = worker.RedisLocker(rdb)
	} else {
		log.Warn("REDIS_ADDR not set; using in-process bus and task lock")
		out.Bus = bus.NewMemoryBus()
		out.Locker = worker.LocalLocker()
	}

	m, err := wireMailer(log)
	if err != nil {
		out.Close()
		return Clients{}, err
	}
	out.Mailer = m
	return out, nil
}

// wireMailer prefers SendGrid, then SMTP, and falls back to logging the
// messages.
func wireMailer(log *logger.Logger) (mailer.Mailer, error) {
	if sg := mailer.SendGridConfigFromEnv(); sg.APIKey != "" {
		m, err := mailer.NewSendGridMailer(log, sg)
		if err != nil {
			return nil, fmt.Errorf("init sendgrid mailer: %w", err)
		}
		return instrumentMailer("sendgrid", m), nil
	}
	if smtpCfg := mailer.SMTPConfigFromEnv(); smtpCfg.Host != "" {
		m, err := mailer.NewSMTPMailer(log, smtpCfg)
		if err != nil {
			return nil, fmt.Errorf("init smtp mailer: %w", err)
		}
		return instrumentMailer("smtp", m), nil
	}
	log.Warn("No mail transport configured; emails are logged only")
	return instrumentMailer("log", mailer.NewLogMailer(log)), nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
