package mailer

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/yungbote/recommend-backend/internal/platform/envutil"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     Address
}

func SMTPConfigFromEnv() SMTPConfig {
	return SMTPConfig{
		Host:     envutil.String("SMTP_HOST", ""),
		Port:     envutil.Int("SMTP_PORT", 587),
		Username: envutil.String("SMTP_USERNAME", ""),
		Password: envutil.String("SMTP_PASSWORD", ""),
		From: Address{
			Email: envutil.String("MAIL_FROM", "noreply@localhost"),
			Name:  envutil.String("MAIL_FROM_NAME", ""),
		},
	}
}

type smtpMailer struct {
	log    *logger.Logger
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

func NewSMTPMailer(log *logger.Logger, cfg SMTPConfig) (Mailer, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("missing SMTP_HOST")
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	return &smtpMailer{
		log:    log.With("client", "SMTPMailer"),
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}, nil
}

func (s *smtpMailer) Send(ctx context.Context, msg Message) error {
	msg = msg.withDefaultFrom(s.cfg.From)
	if err := msg.validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", msg.From.Email, msg.From.Name)
	m.SetAddressHeader("To", msg.To.Email, msg.To.Name)
	m.SetHeader("Subject", msg.Subject)
	switch {
	case msg.Text != "" && msg.HTML != "":
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	case msg.HTML != "":
		m.SetBody("text/html", msg.HTML)
	default:
		m.SetBody("text/plain", msg.Text)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
