package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/recommend-backend/internal/platform/envutil"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
)

type SendGridConfig struct {
	APIKey     string
	BaseURL    string
	From       Address
	Timeout    time.Duration
	MaxRetries int
}

func SendGridConfigFromEnv() SendGridConfig {
	return SendGridConfig{
		APIKey:  envutil.String("SENDGRID_API_KEY", ""),
		BaseURL: envutil.String("SENDGRID_BASE_URL", "https://api.sendgrid.com"),
		From: Address{
			Email: envutil.String("MAIL_FROM", ""),
			Name:  envutil.String("MAIL_FROM_NAME", ""),
		},
		Timeout:    time.Duration(envutil.Int("SENDGRID_TIMEOUT_SECONDS", 30)) * time.Second,
		MaxRetries: envutil.Int("SENDGRID_MAX_RETRIES", 3),
	}
}

type sendGridMailer struct {
	log        *logger.Logger
	cfg        SendGridConfig
	httpClient *http.Client
	sleep      func(time.Duration)
}

func NewSendGridMailer(log *logger.Logger, cfg SendGridConfig) (Mailer, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing SENDGRID_API_KEY")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.sendgrid.com"
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &sendGridMailer{
		log:        log.With("client", "SendGridMailer"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		sleep:      time.Sleep,
	}, nil
}

// --- SendGrid mail send wire types ---

type sgAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgMailSend struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

type sgErrorResponse struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// HTTPError is a non-2xx SendGrid response.
type HTTPError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "<empty body>"
	}
	return fmt.Sprintf("sendgrid http %d: %s", e.StatusCode, msg)
}

func (s *sendGridMailer) Send(ctx context.Context, msg Message) error {
	msg = msg.withDefaultFrom(s.cfg.From)
	if err := msg.validate(); err != nil {
		return err
	}
	if strings.TrimSpace(msg.From.Email) == "" {
		return fmt.Errorf("sendgrid: sender required (set MAIL_FROM)")
	}

	// text/plain must precede text/html in SendGrid's content array.
	var contents []sgContent
	if msg.Text != "" {
		contents = append(contents, sgContent{Type: "text/plain", Value: msg.Text})
	}
	if msg.HTML != "" {
		contents = append(contents, sgContent{Type: "text/html", Value: msg.HTML})
	}
	wire := sgMailSend{
		Personalizations: []sgPersonalization{{To: []sgAddress{{Email: msg.To.Email, Name: msg.To.Name}}}},
		From:             sgAddress{Email: msg.From.Email, Name: msg.From.Name},
		Subject:          msg.Subject,
		Content:          contents,
	}
	raw, err := json.Marshal(wire)
	if err != nil {
		return err
	}

	backoff := time.Second
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.post(ctx, "/v3/mail/send", raw)
		if err == nil {
			return nil
		}
		if !retryable(err) || attempt >= s.cfg.MaxRetries {
			return err
		}
		wait := backoff
		var he *HTTPError
		if errors.As(err, &he) && he.RetryAfter > 0 {
			wait = he.RetryAfter
		}
		if wait > 10*time.Second {
			wait = 10 * time.Second
		}
		wait = jitter(wait)
		s.log.Warn("SendGrid request retrying",
			"attempt", attempt+1,
			"max_retries", s.cfg.MaxRetries,
			"sleep", wait.String(),
			"error", err.Error(),
		)
		s.sleep(wait)
		backoff *= 2
	}
}

func (s *sendGridMailer) post(ctx context.Context, path string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	he := &HTTPError{StatusCode: resp.StatusCode, Message: string(respBody)}
	var parsed sgErrorResponse
	if json.Unmarshal(respBody, &parsed) == nil && len(parsed.Errors) > 0 && parsed.Errors[0].Message != "" {
		he.Message = parsed.Errors[0].Message
	}
	if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			he.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return he
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode == http.StatusRequestTimeout ||
			he.StatusCode == http.StatusTooManyRequests ||
			he.StatusCode >= 500
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	delta := float64(base) * 0.2
	return time.Duration(float64(base) - delta + rand.Float64()*2*delta)
}
