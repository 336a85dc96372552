package app

import (
	"context"
	"time"

	"github.com/yungbote/recommend-backend/internal/observability"
	"github.com/yungbote/recommend-backend/internal/platform/mailer"
)

type instrumentedMailer struct {
	transport string
	inner     mailer.Mailer
	metrics   *observability.Metrics
}

func instrumentMailer(transport string, inner mailer.Mailer) mailer.Mailer {
	return instrumentMailerWith(transport, inner, observability.Current())
}

func instrumentMailerWith(transport string, inner mailer.Mailer, m *observability.Metrics) mailer.Mailer {
	if inner == nil || m == nil {
		return inner
	}
	return &instrumentedMailer{transport: transport, inner: inner, metrics: m}
}

func (s *instrumentedMailer) Send(ctx context.Context, msg mailer.Message) error {
	start := time.Now()
	err := s.inner.Send(ctx, msg)
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.ObserveMail(s.transport, status, time.Since(start))
	return err
}
