package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/recommend-backend/internal/data/repos"
	types "github.com/yungbote/recommend-backend/internal/domain"
	"github.com/yungbote/recommend-backend/internal/domain/events"
	"github.com/yungbote/recommend-backend/internal/domain/recommend"
	"github.com/yungbote/recommend-backend/internal/observability"
	"github.com/yungbote/recommend-backend/internal/pkg/dbctx"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
	"github.com/yungbote/recommend-backend/internal/platform/mailer"
)

// DefaultCooldown is how long a new request waits before it is emailed, so
// participants can still delete a mistyped address.
const DefaultCooldown = 15 * time.Minute

type DispatchConfig struct {
	Enabled  bool
	Cooldown time.Duration
}

type DispatchService interface {
	// EmailScheduled emails every due scheduled request and marks it sent.
	// It returns the number of requests processed.
	EmailScheduled(ctx context.Context) (int, error)
}

type dispatchService struct {
	log          *logger.Logger
	activityRepo repos.ActivityRepo
	requestRepo  repos.RequestRepo
	userRepo     repos.UserRepo
	events       EventRecorder
	mail         mailer.Mailer
	site         Site
	cfg          DispatchConfig
	now          func() time.Time
}

func NewDispatchService(
	baseLog *logger.Logger,
	activityRepo repos.ActivityRepo,
	requestRepo repos.RequestRepo,
	userRepo repos.UserRepo,
	eventRecorder EventRecorder,
	m mailer.Mailer,
	site Site,
	cfg DispatchConfig,
	now func() time.Time,
) DispatchService {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if now == nil {
		now = time.Now
	}
	return &dispatchService{
		log:          baseLog.With("service", "DispatchService"),
		activityRepo: activityRepo,
		requestRepo:  requestRepo,
		userRepo:     userRepo,
		events:       eventRecorder,
		mail:         m,
		site:         site,
		cfg:          cfg,
		now:          now,
	}
}

func (s *dispatchService) EmailScheduled(ctx context.Context) (int, error) {
	if !s.cfg.Enabled {
		return 0, nil
	}
	dbc := dbctx.Context{Ctx: ctx}
	due, err := s.requestRepo.ListDue(dbc, s.now().UTC().Add(-s.cfg.Cooldown))
	if err != nil {
		return 0, fmt.Errorf("list scheduled requests: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	activities := map[uuid.UUID]*types.Activity{}
	participants := map[uuid.UUID]*types.User{}
	processed := 0
	for _, req := range due {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		activity, err := s.activity(dbc, activities, req.ActivityID)
		if err != nil {
			return processed, err
		}
		participant, err := s.participant(dbc, participants, req.UserID)
		if err != nil {
			return processed, err
		}
		if activity == nil || participant == nil {
			continue
		}

		msg := s.site.RenderRequestEmail(activity, participant, req)
		if err := s.mail.Send(ctx, msg); err != nil {
			// Delivery failures still mark the request sent.
			s.log.Warn("Request email failed", "request_id", req.ID, "recipient_email", req.Email, "error", err)
		}
		// The recommender may already have answered through the link.
		changed, err := s.requestRepo.TransitionStatus(dbc, req.ID, recommend.StatusPending, recommend.StatusSent, nil)
		if err != nil {
			return processed, fmt.Errorf("mark request sent: %w", err)
		}
		if !changed {
			s.log.Debug("Request left pending state during send", "request_id", req.ID)
			continue
		}
		req.Status = recommend.StatusSent

		id, owner := req.ID, req.UserID
		if err := s.events.RecordAndPublish(ctx, Event{
			Kind:          events.RequestSent,
			ActivityID:    req.ActivityID,
			ObjectTable:   "recommend_request",
			ObjectID:      &id,
			RelatedUserID: &owner,
			Payload:       map[string]any{"status": req.Status.String()},
		}); err != nil {
			s.log.Warn("Record request_sent failed", "request_id", req.ID, "error", err)
		}
		processed++
	}
	observability.Current().AddDispatched(processed)
	s.log.Info("Scheduled requests emailed", "count", processed)
	return processed, nil
}

func (s *dispatchService) activity(dbc dbctx.Context, cache map[uuid.UUID]*types.Activity, id uuid.UUID) (*types.Activity, error) {
	if a, ok := cache[id]; ok {
		return a, nil
	}
	a, err := s.activityRepo.GetByID(dbc, id)
	if err != nil {
		return nil, fmt.Errorf("load activity: %w", err)
	}
	cache[id] = a
	return a, nil
}

func (s *dispatchService) participant(dbc dbctx.Context, cache map[uuid.UUID]*types.User, id uuid.UUID) (*types.User, error) {
	if u, ok := cache[id]; ok {
		return u, nil
	}
	u, err := s.userRepo.GetByID(dbc, id)
	if err != nil {
		return nil, fmt.Errorf("load participant: %w", err)
	}
	cache[id] = u
	return u, nil
}
