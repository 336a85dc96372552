package services

import (
	"context"

	"github.com/yungbote/recommend-backend/internal/data/repos"
	types "github.com/yungbote/recommend-backend/internal/domain"
	"github.com/yungbote/recommend-backend/internal/domain/access"
	"github.com/yungbote/recommend-backend/internal/domain/recommend"
	"github.com/yungbote/recommend-backend/internal/pkg/dbctx"
	"github.com/yungbote/recommend-backend/internal/pkg/richtext"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
	"github.com/yungbote/recommend-backend/internal/platform/mailer"
	"github.com/yungbote/recommend-backend/internal/realtime"
	"github.com/yungbote/recommend-backend/internal/realtime/bus"
)

// StatusNotifier tells the participant about every status change of one of
// their requests, and the reviewers about completed recommendations.
// Delivery is best effort: failures are logged, never returned.
type StatusNotifier interface {
	StatusChanged(ctx context.Context, activity *types.Activity, req *types.Request)
}

type statusNotifier struct {
	log      *logger.Logger
	userRepo repos.UserRepo
	access   AccessService
	mail     mailer.Mailer
	bus      bus.Bus
	site     Site
}

func NewStatusNotifier(baseLog *logger.Logger, userRepo repos.UserRepo, accessService AccessService, m mailer.Mailer, b bus.Bus, site Site) StatusNotifier {
	return &statusNotifier{
		log:      baseLog.With("service", "StatusNotifier"),
		userRepo: userRepo,
		access:   accessService,
		mail:     m,
		bus:      b,
		site:     site,
	}
}

type statusPayload struct {
	ActivityID string `json:"activity_id"`
	RequestID  string `json:"request_id"`
	Status     string `json:"status"`
	Label      string `json:"label"`
	Link       string `json:"link"`
}

func (n *statusNotifier) StatusChanged(ctx context.Context, activity *types.Activity, req *types.Request) {
	if activity == nil || req == nil {
		return
	}
	participant, err := n.userRepo.GetByID(dbctx.Context{Ctx: ctx}, req.UserID)
	if err != nil {
		n.log.Warn("Load participant failed", "user_id", req.UserID, "error", err)
		return
	}
	if participant == nil {
		return
	}

	data := statusMessageData{
		Recipient:   participant.FullName(),
		Participant: participant.FullName(),
		Name:        req.Name,
		Email:       req.Email,
		Status:      req.Status.Label(),
		Module:      activity.Name,
		Site:        n.site.Name,
		Admin:       n.site.AdminSignoff,
		Link:        n.site.ActivityLink(activity.ID),
	}
	subject, body := renderStatusChanged(data)
	n.deliver(ctx, participant, subject, body, statusPayload{
		ActivityID: activity.ID.String(),
		RequestID:  req.ID.String(),
		Status:     req.Status.String(),
		Label:      req.Status.Label(),
		Link:       data.Link,
	})

	if req.Status != recommend.StatusCompleted {
		return
	}
	reviewers, err := n.access.HoldersOf(ctx, activity.ID, access.CapAccept)
	if err != nil {
		n.log.Warn("Load reviewers failed", "activity_id", activity.ID, "error", err)
		return
	}
	data.Link = n.site.RequestLink(activity.ID, req.ID)
	for _, reviewer := range reviewers {
		data.Recipient = reviewer.FullName()
		subject, body := renderRecommendationCompleted(data)
		n.deliver(ctx, reviewer, subject, body, statusPayload{
			ActivityID: activity.ID.String(),
			RequestID:  req.ID.String(),
			Status:     req.Status.String(),
			Label:      req.Status.Label(),
			Link:       data.Link,
		})
	}
}

func (n *statusNotifier) deliver(ctx context.Context, to *types.User, subject, body string, payload statusPayload) {
	html := richtext.ToHTML(body, recommend.FormatPlain)
	if n.mail != nil {
		msg := mailer.Message{
			To:      mailer.Address{Email: to.Email, Name: to.FullName()},
			Subject: subject,
			HTML:    html,
			Text:    body,
		}
		if err := n.mail.Send(ctx, msg); err != nil {
			n.log.Warn("Status notification failed", "recipient_id", to.ID, "error", err)
		}
	}
	if n.bus != nil {
		if err := n.bus.Publish(ctx, realtime.Message{
			Channel: realtime.UserChannel(to.ID),
			Event:   realtime.EventRequestStatusChange,
			Data:    payload,
		}); err != nil {
			n.log.Warn("Status publish failed", "recipient_id", to.ID, "error", err)
		}
	}
}
