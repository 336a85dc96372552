package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/recommend-backend/internal/data/db"
	"github.com/yungbote/recommend-backend/internal/data/repos"
	types "github.com/yungbote/recommend-backend/internal/domain"
	"github.com/yungbote/recommend-backend/internal/domain/access"
	"github.com/yungbote/recommend-backend/internal/domain/events"
	"github.com/yungbote/recommend-backend/internal/domain/recommend"
	"github.com/yungbote/recommend-backend/internal/pkg/dbctx"
	"github.com/yungbote/recommend-backend/internal/pkg/secret"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
	"github.com/yungbote/recommend-backend/internal/platform/mailer"
)

// maxSecretAttempts bounds token regeneration after unique-index collisions.
const maxSecretAttempts = 5

type NewRequest struct {
	Name  string `json:"name" validate:"max=255"`
	Email string `json:"email" validate:"max=255"`
}

type ParticipantRequests struct {
	User     *types.User      `json:"user"`
	Requests []*types.Request `json:"requests"`
}

type RequestService interface {
	ListOwn(ctx context.Context, actor Actor, activityID uuid.UUID) ([]*types.Request, error)
	// CanAddRequest returns how many more requests the actor may create.
	CanAddRequest(ctx context.Context, actor Actor, activity *types.Activity) (int, error)
	AddRequests(ctx context.Context, actor Actor, activityID uuid.UUID, rows []NewRequest) ([]*types.Request, error)
	ValidateRequest(ctx context.Context, activityID, requestID uuid.UUID) (*types.Request, error)
	DeleteRequest(ctx context.Context, actor Actor, activityID, requestID uuid.UUID) (bool, error)
	AcceptRequest(ctx context.Context, actor Actor, activityID, requestID uuid.UUID) (bool, error)
	RejectRequest(ctx context.Context, actor Actor, activityID, requestID uuid.UUID) (bool, error)
	ResendRequest(ctx context.Context, actor Actor, activityID, requestID uuid.UUID) (bool, error)
	ListAll(ctx context.Context, actor Actor, activityID uuid.UUID) ([]ParticipantRequests, error)
	StatusSummary(ctx context.Context, activityID, userID uuid.UUID) (map[types.RequestStatus]int, error)
}

type requestService struct {
	db           *gorm.DB
	log          *logger.Logger
	activityRepo repos.ActivityRepo
	requestRepo  repos.RequestRepo
	replyRepo    repos.ReplyRepo
	commentRepo  repos.CommentRepo
	userRepo     repos.UserRepo
	access       AccessService
	events       EventRecorder
	completion   CompletionService
	notifier     StatusNotifier
	mail         mailer.Mailer
	site         Site
	secrets      secret.Generator
	validate     *validator.Validate
	now          func() time.Time
}

func NewRequestService(
	db *gorm.DB,
	baseLog *logger.Logger,
	activityRepo repos.ActivityRepo,
	requestRepo repos.RequestRepo,
	replyRepo repos.ReplyRepo,
	commentRepo repos.CommentRepo,
	userRepo repos.UserRepo,
	accessService AccessService,
	eventRecorder EventRecorder,
	completionService CompletionService,
	notifier StatusNotifier,
	m mailer.Mailer,
	site Site,
	secrets secret.Generator,
	now func() time.Time,
) RequestService {
	if secrets == nil {
		secrets = secret.New
	}
	if now == nil {
		now = time.Now
	}
	return &requestService{
		db:           db,
		log:          baseLog.With("service", "RequestService"),
		activityRepo: activityRepo,
		requestRepo:  requestRepo,
		replyRepo:    replyRepo,
		commentRepo:  commentRepo,
		userRepo:     userRepo,
		access:       accessService,
		events:       eventRecorder,
		completion:   completionService,
		notifier:     notifier,
		mail:         m,
		site:         site,
		secrets:      secrets,
		validate:     validator.New(),
		now:          now,
	}
}

func (s *requestService) loadActivity(ctx context.Context, activityID uuid.UUID) (*types.Activity, error) {
	a, err := s.activityRepo.GetByID(dbctx.Context{Ctx: ctx}, activityID)
	if err != nil {
		return nil, fmt.Errorf("load activity: %w", err)
	}
	if a == nil {
		return nil, fmt.Errorf("activity %s: %w", activityID, ErrNotFound)
	}
	return a, nil
}

func (s *requestService) ListOwn(ctx context.Context, actor Actor, activityID uuid.UUID) ([]*types.Request, error) {
	rows, err := s.requestRepo.ListByOwner(dbctx.Context{Ctx: ctx}, activityID, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return rows, nil
}

func (s *requestService) CanAddRequest(ctx context.Context, actor Actor, activity *types.Activity) (int, error) {
	if activity == nil {
		return 0, nil
	}
	ok, err := s.access.Can(ctx, actor, activity.ID, access.CapRequest)
	if err != nil || !ok {
		return 0, err
	}
	n, err := s.requestRepo.CountByOwner(dbctx.Context{Ctx: ctx}, activity.ID, actor.UserID)
	if err != nil {
		return 0, fmt.Errorf("count requests: %w", err)
	}
	if left := activity.MaxRequests - n; left > 0 {
		return left, nil
	}
	return 0, nil
}

// validateBatch trims the rows, drops empty ones and checks the rest against
// each other and against the participant's existing requests.
func (s *requestService) validateBatch(rows []NewRequest, existing []*types.Request) ([]NewRequest, error) {
	used := map[string]bool{}
	for _, r := range existing {
		used[strings.ToLower(strings.TrimSpace(r.Email))] = true
	}
	seen := map[string]bool{}
	var (
		kept   []NewRequest
		failed []FieldError
	)
	for i, row := range rows {
		name := strings.TrimSpace(row.Name)
		email := strings.TrimSpace(row.Email)
		if name == "" && email == "" {
			continue
		}
		key := strings.ToLower(email)
		msg := ""
		switch {
		case email == "":
			msg = MsgEmailMissing
		case s.validate.Var(email, "email") != nil:
			msg = MsgEmailNotValid
		case seen[key]:
			msg = MsgDuplicateEmail
		case used[key]:
			msg = MsgEmailAlreadyUsed
		}
		if email != "" {
			seen[key] = true
		}
		if msg != "" {
			failed = append(failed, FieldError{Row: i, Field: "email", Message: msg})
			continue
		}
		kept = append(kept, NewRequest{Name: name, Email: email})
	}
	if len(failed) > 0 {
		return nil, &RequestValidationError{Errors: failed}
	}
	return kept, nil
}

func (s *requestService) AddRequests(ctx context.Context, actor Actor, activityID uuid.UUID, rows []NewRequest) ([]*types.Request, error) {
	activity, err := s.loadActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}
	allowed, err := s.access.Can(ctx, actor, activityID, access.CapRequest)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrForbidden
	}
	canAdd, err := s.CanAddRequest(ctx, actor, activity)
	if err != nil {
		return nil, err
	}
	existing, err := s.requestRepo.ListByOwner(dbctx.Context{Ctx: ctx}, activityID, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	kept, err := s.validateBatch(rows, existing)
	if err != nil {
		return nil, err
	}
	if len(kept) == 0 {
		return []*types.Request{}, nil
	}
	if len(kept) > canAdd {
		return nil, fmt.Errorf("%w: %d more allowed", ErrLimitReached, canAdd)
	}

	created := make([]*types.Request, 0, len(kept))
	var recorded []*types.EventLog
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		for _, row := range kept {
			req := &types.Request{
				ActivityID:    activityID,
				UserID:        actor.UserID,
				Email:         row.Email,
				Name:          row.Name,
				Status:        recommend.StatusPending,
				TimeRequested: s.now().UTC(),
			}
			if err := s.insertWithSecret(dbc, req); err != nil {
				return err
			}
			ev, err := s.requestEvent(dbc, events.RequestCreated, actor, req)
			if err != nil {
				return err
			}
			created = append(created, req)
			recorded = append(recorded, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.events.Publish(ctx, recorded...)
	s.log.Info("Requests added", "activity_id", activityID, "user_id", actor.UserID, "count", len(created))
	return created, nil
}

// insertWithSecret stores req with a fresh secret, regenerating the secret
// when the unique index rejects it. Each attempt runs in a savepoint so a
// collision does not abort the surrounding transaction.
func (s *requestService) insertWithSecret(dbc dbctx.Context, req *types.Request) error {
	var lastErr error
	for attempt := 1; attempt <= maxSecretAttempts; attempt++ {
		token, err := s.secrets()
		if err != nil {
			return fmt.Errorf("generate secret: %w", err)
		}
		req.Secret = token
		lastErr = dbc.Tx.Transaction(func(inner *gorm.DB) error {
			_, err := s.requestRepo.Create(dbctx.Context{Ctx: dbc.Ctx, Tx: inner}, []*types.Request{req})
			return err
		})
		if lastErr == nil {
			return nil
		}
		if !db.IsUniqueViolation(lastErr) {
			return fmt.Errorf("create request: %w", lastErr)
		}
		s.log.Warn("Secret collision, regenerating", "attempt", attempt)
	}
	return fmt.Errorf("create request after %d attempts: %w", maxSecretAttempts, lastErr)
}

func (s *requestService) requestEvent(dbc dbctx.Context, kind types.EventKind, actor Actor, req *types.Request) (*types.EventLog, error) {
	id, owner := req.ID, req.UserID
	return s.events.Record(dbc, Event{
		Kind:          kind,
		ActivityID:    req.ActivityID,
		ActorID:       actor.userIDPtr(),
		ObjectTable:   "recommend_request",
		ObjectID:      &id,
		RelatedUserID: &owner,
		Payload:       map[string]any{"status": req.Status.String()},
	})
}

func (s *requestService) ValidateRequest(ctx context.Context, activityID, requestID uuid.UUID) (*types.Request, error) {
	req, err := s.requestRepo.GetByID(dbctx.Context{Ctx: ctx}, requestID)
	if err != nil {
		return nil, fmt.Errorf("load request: %w", err)
	}
	if req == nil || req.ActivityID != activityID {
		return nil, fmt.Errorf("request %s: %w", requestID, ErrNotFound)
	}
	return req, nil
}

func (s *requestService) DeleteRequest(ctx context.Context, actor Actor, activityID, requestID uuid.UUID) (bool, error) {
	req, err := s.ValidateRequest(ctx, activityID, requestID)
	if err != nil {
		return false, err
	}
	allowed, err := s.access.Can(ctx, actor, activityID, access.CapDelete)
	if err != nil {
		return false, err
	}
	if !allowed && req.UserID == actor.UserID && req.Status == recommend.StatusPending {
		if allowed, err = s.access.Can(ctx, actor, activityID, access.CapRequest); err != nil {
			return false, err
		}
	}
	if !allowed {
		return false, nil
	}

	var ev *types.EventLog
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := s.replyRepo.DeleteByRequestIDs(dbc, []uuid.UUID{req.ID}); err != nil {
			return fmt.Errorf("delete replies: %w", err)
		}
		if err := s.commentRepo.DeleteByRequestIDs(dbc, []uuid.UUID{req.ID}); err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		if err := s.requestRepo.FullDeleteByIDs(dbc, []uuid.UUID{req.ID}); err != nil {
			return fmt.Errorf("delete request: %w", err)
		}
		ev, err = s.requestEvent(dbc, events.RequestDeleted, actor, req)
		return err
	})
	if err != nil {
		return false, err
	}
	s.events.Publish(ctx, ev)
	return true, nil
}

func (s *requestService) AcceptRequest(ctx context.Context, actor Actor, activityID, requestID uuid.UUID) (bool, error) {
	return s.review(ctx, actor, activityID, requestID, recommend.StatusAccepted, events.RequestAccepted)
}

func (s *requestService) RejectRequest(ctx context.Context, actor Actor, activityID, requestID uuid.UUID) (bool, error) {
	return s.review(ctx, actor, activityID, requestID, recommend.StatusRejected, events.RequestRejected)
}

// review moves a completed request to the reviewer's verdict. Anything but a
// COMPLETED request is left untouched.
func (s *requestService) review(ctx context.Context, actor Actor, activityID, requestID uuid.UUID, to types.RequestStatus, kind types.EventKind) (bool, error) {
	req, err := s.ValidateRequest(ctx, activityID, requestID)
	if err != nil {
		return false, err
	}
	ok, err := s.access.Can(ctx, actor, activityID, access.CapAccept)
	if err != nil {
		return false, err
	}
	if !ok || req.Status != recommend.StatusCompleted {
		return false, nil
	}
	activity, err := s.loadActivity(ctx, activityID)
	if err != nil {
		return false, err
	}

	var (
		changed bool
		ev      *types.EventLog
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		changed, err = s.requestRepo.TransitionStatus(dbc, req.ID, recommend.StatusCompleted, to, nil)
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		if !changed {
			return nil
		}
		req.Status = to
		ev, err = s.requestEvent(dbc, kind, actor, req)
		return err
	})
	if err != nil || !changed {
		return false, err
	}
	s.events.Publish(ctx, ev)
	s.afterStatusChange(ctx, activity, req)
	return true, nil
}

func (s *requestService) afterStatusChange(ctx context.Context, activity *types.Activity, req *types.Request) {
	if err := s.completion.Update(ctx, activity, req.UserID); err != nil {
		s.log.Warn("Completion update failed", "activity_id", activity.ID, "user_id", req.UserID, "error", err)
	}
	s.notifier.StatusChanged(ctx, activity, req)
}

func (s *requestService) ResendRequest(ctx context.Context, actor Actor, activityID, requestID uuid.UUID) (bool, error) {
	req, err := s.ValidateRequest(ctx, activityID, requestID)
	if err != nil {
		return false, err
	}
	if req.UserID != actor.UserID || req.Status != recommend.StatusSent {
		return false, nil
	}
	ok, err := s.access.Can(ctx, actor, activityID, access.CapRequest)
	if err != nil || !ok {
		return false, err
	}
	activity, err := s.loadActivity(ctx, activityID)
	if err != nil {
		return false, err
	}
	participant, err := s.userRepo.GetByID(dbctx.Context{Ctx: ctx}, req.UserID)
	if err != nil {
		return false, fmt.Errorf("load participant: %w", err)
	}
	if participant == nil {
		return false, fmt.Errorf("participant %s: %w", req.UserID, ErrNotFound)
	}
	if err := s.mail.Send(ctx, s.site.RenderRequestEmail(activity, participant, req)); err != nil {
		return false, fmt.Errorf("send request email: %w", err)
	}
	id, owner := req.ID, req.UserID
	if err := s.events.RecordAndPublish(ctx, Event{
		Kind:          events.RequestSent,
		ActivityID:    activityID,
		ActorID:       actor.userIDPtr(),
		ObjectTable:   "recommend_request",
		ObjectID:      &id,
		RelatedUserID: &owner,
		Payload:       map[string]any{"status": req.Status.String(), "resend": true},
	}); err != nil {
		return false, err
	}
	return true, nil
}

func (s *requestService) ListAll(ctx context.Context, actor Actor, activityID uuid.UUID) ([]ParticipantRequests, error) {
	ok, err := s.access.Can(ctx, actor, activityID, access.CapViewDetails, access.CapAccept)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	dbc := dbctx.Context{Ctx: ctx}
	rows, err := s.requestRepo.ListByActivity(dbc, activityID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	byUser := map[uuid.UUID][]*types.Request{}
	for _, r := range rows {
		byUser[r.UserID] = append(byUser[r.UserID], r)
	}
	holders, err := s.access.HoldersOf(ctx, activityID, access.CapRequest)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(byUser)+len(holders))
	for id := range byUser {
		ids = append(ids, id)
	}
	for _, h := range holders {
		if _, ok := byUser[h.ID]; !ok {
			ids = append(ids, h.ID)
		}
	}
	users, err := s.userRepo.GetByIDs(dbc, ids)
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}
	out := make([]ParticipantRequests, 0, len(users))
	for _, u := range users {
		reqs := byUser[u.ID]
		if reqs == nil {
			reqs = []*types.Request{}
		}
		out = append(out, ParticipantRequests{User: u, Requests: reqs})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].User.FullName()), strings.ToLower(out[j].User.FullName())
		if a != b {
			return a < b
		}
		return out[i].User.Email < out[j].User.Email
	})
	return out, nil
}

func (s *requestService) StatusSummary(ctx context.Context, activityID, userID uuid.UUID) (map[types.RequestStatus]int, error) {
	counts, err := s.requestRepo.CountByStatus(dbctx.Context{Ctx: ctx}, activityID, userID)
	if err != nil {
		return nil, fmt.Errorf("count requests: %w", err)
	}
	return counts, nil
}

// IsValidationError reports whether err rejected an add-requests batch.
func IsValidationError(err error) (*RequestValidationError, bool) {
	var ve *RequestValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
