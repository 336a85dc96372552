package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/recommend-backend/internal/data/repos"
	types "github.com/yungbote/recommend-backend/internal/domain"
	"github.com/yungbote/recommend-backend/internal/domain/access"
	"github.com/yungbote/recommend-backend/internal/domain/events"
	"github.com/yungbote/recommend-backend/internal/pkg/dbctx"
	"github.com/yungbote/recommend-backend/internal/pkg/richtext"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
)

// maxCommentLength is counted in runes after tags are stripped.
const maxCommentLength = 65535

// RequestComment is a reviewer comment with its author's display name.
type RequestComment struct {
	*types.Comment
	AuthorName string `json:"author_name"`
}

// CommentService manages reviewer comments on requests. Anyone holding
// viewdetails or accept on the activity may read and post.
type CommentService interface {
	List(ctx context.Context, actor Actor, activityID, requestID uuid.UUID) ([]RequestComment, error)
	Add(ctx context.Context, actor Actor, activityID, requestID uuid.UUID, content string) (*RequestComment, error)
}

type commentService struct {
	db          *gorm.DB
	log         *logger.Logger
	requestRepo repos.RequestRepo
	commentRepo repos.CommentRepo
	userRepo    repos.UserRepo
	access      AccessService
	events      EventRecorder
	now         func() time.Time
}

func NewCommentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	requestRepo repos.RequestRepo,
	commentRepo repos.CommentRepo,
	userRepo repos.UserRepo,
	accessService AccessService,
	eventRecorder EventRecorder,
	now func() time.Time,
) CommentService {
	if now == nil {
		now = time.Now
	}
	return &commentService{
		db:          db,
		log:         baseLog.With("service", "CommentService"),
		requestRepo: requestRepo,
		commentRepo: commentRepo,
		userRepo:    userRepo,
		access:      accessService,
		events:      eventRecorder,
		now:         now,
	}
}

// authorize checks the reviewer capabilities and that the request belongs
// to the activity.
func (s *commentService) authorize(ctx context.Context, actor Actor, activityID, requestID uuid.UUID) (*types.Request, error) {
	ok, err := s.access.Can(ctx, actor, activityID, access.CapViewDetails, access.CapAccept)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	req, err := s.requestRepo.GetByID(dbctx.Context{Ctx: ctx}, requestID)
	if err != nil {
		return nil, fmt.Errorf("load request: %w", err)
	}
	if req == nil || req.ActivityID != activityID {
		return nil, fmt.Errorf("request %s: %w", requestID, ErrNotFound)
	}
	return req, nil
}

func (s *commentService) List(ctx context.Context, actor Actor, activityID, requestID uuid.UUID) ([]RequestComment, error) {
	if _, err := s.authorize(ctx, actor, activityID, requestID); err != nil {
		return nil, err
	}
	return listComments(dbctx.Context{Ctx: ctx}, s.commentRepo, s.userRepo, requestID)
}

func (s *commentService) Add(ctx context.Context, actor Actor, activityID, requestID uuid.UUID, content string) (*RequestComment, error) {
	if actor.UserID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	req, err := s.authorize(ctx, actor, activityID, requestID)
	if err != nil {
		return nil, err
	}
	content = strings.TrimSpace(richtext.StripTags(content))
	if content == "" {
		return nil, fmt.Errorf("%w: comment is empty", ErrInvalidInput)
	}
	if len([]rune(content)) > maxCommentLength {
		return nil, fmt.Errorf("%w: comment exceeds %d characters", ErrInvalidInput, maxCommentLength)
	}

	row := &types.Comment{
		ActivityID: activityID,
		RequestID:  req.ID,
		UserID:     actor.UserID,
		Content:    content,
		CreatedAt:  s.now().UTC(),
	}
	base := dbctx.Context{Ctx: ctx}
	var ev *types.EventLog
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := base.WithTx(tx)
		if _, err := s.commentRepo.Create(dbc, row); err != nil {
			return fmt.Errorf("store comment: %w", err)
		}
		id, owner := row.ID, req.UserID
		ev, err = s.events.Record(dbc, Event{
			Kind:          events.CommentCreated,
			ActivityID:    activityID,
			ActorID:       actor.userIDPtr(),
			ObjectTable:   "recommend_request_comment",
			ObjectID:      &id,
			RelatedUserID: &owner,
			Payload:       map[string]any{"request_id": req.ID.String()},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.events.Publish(ctx, ev)

	author, err := s.userRepo.GetByID(base, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("load author: %w", err)
	}
	s.log.Info("Request comment added", "activity_id", activityID, "request_id", req.ID, "comment_id", row.ID)
	return &RequestComment{Comment: row, AuthorName: author.FullName()}, nil
}

// listComments loads a request's comments with author names resolved.
func listComments(dbc dbctx.Context, commentRepo repos.CommentRepo, userRepo repos.UserRepo, requestID uuid.UUID) ([]RequestComment, error) {
	rows, err := commentRepo.ListByRequest(dbc, requestID)
	if err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}
	names := map[uuid.UUID]string{}
	out := make([]RequestComment, 0, len(rows))
	for _, c := range rows {
		name, ok := names[c.UserID]
		if !ok {
			u, err := userRepo.GetByID(dbc, c.UserID)
			if err != nil {
				return nil, fmt.Errorf("load author: %w", err)
			}
			name = u.FullName()
			names[c.UserID] = name
		}
		out = append(out, RequestComment{Comment: c, AuthorName: name})
	}
	return out, nil
}
