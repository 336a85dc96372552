package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/recommend-backend/internal/data/repos"
	types "github.com/yungbote/recommend-backend/internal/domain"
	"github.com/yungbote/recommend-backend/internal/domain/access"
	"github.com/yungbote/recommend-backend/internal/domain/events"
	"github.com/yungbote/recommend-backend/internal/domain/recommend"
	"github.com/yungbote/recommend-backend/internal/pkg/dbctx"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
)

// ActivitySettings carries the editable settings of an activity. Nil fields
// keep their current value on update and their default on create.
type ActivitySettings struct {
	Name                      *string           `json:"name" validate:"omitempty,min=1,max=255"`
	Intro                     *string           `json:"intro"`
	IntroFormat               *types.TextFormat `json:"intro_format" validate:"omitempty,min=0,max=2"`
	Visible                   *bool             `json:"visible"`
	Grade                     *int              `json:"grade"`
	MaxRequests               *int              `json:"max_requests" validate:"omitempty,min=0,max=1000"`
	RequiredRecommend         *int              `json:"required_recommend" validate:"omitempty,min=0,max=1000"`
	CompletionOnlyAccepted    *bool             `json:"completion_only_accepted"`
	RequestTemplateSubject    *string           `json:"request_template_subject" validate:"omitempty,max=255"`
	RequestTemplateBody       *string           `json:"request_template_body"`
	RequestTemplateBodyFormat *types.TextFormat `json:"request_template_body_format" validate:"omitempty,min=0,max=2"`
}

type Outline struct {
	Info   string         `json:"info"`
	Counts map[string]int `json:"counts"`
}

type ActivityService interface {
	Create(ctx context.Context, actor Actor, courseID uuid.UUID, settings ActivitySettings) (*types.Activity, error)
	Update(ctx context.Context, actor Actor, activityID uuid.UUID, settings ActivitySettings) (*types.Activity, error)
	Get(ctx context.Context, activityID uuid.UUID) (*types.Activity, error)
	Delete(ctx context.Context, actor Actor, activityID uuid.UUID) error
	// View returns the activity and records that the actor opened it.
	View(ctx context.Context, actor Actor, activityID uuid.UUID) (*types.Activity, error)
	Outline(ctx context.Context, actor Actor, activityID, userID uuid.UUID) (*Outline, error)
}

type activityService struct {
	db             *gorm.DB
	log            *logger.Logger
	activityRepo   repos.ActivityRepo
	questionRepo   repos.QuestionRepo
	requestRepo    repos.RequestRepo
	replyRepo      repos.ReplyRepo
	commentRepo    repos.CommentRepo
	completionRepo repos.CompletionRepo
	grantRepo      repos.CapabilityGrantRepo
	questions      QuestionService
	access         AccessService
	events         EventRecorder
}

func NewActivityService(
	db *gorm.DB,
	baseLog *logger.Logger,
	activityRepo repos.ActivityRepo,
	questionRepo repos.QuestionRepo,
	requestRepo repos.RequestRepo,
	replyRepo repos.ReplyRepo,
	commentRepo repos.CommentRepo,
	completionRepo repos.CompletionRepo,
	grantRepo repos.CapabilityGrantRepo,
	questionService QuestionService,
	accessService AccessService,
	eventRecorder EventRecorder,
) ActivityService {
	return &activityService{
		db:             db,
		log:            baseLog.With("service", "ActivityService"),
		activityRepo:   activityRepo,
		questionRepo:   questionRepo,
		requestRepo:    requestRepo,
		replyRepo:      replyRepo,
		commentRepo:    commentRepo,
		completionRepo: completionRepo,
		grantRepo:      grantRepo,
		questions:      questionService,
		access:         accessService,
		events:         eventRecorder,
	}
}

func (s *activityService) require(ctx context.Context, actor Actor, activityID uuid.UUID, caps ...types.Capability) error {
	ok, err := s.access.Can(ctx, actor, activityID, caps...)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// NewActivity returns an activity with the default settings applied.
func NewActivity(courseID uuid.UUID) *types.Activity {
	return &types.Activity{
		CourseID:               courseID,
		Visible:                true,
		MaxRequests:            recommend.DefaultMaxRequests,
		RequestTemplateSubject: recommend.DefaultTemplateSubject,
		RequestTemplateBody:    recommend.DefaultTemplateBody,
		// FormatAuto is the zero value for both text formats.
	}
}

func applySettings(a *types.Activity, in ActivitySettings) {
	if in.Name != nil {
		a.Name = strings.TrimSpace(*in.Name)
	}
	if in.Intro != nil {
		a.Intro = *in.Intro
	}
	if in.IntroFormat != nil {
		a.IntroFormat = *in.IntroFormat
	}
	if in.Visible != nil {
		a.Visible = *in.Visible
	}
	if in.Grade != nil {
		a.Grade = *in.Grade
	}
	if in.MaxRequests != nil {
		a.MaxRequests = *in.MaxRequests
	}
	if in.RequiredRecommend != nil {
		a.RequiredRecommend = *in.RequiredRecommend
	}
	if in.CompletionOnlyAccepted != nil {
		a.CompletionOnlyAccepted = *in.CompletionOnlyAccepted
	}
	if in.RequestTemplateSubject != nil {
		a.RequestTemplateSubject = *in.RequestTemplateSubject
	}
	if in.RequestTemplateBody != nil {
		a.RequestTemplateBody = *in.RequestTemplateBody
	}
	if in.RequestTemplateBodyFormat != nil {
		a.RequestTemplateBodyFormat = *in.RequestTemplateBodyFormat
	}
}

func validateActivity(a *types.Activity) error {
	switch {
	case a.Name == "":
		return fmt.Errorf("%w: name required", ErrInvalidInput)
	case a.MaxRequests < 0 || a.RequiredRecommend < 0:
		return fmt.Errorf("%w: counts must not be negative", ErrInvalidInput)
	case !a.IntroFormat.Valid() || !a.RequestTemplateBodyFormat.Valid():
		return fmt.Errorf("%w: unknown text format", ErrInvalidInput)
	}
	return nil
}

func (s *activityService) Create(ctx context.Context, actor Actor, courseID uuid.UUID, settings ActivitySettings) (*types.Activity, error) {
	if err := s.require(ctx, actor, uuid.Nil, access.CapSiteAdmin); err != nil {
		return nil, err
	}
	if courseID == uuid.Nil {
		return nil, fmt.Errorf("%w: course id required", ErrInvalidInput)
	}
	a := NewActivity(courseID)
	applySettings(a, settings)
	if err := validateActivity(a); err != nil {
		return nil, err
	}
	if _, err := s.activityRepo.Create(dbctx.Context{Ctx: ctx}, []*types.Activity{a}); err != nil {
		return nil, fmt.Errorf("create activity: %w", err)
	}
	s.log.Info("Activity created", "activity_id", a.ID, "course_id", courseID)
	return a, nil
}

func (s *activityService) Update(ctx context.Context, actor Actor, activityID uuid.UUID, settings ActivitySettings) (*types.Activity, error) {
	if err := s.require(ctx, actor, activityID, access.CapEditQuestions); err != nil {
		return nil, err
	}
	a, err := s.Get(ctx, activityID)
	if err != nil {
		return nil, err
	}
	applySettings(a, settings)
	if err := validateActivity(a); err != nil {
		return nil, err
	}
	if err := s.activityRepo.UpdateFields(dbctx.Context{Ctx: ctx}, a.ID, map[string]interface{}{
		"name":                         a.Name,
		"intro":                        a.Intro,
		"intro_format":                 a.IntroFormat,
		"visible":                      a.Visible,
		"grade":                        a.Grade,
		"max_requests":                 a.MaxRequests,
		"required_recommend":           a.RequiredRecommend,
		"completion_only_accepted":     a.CompletionOnlyAccepted,
		"request_template_subject":     a.RequestTemplateSubject,
		"request_template_body":        a.RequestTemplateBody,
		"request_template_body_format": a.RequestTemplateBodyFormat,
	}); err != nil {
		return nil, fmt.Errorf("update activity: %w", err)
	}
	return a, nil
}

func (s *activityService) Get(ctx context.Context, activityID uuid.UUID) (*types.Activity, error) {
	a, err := s.activityRepo.GetByID(dbctx.Context{Ctx: ctx}, activityID)
	if err != nil {
		return nil, fmt.Errorf("load activity: %w", err)
	}
	if a == nil {
		return nil, fmt.Errorf("activity %s: %w", activityID, ErrNotFound)
	}
	return a, nil
}

func (s *activityService) Delete(ctx context.Context, actor Actor, activityID uuid.UUID) error {
	if err := s.require(ctx, actor, activityID, access.CapSiteAdmin); err != nil {
		return err
	}
	if _, err := s.Get(ctx, activityID); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := s.replyRepo.DeleteByActivity(dbc, activityID); err != nil {
			return fmt.Errorf("delete replies: %w", err)
		}
		if err := s.commentRepo.DeleteByActivity(dbc, activityID); err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		if err := s.requestRepo.FullDeleteByActivity(dbc, activityID); err != nil {
			return fmt.Errorf("delete requests: %w", err)
		}
		if err := s.questionRepo.FullDeleteByActivity(dbc, activityID); err != nil {
			return fmt.Errorf("delete questions: %w", err)
		}
		if err := s.completionRepo.DeleteByActivity(dbc, activityID); err != nil {
			return fmt.Errorf("delete completion states: %w", err)
		}
		if err := s.grantRepo.DeleteByActivity(dbc, activityID); err != nil {
			return fmt.Errorf("delete grants: %w", err)
		}
		if err := s.activityRepo.FullDeleteByIDs(dbc, []uuid.UUID{activityID}); err != nil {
			return fmt.Errorf("delete activity: %w", err)
		}
		return nil
	})
	s.questions.Invalidate(activityID)
	if err != nil {
		return err
	}
	s.log.Info("Activity deleted", "activity_id", activityID)
	return nil
}

func (s *activityService) View(ctx context.Context, actor Actor, activityID uuid.UUID) (*types.Activity, error) {
	a, err := s.Get(ctx, activityID)
	if err != nil {
		return nil, err
	}
	id := a.ID
	if err := s.events.RecordAndPublish(ctx, Event{
		Kind:        events.CourseModuleViewed,
		ActivityID:  a.ID,
		ActorID:     actor.userIDPtr(),
		ObjectTable: "recommend_activity",
		ObjectID:    &id,
	}); err != nil {
		s.log.Warn("Record view failed", "activity_id", a.ID, "error", err)
	}
	return a, nil
}

func (s *activityService) Outline(ctx context.Context, actor Actor, activityID, userID uuid.UUID) (*Outline, error) {
	if actor.UserID != userID {
		if err := s.require(ctx, actor, activityID, access.CapViewDetails, access.CapAccept); err != nil {
			return nil, err
		}
	}
	if _, err := s.Get(ctx, activityID); err != nil {
		return nil, err
	}
	counts, err := s.requestRepo.CountByStatus(dbctx.Context{Ctx: ctx}, activityID, userID)
	if err != nil {
		return nil, fmt.Errorf("count requests: %w", err)
	}
	out := &Outline{Counts: map[string]int{}}
	var parts []string
	for _, st := range recommend.AllStatuses() {
		if n := counts[st]; n > 0 {
			out.Counts[st.String()] = n
			parts = append(parts, fmt.Sprintf("%s: %d", st.Label(), n))
		}
	}
	if len(parts) > 0 {
		out.Info = strings.Join(parts, ". ")
		return out, nil
	}
	canRequest, err := s.access.Has(ctx, userID, access.CapRequest, activityID)
	if err != nil {
		return nil, err
	}
	if canRequest {
		out.Info = "No requests"
	}
	return out, nil
}
