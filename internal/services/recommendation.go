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
	"github.com/yungbote/recommend-backend/internal/domain/recommend"
	"github.com/yungbote/recommend-backend/internal/pkg/dbctx"
	"github.com/yungbote/recommend-backend/internal/pkg/richtext"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
)

// FormQuestion is a question as presented to the recommender.
type FormQuestion struct {
	ID             uuid.UUID              `json:"id"`
	Type           string                 `json:"type"`
	Question       string                 `json:"question"`
	QuestionHTML   string                 `json:"question_html"`
	QuestionFormat types.TextFormat       `json:"question_format"`
	SortOrder      int                    `json:"sort_order"`
	Options        []types.QuestionOption `json:"options,omitempty"`
	Prefill        string                 `json:"prefill,omitempty"`
	Reply          *string                `json:"reply,omitempty"`
}

type Recommendation struct {
	Request     *types.Request  `json:"request"`
	Activity    *types.Activity `json:"activity"`
	Participant *types.User     `json:"participant"`
	Questions   []FormQuestion  `json:"questions"`
	Submitted   bool            `json:"submitted"`
}

// Answer is one submitted form value. Text carries the textfield value, the
// textarea body (in Format) or the selected radio option key.
type Answer struct {
	Text   string           `json:"text"`
	Format types.TextFormat `json:"format"`
}

type RequestDetails struct {
	Request     *types.Request        `json:"request"`
	Participant *types.User           `json:"participant"`
	Questions   []FormQuestion        `json:"questions"`
	Replies     map[uuid.UUID]*string `json:"replies"`
	Comments    []RequestComment      `json:"comments"`
}

// FormPreview is the recommendation form as an editor sees it before any
// request exists.
type FormPreview struct {
	Activity  *types.Activity `json:"activity"`
	Questions []FormQuestion  `json:"questions"`
}

type RecommendationService interface {
	Open(ctx context.Context, secret string) (*Recommendation, error)
	Save(ctx context.Context, secret string, answers map[uuid.UUID]Answer) error
	ViewRequest(ctx context.Context, actor Actor, activityID, requestID uuid.UUID) (*RequestDetails, error)
	// Preview renders the form without request data; editquestions only.
	Preview(ctx context.Context, actor Actor, activityID uuid.UUID) (*FormPreview, error)
}

type recommendationService struct {
	db           *gorm.DB
	log          *logger.Logger
	activityRepo repos.ActivityRepo
	requestRepo  repos.RequestRepo
	replyRepo    repos.ReplyRepo
	commentRepo  repos.CommentRepo
	userRepo     repos.UserRepo
	questions    QuestionService
	access       AccessService
	events       EventRecorder
	completion   CompletionService
	notifier     StatusNotifier
	now          func() time.Time
}

func NewRecommendationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	activityRepo repos.ActivityRepo,
	requestRepo repos.RequestRepo,
	replyRepo repos.ReplyRepo,
	commentRepo repos.CommentRepo,
	userRepo repos.UserRepo,
	questionService QuestionService,
	accessService AccessService,
	eventRecorder EventRecorder,
	completionService CompletionService,
	notifier StatusNotifier,
	now func() time.Time,
) RecommendationService {
	if now == nil {
		now = time.Now
	}
	return &recommendationService{
		db:           db,
		log:          baseLog.With("service", "RecommendationService"),
		activityRepo: activityRepo,
		requestRepo:  requestRepo,
		replyRepo:    replyRepo,
		commentRepo:  commentRepo,
		userRepo:     userRepo,
		questions:    questionService,
		access:       accessService,
		events:       eventRecorder,
		completion:   completionService,
		notifier:     notifier,
		now:          now,
	}
}

func (s *recommendationService) loadBySecret(ctx context.Context, secret string) (*types.Request, *types.Activity, error) {
	dbc := dbctx.Context{Ctx: ctx}
	req, err := s.requestRepo.GetBySecret(dbc, strings.TrimSpace(secret))
	if err != nil {
		return nil, nil, fmt.Errorf("load request: %w", err)
	}
	if req == nil {
		return nil, nil, fmt.Errorf("recommendation: %w", ErrNotFound)
	}
	activity, err := s.activityRepo.GetByID(dbc, req.ActivityID)
	if err != nil {
		return nil, nil, fmt.Errorf("load activity: %w", err)
	}
	if activity == nil {
		return nil, nil, fmt.Errorf("activity %s: %w", req.ActivityID, ErrNotFound)
	}
	return req, activity, nil
}

func formQuestions(questions []*types.Question, req *types.Request, replies map[uuid.UUID]*string) []FormQuestion {
	out := make([]FormQuestion, 0, len(questions))
	for _, q := range questions {
		fq := FormQuestion{
			ID:             q.ID,
			Type:           q.Type,
			Question:       q.Question,
			QuestionHTML:   richtext.ToHTML(q.Question, q.QuestionFormat),
			QuestionFormat: q.QuestionFormat,
			SortOrder:      q.SortOrder,
			Options:        q.Options(),
		}
		if q.Type == recommend.QuestionTextfield && req != nil {
			switch q.AddInfo {
			case recommend.PrefillEmail:
				fq.Prefill = req.Email
			case recommend.PrefillName:
				fq.Prefill = req.Name
			}
		}
		if replies != nil {
			fq.Reply = replies[q.ID]
		}
		out = append(out, fq)
	}
	return out
}

func (s *recommendationService) repliesByQuestion(ctx context.Context, requestID uuid.UUID) (map[uuid.UUID]*string, error) {
	rows, err := s.replyRepo.ListByRequestIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{requestID})
	if err != nil {
		return nil, fmt.Errorf("load replies: %w", err)
	}
	out := make(map[uuid.UUID]*string, len(rows))
	for _, r := range rows {
		out[r.QuestionID] = r.Reply
	}
	return out, nil
}

func (s *recommendationService) Open(ctx context.Context, secret string) (*Recommendation, error) {
	req, activity, err := s.loadBySecret(ctx, secret)
	if err != nil {
		return nil, err
	}
	participant, err := s.userRepo.GetByID(dbctx.Context{Ctx: ctx}, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("load participant: %w", err)
	}
	questions, err := s.questions.List(ctx, activity.ID)
	if err != nil {
		return nil, err
	}
	submitted := req.Status.Submitted()
	var replies map[uuid.UUID]*string
	if submitted {
		if replies, err = s.repliesByQuestion(ctx, req.ID); err != nil {
			return nil, err
		}
	}
	return &Recommendation{
		Request:     req,
		Activity:    activity,
		Participant: participant,
		Questions:   formQuestions(questions, req, replies),
		Submitted:   submitted,
	}, nil
}

// extractReply converts a submitted answer to the stored reply value.
func extractReply(q *types.Question, answer Answer, given bool) (*string, error) {
	if q.Type == recommend.QuestionLabel || !given {
		return nil, nil
	}
	var value string
	switch q.Type {
	case recommend.QuestionTextfield:
		value = strings.TrimSpace(richtext.StripTags(answer.Text))
	case recommend.QuestionTextarea:
		if strings.TrimSpace(answer.Text) == "" {
			return nil, nil
		}
		format := answer.Format
		if !format.Valid() {
			format = recommend.FormatAuto
		}
		value = richtext.ToHTML(answer.Text, format)
	case recommend.QuestionRadio:
		value = strings.TrimSpace(answer.Text)
		if value != "" && !q.HasOption(value) {
			return nil, fmt.Errorf("%w: %q is not an option of question %s", ErrInvalidAnswer, value, q.ID)
		}
	}
	if value == "" {
		return nil, nil
	}
	return &value, nil
}

func (s *recommendationService) Save(ctx context.Context, secret string, answers map[uuid.UUID]Answer) error {
	req, activity, err := s.loadBySecret(ctx, secret)
	if err != nil {
		return err
	}
	if req.Status.Submitted() {
		return ErrAlreadySubmitted
	}
	questions, err := s.questions.List(ctx, activity.ID)
	if err != nil {
		return err
	}
	replies := make([]*types.Reply, 0, len(questions))
	for _, q := range questions {
		answer, given := answers[q.ID]
		value, err := extractReply(q, answer, given)
		if err != nil {
			return err
		}
		replies = append(replies, &types.Reply{
			ActivityID: activity.ID,
			RequestID:  req.ID,
			QuestionID: q.ID,
			Reply:      value,
		})
	}

	completedAt := s.now().UTC()
	var ev *types.EventLog
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := s.replyRepo.DeleteByRequestIDs(dbc, []uuid.UUID{req.ID}); err != nil {
			return fmt.Errorf("delete replies: %w", err)
		}
		if _, err := s.replyRepo.Create(dbc, replies); err != nil {
			return fmt.Errorf("store replies: %w", err)
		}
		changed, err := s.requestRepo.TransitionStatus(dbc, req.ID, req.Status, recommend.StatusCompleted, map[string]interface{}{
			"time_completed": completedAt,
		})
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		if !changed {
			// Another submission won the race.
			return ErrAlreadySubmitted
		}
		req.Status = recommend.StatusCompleted
		req.TimeCompleted = &completedAt
		id, owner := req.ID, req.UserID
		ev, err = s.events.Record(dbc, Event{
			Kind:          events.RequestCompleted,
			ActivityID:    activity.ID,
			ObjectTable:   "recommend_request",
			ObjectID:      &id,
			RelatedUserID: &owner,
			Payload:       map[string]any{"status": req.Status.String()},
		})
		return err
	})
	if err != nil {
		return err
	}
	s.events.Publish(ctx, ev)
	s.log.Info("Recommendation submitted", "activity_id", activity.ID, "request_id", req.ID)

	if err := s.completion.Update(ctx, activity, req.UserID); err != nil {
		s.log.Warn("Completion update failed", "activity_id", activity.ID, "user_id", req.UserID, "error", err)
	}
	s.notifier.StatusChanged(ctx, activity, req)
	return nil
}

func (s *recommendationService) ViewRequest(ctx context.Context, actor Actor, activityID, requestID uuid.UUID) (*RequestDetails, error) {
	ok, err := s.access.Can(ctx, actor, activityID, access.CapViewDetails, access.CapAccept)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	dbc := dbctx.Context{Ctx: ctx}
	req, err := s.requestRepo.GetByID(dbc, requestID)
	if err != nil {
		return nil, fmt.Errorf("load request: %w", err)
	}
	if req == nil || req.ActivityID != activityID {
		return nil, fmt.Errorf("request %s: %w", requestID, ErrNotFound)
	}
	participant, err := s.userRepo.GetByID(dbc, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("load participant: %w", err)
	}
	questions, err := s.questions.List(ctx, activityID)
	if err != nil {
		return nil, err
	}
	replies, err := s.repliesByQuestion(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	comments, err := listComments(dbc, s.commentRepo, s.userRepo, req.ID)
	if err != nil {
		return nil, err
	}
	return &RequestDetails{
		Request:     req,
		Participant: participant,
		Questions:   formQuestions(questions, req, replies),
		Replies:     replies,
		Comments:    comments,
	}, nil
}

func (s *recommendationService) Preview(ctx context.Context, actor Actor, activityID uuid.UUID) (*FormPreview, error) {
	ok, err := s.access.Can(ctx, actor, activityID, access.CapEditQuestions)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	activity, err := s.activityRepo.GetByID(dbctx.Context{Ctx: ctx}, activityID)
	if err != nil {
		return nil, fmt.Errorf("load activity: %w", err)
	}
	if activity == nil {
		return nil, fmt.Errorf("activity %s: %w", activityID, ErrNotFound)
	}
	questions, err := s.questions.List(ctx, activityID)
	if err != nil {
		return nil, err
	}
	return &FormPreview{Activity: activity, Questions: formQuestions(questions, nil, nil)}, nil
}
