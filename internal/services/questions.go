package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

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

type QuestionInput struct {
	Type           string           `json:"type" validate:"omitempty,oneof=label textfield textarea radio"`
	Question       string           `json:"question" validate:"max=65535"`
	QuestionFormat types.TextFormat `json:"question_format" validate:"min=0,max=2"`
	AddInfo        string           `json:"add_info" validate:"max=65535"`
}

type QuestionService interface {
	// List returns the activity's questions in display order, repairing
	// gaps or duplicates in the stored sort order.
	List(ctx context.Context, activityID uuid.UUID) ([]*types.Question, error)
	Get(ctx context.Context, activityID, questionID uuid.UUID) (*types.Question, error)
	// Add inserts before beforeID when given, otherwise appends.
	Add(ctx context.Context, actor Actor, activityID uuid.UUID, in QuestionInput, beforeID *uuid.UUID) (*types.Question, error)
	Edit(ctx context.Context, actor Actor, activityID, questionID uuid.UUID, in QuestionInput) (*types.Question, error)
	MoveUp(ctx context.Context, actor Actor, activityID, questionID uuid.UUID) error
	MoveDown(ctx context.Context, actor Actor, activityID, questionID uuid.UUID) error
	Duplicate(ctx context.Context, actor Actor, activityID, questionID uuid.UUID) (*types.Question, error)
	Delete(ctx context.Context, actor Actor, activityID, questionID uuid.UUID) error
	Invalidate(activityID uuid.UUID)
}

type questionService struct {
	db           *gorm.DB
	log          *logger.Logger
	questionRepo repos.QuestionRepo
	replyRepo    repos.ReplyRepo
	access       AccessService
	events       EventRecorder

	mu    sync.Mutex
	cache map[uuid.UUID][]types.Question
	// gen is bumped on every invalidation so a List that raced with a
	// mutation does not store what it read.
	gen map[uuid.UUID]uint64
}

func NewQuestionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	questionRepo repos.QuestionRepo,
	replyRepo repos.ReplyRepo,
	accessService AccessService,
	eventRecorder EventRecorder,
) QuestionService {
	return &questionService{
		db:           db,
		log:          baseLog.With("service", "QuestionService"),
		questionRepo: questionRepo,
		replyRepo:    replyRepo,
		access:       accessService,
		events:       eventRecorder,
		cache:        map[uuid.UUID][]types.Question{},
		gen:          map[uuid.UUID]uint64{},
	}
}

func (s *questionService) List(ctx context.Context, activityID uuid.UUID) ([]*types.Question, error) {
	s.mu.Lock()
	cached, ok := s.cache[activityID]
	gen := s.gen[activityID]
	s.mu.Unlock()
	if ok {
		return cloneQuestions(cached), nil
	}

	rows, err := s.loadOrdered(dbctx.Context{Ctx: ctx}, activityID)
	if err != nil {
		return nil, err
	}
	snapshot := make([]types.Question, len(rows))
	for i, q := range rows {
		snapshot[i] = *q
	}
	s.mu.Lock()
	if s.gen[activityID] == gen {
		s.cache[activityID] = snapshot
	}
	s.mu.Unlock()
	return cloneQuestions(snapshot), nil
}

func (s *questionService) Invalidate(activityID uuid.UUID) {
	s.mu.Lock()
	delete(s.cache, activityID)
	s.gen[activityID]++
	s.mu.Unlock()
}

func cloneQuestions(in []types.Question) []*types.Question {
	out := make([]*types.Question, len(in))
	for i := range in {
		q := in[i]
		out[i] = &q
	}
	return out
}

// loadOrdered reads the questions and rewrites every sort order that does
// not match its position.
func (s *questionService) loadOrdered(dbc dbctx.Context, activityID uuid.UUID) ([]*types.Question, error) {
	rows, err := s.questionRepo.ListByActivity(dbc, activityID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	for i, q := range rows {
		if q.SortOrder == i {
			continue
		}
		if err := s.questionRepo.SetSortOrder(dbc, q.ID, i); err != nil {
			return nil, fmt.Errorf("renumber question: %w", err)
		}
		q.SortOrder = i
	}
	return rows, nil
}

func (s *questionService) Get(ctx context.Context, activityID, questionID uuid.UUID) (*types.Question, error) {
	rows, err := s.List(ctx, activityID)
	if err != nil {
		return nil, err
	}
	for _, q := range rows {
		if q.ID == questionID {
			return q, nil
		}
	}
	return nil, fmt.Errorf("question %s: %w", questionID, ErrNotFound)
}

func (s *questionService) requireEditor(ctx context.Context, actor Actor, activityID uuid.UUID) error {
	ok, err := s.access.Can(ctx, actor, activityID, access.CapEditQuestions)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func validateQuestionInput(qtype string, in QuestionInput) error {
	if !recommend.ValidQuestionType(qtype) {
		return fmt.Errorf("%w: unknown question type %q", ErrInvalidInput, qtype)
	}
	if !in.QuestionFormat.Valid() {
		return fmt.Errorf("%w: unknown format %d", ErrInvalidInput, in.QuestionFormat)
	}
	switch qtype {
	case recommend.QuestionTextfield:
		switch strings.TrimSpace(in.AddInfo) {
		case recommend.PrefillNone, recommend.PrefillEmail, recommend.PrefillName:
		default:
			return fmt.Errorf("%w: unknown prefill %q", ErrInvalidInput, in.AddInfo)
		}
	case recommend.QuestionRadio:
		probe := types.Question{Type: qtype, AddInfo: in.AddInfo}
		if len(probe.Options()) == 0 {
			return fmt.Errorf("%w: radio question needs at least one key/text option", ErrInvalidInput)
		}
	}
	return nil
}

// mutate runs fn in a transaction, then drops the cache and publishes the
// recorded events.
func (s *questionService) mutate(ctx context.Context, activityID uuid.UUID, fn func(dbc dbctx.Context) ([]*types.EventLog, error)) error {
	var recorded []*types.EventLog
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := fn(dbctx.Context{Ctx: ctx, Tx: tx})
		recorded = rows
		return err
	})
	s.Invalidate(activityID)
	if err != nil {
		return err
	}
	s.events.Publish(ctx, recorded...)
	return nil
}

func (s *questionService) questionEvent(dbc dbctx.Context, kind types.EventKind, actor Actor, q *types.Question) (*types.EventLog, error) {
	id := q.ID
	return s.events.Record(dbc, Event{
		Kind:        kind,
		ActivityID:  q.ActivityID,
		ActorID:     actor.userIDPtr(),
		ObjectTable: "recommend_question",
		ObjectID:    &id,
		Payload:     map[string]any{"type": q.Type, "sort_order": q.SortOrder},
	})
}

func indexOf(rows []*types.Question, id uuid.UUID) int {
	for i, q := range rows {
		if q.ID == id {
			return i
		}
	}
	return -1
}

func (s *questionService) Add(ctx context.Context, actor Actor, activityID uuid.UUID, in QuestionInput, beforeID *uuid.UUID) (*types.Question, error) {
	if err := s.requireEditor(ctx, actor, activityID); err != nil {
		return nil, err
	}
	if err := validateQuestionInput(in.Type, in); err != nil {
		return nil, err
	}
	created := &types.Question{
		ActivityID:     activityID,
		Type:           in.Type,
		Question:       in.Question,
		QuestionFormat: in.QuestionFormat,
		AddInfo:        strings.TrimSpace(in.AddInfo),
	}
	err := s.mutate(ctx, activityID, func(dbc dbctx.Context) ([]*types.EventLog, error) {
		rows, err := s.loadOrdered(dbc, activityID)
		if err != nil {
			return nil, err
		}
		position := len(rows)
		if beforeID != nil {
			position = indexOf(rows, *beforeID)
			if position < 0 {
				return nil, fmt.Errorf("question %s: %w", *beforeID, ErrNotFound)
			}
			for i := len(rows) - 1; i >= position; i-- {
				if err := s.questionRepo.SetSortOrder(dbc, rows[i].ID, i+1); err != nil {
					return nil, fmt.Errorf("shift question: %w", err)
				}
			}
		}
		created.SortOrder = position
		if _, err := s.questionRepo.Create(dbc, []*types.Question{created}); err != nil {
			return nil, fmt.Errorf("create question: %w", err)
		}
		ev, err := s.questionEvent(dbc, events.QuestionCreated, actor, created)
		if err != nil {
			return nil, err
		}
		return []*types.EventLog{ev}, nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Question added", "activity_id", activityID, "question_id", created.ID, "sort_order", created.SortOrder)
	return created, nil
}

func (s *questionService) Edit(ctx context.Context, actor Actor, activityID, questionID uuid.UUID, in QuestionInput) (*types.Question, error) {
	if err := s.requireEditor(ctx, actor, activityID); err != nil {
		return nil, err
	}
	var updated *types.Question
	err := s.mutate(ctx, activityID, func(dbc dbctx.Context) ([]*types.EventLog, error) {
		q, err := s.questionRepo.GetByID(dbc, questionID)
		if err != nil {
			return nil, fmt.Errorf("load question: %w", err)
		}
		if q == nil || q.ActivityID != activityID {
			return nil, fmt.Errorf("question %s: %w", questionID, ErrNotFound)
		}
		// The type of a question is fixed at creation.
		if err := validateQuestionInput(q.Type, in); err != nil {
			return nil, err
		}
		content := repos.QuestionContent{
			Question:       in.Question,
			QuestionFormat: in.QuestionFormat,
			AddInfo:        strings.TrimSpace(in.AddInfo),
		}
		if err := s.questionRepo.UpdateContent(dbc, q.ID, content); err != nil {
			return nil, fmt.Errorf("update question: %w", err)
		}
		q.Question, q.QuestionFormat, q.AddInfo = content.Question, content.QuestionFormat, content.AddInfo
		updated = q
		ev, err := s.questionEvent(dbc, events.QuestionUpdated, actor, q)
		if err != nil {
			return nil, err
		}
		return []*types.EventLog{ev}, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *questionService) MoveUp(ctx context.Context, actor Actor, activityID, questionID uuid.UUID) error {
	return s.move(ctx, actor, activityID, questionID, -1)
}

func (s *questionService) MoveDown(ctx context.Context, actor Actor, activityID, questionID uuid.UUID) error {
	return s.move(ctx, actor, activityID, questionID, 1)
}

// move swaps the question with its neighbour in direction dir. Moving past
// either end is a no-op.
func (s *questionService) move(ctx context.Context, actor Actor, activityID, questionID uuid.UUID, dir int) error {
	if err := s.requireEditor(ctx, actor, activityID); err != nil {
		return err
	}
	return s.mutate(ctx, activityID, func(dbc dbctx.Context) ([]*types.EventLog, error) {
		rows, err := s.loadOrdered(dbc, activityID)
		if err != nil {
			return nil, err
		}
		idx := indexOf(rows, questionID)
		if idx < 0 {
			return nil, fmt.Errorf("question %s: %w", questionID, ErrNotFound)
		}
		other := idx + dir
		if other < 0 || other >= len(rows) {
			return nil, nil
		}
		if err := s.questionRepo.SetSortOrder(dbc, rows[idx].ID, other); err != nil {
			return nil, fmt.Errorf("move question: %w", err)
		}
		if err := s.questionRepo.SetSortOrder(dbc, rows[other].ID, idx); err != nil {
			return nil, fmt.Errorf("move question: %w", err)
		}
		rows[idx].SortOrder = other
		ev, err := s.questionEvent(dbc, events.QuestionUpdated, actor, rows[idx])
		if err != nil {
			return nil, err
		}
		return []*types.EventLog{ev}, nil
	})
}

func (s *questionService) Duplicate(ctx context.Context, actor Actor, activityID, questionID uuid.UUID) (*types.Question, error) {
	if err := s.requireEditor(ctx, actor, activityID); err != nil {
		return nil, err
	}
	var clone *types.Question
	err := s.mutate(ctx, activityID, func(dbc dbctx.Context) ([]*types.EventLog, error) {
		rows, err := s.loadOrdered(dbc, activityID)
		if err != nil {
			return nil, err
		}
		idx := indexOf(rows, questionID)
		if idx < 0 {
			return nil, fmt.Errorf("question %s: %w", questionID, ErrNotFound)
		}
		src := rows[idx]
		clone = &types.Question{
			ActivityID:     src.ActivityID,
			Type:           src.Type,
			Question:       src.Question,
			QuestionFormat: src.QuestionFormat,
			AddInfo:        src.AddInfo,
			SortOrder:      len(rows),
		}
		if _, err := s.questionRepo.Create(dbc, []*types.Question{clone}); err != nil {
			return nil, fmt.Errorf("create question: %w", err)
		}
		ev, err := s.questionEvent(dbc, events.QuestionCreated, actor, clone)
		if err != nil {
			return nil, err
		}
		return []*types.EventLog{ev}, nil
	})
	if err != nil {
		return nil, err
	}
	return clone, nil
}

func (s *questionService) Delete(ctx context.Context, actor Actor, activityID, questionID uuid.UUID) error {
	if err := s.requireEditor(ctx, actor, activityID); err != nil {
		return err
	}
	return s.mutate(ctx, activityID, func(dbc dbctx.Context) ([]*types.EventLog, error) {
		q, err := s.questionRepo.GetByID(dbc, questionID)
		if err != nil {
			return nil, fmt.Errorf("load question: %w", err)
		}
		if q == nil || q.ActivityID != activityID {
			return nil, fmt.Errorf("question %s: %w", questionID, ErrNotFound)
		}
		if err := s.replyRepo.DeleteByQuestionIDs(dbc, []uuid.UUID{q.ID}); err != nil {
			return nil, fmt.Errorf("delete replies: %w", err)
		}
		if err := s.questionRepo.FullDeleteByIDs(dbc, []uuid.UUID{q.ID}); err != nil {
			return nil, fmt.Errorf("delete question: %w", err)
		}
		if _, err := s.loadOrdered(dbc, activityID); err != nil {
			return nil, err
		}
		ev, err := s.questionEvent(dbc, events.QuestionDeleted, actor, q)
		if err != nil {
			return nil, err
		}
		return []*types.EventLog{ev}, nil
	})
}
