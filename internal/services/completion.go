package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/recommend-backend/internal/data/repos"
	types "github.com/yungbote/recommend-backend/internal/domain"
	"github.com/yungbote/recommend-backend/internal/domain/recommend"
	"github.com/yungbote/recommend-backend/internal/pkg/dbctx"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
)

type CompletionService interface {
	// State reports whether the user met the activity's recommendation
	// requirement. Activities that require nothing are always complete.
	State(ctx context.Context, activity *types.Activity, userID uuid.UUID) (bool, error)
	// Update stores the current state; it does nothing when the activity
	// requires no recommendations.
	Update(ctx context.Context, activity *types.Activity, userID uuid.UUID) error
}

type completionService struct {
	log            *logger.Logger
	requestRepo    repos.RequestRepo
	completionRepo repos.CompletionRepo
	now            func() time.Time
}

func NewCompletionService(baseLog *logger.Logger, requestRepo repos.RequestRepo, completionRepo repos.CompletionRepo, now func() time.Time) CompletionService {
	if now == nil {
		now = time.Now
	}
	return &completionService{
		log:            baseLog.With("service", "CompletionService"),
		requestRepo:    requestRepo,
		completionRepo: completionRepo,
		now:            now,
	}
}

func (s *completionService) State(ctx context.Context, activity *types.Activity, userID uuid.UUID) (bool, error) {
	if !activity.CompletionEnabled() {
		return true, nil
	}
	counts, err := s.requestRepo.CountByStatus(dbctx.Context{Ctx: ctx}, activity.ID, userID)
	if err != nil {
		return false, fmt.Errorf("count requests: %w", err)
	}
	n := counts[recommend.StatusAccepted]
	if !activity.CompletionOnlyAccepted {
		n += counts[recommend.StatusCompleted]
	}
	return n >= activity.RequiredRecommend, nil
}

func (s *completionService) Update(ctx context.Context, activity *types.Activity, userID uuid.UUID) error {
	if !activity.CompletionEnabled() || userID == uuid.Nil {
		return nil
	}
	done, err := s.State(ctx, activity, userID)
	if err != nil {
		return err
	}
	if err := s.completionRepo.Upsert(dbctx.Context{Ctx: ctx}, &types.Completion{
		ActivityID:  activity.ID,
		UserID:      userID,
		Completed:   done,
		EvaluatedAt: s.now().UTC(),
	}); err != nil {
		return fmt.Errorf("store completion: %w", err)
	}
	s.log.Debug("Completion updated", "activity_id", activity.ID, "user_id", userID, "completed", done)
	return nil
}
