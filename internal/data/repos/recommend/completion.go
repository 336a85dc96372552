package recommend

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/recommend-backend/internal/domain"
	"github.com/yungbote/recommend-backend/internal/pkg/dbctx"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
)

type CompletionRepo interface {
	Upsert(dbc dbctx.Context, row *types.Completion) error
	Get(dbc dbctx.Context, activityID, userID uuid.UUID) (*types.Completion, error)
	DeleteByActivity(dbc dbctx.Context, activityID uuid.UUID) error
}

type completionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCompletionRepo(db *gorm.DB, baseLog *logger.Logger) CompletionRepo {
	return &completionRepo{db: db, log: baseLog.With("repo", "CompletionRepo")}
}

func (r *completionRepo) Upsert(dbc dbctx.Context, row *types.Completion) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil || row.ActivityID == uuid.Nil || row.UserID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "activity_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"completed", "evaluated_at"}),
		}).
		Create(row).Error
}

func (r *completionRepo) Get(dbc dbctx.Context, activityID, userID uuid.UUID) (*types.Completion, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Completion
	if err := transaction.WithContext(dbc.Ctx).
		Where("activity_id = ? AND user_id = ?", activityID, userID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *completionRepo) DeleteByActivity(dbc dbctx.Context, activityID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if activityID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Where("activity_id = ?", activityID).
		Delete(&types.Completion{}).Error
}
