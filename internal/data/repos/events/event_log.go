package events

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/recommend-backend/internal/domain"
	"github.com/yungbote/recommend-backend/internal/pkg/dbctx"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
)

type EventLogRepo interface {
	Create(dbc dbctx.Context, rows []*types.EventLog) ([]*types.EventLog, error)
	ListByActivity(dbc dbctx.Context, activityID uuid.UUID, kinds ...types.EventKind) ([]*types.EventLog, error)
}

type eventLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEventLogRepo(db *gorm.DB, baseLog *logger.Logger) EventLogRepo {
	return &eventLogRepo{db: db, log: baseLog.With("repo", "EventLogRepo")}
}

func (r *eventLogRepo) Create(dbc dbctx.Context, rows []*types.EventLog) ([]*types.EventLog, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.EventLog{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *eventLogRepo) ListByActivity(dbc dbctx.Context, activityID uuid.UUID, kinds ...types.EventKind) ([]*types.EventLog, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.EventLog
	q := transaction.WithContext(dbc.Ctx).Where("activity_id = ?", activityID)
	if len(kinds) > 0 {
		q = q.Where("kind IN ?", kinds)
	}
	if err := q.Order("created_at ASC, id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
