package recommend

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/recommend-backend/internal/domain"
	"github.com/yungbote/recommend-backend/internal/pkg/dbctx"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
)

type ReplyRepo interface {
	Create(dbc dbctx.Context, rows []*types.Reply) ([]*types.Reply, error)
	ListByRequestIDs(dbc dbctx.Context, requestIDs []uuid.UUID) ([]*types.Reply, error)
	DeleteByRequestIDs(dbc dbctx.Context, requestIDs []uuid.UUID) error
	DeleteByQuestionIDs(dbc dbctx.Context, questionIDs []uuid.UUID) error
	DeleteByActivity(dbc dbctx.Context, activityID uuid.UUID) error
}

type replyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReplyRepo(db *gorm.DB, baseLog *logger.Logger) ReplyRepo {
	return &replyRepo{db: db, log: baseLog.With("repo", "ReplyRepo")}
}

func (r *replyRepo) Create(dbc dbctx.Context, rows []*types.Reply) ([]*types.Reply, error) {
	if len(rows) == 0 {
		return []*types.Reply{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *replyRepo) ListByRequestIDs(dbc dbctx.Context, requestIDs []uuid.UUID) ([]*types.Reply, error) {
	var out []*types.Reply
	if len(requestIDs) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("request_id IN ?", requestIDs).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *replyRepo) DeleteByRequestIDs(dbc dbctx.Context, requestIDs []uuid.UUID) error {
	if len(requestIDs) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Where("request_id IN ?", requestIDs).
		Delete(&types.Reply{}).Error
}

func (r *replyRepo) DeleteByQuestionIDs(dbc dbctx.Context, questionIDs []uuid.UUID) error {
	if len(questionIDs) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Where("question_id IN ?", questionIDs).
		Delete(&types.Reply{}).Error
}

func (r *replyRepo) DeleteByActivity(dbc dbctx.Context, activityID uuid.UUID) error {
	if activityID == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).
		Where("activity_id = ?", activityID).
		Delete(&types.Reply{}).Error
}
