package recommend

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/recommend-backend/internal/domain"
	"github.com/yungbote/recommend-backend/internal/pkg/dbctx"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
)

type CommentRepo interface {
	Create(dbc dbctx.Context, row *types.Comment) (*types.Comment, error)
	ListByRequest(dbc dbctx.Context, requestID uuid.UUID) ([]*types.Comment, error)
	DeleteByRequestIDs(dbc dbctx.Context, requestIDs []uuid.UUID) error
	DeleteByActivity(dbc dbctx.Context, activityID uuid.UUID) error
}

type commentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCommentRepo(db *gorm.DB, baseLog *logger.Logger) CommentRepo {
	return &commentRepo{db: db, log: baseLog.With("repo", "CommentRepo")}
}

func (r *commentRepo) Create(dbc dbctx.Context, row *types.Comment) (*types.Comment, error) {
	if err := dbc.DB(r.db).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// ListByRequest returns the request's comments, oldest first.
func (r *commentRepo) ListByRequest(dbc dbctx.Context, requestID uuid.UUID) ([]*types.Comment, error) {
	var out []*types.Comment
	if requestID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("request_id = ?", requestID).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *commentRepo) DeleteByRequestIDs(dbc dbctx.Context, requestIDs []uuid.UUID) error {
	if len(requestIDs) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Where("request_id IN ?", requestIDs).
		Delete(&types.Comment{}).Error
}

func (r *commentRepo) DeleteByActivity(dbc dbctx.Context, activityID uuid.UUID) error {
	if activityID == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).
		Where("activity_id = ?", activityID).
		Delete(&types.Comment{}).Error
}
