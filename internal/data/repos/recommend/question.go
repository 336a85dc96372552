package recommend

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/recommend-backend/internal/domain"
	"github.com/yungbote/recommend-backend/internal/pkg/dbctx"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
)

// QuestionContent is the editable part of a question. Type and activity are
// fixed at creation; sort order has its own setter.
type QuestionContent struct {
	Question       string
	QuestionFormat types.TextFormat
	AddInfo        string
}

type QuestionRepo interface {
	Create(dbc dbctx.Context, rows []*types.Question) ([]*types.Question, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Question, error)
	ListByActivity(dbc dbctx.Context, activityID uuid.UUID) ([]*types.Question, error)
	CountByActivity(dbc dbctx.Context, activityID uuid.UUID) (int, error)
	UpdateContent(dbc dbctx.Context, id uuid.UUID, content QuestionContent) error
	SetSortOrder(dbc dbctx.Context, id uuid.UUID, sortOrder int) error
	FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	FullDeleteByActivity(dbc dbctx.Context, activityID uuid.UUID) error
}

type questionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionRepo(db *gorm.DB, baseLog *logger.Logger) QuestionRepo {
	return &questionRepo{db: db, log: baseLog.With("repo", "QuestionRepo")}
}

func (r *questionRepo) Create(dbc dbctx.Context, rows []*types.Question) ([]*types.Question, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.Question{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *questionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Question, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*types.Question
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

// ListByActivity returns questions in display order. Ties on sort_order
// (left by concurrent edits) fall back to creation order.
func (r *questionRepo) ListByActivity(dbc dbctx.Context, activityID uuid.UUID) ([]*types.Question, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Question
	if activityID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("activity_id = ?", activityID).
		Order("sort_order ASC, created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *questionRepo) CountByActivity(dbc dbctx.Context, activityID uuid.UUID) (int, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Question{}).
		Where("activity_id = ?", activityID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *questionRepo) UpdateContent(dbc dbctx.Context, id uuid.UUID, content QuestionContent) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Question{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"question":        content.Question,
			"question_format": content.QuestionFormat,
			"add_info":        content.AddInfo,
		}).Error
}

func (r *questionRepo) SetSortOrder(dbc dbctx.Context, id uuid.UUID, sortOrder int) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Question{}).
		Where("id = ?", id).
		Update("sort_order", sortOrder).Error
}

func (r *questionRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Delete(&types.Question{}).Error
}

func (r *questionRepo) FullDeleteByActivity(dbc dbctx.Context, activityID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if activityID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Where("activity_id = ?", activityID).
		Delete(&types.Question{}).Error
}
