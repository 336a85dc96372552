package recommend

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/recommend-backend/internal/domain"
	"github.com/yungbote/recommend-backend/internal/domain/recommend"
	"github.com/yungbote/recommend-backend/internal/pkg/dbctx"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
)

type RequestRepo interface {
	Create(dbc dbctx.Context, rows []*types.Request) ([]*types.Request, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Request, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Request, error)
	GetBySecret(dbc dbctx.Context, secret string) (*types.Request, error)
	ListByActivity(dbc dbctx.Context, activityID uuid.UUID) ([]*types.Request, error)
	ListByOwner(dbc dbctx.Context, activityID, userID uuid.UUID) ([]*types.Request, error)
	ListOwnerIDs(dbc dbctx.Context, activityID uuid.UUID) ([]uuid.UUID, error)
	CountByOwner(dbc dbctx.Context, activityID, userID uuid.UUID) (int, error)
	CountByStatus(dbc dbctx.Context, activityID, userID uuid.UUID) (map[types.RequestStatus]int, error)
	ListDue(dbc dbctx.Context, requestedBefore time.Time) ([]*types.Request, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	TransitionStatus(dbc dbctx.Context, id uuid.UUID, from, to types.RequestStatus, extra map[string]interface{}) (bool, error)
	FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	FullDeleteByActivity(dbc dbctx.Context, activityID uuid.UUID) error
}

type requestRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRequestRepo(db *gorm.DB, baseLog *logger.Logger) RequestRepo {
	return &requestRepo{db: db, log: baseLog.With("repo", "RequestRepo")}
}

func (r *requestRepo) Create(dbc dbctx.Context, rows []*types.Request) ([]*types.Request, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.Request{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *requestRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Request, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Request
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *requestRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Request, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	rows, err := r.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *requestRepo) GetBySecret(dbc dbctx.Context, secret string) (*types.Request, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if secret == "" {
		return nil, nil
	}
	var out []*types.Request
	if err := transaction.WithContext(dbc.Ctx).
		Where("secret = ?", secret).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *requestRepo) ListByActivity(dbc dbctx.Context, activityID uuid.UUID) ([]*types.Request, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Request
	if activityID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("activity_id = ?", activityID).
		Order("time_requested ASC, created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *requestRepo) ListByOwner(dbc dbctx.Context, activityID, userID uuid.UUID) ([]*types.Request, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Request
	if activityID == uuid.Nil || userID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("activity_id = ? AND user_id = ?", activityID, userID).
		Order("time_requested ASC, created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *requestRepo) ListOwnerIDs(dbc dbctx.Context, activityID uuid.UUID) ([]uuid.UUID, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []uuid.UUID
	if activityID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Request{}).
		Where("activity_id = ?", activityID).
		Distinct().
		Pluck("user_id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *requestRepo) CountByOwner(dbc dbctx.Context, activityID, userID uuid.UUID) (int, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Request{}).
		Where("activity_id = ? AND user_id = ?", activityID, userID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

// CountByStatus counts requests per status. A nil userID counts across all
// participants of the activity.
func (r *requestRepo) CountByStatus(dbc dbctx.Context, activityID, userID uuid.UUID) (map[types.RequestStatus]int, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	type row struct {
		Status types.RequestStatus
		N      int64
	}
	var rows []row
	q := transaction.WithContext(dbc.Ctx).
		Model(&types.Request{}).
		Select("status, COUNT(*) AS n").
		Where("activity_id = ?", activityID)
	if userID != uuid.Nil {
		q = q.Where("user_id = ?", userID)
	}
	if err := q.Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[types.RequestStatus]int, len(rows))
	for _, c := range rows {
		out[c.Status] = int(c.N)
	}
	return out, nil
}

// ListDue returns scheduled requests older than requestedBefore whose owner is
// neither deleted nor suspended.
func (r *requestRepo) ListDue(dbc dbctx.Context, requestedBefore time.Time) ([]*types.Request, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Request
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Request{}).
		Select("recommend_request.*").
		Joins("JOIN recommend_activity ON recommend_activity.id = recommend_request.activity_id").
		Joins(`JOIN "user" ON "user".id = recommend_request.user_id`).
		Where("recommend_request.status = ?", recommend.StatusPending).
		Where("recommend_request.time_requested < ?", requestedBefore).
		Where(`"user".deleted_at IS NULL AND "user".suspended = ?`, false).
		Order("recommend_request.time_requested ASC, recommend_request.id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *requestRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Request{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// TransitionStatus moves a request from one status to another only if it is
// still in the expected status. It reports whether a row was changed.
func (r *requestRepo) TransitionStatus(dbc dbctx.Context, id uuid.UUID, from, to types.RequestStatus, extra map[string]interface{}) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	updates := map[string]interface{}{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Request{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *requestRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Delete(&types.Request{}).Error
}

func (r *requestRepo) FullDeleteByActivity(dbc dbctx.Context, activityID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if activityID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Where("activity_id = ?", activityID).
		Delete(&types.Request{}).Error
}
