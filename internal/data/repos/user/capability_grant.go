package user

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/recommend-backend/internal/domain"
	"github.com/yungbote/recommend-backend/internal/pkg/dbctx"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
)

// CapabilityGrantRepo stores per-activity and site-wide capability grants.
// A grant with a nil ActivityID applies to every activity.
type CapabilityGrantRepo interface {
	Create(dbc dbctx.Context, rows []*types.CapabilityGrant) ([]*types.CapabilityGrant, error)
	Exists(dbc dbctx.Context, userID, activityID uuid.UUID, caps []types.Capability) (bool, error)
	ExistsExact(dbc dbctx.Context, userID uuid.UUID, activityID *uuid.UUID, cap types.Capability) (bool, error)
	ListUserIDs(dbc dbctx.Context, activityID uuid.UUID, cap types.Capability) ([]uuid.UUID, error)
	ListByActivity(dbc dbctx.Context, activityID uuid.UUID) ([]*types.CapabilityGrant, error)
	Delete(dbc dbctx.Context, userID uuid.UUID, activityID *uuid.UUID, cap types.Capability) error
	DeleteByActivity(dbc dbctx.Context, activityID uuid.UUID) error
}

type capabilityGrantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCapabilityGrantRepo(db *gorm.DB, baseLog *logger.Logger) CapabilityGrantRepo {
	return &capabilityGrantRepo{db: db, log: baseLog.With("repo", "CapabilityGrantRepo")}
}

// Create ignores grants that already exist.
func (r *capabilityGrantRepo) Create(dbc dbctx.Context, rows []*types.CapabilityGrant) ([]*types.CapabilityGrant, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.CapabilityGrant{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *capabilityGrantRepo) Exists(dbc dbctx.Context, userID, activityID uuid.UUID, caps []types.Capability) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || len(caps) == 0 {
		return false, nil
	}
	var n int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.CapabilityGrant{}).
		Where("user_id = ? AND capability IN ?", userID, caps).
		Where("(activity_id = ? OR activity_id IS NULL)", activityID).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// ExistsExact matches the grant scope exactly; a nil activityID only matches
// site-wide grants.
func (r *capabilityGrantRepo) ExistsExact(dbc dbctx.Context, userID uuid.UUID, activityID *uuid.UUID, cap types.Capability) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).
		Model(&types.CapabilityGrant{}).
		Where("user_id = ? AND capability = ?", userID, cap)
	if activityID == nil {
		q = q.Where("activity_id IS NULL")
	} else {
		q = q.Where("activity_id = ?", *activityID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *capabilityGrantRepo) ListUserIDs(dbc dbctx.Context, activityID uuid.UUID, cap types.Capability) ([]uuid.UUID, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []uuid.UUID
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.CapabilityGrant{}).
		Where("capability = ?", cap).
		Where("(activity_id = ? OR activity_id IS NULL)", activityID).
		Distinct().
		Pluck("user_id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListByActivity returns only grants scoped to the activity.
func (r *capabilityGrantRepo) ListByActivity(dbc dbctx.Context, activityID uuid.UUID) ([]*types.CapabilityGrant, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.CapabilityGrant
	if err := transaction.WithContext(dbc.Ctx).
		Where("activity_id = ?", activityID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *capabilityGrantRepo) Delete(dbc dbctx.Context, userID uuid.UUID, activityID *uuid.UUID, cap types.Capability) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("user_id = ? AND capability = ?", userID, cap)
	if activityID == nil {
		q = q.Where("activity_id IS NULL")
	} else {
		q = q.Where("activity_id = ?", *activityID)
	}
	return q.Delete(&types.CapabilityGrant{}).Error
}

func (r *capabilityGrantRepo) DeleteByActivity(dbc dbctx.Context, activityID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if activityID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Where("activity_id = ?", activityID).
		Delete(&types.CapabilityGrant{}).Error
}
