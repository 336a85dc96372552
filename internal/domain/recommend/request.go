package recommend

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Request is a participant's request for a recommendation from one
// recommender. Secret is the only credential the recommender holds.
type Request struct {
	ID         uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	ActivityID uuid.UUID     `gorm:"type:uuid;not null;column:activity_id;index:idx_recommend_request_owner,priority:1" json:"activity_id"`
	UserID     uuid.UUID     `gorm:"type:uuid;not null;column:user_id;index:idx_recommend_request_owner,priority:2" json:"user_id"`
	Email      string        `gorm:"column:email;not null" json:"email"`
	Name       string        `gorm:"column:name;not null" json:"name"`
	Status     RequestStatus `gorm:"column:status;not null;index" json:"status"`
	Secret     string        `gorm:"column:secret;size:64;not null;uniqueIndex" json:"-"`

	TimeRequested time.Time  `gorm:"column:time_requested;not null;index" json:"time_requested"`
	TimeCompleted *time.Time `gorm:"column:time_completed" json:"time_completed,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Request) TableName() string { return "recommend_request" }

func (r *Request) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
