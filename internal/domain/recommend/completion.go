package recommend

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Completion is the last evaluated completion state of a participant.
type Completion struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ActivityID  uuid.UUID `gorm:"type:uuid;not null;column:activity_id;uniqueIndex:idx_recommend_completion_user,priority:1" json:"activity_id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;column:user_id;uniqueIndex:idx_recommend_completion_user,priority:2" json:"user_id"`
	Completed   bool      `gorm:"column:completed;not null" json:"completed"`
	EvaluatedAt time.Time `gorm:"column:evaluated_at;not null" json:"evaluated_at"`
}

func (Completion) TableName() string { return "recommend_completion" }

func (c *Completion) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
