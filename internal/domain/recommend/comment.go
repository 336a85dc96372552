package recommend

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment is a reviewer note attached to a request.
type Comment struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ActivityID uuid.UUID `gorm:"type:uuid;not null;column:activity_id;index" json:"activity_id"`
	RequestID  uuid.UUID `gorm:"type:uuid;not null;column:request_id;index" json:"request_id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;column:user_id;index" json:"user_id"`
	Content    string    `gorm:"column:content;type:text;not null" json:"content"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (Comment) TableName() string { return "recommend_request_comment" }

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
