package recommend

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reply is the recommender's answer to one question of one request.
type Reply struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ActivityID uuid.UUID `gorm:"type:uuid;not null;column:activity_id;index" json:"activity_id"`
	RequestID  uuid.UUID `gorm:"type:uuid;not null;column:request_id;index" json:"request_id"`
	QuestionID uuid.UUID `gorm:"type:uuid;not null;column:question_id;index" json:"question_id"`
	Reply      *string   `gorm:"column:reply;type:text" json:"reply"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Reply) TableName() string { return "recommend_reply" }

func (r *Reply) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
