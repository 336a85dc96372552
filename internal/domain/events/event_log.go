package events

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Kind string

const (
	QuestionCreated    Kind = "question_created"
	QuestionUpdated    Kind = "question_updated"
	QuestionDeleted    Kind = "question_deleted"
	RequestCreated     Kind = "request_created"
	RequestSent        Kind = "request_sent"
	RequestCompleted   Kind = "request_completed"
	RequestAccepted    Kind = "request_accepted"
	RequestRejected    Kind = "request_rejected"
	RequestDeleted     Kind = "request_deleted"
	CommentCreated     Kind = "comment_created"
	CourseModuleViewed Kind = "course_module_viewed"
)

// EventLog is one recorded domain event.
type EventLog struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Kind          Kind           `gorm:"column:kind;not null;index" json:"kind"`
	ActivityID    uuid.UUID      `gorm:"type:uuid;not null;column:activity_id;index" json:"activity_id"`
	ActorID       *uuid.UUID     `gorm:"type:uuid;column:actor_id" json:"actor_id,omitempty"`
	ObjectTable   string         `gorm:"column:object_table" json:"object_table,omitempty"`
	ObjectID      *uuid.UUID     `gorm:"type:uuid;column:object_id;index" json:"object_id,omitempty"`
	RelatedUserID *uuid.UUID     `gorm:"type:uuid;column:related_user_id;index" json:"related_user_id,omitempty"`
	Payload       datatypes.JSON `gorm:"column:payload" json:"payload,omitempty"`
	CreatedAt     time.Time      `gorm:"not null;index" json:"created_at"`
}

func (EventLog) TableName() string { return "event_log" }

func (e *EventLog) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
