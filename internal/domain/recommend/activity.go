package recommend

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultMaxRequests     = 5
	DefaultTemplateSubject = "Recommendation request from {SITE}"
	DefaultTemplateBody    = "Dear {NAME}\n\n" +
		"{PARTICIPANT} has asked you for a recommendation on {SITE}.\n" +
		"To fill the recommendation form online please follow the link:\n" +
		"{LINK}\n\n" +
		"If you need help, please contact the site administrator,\n" +
		"{ADMIN}\n"
)

// Activity is one configured recommendation-request instance inside a course.
type Activity struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID uuid.UUID `gorm:"type:uuid;not null;index;column:course_id" json:"course_id"`

	Name        string     `gorm:"column:name;not null" json:"name"`
	Intro       string     `gorm:"column:intro;type:text" json:"intro"`
	IntroFormat TextFormat `gorm:"column:intro_format;not null" json:"intro_format"`
	Visible     bool       `gorm:"column:visible;not null;index" json:"visible"`
	Grade       int        `gorm:"column:grade;not null" json:"grade"`

	MaxRequests            int  `gorm:"column:max_requests;not null" json:"max_requests"`
	RequiredRecommend      int  `gorm:"column:required_recommend;not null" json:"required_recommend"`
	CompletionOnlyAccepted bool `gorm:"column:completion_only_accepted;not null" json:"completion_only_accepted"`

	RequestTemplateSubject    string     `gorm:"column:request_template_subject;not null" json:"request_template_subject"`
	RequestTemplateBody       string     `gorm:"column:request_template_body;type:text" json:"request_template_body"`
	RequestTemplateBodyFormat TextFormat `gorm:"column:request_template_body_format;not null" json:"request_template_body_format"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Activity) TableName() string { return "recommend_activity" }

func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// CompletionEnabled reports whether a minimum number of recommendations is
// required to complete the activity.
func (a *Activity) CompletionEnabled() bool { return a != nil && a.RequiredRecommend > 0 }
