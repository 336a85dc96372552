package access

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Capability string

const (
	CapRequest       Capability = "request"
	CapEditQuestions Capability = "editquestions"
	CapAccept        Capability = "accept"
	CapDelete        Capability = "delete"
	CapViewDetails   Capability = "viewdetails"
	// CapSiteAdmin manages grants and imports.
	CapSiteAdmin Capability = "site:admin"
)

func (c Capability) Valid() bool {
	switch c {
	case CapRequest, CapEditQuestions, CapAccept, CapDelete, CapViewDetails, CapSiteAdmin:
		return true
	}
	return false
}

// CapabilityGrant gives a user a capability on one activity, or site-wide when
// ActivityID is nil.
type CapabilityGrant struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;column:user_id;uniqueIndex:idx_capability_grant,priority:1" json:"user_id"`
	ActivityID *uuid.UUID `gorm:"type:uuid;column:activity_id;uniqueIndex:idx_capability_grant,priority:2;index" json:"activity_id,omitempty"`
	Capability Capability `gorm:"column:capability;not null;uniqueIndex:idx_capability_grant,priority:3" json:"capability"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (CapabilityGrant) TableName() string { return "capability_grant" }

func (g *CapabilityGrant) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}
