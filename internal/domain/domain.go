package domain

import (
	"github.com/yungbote/recommend-backend/internal/domain/access"
	"github.com/yungbote/recommend-backend/internal/domain/events"
	"github.com/yungbote/recommend-backend/internal/domain/recommend"
	"github.com/yungbote/recommend-backend/internal/domain/user"
)

type (
	User            = user.User
	CapabilityGrant = access.CapabilityGrant
	Capability      = access.Capability

	Activity       = recommend.Activity
	Question       = recommend.Question
	QuestionOption = recommend.QuestionOption
	Request        = recommend.Request
	RequestStatus  = recommend.RequestStatus
	Reply          = recommend.Reply
	Comment        = recommend.Comment
	Completion     = recommend.Completion
	TextFormat     = recommend.TextFormat

	EventLog  = events.EventLog
	EventKind = events.Kind
)

// Models lists every persisted model in migration order.
func Models() []any {
	return []any{
		&User{},
		&CapabilityGrant{},
		&Activity{},
		&Question{},
		&Request{},
		&Reply{},
		&Comment{},
		&Completion{},
		&EventLog{},
	}
}
