package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/recommend-backend/internal/platform/ctxutil"
)

// Actor is the caller of a service operation. System actors (CLI, scheduler)
// bypass capability checks.
type Actor struct {
	UserID uuid.UUID
	System bool
}

func UserActor(userID uuid.UUID) Actor { return Actor{UserID: userID} }

func SystemActor() Actor { return Actor{System: true} }

func ActorFromContext(ctx context.Context) (Actor, bool) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return Actor{}, false
	}
	return UserActor(rd.UserID), true
}

func (a Actor) userIDPtr() *uuid.UUID {
	if a.UserID == uuid.Nil {
		return nil
	}
	id := a.UserID
	return &id
}
