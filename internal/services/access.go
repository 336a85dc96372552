package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/yungbote/recommend-backend/internal/data/repos"
	types "github.com/yungbote/recommend-backend/internal/domain"
	"github.com/yungbote/recommend-backend/internal/domain/access"
	"github.com/yungbote/recommend-backend/internal/pkg/dbctx"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
)

type AccessService interface {
	// Has reports whether userID holds capability on the activity, directly
	// or through a site-wide grant. Site administrators hold everything.
	Has(ctx context.Context, userID uuid.UUID, capability types.Capability, activityID uuid.UUID) (bool, error)
	Can(ctx context.Context, actor Actor, activityID uuid.UUID, capabilities ...types.Capability) (bool, error)
	// HoldersOf returns active users granted capability on the activity.
	HoldersOf(ctx context.Context, activityID uuid.UUID, capability types.Capability) ([]*types.User, error)
	Grant(ctx context.Context, actor Actor, userID uuid.UUID, activityID *uuid.UUID, capability types.Capability) error
	Revoke(ctx context.Context, actor Actor, userID uuid.UUID, activityID *uuid.UUID, capability types.Capability) error
}

type accessService struct {
	log       *logger.Logger
	userRepo  repos.UserRepo
	grantRepo repos.CapabilityGrantRepo
}

func NewAccessService(baseLog *logger.Logger, userRepo repos.UserRepo, grantRepo repos.CapabilityGrantRepo) AccessService {
	return &accessService{
		log:       baseLog.With("service", "AccessService"),
		userRepo:  userRepo,
		grantRepo: grantRepo,
	}
}

func (s *accessService) Has(ctx context.Context, userID uuid.UUID, capability types.Capability, activityID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	ok, err := s.grantRepo.Exists(dbctx.Context{Ctx: ctx}, userID, activityID, []types.Capability{capability, access.CapSiteAdmin})
	if err != nil {
		return false, fmt.Errorf("check capability %s: %w", capability, err)
	}
	return ok, nil
}

// Can reports whether the actor holds at least one of capabilities.
func (s *accessService) Can(ctx context.Context, actor Actor, activityID uuid.UUID, capabilities ...types.Capability) (bool, error) {
	if actor.System {
		return true, nil
	}
	if actor.UserID == uuid.Nil || len(capabilities) == 0 {
		return false, nil
	}
	caps := append([]types.Capability{access.CapSiteAdmin}, capabilities...)
	ok, err := s.grantRepo.Exists(dbctx.Context{Ctx: ctx}, actor.UserID, activityID, caps)
	if err != nil {
		return false, fmt.Errorf("check capabilities: %w", err)
	}
	return ok, nil
}

func (s *accessService) HoldersOf(ctx context.Context, activityID uuid.UUID, capability types.Capability) ([]*types.User, error) {
	dbc := dbctx.Context{Ctx: ctx}
	ids, err := s.grantRepo.ListUserIDs(dbc, activityID, capability)
	if err != nil {
		return nil, fmt.Errorf("list %s holders: %w", capability, err)
	}
	users, err := s.userRepo.GetByIDs(dbc, ids)
	if err != nil {
		return nil, fmt.Errorf("load %s holders: %w", capability, err)
	}
	out := make([]*types.User, 0, len(users))
	for _, u := range users {
		if u.Active() {
			out = append(out, u)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FullName() < out[j].FullName() })
	return out, nil
}

func (s *accessService) Grant(ctx context.Context, actor Actor, userID uuid.UUID, activityID *uuid.UUID, capability types.Capability) error {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return err
	}
	if !capability.Valid() || userID == uuid.Nil {
		return fmt.Errorf("%w: capability %q", ErrInvalidInput, capability)
	}
	if capability == access.CapSiteAdmin {
		activityID = nil
	}
	dbc := dbctx.Context{Ctx: ctx}
	u, err := s.userRepo.GetByID(dbc, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	// NULL activity ids never conflict on the unique index.
	if activityID == nil {
		exists, err := s.grantRepo.ExistsExact(dbc, userID, nil, capability)
		if err != nil {
			return fmt.Errorf("check site-wide grant: %w", err)
		}
		if exists {
			return nil
		}
	}
	if _, err := s.grantRepo.Create(dbc, []*types.CapabilityGrant{{
		UserID:     userID,
		ActivityID: activityID,
		Capability: capability,
	}}); err != nil {
		return fmt.Errorf("create grant: %w", err)
	}
	s.log.Info("Capability granted", "user_id", userID, "capability", capability)
	return nil
}

func (s *accessService) Revoke(ctx context.Context, actor Actor, userID uuid.UUID, activityID *uuid.UUID, capability types.Capability) error {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return err
	}
	if err := s.grantRepo.Delete(dbctx.Context{Ctx: ctx}, userID, activityID, capability); err != nil {
		return fmt.Errorf("delete grant: %w", err)
	}
	s.log.Info("Capability revoked", "user_id", userID, "capability", capability)
	return nil
}

func (s *accessService) requireAdmin(ctx context.Context, actor Actor) error {
	if actor.System {
		return nil
	}
	ok, err := s.Has(ctx, actor.UserID, access.CapSiteAdmin, uuid.Nil)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}
