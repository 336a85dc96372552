package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/recommend-backend/internal/domain"
	"github.com/yungbote/recommend-backend/internal/domain/recommend"
)

func PtrUUID(id uuid.UUID) *uuid.UUID { return &id }

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	first, last := "A", "B"
	if local, _, ok := strings.Cut(email, "@"); ok && local != "" {
		first = strings.ToUpper(local[:1]) + local[1:]
	}
	u := &types.User{
		ID:        uuid.New(),
		Email:     email,
		FirstName: first,
		LastName:  last,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

// SeedActivity creates a visible activity with default settings. mutate may
// adjust the row before insert.
func SeedActivity(tb testing.TB, ctx context.Context, tx *gorm.DB, mutate func(*types.Activity)) *types.Activity {
	tb.Helper()
	a := &types.Activity{
		ID:                     uuid.New(),
		CourseID:               uuid.New(),
		Name:                   "Recommendations",
		Visible:                true,
		MaxRequests:            recommend.DefaultMaxRequests,
		RequestTemplateSubject: recommend.DefaultTemplateSubject,
		RequestTemplateBody:    recommend.DefaultTemplateBody,
	}
	if mutate != nil {
		mutate(a)
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed activity: %v", err)
	}
	return a
}

func SeedQuestion(tb testing.TB, ctx context.Context, tx *gorm.DB, activityID uuid.UUID, qtype string, sortOrder int) *types.Question {
	tb.Helper()
	q := &types.Question{
		ID:         uuid.New(),
		ActivityID: activityID,
		Type:       qtype,
		Question:   qtype + " question",
		SortOrder:  sortOrder,
	}
	if qtype == recommend.QuestionRadio {
		q.AddInfo = "yes/Yes\nno/No"
	}
	if err := tx.WithContext(ctx).Create(q).Error; err != nil {
		tb.Fatalf("seed question: %v", err)
	}
	return q
}

func SeedRequest(tb testing.TB, ctx context.Context, tx *gorm.DB, activityID, userID uuid.UUID, email string, status types.RequestStatus) *types.Request {
	tb.Helper()
	r := &types.Request{
		ID:            uuid.New(),
		ActivityID:    activityID,
		UserID:        userID,
		Email:         email,
		Name:          "Referee " + email,
		Status:        status,
		Secret:        strings.ReplaceAll(uuid.NewString(), "-", ""),
		TimeRequested: time.Now().UTC().Add(-time.Hour),
	}
	if status.Submitted() {
		now := time.Now().UTC()
		r.TimeCompleted = &now
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed request: %v", err)
	}
	return r
}

// SeedGrant grants cap on activityID, or site-wide when activityID is nil.
func SeedGrant(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, activityID *uuid.UUID, cap types.Capability) *types.CapabilityGrant {
	tb.Helper()
	g := &types.CapabilityGrant{
		ID:         uuid.New(),
		UserID:     userID,
		ActivityID: activityID,
		Capability: cap,
	}
	if err := tx.WithContext(ctx).Create(g).Error; err != nil {
		tb.Fatalf("seed grant: %v", err)
	}
	return g
}
