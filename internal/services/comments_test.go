package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/recommend-backend/internal/domain/access"
	"github.com/yungbote/recommend-backend/internal/domain/events"
	"github.com/yungbote/recommend-backend/internal/domain/recommend"
)

func TestRequestComments(t *testing.T) {
	env := newTestEnv(t)
	a := env.activity(t, nil)
	owner := env.user(t, "participant@example.com")
	viewer := env.user(t, "viewer@example.com")
	reviewer := env.user(t, "reviewer@example.com")
	env.grant(t, owner, a.ID, access.CapRequest)
	env.grant(t, viewer, a.ID, access.CapViewDetails)
	env.grant(t, reviewer, a.ID, access.CapAccept)
	req := env.request(t, a.ID, owner, "referee@example.com", recommend.StatusCompleted)

	if _, err := env.comments.Add(env.ctx, UserActor(owner.ID), a.ID, req.ID, "let me in"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("participant add: want ErrForbidden, got %v", err)
	}
	if _, err := env.comments.List(env.ctx, UserActor(owner.ID), a.ID, req.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("participant list: want ErrForbidden, got %v", err)
	}

	first, err := env.comments.Add(env.ctx, UserActor(viewer.ID), a.ID, req.ID, "  <b>Strong</b> letter ")
	if err != nil {
		t.Fatalf("Add (viewdetails): %v", err)
	}
	if first.Content != "Strong letter" || first.AuthorName != "Viewer B" {
		t.Fatalf("Add: content=%q author=%q", first.Content, first.AuthorName)
	}
	env.clock.Advance(time.Second)
	if _, err := env.comments.Add(env.ctx, UserActor(reviewer.ID), a.ID, req.ID, "Agreed"); err != nil {
		t.Fatalf("Add (accept): %v", err)
	}

	rows, err := env.comments.List(env.ctx, UserActor(reviewer.ID), a.ID, req.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 2 || rows[0].Content != "Strong letter" || rows[1].AuthorName != "Reviewer B" {
		t.Fatalf("List: unexpected rows %+v", rows)
	}
	if c := countKind(env.eventKinds(t, a.ID), events.CommentCreated); c != 2 {
		t.Fatalf("comment_created events: want=2 got=%d", c)
	}

	details, err := env.recommendations.ViewRequest(env.ctx, UserActor(viewer.ID), a.ID, req.ID)
	if err != nil {
		t.Fatalf("ViewRequest: %v", err)
	}
	if len(details.Comments) != 2 || details.Comments[1].Content != "Agreed" {
		t.Fatalf("ViewRequest comments: %+v", details.Comments)
	}
}

func TestAddCommentRejectsInvalid(t *testing.T) {
	env := newTestEnv(t)
	a := env.activity(t, nil)
	owner := env.user(t, "participant@example.com")
	reviewer := env.user(t, "reviewer@example.com")
	env.grant(t, reviewer, a.ID, access.CapAccept)
	req := env.request(t, a.ID, owner, "referee@example.com", recommend.StatusCompleted)

	if _, err := env.comments.Add(env.ctx, UserActor(reviewer.ID), a.ID, req.ID, " <p></p> "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty comment: want ErrInvalidInput, got %v", err)
	}
	if _, err := env.comments.Add(env.ctx, UserActor(reviewer.ID), a.ID, uuid.New(), "hello"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown request: want ErrNotFound, got %v", err)
	}
	other := env.activity(t, nil)
	env.grant(t, reviewer, other.ID, access.CapAccept)
	if _, err := env.comments.Add(env.ctx, UserActor(reviewer.ID), other.ID, req.ID, "hello"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign activity: want ErrNotFound, got %v", err)
	}
	if _, err := env.comments.Add(env.ctx, SystemActor(), a.ID, req.ID, "hello"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("system actor: want ErrUnauthenticated, got %v", err)
	}
}

func TestDeleteRequestRemovesComments(t *testing.T) {
	env := newTestEnv(t)
	a := env.activity(t, nil)
	owner := env.user(t, "participant@example.com")
	reviewer := env.user(t, "reviewer@example.com")
	env.grant(t, reviewer, a.ID, access.CapAccept)
	env.grant(t, reviewer, a.ID, access.CapDelete)
	req := env.request(t, a.ID, owner, "referee@example.com", recommend.StatusCompleted)
	if _, err := env.comments.Add(env.ctx, UserActor(reviewer.ID), a.ID, req.ID, "note"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	ok, err := env.requests.DeleteRequest(env.ctx, UserActor(reviewer.ID), a.ID, req.ID)
	if err != nil || !ok {
		t.Fatalf("DeleteRequest: ok=%v err=%v", ok, err)
	}
	rows, err := env.commentRepo.ListByRequest(dbcFor(env), req.ID)
	if err != nil || len(rows) != 0 {
		t.Fatalf("comments after delete: len=%d err=%v", len(rows), err)
	}
}
