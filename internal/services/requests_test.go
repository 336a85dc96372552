package services

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/recommend-backend/internal/domain"
	"github.com/yungbote/recommend-backend/internal/domain/access"
	"github.com/yungbote/recommend-backend/internal/domain/events"
	"github.com/yungbote/recommend-backend/internal/domain/recommend"
	"github.com/yungbote/recommend-backend/internal/pkg/secret"
)

func TestAddRequestsValidation(t *testing.T) {
	env := newTestEnv(t)
	a := env.activity(t, nil)
	p := env.user(t, "participant@example.com")
	env.grant(t, p, a.ID, access.CapRequest)
	env.request(t, a.ID, p, "used@example.com", recommend.StatusPending)

	_, err := env.requests.AddRequests(env.ctx, UserActor(p.ID), a.ID, []NewRequest{
		{Name: "No Mail"},
		{Name: "Bad", Email: "not-an-email"},
		{Name: "One", Email: "x@example.com"},
		{Name: "Two", Email: " X@Example.com "},
		{Name: "Used", Email: "USED@example.com"},
		{},
	})
	ve, ok := IsValidationError(err)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	want := []FieldError{
		{Row: 0, Field: "email", Message: MsgEmailMissing},
		{Row: 1, Field: "email", Message: MsgEmailNotValid},
		{Row: 3, Field: "email", Message: MsgDuplicateEmail},
		{Row: 4, Field: "email", Message: MsgEmailAlreadyUsed},
	}
	if len(ve.Errors) != len(want) {
		t.Fatalf("errors: want=%v got=%v", want, ve.Errors)
	}
	for i := range want {
		if ve.Errors[i] != want[i] {
			t.Fatalf("error %d: want=%+v got=%+v", i, want[i], ve.Errors[i])
		}
	}

	own, err := env.requests.ListOwn(env.ctx, UserActor(p.ID), a.ID)
	if err != nil || len(own) != 1 {
		t.Fatalf("nothing may be stored on a failed batch: err=%v len=%d", err, len(own))
	}
}

func TestAddRequestsLimit(t *testing.T) {
	env := newTestEnv(t)
	a := env.activity(t, func(a *types.Activity) { a.MaxRequests = 2 })
	p := env.user(t, "participant@example.com")
	env.grant(t, p, a.ID, access.CapRequest)
	env.request(t, a.ID, p, "first@example.com", recommend.StatusSent)
	actor := UserActor(p.ID)

	left, err := env.requests.CanAddRequest(env.ctx, actor, a)
	if err != nil || left != 1 {
		t.Fatalf("CanAddRequest: want=1 got=%d err=%v", left, err)
	}

	_, err = env.requests.AddRequests(env.ctx, actor, a.ID, []NewRequest{
		{Name: "B", Email: "b@example.com"},
		{Name: "C", Email: "c@example.com"},
	})
	if !errors.Is(err, ErrLimitReached) {
		t.Fatalf("over limit: want ErrLimitReached, got %v", err)
	}

	created, err := env.requests.AddRequests(env.ctx, actor, a.ID, []NewRequest{{Name: " B ", Email: " b@example.com "}})
	if err != nil || len(created) != 1 {
		t.Fatalf("AddRequests: err=%v len=%d", err, len(created))
	}
	got := env.reload(t, created[0].ID)
	if got.Status != recommend.StatusPending || got.Name != "B" || got.Email != "b@example.com" {
		t.Fatalf("stored request: %+v", got)
	}
	if len(got.Secret) != secret.Length {
		t.Fatalf("secret length: want=%d got=%d", secret.Length, len(got.Secret))
	}
	if n := countKind(env.eventKinds(t, a.ID), events.RequestCreated); n != 1 {
		t.Fatalf("request_created events: want=1 got=%d", n)
	}

	left, _ = env.requests.CanAddRequest(env.ctx, actor, a)
	if left != 0 {
		t.Fatalf("CanAddRequest after fill: want=0 got=%d", left)
	}

	outsider := env.user(t, "outsider@example.com")
	left, _ = env.requests.CanAddRequest(env.ctx, UserActor(outsider.ID), a)
	if left != 0 {
		t.Fatalf("CanAddRequest without capability: want=0 got=%d", left)
	}
}

func TestAddRequestsRetriesSecretCollision(t *testing.T) {
	env := newTestEnv(t)
	a := env.activity(t, nil)
	p := env.user(t, "participant@example.com")
	env.grant(t, p, a.ID, access.CapRequest)
	taken := env.request(t, a.ID, p, "taken@example.com", recommend.StatusSent)

	calls := 0
	env.secrets = func() (string, error) {
		calls++
		if calls < 3 {
			return taken.Secret, nil
		}
		return "fresh-secret", nil
	}
	created, err := env.requests.AddRequests(env.ctx, UserActor(p.ID), a.ID, []NewRequest{{Name: "N", Email: "n@example.com"}})
	if err != nil {
		t.Fatalf("AddRequests: %v", err)
	}
	if calls != 3 || created[0].Secret != "fresh-secret" {
		t.Fatalf("retry: calls=%d secret=%q", calls, created[0].Secret)
	}

	calls = 0
	env.secrets = func() (string, error) {
		calls++
		return taken.Secret, nil
	}
	if _, err := env.requests.AddRequests(env.ctx, UserActor(p.ID), a.ID, []NewRequest{{Name: "M", Email: "m@example.com"}}); err == nil {
		t.Fatalf("expected failure after exhausting attempts")
	}
	if calls != maxSecretAttempts {
		t.Fatalf("attempts: want=%d got=%d", maxSecretAttempts, calls)
	}
	own, _ := env.requests.ListOwn(env.ctx, UserActor(p.ID), a.ID)
	if len(own) != 2 {
		t.Fatalf("failed insert must not leave rows: len=%d", len(own))
	}
}

func TestDeleteRequestRules(t *testing.T) {
	env := newTestEnv(t)
	a := env.activity(t, nil)
	p := env.user(t, "participant@example.com")
	other := env.user(t, "other@example.com")
	instructor := env.user(t, "instructor@example.com")
	env.grant(t, p, a.ID, access.CapRequest)
	env.grant(t, other, a.ID, access.CapRequest)
	env.grant(t, instructor, a.ID, access.CapDelete)

	pending := env.request(t, a.ID, p, "pending@example.com", recommend.StatusPending)
	sent := env.request(t, a.ID, p, "sent@example.com", recommend.StatusSent)
	completed := env.request(t, a.ID, p, "done@example.com", recommend.StatusCompleted)
	q := testutilQuestion(t, env, a.ID, recommend.QuestionTextarea, 0)
	reply := "great"
	if _, err := env.replyRepo.Create(dbcFor(env), []*types.Reply{{ActivityID: a.ID, RequestID: completed.ID, QuestionID: q.ID, Reply: &reply}}); err != nil {
		t.Fatalf("seed reply: %v", err)
	}

	cases := []struct {
		name  string
		actor Actor
		req   *types.Request
		want  bool
	}{
		{"other participant", UserActor(other.ID), pending, false},
		{"owner sent", UserActor(p.ID), sent, false},
		{"owner pending", UserActor(p.ID), pending, true},
		{"instructor completed", UserActor(instructor.ID), completed, true},
	}
	for _, tc := range cases {
		ok, err := env.requests.DeleteRequest(env.ctx, tc.actor, a.ID, tc.req.ID)
		if err != nil || ok != tc.want {
			t.Fatalf("%s: want=%v got=%v err=%v", tc.name, tc.want, ok, err)
		}
	}

	if env.reload(t, pending.ID) != nil || env.reload(t, completed.ID) != nil {
		t.Fatalf("deleted requests still present")
	}
	if env.reload(t, sent.ID) == nil {
		t.Fatalf("sent request must survive")
	}
	replies, _ := env.replyRepo.ListByRequestIDs(dbcFor(env), []uuid.UUID{completed.ID})
	if len(replies) != 0 {
		t.Fatalf("replies of deleted request: %d", len(replies))
	}
	if _, err := env.requests.DeleteRequest(env.ctx, UserActor(instructor.ID), a.ID, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown request: want ErrNotFound, got %v", err)
	}
	if n := countKind(env.eventKinds(t, a.ID), events.RequestDeleted); n != 2 {
		t.Fatalf("request_deleted events: want=2 got=%d", n)
	}
}

func TestAcceptRejectOnlyFromCompleted(t *testing.T) {
	env := newTestEnv(t)
	a := env.activity(t, func(a *types.Activity) { a.RequiredRecommend = 1; a.CompletionOnlyAccepted = true })
	p := env.user(t, "participant@example.com")
	reviewer := env.user(t, "reviewer@example.com")
	env.grant(t, reviewer, a.ID, access.CapAccept)

	sent := env.request(t, a.ID, p, "sent@example.com", recommend.StatusSent)
	first := env.request(t, a.ID, p, "first@example.com", recommend.StatusCompleted)
	second := env.request(t, a.ID, p, "second@example.com", recommend.StatusCompleted)
	actor := UserActor(reviewer.ID)

	if ok, err := env.requests.AcceptRequest(env.ctx, actor, a.ID, sent.ID); err != nil || ok {
		t.Fatalf("accept sent: ok=%v err=%v", ok, err)
	}
	if ok, err := env.requests.AcceptRequest(env.ctx, UserActor(p.ID), a.ID, first.ID); err != nil || ok {
		t.Fatalf("accept without capability: ok=%v err=%v", ok, err)
	}

	done, _ := env.completion.State(env.ctx, a, p.ID)
	if done {
		t.Fatalf("completion before accept: want false")
	}

	if ok, err := env.requests.AcceptRequest(env.ctx, actor, a.ID, first.ID); err != nil || !ok {
		t.Fatalf("accept completed: ok=%v err=%v", ok, err)
	}
	if got := env.reload(t, first.ID).Status; got != recommend.StatusAccepted {
		t.Fatalf("status after accept: %v", got)
	}
	if ok, _ := env.requests.AcceptRequest(env.ctx, actor, a.ID, first.ID); ok {
		t.Fatalf("accepting twice must fail")
	}
	if ok, _ := env.requests.RejectRequest(env.ctx, actor, a.ID, first.ID); ok {
		t.Fatalf("rejecting an accepted request must fail")
	}
	if ok, err := env.requests.RejectRequest(env.ctx, actor, a.ID, second.ID); err != nil || !ok {
		t.Fatalf("reject completed: ok=%v err=%v", ok, err)
	}
	if got := env.reload(t, second.ID).Status; got != recommend.StatusRejected {
		t.Fatalf("status after reject: %v", got)
	}

	row, err := env.completionRepo.Get(dbcFor(env), a.ID, p.ID)
	if err != nil || row == nil || !row.Completed {
		t.Fatalf("stored completion: row=%+v err=%v", row, err)
	}
	kinds := env.eventKinds(t, a.ID)
	if countKind(kinds, events.RequestAccepted) != 1 || countKind(kinds, events.RequestRejected) != 1 {
		t.Fatalf("review events: %v", kinds)
	}
	// One status mail to the participant per transition.
	for _, to := range env.mail.Recipients() {
		if to != p.Email {
			t.Fatalf("unexpected recipient %q", to)
		}
	}
	if len(env.mail.Sent()) != 2 {
		t.Fatalf("status mails: want=2 got=%d", len(env.mail.Sent()))
	}
}

func TestResendRequest(t *testing.T) {
	env := newTestEnv(t)
	a := env.activity(t, nil)
	p := env.user(t, "participant@example.com")
	env.grant(t, p, a.ID, access.CapRequest)
	sent := env.request(t, a.ID, p, "rec@example.com", recommend.StatusSent)
	pending := env.request(t, a.ID, p, "later@example.com", recommend.StatusPending)
	actor := UserActor(p.ID)

	if ok, err := env.requests.ResendRequest(env.ctx, actor, a.ID, pending.ID); err != nil || ok {
		t.Fatalf("resend pending: ok=%v err=%v", ok, err)
	}
	if ok, err := env.requests.ResendRequest(env.ctx, actor, a.ID, sent.ID); err != nil || !ok {
		t.Fatalf("resend sent: ok=%v err=%v", ok, err)
	}
	msgs := env.mail.Sent()
	if len(msgs) != 1 || msgs[0].To.Email != "rec@example.com" {
		t.Fatalf("resend mail: %+v", msgs)
	}

	env.mail.err = errors.New("smtp down")
	if _, err := env.requests.ResendRequest(env.ctx, actor, a.ID, sent.ID); err == nil {
		t.Fatalf("resend must report delivery failure")
	}
}

func TestListAllSortsParticipants(t *testing.T) {
	env := newTestEnv(t)
	a := env.activity(t, nil)
	zed := env.user(t, "zed@example.com")
	amy := env.user(t, "amy@example.com")
	bob := env.user(t, "bob@example.com")
	reviewer := env.user(t, "reviewer@example.com")
	env.grant(t, bob, a.ID, access.CapRequest)
	env.grant(t, reviewer, a.ID, access.CapViewDetails)
	env.request(t, a.ID, zed, "r1@example.com", recommend.StatusSent)
	env.request(t, a.ID, amy, "r2@example.com", recommend.StatusPending)

	if _, err := env.requests.ListAll(env.ctx, UserActor(amy.ID), a.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("participant ListAll: want ErrForbidden, got %v", err)
	}
	all, err := env.requests.ListAll(env.ctx, UserActor(reviewer.ID), a.ID)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListAll: want 3 participants, got %d", len(all))
	}
	order := []uuid.UUID{amy.ID, bob.ID, zed.ID}
	for i, id := range order {
		if all[i].User.ID != id {
			t.Fatalf("position %d: want=%s got=%s", i, id, all[i].User.ID)
		}
	}
	if len(all[1].Requests) != 0 || len(all[0].Requests) != 1 {
		t.Fatalf("requests per participant: %+v", all)
	}

	summary, err := env.requests.StatusSummary(env.ctx, a.ID, uuid.Nil)
	if err != nil || summary[recommend.StatusSent] != 1 || summary[recommend.StatusPending] != 1 {
		t.Fatalf("StatusSummary: %v err=%v", summary, err)
	}
}
