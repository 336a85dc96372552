package recommend

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/recommend-backend/internal/data/repos/testutil"
	types "github.com/yungbote/recommend-backend/internal/domain"
	"github.com/yungbote/recommend-backend/internal/domain/recommend"
	"github.com/yungbote/recommend-backend/internal/pkg/dbctx"
)

func TestActivityRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewActivityRepo(db, testutil.Logger(t))

	course := uuid.New()
	a1 := &types.Activity{CourseID: course, Name: "a1", Visible: true, MaxRequests: 3}
	a2 := &types.Activity{CourseID: course, Name: "a2"}
	if _, err := repo.Create(dbc, []*types.Activity{a1, a2}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a1.ID == uuid.Nil {
		t.Fatalf("Create: expected id to be assigned")
	}

	if got, err := repo.GetByID(dbc, a1.ID); err != nil || got == nil || got.MaxRequests != 3 {
		t.Fatalf("GetByID: got=%v err=%v", got, err)
	}
	if got, err := repo.GetByID(dbc, uuid.New()); err != nil || got != nil {
		t.Fatalf("GetByID (missing): got=%v err=%v", got, err)
	}
	if rows, err := repo.ListByCourse(dbc, course); err != nil || len(rows) != 2 {
		t.Fatalf("ListByCourse: err=%v len=%d", err, len(rows))
	}

	if err := repo.UpdateFields(dbc, a2.ID, map[string]interface{}{"visible": true, "name": "a2b"}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, _ := repo.GetByID(dbc, a2.ID)
	if !got.Visible || got.Name != "a2b" {
		t.Fatalf("UpdateFields: got=%+v", got)
	}

	if err := repo.FullDeleteByIDs(dbc, []uuid.UUID{a1.ID}); err != nil {
		t.Fatalf("FullDeleteByIDs: %v", err)
	}
	if rows, _ := repo.ListByCourse(dbc, course); len(rows) != 1 {
		t.Fatalf("after FullDeleteByIDs: len=%d", len(rows))
	}
}

func TestQuestionRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewQuestionRepo(db, testutil.Logger(t))

	act := testutil.SeedActivity(t, ctx, tx, nil)
	q2 := testutil.SeedQuestion(t, ctx, tx, act.ID, recommend.QuestionTextarea, 2)
	q0 := testutil.SeedQuestion(t, ctx, tx, act.ID, recommend.QuestionLabel, 0)
	q1 := testutil.SeedQuestion(t, ctx, tx, act.ID, recommend.QuestionRadio, 1)
	testutil.SeedQuestion(t, ctx, tx, testutil.SeedActivity(t, ctx, tx, nil).ID, recommend.QuestionLabel, 0)

	rows, err := repo.ListByActivity(dbc, act.ID)
	if err != nil {
		t.Fatalf("ListByActivity: %v", err)
	}
	if len(rows) != 3 || rows[0].ID != q0.ID || rows[1].ID != q1.ID || rows[2].ID != q2.ID {
		t.Fatalf("ListByActivity: unexpected order")
	}
	if n, err := repo.CountByActivity(dbc, act.ID); err != nil || n != 3 {
		t.Fatalf("CountByActivity: n=%d err=%v", n, err)
	}

	if err := repo.UpdateContent(dbc, q1.ID, QuestionContent{Question: "Pick one", QuestionFormat: recommend.FormatHTML, AddInfo: "a/A"}); err != nil {
		t.Fatalf("UpdateContent: %v", err)
	}
	got, err := repo.GetByID(dbc, q1.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: got=%v err=%v", got, err)
	}
	if got.Question != "Pick one" || got.AddInfo != "a/A" || got.QuestionFormat != recommend.FormatHTML {
		t.Fatalf("UpdateContent: got=%+v", got)
	}
	if got.Type != recommend.QuestionRadio || got.SortOrder != 1 {
		t.Fatalf("UpdateContent changed type or order: got=%+v", got)
	}

	if err := repo.SetSortOrder(dbc, q2.ID, 0); err != nil {
		t.Fatalf("SetSortOrder: %v", err)
	}
	if err := repo.SetSortOrder(dbc, q0.ID, 2); err != nil {
		t.Fatalf("SetSortOrder: %v", err)
	}
	rows, _ = repo.ListByActivity(dbc, act.ID)
	if rows[0].ID != q2.ID || rows[2].ID != q0.ID {
		t.Fatalf("SetSortOrder: unexpected order")
	}

	if err := repo.FullDeleteByIDs(dbc, []uuid.UUID{q1.ID}); err != nil {
		t.Fatalf("FullDeleteByIDs: %v", err)
	}
	if n, _ := repo.CountByActivity(dbc, act.ID); n != 2 {
		t.Fatalf("after FullDeleteByIDs: n=%d", n)
	}
	if err := repo.FullDeleteByActivity(dbc, act.ID); err != nil {
		t.Fatalf("FullDeleteByActivity: %v", err)
	}
	if n, _ := repo.CountByActivity(dbc, act.ID); n != 0 {
		t.Fatalf("after FullDeleteByActivity: n=%d", n)
	}
}

func TestRequestRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewRequestRepo(db, testutil.Logger(t))

	act := testutil.SeedActivity(t, ctx, tx, nil)
	alice := testutil.SeedUser(t, ctx, tx, "alice@example.com")
	bob := testutil.SeedUser(t, ctx, tx, "bob@example.com")

	r1 := testutil.SeedRequest(t, ctx, tx, act.ID, alice.ID, "ref1@example.com", recommend.StatusPending)
	r2 := testutil.SeedRequest(t, ctx, tx, act.ID, alice.ID, "ref2@example.com", recommend.StatusCompleted)
	testutil.SeedRequest(t, ctx, tx, act.ID, bob.ID, "ref3@example.com", recommend.StatusCompleted)

	if got, err := repo.GetBySecret(dbc, r2.Secret); err != nil || got == nil || got.ID != r2.ID {
		t.Fatalf("GetBySecret: got=%v err=%v", got, err)
	}
	if got, err := repo.GetBySecret(dbc, "nope"); err != nil || got != nil {
		t.Fatalf("GetBySecret (missing): got=%v err=%v", got, err)
	}
	if rows, err := repo.ListByOwner(dbc, act.ID, alice.ID); err != nil || len(rows) != 2 {
		t.Fatalf("ListByOwner: err=%v len=%d", err, len(rows))
	}
	if n, err := repo.CountByOwner(dbc, act.ID, alice.ID); err != nil || n != 2 {
		t.Fatalf("CountByOwner: n=%d err=%v", n, err)
	}
	if ids, err := repo.ListOwnerIDs(dbc, act.ID); err != nil || len(ids) != 2 {
		t.Fatalf("ListOwnerIDs: err=%v ids=%v", err, ids)
	}

	counts, err := repo.CountByStatus(dbc, act.ID, uuid.Nil)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[recommend.StatusCompleted] != 2 || counts[recommend.StatusPending] != 1 {
		t.Fatalf("CountByStatus: got=%v", counts)
	}
	counts, _ = repo.CountByStatus(dbc, act.ID, bob.ID)
	if counts[recommend.StatusCompleted] != 1 || counts[recommend.StatusPending] != 0 {
		t.Fatalf("CountByStatus (owner): got=%v", counts)
	}

	ok, err := repo.TransitionStatus(dbc, r2.ID, recommend.StatusCompleted, recommend.StatusAccepted, nil)
	if err != nil || !ok {
		t.Fatalf("TransitionStatus: ok=%v err=%v", ok, err)
	}
	ok, err = repo.TransitionStatus(dbc, r2.ID, recommend.StatusCompleted, recommend.StatusRejected, nil)
	if err != nil || ok {
		t.Fatalf("TransitionStatus from stale status: ok=%v err=%v", ok, err)
	}
	got, _ := repo.GetByID(dbc, r2.ID)
	if got.Status != recommend.StatusAccepted {
		t.Fatalf("TransitionStatus: want=%v got=%v", recommend.StatusAccepted, got.Status)
	}

	if err := repo.UpdateFields(dbc, r1.ID, map[string]interface{}{"status": recommend.StatusSent}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, _ = repo.GetByID(dbc, r1.ID)
	if got.Status != recommend.StatusSent {
		t.Fatalf("UpdateFields: want=%v got=%v", recommend.StatusSent, got.Status)
	}

	if err := repo.FullDeleteByIDs(dbc, []uuid.UUID{r1.ID}); err != nil {
		t.Fatalf("FullDeleteByIDs: %v", err)
	}
	if n, _ := repo.CountByOwner(dbc, act.ID, alice.ID); n != 1 {
		t.Fatalf("after FullDeleteByIDs: n=%d", n)
	}
	if err := repo.FullDeleteByActivity(dbc, act.ID); err != nil {
		t.Fatalf("FullDeleteByActivity: %v", err)
	}
	if rows, _ := repo.ListByActivity(dbc, act.ID); len(rows) != 0 {
		t.Fatalf("after FullDeleteByActivity: len=%d", len(rows))
	}
}

func TestRequestRepoListDue(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewRequestRepo(db, testutil.Logger(t))

	visible := testutil.SeedActivity(t, ctx, tx, nil)
	hidden := testutil.SeedActivity(t, ctx, tx, func(a *types.Activity) { a.Visible = false })
	active := testutil.SeedUser(t, ctx, tx, "active@example.com")
	suspended := testutil.SeedUser(t, ctx, tx, "suspended@example.com")
	deleted := testutil.SeedUser(t, ctx, tx, "deleted@example.com")
	if err := tx.Model(&types.User{}).Where("id = ?", suspended.ID).Update("suspended", true).Error; err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if err := tx.Delete(&types.User{}, "id = ?", deleted.ID).Error; err != nil {
		t.Fatalf("delete: %v", err)
	}

	due := testutil.SeedRequest(t, ctx, tx, visible.ID, active.ID, "a@example.com", recommend.StatusPending)
	testutil.SeedRequest(t, ctx, tx, visible.ID, active.ID, "b@example.com", recommend.StatusSent)
	onHidden := testutil.SeedRequest(t, ctx, tx, hidden.ID, active.ID, "c@example.com", recommend.StatusPending)
	testutil.SeedRequest(t, ctx, tx, visible.ID, suspended.ID, "d@example.com", recommend.StatusPending)
	testutil.SeedRequest(t, ctx, tx, visible.ID, deleted.ID, "e@example.com", recommend.StatusPending)
	fresh := testutil.SeedRequest(t, ctx, tx, visible.ID, active.ID, "f@example.com", recommend.StatusPending)
	if err := tx.Model(&types.Request{}).Where("id = ?", fresh.ID).
		Update("time_requested", time.Now().UTC()).Error; err != nil {
		t.Fatalf("touch: %v", err)
	}

	rows, err := repo.ListDue(dbc, time.Now().UTC().Add(-15*time.Minute))
	if err != nil {
		t.Fatalf("ListDue: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("ListDue: want=2 got=%d rows", len(rows))
	}
	got := map[uuid.UUID]*types.Request{}
	for _, r := range rows {
		got[r.ID] = r
	}
	if got[due.ID] == nil || got[onHidden.ID] == nil {
		t.Fatalf("ListDue: want %s and %s", due.ID, onHidden.ID)
	}
	if got[due.ID].Secret != due.Secret {
		t.Fatalf("ListDue: expected full row, got secret=%q", got[due.ID].Secret)
	}
}

func TestReplyAndCompletionRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	replies := NewReplyRepo(db, testutil.Logger(t))
	completions := NewCompletionRepo(db, testutil.Logger(t))

	act := testutil.SeedActivity(t, ctx, tx, nil)
	u := testutil.SeedUser(t, ctx, tx, "owner@example.com")
	req := testutil.SeedRequest(t, ctx, tx, act.ID, u.ID, "ref@example.com", recommend.StatusCompleted)
	q1 := testutil.SeedQuestion(t, ctx, tx, act.ID, recommend.QuestionTextfield, 0)
	q2 := testutil.SeedQuestion(t, ctx, tx, act.ID, recommend.QuestionLabel, 1)

	text := "hello"
	if _, err := replies.Create(dbc, []*types.Reply{
		{ActivityID: act.ID, RequestID: req.ID, QuestionID: q1.ID, Reply: &text},
		{ActivityID: act.ID, RequestID: req.ID, QuestionID: q2.ID},
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	rows, err := replies.ListByRequestIDs(dbc, []uuid.UUID{req.ID})
	if err != nil || len(rows) != 2 {
		t.Fatalf("ListByRequestIDs: err=%v len=%d", err, len(rows))
	}
	for _, r := range rows {
		if r.QuestionID == q2.ID && r.Reply != nil {
			t.Fatalf("label reply: expected nil, got %q", *r.Reply)
		}
	}
	if err := replies.DeleteByQuestionIDs(dbc, []uuid.UUID{q2.ID}); err != nil {
		t.Fatalf("DeleteByQuestionIDs: %v", err)
	}
	if rows, _ := replies.ListByRequestIDs(dbc, []uuid.UUID{req.ID}); len(rows) != 1 {
		t.Fatalf("after DeleteByQuestionIDs: len=%d", len(rows))
	}
	if err := replies.DeleteByRequestIDs(dbc, []uuid.UUID{req.ID}); err != nil {
		t.Fatalf("DeleteByRequestIDs: %v", err)
	}
	if rows, _ := replies.ListByRequestIDs(dbc, []uuid.UUID{req.ID}); len(rows) != 0 {
		t.Fatalf("after DeleteByRequestIDs: len=%d", len(rows))
	}

	now := time.Now().UTC()
	if err := completions.Upsert(dbc, &types.Completion{ActivityID: act.ID, UserID: u.ID, Completed: false, EvaluatedAt: now}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := completions.Upsert(dbc, &types.Completion{ActivityID: act.ID, UserID: u.ID, Completed: true, EvaluatedAt: now}); err != nil {
		t.Fatalf("Upsert (update): %v", err)
	}
	c, err := completions.Get(dbc, act.ID, u.ID)
	if err != nil || c == nil || !c.Completed {
		t.Fatalf("Get: got=%+v err=%v", c, err)
	}
	var n int64
	tx.Model(&types.Completion{}).Where("activity_id = ?", act.ID).Count(&n)
	if n != 1 {
		t.Fatalf("Upsert: expected one row, got %d", n)
	}
	if err := completions.DeleteByActivity(dbc, act.ID); err != nil {
		t.Fatalf("DeleteByActivity: %v", err)
	}
	if c, _ := completions.Get(dbc, act.ID, u.ID); c != nil {
		t.Fatalf("after DeleteByActivity: got=%+v", c)
	}
}

func TestCommentRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}.WithTx(tx)
	repo := NewCommentRepo(db, testutil.Logger(t))

	act := testutil.SeedActivity(t, ctx, tx, nil)
	owner := testutil.SeedUser(t, ctx, tx, "owner@example.com")
	reviewer := testutil.SeedUser(t, ctx, tx, "reviewer@example.com")
	req := testutil.SeedRequest(t, ctx, tx, act.ID, owner.ID, "ref@example.com", recommend.StatusCompleted)
	other := testutil.SeedRequest(t, ctx, tx, act.ID, owner.ID, "other@example.com", recommend.StatusCompleted)

	base := time.Now().UTC().Add(-time.Minute)
	for i, content := range []string{"first", "second"} {
		c := &types.Comment{ActivityID: act.ID, RequestID: req.ID, UserID: reviewer.ID, Content: content,
			CreatedAt: base.Add(time.Duration(i) * time.Second)}
		if _, err := repo.Create(dbc, c); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if c.ID == uuid.Nil {
			t.Fatalf("Create: expected id to be assigned")
		}
	}
	if _, err := repo.Create(dbc, &types.Comment{ActivityID: act.ID, RequestID: other.ID, UserID: reviewer.ID, Content: "x"}); err != nil {
		t.Fatalf("Create other: %v", err)
	}

	rows, err := repo.ListByRequest(dbc, req.ID)
	if err != nil {
		t.Fatalf("ListByRequest: %v", err)
	}
	if len(rows) != 2 || rows[0].Content != "first" || rows[1].Content != "second" {
		t.Fatalf("ListByRequest: unexpected rows %+v", rows)
	}

	if err := repo.DeleteByRequestIDs(dbc, []uuid.UUID{req.ID}); err != nil {
		t.Fatalf("DeleteByRequestIDs: %v", err)
	}
	if rows, _ := repo.ListByRequest(dbc, req.ID); len(rows) != 0 {
		t.Fatalf("after DeleteByRequestIDs: len=%d", len(rows))
	}
	if rows, _ := repo.ListByRequest(dbc, other.ID); len(rows) != 1 {
		t.Fatalf("other request comments: len=%d", len(rows))
	}
	if err := repo.DeleteByActivity(dbc, act.ID); err != nil {
		t.Fatalf("DeleteByActivity: %v", err)
	}
	if rows, _ := repo.ListByRequest(dbc, other.ID); len(rows) != 0 {
		t.Fatalf("after DeleteByActivity: len=%d", len(rows))
	}
}
