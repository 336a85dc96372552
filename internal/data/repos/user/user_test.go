package user

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/recommend-backend/internal/data/repos/testutil"
	types "github.com/yungbote/recommend-backend/internal/domain"
	"github.com/yungbote/recommend-backend/internal/pkg/dbctx"
)

func TestUserRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewUserRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	created, err := repo.Create(dbc, []*types.User{
		{
			ID:        uuid.New(),
			Email:     "UserRepo@example.com",
			FirstName: "Ada",
			LastName:  "Lovelace",
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("Create: expected 1 user, got %d", len(created))
	}

	got, err := repo.GetByID(dbc, created[0].ID)
	if err != nil || got == nil || got.ID != created[0].ID {
		t.Fatalf("GetByID: got=%v err=%v", got, err)
	}
	if got.FullName() != "Ada Lovelace" {
		t.Fatalf("FullName: want=%q got=%q", "Ada Lovelace", got.FullName())
	}

	missing, err := repo.GetByID(dbc, uuid.New())
	if err != nil || missing != nil {
		t.Fatalf("GetByID (missing): got=%v err=%v", missing, err)
	}

	byEmail, err := repo.GetByEmails(dbc, []string{" userrepo@EXAMPLE.com "})
	if err != nil {
		t.Fatalf("GetByEmails: %v", err)
	}
	if len(byEmail) != 1 || byEmail[0].ID != created[0].ID {
		t.Fatalf("GetByEmails: unexpected result: %+v", byEmail)
	}

	if err := repo.Upsert(dbc, &types.User{ID: created[0].ID, Email: "ada@example.com", FirstName: "Ada", LastName: "King"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, _ = repo.GetByID(dbc, created[0].ID)
	if got.Email != "ada@example.com" || got.LastName != "King" {
		t.Fatalf("Upsert: got=%+v", got)
	}

	if err := repo.UpdateFields(dbc, created[0].ID, map[string]interface{}{"suspended": true}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, _ = repo.GetByID(dbc, created[0].ID)
	if got.Active() {
		t.Fatalf("Active: expected suspended user to be inactive")
	}

	if err := tx.Delete(&types.User{}, "id = ?", created[0].ID).Error; err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	rows, err := repo.GetByIDs(dbc, []uuid.UUID{created[0].ID})
	if err != nil || len(rows) != 0 {
		t.Fatalf("GetByIDs after soft delete: err=%v len=%d", err, len(rows))
	}
}

func TestCapabilityGrantRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewCapabilityGrantRepo(db, testutil.Logger(t))

	instructor := testutil.SeedUser(t, ctx, tx, "instructor@example.com")
	admin := testutil.SeedUser(t, ctx, tx, "admin@example.com")
	student := testutil.SeedUser(t, ctx, tx, "student@example.com")
	activityID := uuid.New()
	otherActivity := uuid.New()

	if _, err := repo.Create(dbc, []*types.CapabilityGrant{
		{UserID: instructor.ID, ActivityID: testutil.PtrUUID(activityID), Capability: types.Capability("accept")},
		{UserID: admin.ID, Capability: types.Capability("accept")},
		{UserID: student.ID, ActivityID: testutil.PtrUUID(activityID), Capability: types.Capability("request")},
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	// Re-granting is a no-op.
	if _, err := repo.Create(dbc, []*types.CapabilityGrant{
		{UserID: instructor.ID, ActivityID: testutil.PtrUUID(activityID), Capability: types.Capability("accept")},
	}); err != nil {
		t.Fatalf("Create (duplicate): %v", err)
	}

	ok, err := repo.Exists(dbc, instructor.ID, activityID, []types.Capability{"accept"})
	if err != nil || !ok {
		t.Fatalf("Exists instructor: ok=%v err=%v", ok, err)
	}
	ok, err = repo.Exists(dbc, instructor.ID, otherActivity, []types.Capability{"accept"})
	if err != nil || ok {
		t.Fatalf("Exists instructor other activity: ok=%v err=%v", ok, err)
	}
	ok, err = repo.Exists(dbc, admin.ID, otherActivity, []types.Capability{"accept"})
	if err != nil || !ok {
		t.Fatalf("Exists site-wide grant: ok=%v err=%v", ok, err)
	}

	ids, err := repo.ListUserIDs(dbc, activityID, "accept")
	if err != nil || len(ids) != 2 {
		t.Fatalf("ListUserIDs: err=%v ids=%v", err, ids)
	}

	scoped, err := repo.ListByActivity(dbc, activityID)
	if err != nil || len(scoped) != 2 {
		t.Fatalf("ListByActivity: err=%v len=%d", err, len(scoped))
	}

	if err := repo.Delete(dbc, admin.ID, nil, "accept"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ok, _ = repo.Exists(dbc, admin.ID, activityID, []types.Capability{"accept"})
	if ok {
		t.Fatalf("Exists after Delete: expected false")
	}

	if err := repo.DeleteByActivity(dbc, activityID); err != nil {
		t.Fatalf("DeleteByActivity: %v", err)
	}
	ids, _ = repo.ListUserIDs(dbc, activityID, "accept")
	if len(ids) != 0 {
		t.Fatalf("ListUserIDs after DeleteByActivity: %v", ids)
	}
}
