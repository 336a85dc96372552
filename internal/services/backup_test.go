package services

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/recommend-backend/internal/domain"
	"github.com/yungbote/recommend-backend/internal/domain/recommend"
)

func TestBackupRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	f := seedForm(t, env, func(a *types.Activity) { a.Name = "Letters"; a.MaxRequests = 7 })
	req := env.request(t, f.activity.ID, f.owner, "referee@example.com", recommend.StatusSent)
	if err := env.recommendations.Save(env.ctx, req.Secret, map[uuid.UUID]Answer{
		f.name.ID:   {Text: "Jane"},
		f.choice.ID: {Text: "no"},
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// Requests of users unknown to this site are skipped on import.
	ghost := &types.User{ID: uuid.New()}
	env.request(t, f.activity.ID, ghost, "ghost@example.com", recommend.StatusPending)

	if _, err := env.backup.Export(env.ctx, UserActor(f.owner.ID), f.activity.ID, true); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Export without admin: want ErrForbidden, got %v", err)
	}
	archive, err := env.backup.Export(env.ctx, SystemActor(), f.activity.ID, true)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(archive.Questions) != 4 || len(archive.Requests) != 2 {
		t.Fatalf("archive: questions=%d requests=%d", len(archive.Questions), len(archive.Requests))
	}

	var buf bytes.Buffer
	if err := EncodeArchive(&buf, archive); err != nil {
		t.Fatalf("EncodeArchive: %v", err)
	}
	if !strings.Contains(buf.String(), "name: Letters") {
		t.Fatalf("yaml output missing activity name:\n%s", buf.String())
	}
	decoded, err := DecodeArchive(&buf)
	if err != nil {
		t.Fatalf("DecodeArchive: %v", err)
	}

	courseID := uuid.New()
	imported, err := env.backup.Import(env.ctx, SystemActor(), decoded, courseID)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if imported.ID == f.activity.ID || imported.CourseID != courseID || imported.Name != "Letters" || imported.MaxRequests != 7 {
		t.Fatalf("imported activity: %+v", imported)
	}

	dbc := dbcFor(env)
	questions, _ := env.questionRepo.ListByActivity(dbc, imported.ID)
	if len(questions) != 4 {
		t.Fatalf("imported questions: %d", len(questions))
	}
	for i, q := range questions {
		if q.Type != archive.Questions[i].Type || q.SortOrder != i || q.ID == archive.Questions[i].ID {
			t.Fatalf("question %d: %+v", i, q)
		}
	}

	requests, _ := env.requestRepo.ListByActivity(dbc, imported.ID)
	if len(requests) != 1 {
		t.Fatalf("imported requests: want=1 got=%d", len(requests))
	}
	restored := requests[0]
	if restored.Status != recommend.StatusCompleted || restored.UserID != f.owner.ID {
		t.Fatalf("restored request: %+v", restored)
	}
	if restored.Secret == req.Secret {
		t.Fatalf("secret already in use must be replaced")
	}
	replies, _ := env.replyRepo.ListByRequestIDs(dbc, []uuid.UUID{restored.ID})
	if len(replies) != 4 {
		t.Fatalf("restored replies: %d", len(replies))
	}
	var radio *string
	for _, r := range replies {
		if r.QuestionID == questions[3].ID {
			radio = r.Reply
		}
	}
	if radio == nil || *radio != "no" {
		t.Fatalf("restored radio reply: %v", radio)
	}
}

func TestBackupWithoutUserData(t *testing.T) {
	env := newTestEnv(t)
	f := seedForm(t, env, nil)
	env.request(t, f.activity.ID, f.owner, "referee@example.com", recommend.StatusSent)

	archive, err := env.backup.Export(env.ctx, SystemActor(), f.activity.ID, false)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(archive.Requests) != 0 {
		t.Fatalf("requests exported without userdata: %d", len(archive.Requests))
	}
	if _, err := DecodeArchive(strings.NewReader("version: 99\n")); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unsupported version: want ErrInvalidInput, got %v", err)
	}
}
