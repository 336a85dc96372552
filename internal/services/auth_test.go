package services

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	types "github.com/yungbote/recommend-backend/internal/domain"
	"github.com/yungbote/recommend-backend/internal/platform/ctxutil"
)

func TestAuthSyncsUserFromToken(t *testing.T) {
	env := newTestEnv(t)
	u := &types.User{ID: uuid.New(), Email: "new@example.com", FirstName: "New", LastName: "User"}

	token, err := env.auth.IssueToken(u, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	ctx, err := env.auth.SetContextFromToken(env.ctx, token)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID != u.ID {
		t.Fatalf("request data: %+v", rd)
	}
	stored, err := env.userRepo.GetByID(dbcFor(env), u.ID)
	if err != nil || stored == nil || stored.FullName() != "New User" {
		t.Fatalf("synced user: %+v err=%v", stored, err)
	}
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.UserID != u.ID || actor.System {
		t.Fatalf("ActorFromContext: %+v ok=%v", actor, ok)
	}
}

func TestAuthRejectsBadTokens(t *testing.T) {
	env := newTestEnv(t)
	known := env.user(t, "known@example.com")

	if _, err := env.auth.SetContextFromToken(env.ctx, ""); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("empty token: %v", err)
	}

	expired, _ := env.auth.IssueToken(known, -time.Minute)
	if _, err := env.auth.SetContextFromToken(env.ctx, expired); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expired token: %v", err)
	}

	other := NewAuthService(testLogger(t), env.userRepo, "another-secret")
	forged, _ := other.IssueToken(known, time.Hour)
	if _, err := env.auth.SetContextFromToken(env.ctx, forged); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("wrong key: %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: known.ID.String()})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := env.auth.SetContextFromToken(env.ctx, unsigned); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("unsigned token: %v", err)
	}

	// No profile claims and no local row.
	stranger := &types.User{ID: uuid.New()}
	bare, _ := env.auth.IssueToken(stranger, time.Hour)
	if _, err := env.auth.SetContextFromToken(env.ctx, bare); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("unknown user: %v", err)
	}

	if err := env.userRepo.UpdateFields(dbcFor(env), known.ID, map[string]interface{}{"suspended": true}); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	valid, _ := env.auth.IssueToken(known, time.Hour)
	if _, err := env.auth.SetContextFromToken(env.ctx, valid); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("suspended user: %v", err)
	}
}
