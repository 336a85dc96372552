package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/recommend-backend/internal/data/repos"
	"github.com/yungbote/recommend-backend/internal/data/repos/testutil"
	types "github.com/yungbote/recommend-backend/internal/domain"
	"github.com/yungbote/recommend-backend/internal/pkg/dbctx"
	"github.com/yungbote/recommend-backend/internal/pkg/secret"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
	"github.com/yungbote/recommend-backend/internal/platform/mailer"
	"github.com/yungbote/recommend-backend/internal/realtime/bus"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return f.err
}

func (f *fakeMailer) Sent() []mailer.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mailer.Message(nil), f.sent...)
}

func (f *fakeMailer) Recipients() []string {
	var out []string
	for _, m := range f.Sent() {
		out = append(out, m.To.Email)
	}
	return out
}

func (f *fakeMailer) Reset() {
	f.mu.Lock()
	f.sent = nil
	f.mu.Unlock()
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	ctx   context.Context
	db    *gorm.DB
	mail  *fakeMailer
	bus   *bus.MemoryBus
	clock *testClock
	site  Site

	activityRepo   repos.ActivityRepo
	questionRepo   repos.QuestionRepo
	requestRepo    repos.RequestRepo
	replyRepo      repos.ReplyRepo
	commentRepo    repos.CommentRepo
	completionRepo repos.CompletionRepo
	userRepo       repos.UserRepo
	grantRepo      repos.CapabilityGrantRepo
	eventRepo      repos.EventLogRepo

	access          AccessService
	events          EventRecorder
	completion      CompletionService
	notifier        StatusNotifier
	questions       QuestionService
	requests        RequestService
	recommendations RecommendationService
	comments        CommentService
	dispatch        DispatchService
	activities      ActivityService
	backup          BackupService
	auth            AuthService

	secrets func() (string, error)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)

	env := &testEnv{
		ctx:   context.Background(),
		db:    db,
		mail:  &fakeMailer{},
		bus:   bus.NewMemoryBus(),
		clock: &testClock{t: time.Now().UTC()},
		site:  Site{Name: "Test Site", AdminSignoff: "Site Admin", BaseURL: "https://lms.example.com/"},

		activityRepo:   repos.NewActivityRepo(db, log),
		questionRepo:   repos.NewQuestionRepo(db, log),
		requestRepo:    repos.NewRequestRepo(db, log),
		replyRepo:      repos.NewReplyRepo(db, log),
		commentRepo:    repos.NewCommentRepo(db, log),
		completionRepo: repos.NewCompletionRepo(db, log),
		userRepo:       repos.NewUserRepo(db, log),
		grantRepo:      repos.NewCapabilityGrantRepo(db, log),
		eventRepo:      repos.NewEventLogRepo(db, log),
	}
	// secrets defers to env.secrets so a test can swap the generator.
	secrets := func() (string, error) {
		if env.secrets != nil {
			return env.secrets()
		}
		return secret.New()
	}

	env.access = NewAccessService(log, env.userRepo, env.grantRepo)
	env.events = NewEventRecorder(log, env.eventRepo, env.bus)
	env.completion = NewCompletionService(log, env.requestRepo, env.completionRepo, env.clock.Now)
	env.notifier = NewStatusNotifier(log, env.userRepo, env.access, env.mail, env.bus, env.site)
	env.questions = NewQuestionService(db, log, env.questionRepo, env.replyRepo, env.access, env.events)
	env.requests = NewRequestService(db, log, env.activityRepo, env.requestRepo, env.replyRepo, env.commentRepo, env.userRepo,
		env.access, env.events, env.completion, env.notifier, env.mail, env.site, secrets, env.clock.Now)
	env.recommendations = NewRecommendationService(db, log, env.activityRepo, env.requestRepo, env.replyRepo,
		env.commentRepo, env.userRepo, env.questions, env.access, env.events, env.completion, env.notifier, env.clock.Now)
	env.comments = NewCommentService(db, log, env.requestRepo, env.commentRepo, env.userRepo, env.access, env.events, env.clock.Now)
	env.dispatch = NewDispatchService(log, env.activityRepo, env.requestRepo, env.userRepo, env.events,
		env.mail, env.site, DispatchConfig{Enabled: true, Cooldown: 15 * time.Minute}, env.clock.Now)
	env.activities = NewActivityService(db, log, env.activityRepo, env.questionRepo, env.requestRepo,
		env.replyRepo, env.commentRepo, env.completionRepo, env.grantRepo, env.questions, env.access, env.events)
	env.backup = NewBackupService(db, log, env.activityRepo, env.questionRepo, env.requestRepo,
		env.replyRepo, env.userRepo, env.access, secrets)
	env.auth = NewAuthService(log, env.userRepo, "test-secret")
	return env
}

func (env *testEnv) user(t *testing.T, email string) *types.User {
	t.Helper()
	return testutil.SeedUser(t, env.ctx, env.db, email)
}

func (env *testEnv) activity(t *testing.T, mutate func(*types.Activity)) *types.Activity {
	t.Helper()
	return testutil.SeedActivity(t, env.ctx, env.db, mutate)
}

func (env *testEnv) grant(t *testing.T, u *types.User, activityID uuid.UUID, cap types.Capability) {
	t.Helper()
	testutil.SeedGrant(t, env.ctx, env.db, u.ID, testutil.PtrUUID(activityID), cap)
}

func (env *testEnv) request(t *testing.T, activityID uuid.UUID, owner *types.User, email string, status types.RequestStatus) *types.Request {
	t.Helper()
	return testutil.SeedRequest(t, env.ctx, env.db, activityID, owner.ID, email, status)
}

func (env *testEnv) reload(t *testing.T, id uuid.UUID) *types.Request {
	t.Helper()
	req, err := env.requestRepo.GetByID(dbcFor(env), id)
	if err != nil {
		t.Fatalf("reload request: %v", err)
	}
	return req
}

func (env *testEnv) eventKinds(t *testing.T, activityID uuid.UUID) []types.EventKind {
	t.Helper()
	rows, err := env.eventRepo.ListByActivity(dbcFor(env), activityID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	out := make([]types.EventKind, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Kind)
	}
	return out
}

func countKind(kinds []types.EventKind, kind types.EventKind) int {
	n := 0
	for _, k := range kinds {
		if k == kind {
			n++
		}
	}
	return n
}

func dbcFor(env *testEnv) dbctx.Context { return dbctx.Context{Ctx: env.ctx} }

func testutilQuestion(t *testing.T, env *testEnv, activityID uuid.UUID, qtype string, sortOrder int) *types.Question {
	t.Helper()
	return testutil.SeedQuestion(t, env.ctx, env.db, activityID, qtype, sortOrder)
}

func testutilPtr(id uuid.UUID) *uuid.UUID { return testutil.PtrUUID(id) }

func testLogger(t *testing.T) *logger.Logger { return testutil.Logger(t) }
