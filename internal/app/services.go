package app

import (
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/recommend-backend/internal/platform/logger"
	"github.com/yungbote/recommend-backend/internal/services"
)

type Services struct {
	// Identity + permissions
	Auth   services.AuthService
	Access services.AccessService

	// Plumbing shared by the domain services
	Events     services.EventRecorder
	Completion services.CompletionService
	Notifier   services.StatusNotifier

	// Domain
	Activity       services.ActivityService
	Question       services.QuestionService
	Request        services.RequestService
	Recommendation services.RecommendationService
	Comment        services.CommentService
	Dispatch       services.DispatchService
	Backup         services.BackupService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients) Services {
	log.Info("Wiring services...")

	now := time.Now

	authService := services.NewAuthService(log, repos.User, cfg.JWTSecretKey)
	accessService := services.NewAccessService(log, repos.User, repos.Grant)

	events := services.NewEventRecorder(log, repos.EventLog, clients.Bus)
	completion := services.NewCompletionService(log, repos.Request, repos.Completion, now)
	notifier := services.NewStatusNotifier(log, repos.User, accessService, clients.Mailer, clients.Bus, cfg.Site)

	questions := services.NewQuestionService(db, log, repos.Question, repos.Reply, accessService, events)
	requests := services.NewRequestService(
		db, log,
		repos.Activity,
		repos.Request,
		repos.Reply,
		repos.Comment,
		repos.User,
		accessService,
		events,
		completion,
		notifier,
		clients.Mailer,
		cfg.Site,
		nil,
		now,
	)
	recommendations := services.NewRecommendationService(
		db, log,
		repos.Activity,
		repos.Request,
		repos.Reply,
		repos.Comment,
		repos.User,
		questions,
		accessService,
		events,
		completion,
		notifier,
		now,
	)
	comments := services.NewCommentService(
		db, log,
		repos.Request,
		repos.Comment,
		repos.User,
		accessService,
		events,
		now,
	)
	dispatch := services.NewDispatchService(
		log,
		repos.Activity,
		repos.Request,
		repos.User,
		events,
		clients.Mailer,
		cfg.Site,
		services.DispatchConfig{Enabled: cfg.ModuleEnabled, Cooldown: cfg.Cooldown},
		now,
	)
	activities := services.NewActivityService(
		db, log,
		repos.Activity,
		repos.Question,
		repos.Request,
		repos.Reply,
		repos.Comment,
		repos.Completion,
		repos.Grant,
		questions,
		accessService,
		events,
	)
	backup := services.NewBackupService(
		db, log,
		repos.Activity,
		repos.Question,
		repos.Request,
		repos.Reply,
		repos.User,
		accessService,
		nil,
	)

	return Services{
		Auth:           authService,
		Access:         accessService,
		Events:         events,
		Completion:     completion,
		Notifier:       notifier,
		Activity:       activities,
		Question:       questions,
		Request:        requests,
		Recommendation: recommendations,
		Comment:        comments,
		Dispatch:       dispatch,
		Backup:         backup,
	}
}
