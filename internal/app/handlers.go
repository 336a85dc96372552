package app

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	apphttp "github.com/yungbote/recommend-backend/internal/http"
	httpH "github.com/yungbote/recommend-backend/internal/http/handlers"
	httpMW "github.com/yungbote/recommend-backend/internal/http/middleware"
	"github.com/yungbote/recommend-backend/internal/observability"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
)

type Handlers struct {
	Health    *httpH.HealthHandler
	Activity  *httpH.ActivityHandler
	Question  *httpH.QuestionHandler
	Request   *httpH.RequestHandler
	Recommend *httpH.RecommendHandler
	Comment   *httpH.CommentHandler
	Backup    *httpH.BackupHandler
	Grant     *httpH.GrantHandler
}

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

func wireHandlers(db *gorm.DB, log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:    httpH.NewHealthHandler(db),
		Activity:  httpH.NewActivityHandler(log, services.Activity),
		Question:  httpH.NewQuestionHandler(log, services.Question),
		Request:   httpH.NewRequestHandler(log, services.Activity, services.Request, services.Recommendation),
		Recommend: httpH.NewRecommendHandler(log, services.Recommendation),
		Comment:   httpH.NewCommentHandler(log, services.Comment),
		Backup:    httpH.NewBackupHandler(log, services.Backup),
		Grant:     httpH.NewGrantHandler(log, services.Access),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func routerConfig(log *logger.Logger, cfg Config, metrics *observability.Metrics, h Handlers, mw Middleware) apphttp.RouterConfig {
	return apphttp.RouterConfig{
		Log:              log,
		ServiceName:      cfg.Otel.ServiceName,
		AllowedOrigins:   cfg.AllowedOrigins,
		Tracing:          cfg.Otel.Enabled,
		Metrics:          metrics,
		AuthMiddleware:   mw.Auth,
		HealthHandler:    h.Health,
		ActivityHandler:  h.Activity,
		QuestionHandler:  h.Question,
		RequestHandler:   h.Request,
		RecommendHandler: h.Recommend,
		CommentHandler:   h.Comment,
		BackupHandler:    h.Backup,
		GrantHandler:     h.Grant,
	}
}

func ginMode(env string) string {
	switch env {
	case "production", "prod":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}
