package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/yungbote/recommend-backend/internal/http/handlers"
	httpMW "github.com/yungbote/recommend-backend/internal/http/middleware"
	"github.com/yungbote/recommend-backend/internal/observability"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string
	Tracing        bool
	Metrics        *observability.Metrics

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler    *httpH.HealthHandler
	ActivityHandler  *httpH.ActivityHandler
	QuestionHandler  *httpH.QuestionHandler
	RequestHandler   *httpH.RequestHandler
	RecommendHandler *httpH.RecommendHandler
	CommentHandler   *httpH.CommentHandler
	BackupHandler    *httpH.BackupHandler
	GrantHandler     *httpH.GrantHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Tracing {
		r.Use(httpMW.Tracing(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Recommender form (public, secret link)
		if cfg.RecommendHandler != nil {
			api.GET("/recommend/:secret", cfg.RecommendHandler.Open)
			api.POST("/recommend/:secret", cfg.RecommendHandler.Save)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Activities
		if cfg.ActivityHandler != nil {
			protected.POST("/activities", cfg.ActivityHandler.CreateActivity)
			protected.GET("/activities/:id", cfg.ActivityHandler.GetActivity)
			protected.PATCH("/activities/:id", cfg.ActivityHandler.UpdateActivity)
			protected.DELETE("/activities/:id", cfg.ActivityHandler.DeleteActivity)
			protected.GET("/activities/:id/outline/:userId", cfg.ActivityHandler.GetOutline)
		}

		// Questions
		if cfg.QuestionHandler != nil {
			protected.GET("/activities/:id/questions", cfg.QuestionHandler.ListQuestions)
			protected.POST("/activities/:id/questions", cfg.QuestionHandler.AddQuestion)
			protected.PATCH("/activities/:id/questions/:questionId", cfg.QuestionHandler.EditQuestion)
			protected.DELETE("/activities/:id/questions/:questionId", cfg.QuestionHandler.DeleteQuestion)
			protected.POST("/activities/:id/questions/:questionId/moveup", cfg.QuestionHandler.MoveUp)
			protected.POST("/activities/:id/questions/:questionId/movedown", cfg.QuestionHandler.MoveDown)
			protected.POST("/activities/:id/questions/:questionId/duplicate", cfg.QuestionHandler.Duplicate)
		}
		if cfg.RecommendHandler != nil {
			protected.GET("/activities/:id/preview", cfg.RecommendHandler.Preview)
		}

		// Requests
		if cfg.RequestHandler != nil {
			protected.GET("/activities/:id/requests", cfg.RequestHandler.ListOwn)
			protected.POST("/activities/:id/requests", cfg.RequestHandler.AddRequests)
			protected.GET("/activities/:id/requests/all", cfg.RequestHandler.ListAll)
			protected.GET("/activities/:id/requests/:requestId", cfg.RequestHandler.ViewRequest)
			protected.DELETE("/activities/:id/requests/:requestId", cfg.RequestHandler.DeleteRequest)
			protected.POST("/activities/:id/requests/:requestId/accept", cfg.RequestHandler.AcceptRequest)
			protected.POST("/activities/:id/requests/:requestId/reject", cfg.RequestHandler.RejectRequest)
			protected.POST("/activities/:id/requests/:requestId/resend", cfg.RequestHandler.ResendRequest)
		}

		// Reviewer comments
		if cfg.CommentHandler != nil {
			protected.GET("/activities/:id/requests/:requestId/comments", cfg.CommentHandler.ListComments)
			protected.POST("/activities/:id/requests/:requestId/comments", cfg.CommentHandler.AddComment)
		}

		// Backup
		if cfg.BackupHandler != nil {
			protected.GET("/activities/:id/export", cfg.BackupHandler.Export)
			protected.POST("/courses/:courseId/import", cfg.BackupHandler.Import)
		}

		// Grants
		if cfg.GrantHandler != nil {
			protected.POST("/grants", cfg.GrantHandler.Grant)
			protected.DELETE("/grants", cfg.GrantHandler.Revoke)
		}
	}

	return r
}
