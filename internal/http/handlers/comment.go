package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/yungbote/recommend-backend/internal/http/response"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
	"github.com/yungbote/recommend-backend/internal/services"
)

type CommentHandler struct {
	log      *logger.Logger
	validate *validator.Validate
	comments services.CommentService
}

func NewCommentHandler(log *logger.Logger, comments services.CommentService) *CommentHandler {
	return &CommentHandler{
		log:      log.With("handler", "CommentHandler"),
		validate: validator.New(),
		comments: comments,
	}
}

type addCommentRequest struct {
	Content string `json:"content" validate:"required,max=65535"`
}

// GET /api/activities/:id/requests/:requestId/comments
func (h *CommentHandler) ListComments(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	activityID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	requestID, ok := uuidParam(c, "requestId")
	if !ok {
		return
	}
	rows, err := h.comments.List(c.Request.Context(), actor, activityID, requestID)
	if err != nil {
		respondServiceError(c, h.log, "ListComments", err)
		return
	}
	response.RespondOK(c, gin.H{"comments": rows})
}

// POST /api/activities/:id/requests/:requestId/comments
func (h *CommentHandler) AddComment(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	activityID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	requestID, ok := uuidParam(c, "requestId")
	if !ok {
		return
	}
	var req addCommentRequest
	if !bindJSON(c, h.validate, &req) {
		return
	}
	comment, err := h.comments.Add(c.Request.Context(), actor, activityID, requestID, req.Content)
	if err != nil {
		respondServiceError(c, h.log, "AddComment", err)
		return
	}
	response.RespondCreated(c, comment)
}
