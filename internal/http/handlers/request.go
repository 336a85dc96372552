package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/yungbote/recommend-backend/internal/http/response"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
	"github.com/yungbote/recommend-backend/internal/services"
)

type RequestHandler struct {
	log             *logger.Logger
	validate        *validator.Validate
	activities      services.ActivityService
	requests        services.RequestService
	recommendations services.RecommendationService
}

func NewRequestHandler(
	log *logger.Logger,
	activities services.ActivityService,
	requests services.RequestService,
	recommendations services.RecommendationService,
) *RequestHandler {
	return &RequestHandler{
		log:             log.With("handler", "RequestHandler"),
		validate:        validator.New(),
		activities:      activities,
		requests:        requests,
		recommendations: recommendations,
	}
}

type addRequestsRequest struct {
	Requests []services.NewRequest `json:"requests" validate:"required,min=1,max=100,dive"`
}

// GET /api/activities/:id/requests
func (h *RequestHandler) ListOwn(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	activityID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	activity, err := h.activities.Get(ctx, activityID)
	if err != nil {
		respondServiceError(c, h.log, "ListOwn", err)
		return
	}
	rows, err := h.requests.ListOwn(ctx, actor, activityID)
	if err != nil {
		respondServiceError(c, h.log, "ListOwn", err)
		return
	}
	canAdd, err := h.requests.CanAddRequest(ctx, actor, activity)
	if err != nil {
		respondServiceError(c, h.log, "ListOwn", err)
		return
	}
	response.RespondOK(c, gin.H{"requests": rows, "can_add": canAdd})
}

// POST /api/activities/:id/requests
func (h *RequestHandler) AddRequests(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	activityID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req addRequestsRequest
	if !bindJSON(c, h.validate, &req) {
		return
	}
	created, err := h.requests.AddRequests(c.Request.Context(), actor, activityID, req.Requests)
	if err != nil {
		respondServiceError(c, h.log, "AddRequests", err)
		return
	}
	response.RespondCreated(c, gin.H{"requests": created})
}

// GET /api/activities/:id/requests/all
func (h *RequestHandler) ListAll(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	activityID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	participants, err := h.requests.ListAll(c.Request.Context(), actor, activityID)
	if err != nil {
		respondServiceError(c, h.log, "ListAll", err)
		return
	}
	response.RespondOK(c, gin.H{"participants": participants})
}

// GET /api/activities/:id/requests/:requestId
func (h *RequestHandler) ViewRequest(c *gin.Context) {
	actor, activityID, requestID, ok := h.target(c)
	if !ok {
		return
	}
	details, err := h.recommendations.ViewRequest(c.Request.Context(), actor, activityID, requestID)
	if err != nil {
		respondServiceError(c, h.log, "ViewRequest", err)
		return
	}
	response.RespondOK(c, details)
}

// DELETE /api/activities/:id/requests/:requestId
func (h *RequestHandler) DeleteRequest(c *gin.Context) {
	h.transition(c, "DeleteRequest", h.requests.DeleteRequest)
}

// POST /api/activities/:id/requests/:requestId/accept
func (h *RequestHandler) AcceptRequest(c *gin.Context) {
	h.transition(c, "AcceptRequest", h.requests.AcceptRequest)
}

// POST /api/activities/:id/requests/:requestId/reject
func (h *RequestHandler) RejectRequest(c *gin.Context) {
	h.transition(c, "RejectRequest", h.requests.RejectRequest)
}

// POST /api/activities/:id/requests/:requestId/resend
func (h *RequestHandler) ResendRequest(c *gin.Context) {
	h.transition(c, "ResendRequest", h.requests.ResendRequest)
}

func (h *RequestHandler) target(c *gin.Context) (services.Actor, uuid.UUID, uuid.UUID, bool) {
	actor, ok := requireActor(c)
	if !ok {
		return actor, uuid.Nil, uuid.Nil, false
	}
	activityID, ok := uuidParam(c, "id")
	if !ok {
		return actor, uuid.Nil, uuid.Nil, false
	}
	requestID, ok := uuidParam(c, "requestId")
	if !ok {
		return actor, uuid.Nil, uuid.Nil, false
	}
	return actor, activityID, requestID, true
}

func (h *RequestHandler) transition(c *gin.Context, op string, fn func(ctx context.Context, actor services.Actor, activityID, requestID uuid.UUID) (bool, error)) {
	actor, activityID, requestID, ok := h.target(c)
	if !ok {
		return
	}
	done, err := fn(c.Request.Context(), actor, activityID, requestID)
	respondTransition(c, h.log, op, done, err)
}

