package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	types "github.com/yungbote/recommend-backend/internal/domain"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
	"github.com/yungbote/recommend-backend/internal/services"
)

type GrantHandler struct {
	log      *logger.Logger
	validate *validator.Validate
	access   services.AccessService
}

func NewGrantHandler(log *logger.Logger, access services.AccessService) *GrantHandler {
	return &GrantHandler{
		log:      log.With("handler", "GrantHandler"),
		validate: validator.New(),
		access:   access,
	}
}

type grantRequest struct {
	UserID     uuid.UUID  `json:"user_id" validate:"required"`
	ActivityID *uuid.UUID `json:"activity_id"`
	Capability string     `json:"capability" validate:"required,max=64"`
}

// POST /api/grants
func (h *GrantHandler) Grant(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req grantRequest
	if !bindJSON(c, h.validate, &req) {
		return
	}
	if err := h.access.Grant(c.Request.Context(), actor, req.UserID, req.ActivityID, types.Capability(req.Capability)); err != nil {
		respondServiceError(c, h.log, "Grant", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DELETE /api/grants
func (h *GrantHandler) Revoke(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req grantRequest
	if !bindJSON(c, h.validate, &req) {
		return
	}
	if err := h.access.Revoke(c.Request.Context(), actor, req.UserID, req.ActivityID, types.Capability(req.Capability)); err != nil {
		respondServiceError(c, h.log, "Revoke", err)
		return
	}
	c.Status(http.StatusNoContent)
}
