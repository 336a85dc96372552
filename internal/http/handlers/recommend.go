package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/yungbote/recommend-backend/internal/http/response"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
	"github.com/yungbote/recommend-backend/internal/services"
)

// RecommendHandler serves the public form behind a request's secret link.
// The secret is the only credential, so these routes carry no auth.
type RecommendHandler struct {
	log             *logger.Logger
	validate        *validator.Validate
	recommendations services.RecommendationService
}

func NewRecommendHandler(log *logger.Logger, recommendations services.RecommendationService) *RecommendHandler {
	return &RecommendHandler{
		log:             log.With("handler", "RecommendHandler"),
		validate:        validator.New(),
		recommendations: recommendations,
	}
}

type saveRecommendationRequest struct {
	Answers map[uuid.UUID]services.Answer `json:"answers" validate:"required"`
}

func secretParam(c *gin.Context) (string, bool) {
	secret := strings.TrimSpace(c.Param("secret"))
	if secret == "" || len(secret) > 64 {
		response.RespondError(c, http.StatusNotFound, "not_found", errors.New("recommendation not found"))
		return "", false
	}
	return secret, true
}

// GET /api/recommend/:secret
func (h *RecommendHandler) Open(c *gin.Context) {
	secret, ok := secretParam(c)
	if !ok {
		return
	}
	rec, err := h.recommendations.Open(c.Request.Context(), secret)
	if err != nil {
		respondServiceError(c, h.log, "OpenRecommendation", err)
		return
	}
	response.RespondOK(c, rec)
}

// POST /api/recommend/:secret
func (h *RecommendHandler) Save(c *gin.Context) {
	secret, ok := secretParam(c)
	if !ok {
		return
	}
	var req saveRecommendationRequest
	if !bindJSON(c, h.validate, &req) {
		return
	}
	if err := h.recommendations.Save(c.Request.Context(), secret, req.Answers); err != nil {
		respondServiceError(c, h.log, "SaveRecommendation", err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// GET /api/activities/:id/preview
//
// Mounted behind auth; editors see the form without any request data.
func (h *RecommendHandler) Preview(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	activityID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	preview, err := h.recommendations.Preview(c.Request.Context(), actor, activityID)
	if err != nil {
		respondServiceError(c, h.log, "PreviewForm", err)
		return
	}
	response.RespondOK(c, preview)
}
