package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/yungbote/recommend-backend/internal/http/response"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
	"github.com/yungbote/recommend-backend/internal/services"
)

type ActivityHandler struct {
	log        *logger.Logger
	validate   *validator.Validate
	activities services.ActivityService
}

func NewActivityHandler(log *logger.Logger, activities services.ActivityService) *ActivityHandler {
	return &ActivityHandler{
		log:        log.With("handler", "ActivityHandler"),
		validate:   validator.New(),
		activities: activities,
	}
}

type createActivityRequest struct {
	CourseID uuid.UUID `json:"course_id" validate:"required"`
	services.ActivitySettings
}

// POST /api/activities
func (h *ActivityHandler) CreateActivity(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req createActivityRequest
	if !bindJSON(c, h.validate, &req) {
		return
	}
	activity, err := h.activities.Create(c.Request.Context(), actor, req.CourseID, req.ActivitySettings)
	if err != nil {
		respondServiceError(c, h.log, "CreateActivity", err)
		return
	}
	response.RespondCreated(c, gin.H{"activity": activity})
}

// GET /api/activities/:id
func (h *ActivityHandler) GetActivity(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	activityID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	activity, err := h.activities.View(c.Request.Context(), actor, activityID)
	if err != nil {
		respondServiceError(c, h.log, "GetActivity", err)
		return
	}
	response.RespondOK(c, gin.H{"activity": activity})
}

// PATCH /api/activities/:id
func (h *ActivityHandler) UpdateActivity(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	activityID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var settings services.ActivitySettings
	if !bindJSON(c, h.validate, &settings) {
		return
	}
	activity, err := h.activities.Update(c.Request.Context(), actor, activityID, settings)
	if err != nil {
		respondServiceError(c, h.log, "UpdateActivity", err)
		return
	}
	response.RespondOK(c, gin.H{"activity": activity})
}

// DELETE /api/activities/:id
func (h *ActivityHandler) DeleteActivity(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	activityID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.activities.Delete(c.Request.Context(), actor, activityID); err != nil {
		respondServiceError(c, h.log, "DeleteActivity", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/activities/:id/outline/:userId
func (h *ActivityHandler) GetOutline(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	activityID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	userID, ok := uuidParam(c, "userId")
	if !ok {
		return
	}
	outline, err := h.activities.Outline(c.Request.Context(), actor, activityID, userID)
	if err != nil {
		respondServiceError(c, h.log, "GetOutline", err)
		return
	}
	response.RespondOK(c, gin.H{"outline": outline})
}
