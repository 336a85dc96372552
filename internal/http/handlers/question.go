package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/yungbote/recommend-backend/internal/http/response"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
	"github.com/yungbote/recommend-backend/internal/services"
)

type QuestionHandler struct {
	log       *logger.Logger
	validate  *validator.Validate
	questions services.QuestionService
}

func NewQuestionHandler(log *logger.Logger, questions services.QuestionService) *QuestionHandler {
	return &QuestionHandler{
		log:       log.With("handler", "QuestionHandler"),
		validate:  validator.New(),
		questions: questions,
	}
}

type addQuestionRequest struct {
	services.QuestionInput
	BeforeID *uuid.UUID `json:"before_id"`
}

// GET /api/activities/:id/questions
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	activityID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	questions, err := h.questions.List(c.Request.Context(), activityID)
	if err != nil {
		respondServiceError(c, h.log, "ListQuestions", err)
		return
	}
	response.RespondOK(c, gin.H{"questions": questions})
}

// POST /api/activities/:id/questions
func (h *QuestionHandler) AddQuestion(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	activityID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req addQuestionRequest
	if !bindJSON(c, h.validate, &req) {
		return
	}
	q, err := h.questions.Add(c.Request.Context(), actor, activityID, req.QuestionInput, req.BeforeID)
	if err != nil {
		respondServiceError(c, h.log, "AddQuestion", err)
		return
	}
	response.RespondCreated(c, gin.H{"question": q})
}

// PATCH /api/activities/:id/questions/:questionId
func (h *QuestionHandler) EditQuestion(c *gin.Context) {
	actor, activityID, questionID, ok := h.target(c)
	if !ok {
		return
	}
	var in services.QuestionInput
	if !bindJSON(c, h.validate, &in) {
		return
	}
	q, err := h.questions.Edit(c.Request.Context(), actor, activityID, questionID, in)
	if err != nil {
		respondServiceError(c, h.log, "EditQuestion", err)
		return
	}
	response.RespondOK(c, gin.H{"question": q})
}

// DELETE /api/activities/:id/questions/:questionId
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	h.structural(c, "DeleteQuestion", h.questions.Delete)
}

// POST /api/activities/:id/questions/:questionId/moveup
func (h *QuestionHandler) MoveUp(c *gin.Context) {
	h.structural(c, "MoveUp", h.questions.MoveUp)
}

// POST /api/activities/:id/questions/:questionId/movedown
func (h *QuestionHandler) MoveDown(c *gin.Context) {
	h.structural(c, "MoveDown", h.questions.MoveDown)
}

// POST /api/activities/:id/questions/:questionId/duplicate
func (h *QuestionHandler) Duplicate(c *gin.Context) {
	actor, activityID, questionID, ok := h.target(c)
	if !ok {
		return
	}
	q, err := h.questions.Duplicate(c.Request.Context(), actor, activityID, questionID)
	if err != nil {
		respondServiceError(c, h.log, "Duplicate", err)
		return
	}
	response.RespondCreated(c, gin.H{"question": q})
}

func (h *QuestionHandler) target(c *gin.Context) (services.Actor, uuid.UUID, uuid.UUID, bool) {
	actor, ok := requireActor(c)
	if !ok {
		return actor, uuid.Nil, uuid.Nil, false
	}
	activityID, ok := uuidParam(c, "id")
	if !ok {
		return actor, uuid.Nil, uuid.Nil, false
	}
	questionID, ok := uuidParam(c, "questionId")
	if !ok {
		return actor, uuid.Nil, uuid.Nil, false
	}
	return actor, activityID, questionID, true
}

// structural runs an action that only reorders or removes questions and
// answers with the refreshed list.
func (h *QuestionHandler) structural(c *gin.Context, op string, fn func(ctx context.Context, actor services.Actor, activityID, questionID uuid.UUID) error) {
	actor, activityID, questionID, ok := h.target(c)
	if !ok {
		return
	}
	if err := fn(c.Request.Context(), actor, activityID, questionID); err != nil {
		respondServiceError(c, h.log, op, err)
		return
	}
	questions, err := h.questions.List(c.Request.Context(), activityID)
	if err != nil {
		respondServiceError(c, h.log, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": questions})
}
