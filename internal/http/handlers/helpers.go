package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/yungbote/recommend-backend/internal/http/response"
	"github.com/yungbote/recommend-backend/internal/platform/apierr"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
	"github.com/yungbote/recommend-backend/internal/services"
)

const maxBodyBytes = 1 << 20

var errPreconditionFailed = errors.New("request is not in a state that allows this action")

type fieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// requireActor returns the authenticated caller or writes a 401.
func requireActor(c *gin.Context) (services.Actor, bool) {
	actor, ok := services.ActorFromContext(c.Request.Context())
	if !ok {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return services.Actor{}, false
	}
	return actor, true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil || id == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_"+snake(name), fmt.Errorf("invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}

// snake turns a route param such as "requestId" into "request_id".
func snake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// bindJSON decodes the body into dst and runs struct validation. On failure
// the response is written and false returned.
func bindJSON(c *gin.Context, v *validator.Validate, dst any) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	if err := c.ShouldBindJSON(dst); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return false
	}
	if err := v.Struct(dst); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) {
			details := make([]fieldError, 0, len(ves))
			for _, fe := range ves {
				details = append(details, fieldError{
					Field:   fe.Namespace(),
					Rule:    fe.Tag(),
					Message: fe.Error(),
				})
			}
			response.RespondErrorDetails(c, http.StatusUnprocessableEntity, "validation_failed", errors.New("validation failed"), details)
			return false
		}
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return false
	}
	return true
}

// mapServiceError translates service sentinels into transport errors.
// Unknown errors pass through and become 500s.
func mapServiceError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, services.ErrUnauthenticated):
		return apierr.New(http.StatusUnauthorized, "unauthorized", err)
	case errors.Is(err, services.ErrForbidden):
		return apierr.Forbidden("forbidden", err)
	case errors.Is(err, services.ErrNotFound):
		return apierr.NotFound("not_found", err)
	case errors.Is(err, services.ErrAlreadySubmitted):
		return apierr.Conflict("already_submitted", err)
	case errors.Is(err, services.ErrLimitReached):
		return apierr.Unprocessable("request_limit_reached", err)
	case errors.Is(err, services.ErrInvalidAnswer):
		return apierr.Unprocessable("invalid_answer", err)
	case errors.Is(err, services.ErrInvalidInput):
		return apierr.Unprocessable("invalid_input", err)
	}
	return err
}

// respondServiceError writes the mapped error, logging only unexpected
// failures.
func respondServiceError(c *gin.Context, log *logger.Logger, op string, err error) {
	if ve, ok := services.IsValidationError(err); ok {
		response.RespondErrorDetails(c, http.StatusUnprocessableEntity, "validation_failed", errors.New("validation failed"), ve.Errors)
		return
	}
	mapped := mapServiceError(err)
	if _, ok := apierr.As(mapped); !ok {
		log.Error(op+" failed", "error", err, "path", c.FullPath())
	}
	response.RespondAPIError(c, mapped)
}

// respondTransition writes the result of a state machine transition. A
// false result means the request was not in a state that allows it.
func respondTransition(c *gin.Context, log *logger.Logger, op string, ok bool, err error) {
	if err != nil {
		respondServiceError(c, log, op, err)
		return
	}
	if !ok {
		response.RespondAPIError(c, apierr.Conflict("precondition_failed", errPreconditionFailed))
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
