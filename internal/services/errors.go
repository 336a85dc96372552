package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrAlreadySubmitted = errors.New("already submitted")
	ErrLimitReached     = errors.New("request limit reached")
	ErrInvalidAnswer    = errors.New("invalid answer")
	ErrInvalidInput     = errors.New("invalid input")
)

// Messages attached to rejected rows of an add-requests batch.
const (
	MsgEmailMissing     = "email missing"
	MsgEmailNotValid    = "email not valid"
	MsgDuplicateEmail   = "duplicate email"
	MsgEmailAlreadyUsed = "email already used"
)

type FieldError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// RequestValidationError lists every rejected row of a batch. Nothing in the
// batch was stored.
type RequestValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (e *RequestValidationError) Error() string {
	if e == nil || len(e.Errors) == 0 {
		return "request validation failed"
	}
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fmt.Sprintf("row %d %s: %s", fe.Row, fe.Field, fe.Message))
	}
	return "request validation failed: " + strings.Join(parts, "; ")
}
