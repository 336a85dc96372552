package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/recommend-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"

	// Longer client supplied ids are replaced.
	maxClientIDLength = 128

	attrActivityID = "recommend.activity_id"
)

// AttachTraceContext stores trace, request and activity ids on the request
// context and echoes the first two as response headers. The activity id is
// also set on the active span.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := clientID(c.GetHeader(headerRequestID))
		if reqID == "" {
			reqID = uuid.New().String()
		}
		span := trace.SpanFromContext(c.Request.Context())
		traceID := clientID(c.GetHeader(headerTraceID))
		if traceID == "" {
			if sc := span.SpanContext(); sc.HasTraceID() {
				traceID = sc.TraceID().String()
			}
		}
		if traceID == "" {
			traceID = uuid.New().String()
		}
		td := &ctxutil.TraceData{
			TraceID:    traceID,
			RequestID:  reqID,
			ActivityID: activityParam(c),
		}
		if td.ActivityID != "" {
			span.SetAttributes(attribute.String(attrActivityID, td.ActivityID))
			c.Set("activity_id", td.ActivityID)
		}
		c.Request = c.Request.WithContext(ctxutil.WithTraceData(c.Request.Context(), td))
		c.Set("trace_id", traceID)
		c.Set("request_id", reqID)
		c.Writer.Header().Set(headerTraceID, traceID)
		c.Writer.Header().Set(headerRequestID, reqID)
		c.Next()
	}
}

func clientID(v string) string {
	v = strings.TrimSpace(v)
	if len(v) > maxClientIDLength {
		return ""
	}
	return v
}

// activityParam returns the canonical :id of an /activities/:id route, or ""
// when the route has none or the value is not a uuid.
func activityParam(c *gin.Context) string {
	if !strings.Contains(c.FullPath(), "/activities/:id") {
		return ""
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil || id == uuid.Nil {
		return ""
	}
	return id.String()
}
