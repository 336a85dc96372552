package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/yungbote/recommend-backend/internal/observability"
	"github.com/yungbote/recommend-backend/internal/platform/ctxutil"
)

func TestAttachTraceContextCapturesActivity(t *testing.T) {
	gin.SetMode(gin.TestMode)

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })

	var seen *ctxutil.TraceData
	r := gin.New()
	r.Use(func(c *gin.Context) {
		ctx, span := tp.Tracer("test").Start(c.Request.Context(), c.FullPath())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		span.End()
	})
	r.Use(AttachTraceContext())
	capture := func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusNoContent)
	}
	r.GET("/api/activities/:id/requests/:requestId", capture)
	r.GET("/api/recommend/:secret", capture)

	activityID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/activities/"+strings.ToUpper(activityID.String())+"/requests/"+uuid.NewString(), nil)
	req.Header.Set(headerRequestID, "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if seen == nil || seen.ActivityID != activityID.String() || seen.RequestID != "req-1" {
		t.Fatalf("trace data: %+v", seen)
	}
	if got := rec.Header().Get(headerRequestID); got != "req-1" {
		t.Fatalf("request id header: %q", got)
	}
	if rec.Header().Get(headerTraceID) == "" {
		t.Fatalf("missing trace id header")
	}
	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans: want=1 got=%d", len(spans))
	}
	var tagged bool
	for _, kv := range spans[0].Attributes() {
		if string(kv.Key) == attrActivityID && kv.Value.AsString() == activityID.String() {
			tagged = true
		}
	}
	if !tagged {
		t.Fatalf("span attributes: %v", spans[0].Attributes())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/recommend/abc", nil)
	req.Header.Set(headerRequestID, strings.Repeat("x", maxClientIDLength+1))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if seen == nil || seen.ActivityID != "" {
		t.Fatalf("secret route must not carry an activity id: %+v", seen)
	}
	if _, err := uuid.Parse(seen.RequestID); err != nil {
		t.Fatalf("oversized request id should be replaced, got %q", seen.RequestID)
	}
}

func TestTraceDataLogFields(t *testing.T) {
	var td *ctxutil.TraceData
	if f := td.LogFields(); len(f) != 0 {
		t.Fatalf("nil trace data: %v", f)
	}
	td = &ctxutil.TraceData{TraceID: "t", ActivityID: "a"}
	f := td.LogFields()
	if len(f) != 4 || f[0] != "trace_id" || f[2] != "activity_id" {
		t.Fatalf("fields: %v", f)
	}
}

func TestMetricsLabelsRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	m := observability.NewMetrics()
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/recommend/:secret", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/api/recommend/s1", "/api/recommend/s2", "/healthz", "/wp-login.php"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := m.APIRequests(http.MethodGet, "/api/recommend/:secret", "200"); got != 2 {
		t.Fatalf("templated route: want=2 got=%v", got)
	}
	if got := m.APIRequests(http.MethodGet, "unmatched", "404"); got != 1 {
		t.Fatalf("unmatched route: want=1 got=%v", got)
	}
	if got := m.APIRequests(http.MethodGet, "/healthz", "200"); got != 0 {
		t.Fatalf("healthz must not be recorded: got=%v", got)
	}
}
