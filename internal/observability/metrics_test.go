package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestWritePrometheus(t *testing.T) {
	m := NewMetrics()
	m.ObserveAPI("GET", "/api/activities/:id", "200", 30*time.Millisecond)
	m.ObserveAPI("GET", "/api/activities/:id", "200", 2*time.Second)
	m.ObserveTask("dispatch", "ok", time.Second)
	m.ObserveTask("dispatch", "skipped", 0)
	m.AddDispatched(3)
	m.ObserveMail("smtp", "error", 100*time.Millisecond)
	m.ApiInflightInc()

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`recommend_api_requests_total{method="GET",route="/api/activities/:id",status="200"} 2`,
		`recommend_api_request_duration_seconds_bucket{method="GET",route="/api/activities/:id",status="200",le="0.05"} 1`,
		`recommend_api_request_duration_seconds_bucket{method="GET",route="/api/activities/:id",status="200",le="+Inf"} 2`,
		`recommend_api_inflight_requests 1`,
		`recommend_task_runs_total{task="dispatch",status="ok"} 1`,
		`recommend_task_runs_total{task="dispatch",status="skipped"} 1`,
		`recommend_task_duration_seconds_count{task="dispatch"} 1`,
		`recommend_requests_dispatched_total 3`,
		`recommend_mail_sends_total{transport="smtp",status="error"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/", "200", time.Millisecond)
	m.ObserveTask("dispatch", "ok", time.Millisecond)
	m.AddDispatched(1)
	m.ObserveMail("log", "ok", time.Millisecond)
	m.ApiInflightInc()
	m.ApiInflightDec()
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
}

func TestLabelEscaping(t *testing.T) {
	got := labelString([]string{"route"}, []string{"a\"b\\c\nd"})
	want := `{route="a\"b\\c\nd"}`
	if got != want {
		t.Fatalf("labelString: want=%s got=%s", want, got)
	}
	if got := withLe("", "1"); got != `{le="1"}` {
		t.Fatalf("withLe empty: %s", got)
	}
}

func TestParseHeaders(t *testing.T) {
	h := parseHeaders(" api-key = abc , broken, x=1")
	if len(h) != 2 || h["api-key"] != "abc" || h["x"] != "1" {
		t.Fatalf("parseHeaders: %v", h)
	}
	if parseHeaders("") != nil {
		t.Fatalf("parseHeaders empty: expected nil")
	}
	if clampRatio(2) != 1 || clampRatio(-1) != 0 {
		t.Fatalf("clampRatio")
	}
}
