package ctxutil

import "context"

type traceDataKey struct{}

// TraceData identifies one inbound call. ActivityID is set for routes scoped
// to a recommend activity.
type TraceData struct {
	TraceID    string
	RequestID  string
	ActivityID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	val := ctx.Value(traceDataKey{})
	if td, ok := val.(*TraceData); ok {
		return td
	}
	return nil
}

// LogFields returns the non-empty identifiers as logger key/value pairs.
func (td *TraceData) LogFields() []interface{} {
	if td == nil {
		return nil
	}
	var out []interface{}
	if td.TraceID != "" {
		out = append(out, "trace_id", td.TraceID)
	}
	if td.RequestID != "" {
		out = append(out, "request_id", td.RequestID)
	}
	if td.ActivityID != "" {
		out = append(out, "activity_id", td.ActivityID)
	}
	return out
}
