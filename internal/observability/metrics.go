package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/recommend-backend/internal/platform/envutil"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	taskRuns    *CounterVec
	taskLatency *HistogramVec

	requestsDispatched *Counter
	mailSends          *CounterVec
	mailLatency        *HistogramVec

	pgStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

// Current is nil until Init succeeds; every method is nil safe.
func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	d := envutil.Duration("METRICS_SCRAPE_INTERVAL", 15*time.Second)
	if d < time.Second {
		return time.Second
	}
	return d
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

// NewMetrics builds an unregistered set; Init installs the process-wide one.
func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("recommend_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"recommend_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		apiInflight: NewGauge("recommend_api_inflight_requests", "In-flight API requests."),
		taskRuns:    NewCounterVec("recommend_task_runs_total", "Background task runs by task/status.", []string{"task", "status"}),
		taskLatency: NewHistogramVec(
			"recommend_task_duration_seconds",
			"Background task duration in seconds by task.",
			[]string{"task"},
			[]float64{0.05, 0.1, 0.5, 1, 5, 15, 60},
		),
		requestsDispatched: NewCounter("recommend_requests_dispatched_total", "Recommendation requests emailed to recommenders."),
		mailSends:          NewCounterVec("recommend_mail_sends_total", "Outgoing emails by transport/status.", []string{"transport", "status"}),
		mailLatency: NewHistogramVec(
			"recommend_mail_send_duration_seconds",
			"Email send latency in seconds by transport.",
			[]string{"transport"},
			[]float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		),
		pgStats:   NewGaugeVec("recommend_postgres_pool", "Postgres connection pool stats.", []string{"stat"}),
		redisUp:   NewGauge("recommend_redis_up", "1 when the last redis ping succeeded."),
		redisPing: NewGauge("recommend_redis_ping_seconds", "Last redis ping latency in seconds."),
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []collector{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.taskRuns, m.taskLatency,
		m.requestsDispatched, m.mailSends, m.mailLatency,
		m.pgStats, m.redisUp, m.redisPing,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// ObserveTask records one background task run; status is "ok", "error",
// "panic" or "skipped".
func (m *Metrics) ObserveTask(task, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.taskRuns.Inc(task, status)
	if status != "skipped" {
		m.taskLatency.Observe(dur.Seconds(), task)
	}
}

func (m *Metrics) AddDispatched(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.requestsDispatched.Add(float64(n))
}

func (m *Metrics) ObserveMail(transport, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.mailSends.Inc(transport, status)
	m.mailLatency.Observe(dur.Seconds(), transport)
}

// MailSends returns the recorded send count for transport and status.
func (m *Metrics) APIRequests(method, route, status string) float64 {
	if m == nil {
		return 0
	}
	return m.apiRequests.Value(method, route, status)
}

func (m *Metrics) MailSends(transport, status string) float64 {
	if m == nil {
		return 0
	}
	return m.mailSends.Value(transport, status)
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		if log != nil {
			log.Warn("metrics: postgres collector disabled", "error", err)
		}
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st := sqlDB.Stats()
				m.pgStats.Set(float64(st.OpenConnections), "open")
				m.pgStats.Set(float64(st.InUse), "in_use")
				m.pgStats.Set(float64(st.Idle), "idle")
				m.pgStats.Set(float64(st.WaitCount), "wait_count")
				m.pgStats.Set(st.WaitDuration.Seconds(), "wait_seconds")
			}
		}
	}()
}

// StartRedisCollector pings the shared client; it never closes it.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb goredis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
