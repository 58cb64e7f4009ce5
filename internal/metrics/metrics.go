// 包 metrics 提供 Prometheus 指标：运动员抓取、写库、名单抓取与 HTTP 请求。
// 所有方法对 nil *Manager 安全，未启用指标时可直接传 nil。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "xc"

// 写库操作标签
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpSkip   = "skip"
	OpError  = "error"
)

// Manager 持有全部指标与其注册表。
type Manager struct {
	gatherer prometheus.Gatherer

	athleteFetches *prometheus.CounterVec
	upserts        *prometheus.CounterVec
	rosterFetches  *prometheus.CounterVec
	rosterSize     *prometheus.HistogramVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New 在给定注册表上创建指标；reg 为 nil 时新建独立注册表。
func New(reg *prometheus.Registry) *Manager {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	auto := promauto.With(reg)
	return &Manager{
		gatherer: reg,
		athleteFetches: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "athlete_fetches_total",
			Help:      "Athlete bio fetches by source and outcome.",
		}, []string{"source", "outcome"}),
		upserts: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "athlete_upserts_total",
			Help:      "Store writes by operation.",
		}, []string{"op"}),
		rosterFetches: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "roster_fetches_total",
			Help:      "Roster/race enumerations by kind and outcome.",
		}, []string{"kind", "outcome"}),
		rosterSize: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "roster_athletes",
			Help:      "Athlete identifiers returned per enumeration.",
			Buckets:   []float64{0, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"kind"}),
		httpRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

func (m *Manager) AthleteFetched(source, outcome string) {
	if m == nil {
		return
	}
	m.athleteFetches.WithLabelValues(source, outcome).Inc()
}

func (m *Manager) Upsert(op string) {
	if m == nil {
		return
	}
	m.upserts.WithLabelValues(op).Inc()
}

// RosterFetched 记录一次名单枚举及其返回的人数（失败时 n 为 0）。
func (m *Manager) RosterFetched(kind, outcome string, n int) {
	if m == nil {
		return
	}
	m.rosterFetches.WithLabelValues(kind, outcome).Inc()
	m.rosterSize.WithLabelValues(kind).Observe(float64(n))
}

// Middleware 记录请求数与耗时，route 取 chi 路由模板，避免把 ID 放进标签。
func (m *Manager) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// Handler 返回 /metrics 的导出处理器。
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
