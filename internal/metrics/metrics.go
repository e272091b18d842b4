package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"offerpilot/internal/logger"
	"offerpilot/pkg/model"
)

// Metrics 汇总一次运行的 Prometheus 指标，nil 接收者上的方法均为空操作
type Metrics struct {
	Registry     *prometheus.Registry
	ItemsTotal   *prometheus.CounterVec
	ItemDuration prometheus.Histogram
	ScanRounds   prometheus.Counter
	Discovered   prometheus.Gauge
	Attempts     prometheus.Counter
}

// New 在独立 registry 上创建并注册所有指标
func New() *Metrics {
	registry := prometheus.NewRegistry()

	items := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offerpilot_items_total",
			Help: "Items settled, by outcome.",
		},
		[]string{"outcome"},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "offerpilot_item_duration_seconds",
			Help:    "Time from trigger to settlement of one item.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 15, 30},
		},
	)
	rounds := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "offerpilot_scan_rounds_total",
			Help: "Lazy-load scan rounds performed.",
		},
	)
	discovered := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "offerpilot_discovered_items",
			Help: "Eligible items seen in the latest scan round.",
		},
	)
	attempts := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "offerpilot_trigger_attempts_total",
			Help: "Enroll controls clicked, including retries.",
		},
	)

	registry.MustRegister(items, duration, rounds, discovered, attempts)

	return &Metrics{
		Registry:     registry,
		ItemsTotal:   items,
		ItemDuration: duration,
		ScanRounds:   rounds,
		Discovered:   discovered,
		Attempts:     attempts,
	}
}

// ObserveItem 记录一个条目的结果
func (m *Metrics) ObserveItem(o model.Outcome, attempts int, d time.Duration) {
	if m == nil {
		return
	}
	m.ItemsTotal.WithLabelValues(string(o)).Inc()
	m.ItemDuration.Observe(d.Seconds())
	m.Attempts.Add(float64(attempts))
}

// ObserveRound 记录一轮扫描
func (m *Metrics) ObserveRound(count int) {
	if m == nil {
		return
	}
	m.ScanRounds.Inc()
	m.Discovered.Set(float64(count))
}

// Server 暴露 /metrics 的 HTTP 服务
type Server struct {
	srv *http.Server
	log logger.Logger
}

// Serve 在 addr 上后台启动指标服务
func Serve(addr string, m *Metrics, l logger.Logger) *Server {
	if l == nil {
		l = logger.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	s := &Server{
		srv: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		log: l,
	}
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Err(err, "指标服务异常退出", "addr", addr)
		}
	}()
	l.Info("指标服务已启动", "addr", addr)
	return s
}

// Shutdown 优雅关闭指标服务
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
