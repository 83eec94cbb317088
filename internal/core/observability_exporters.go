package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// PrometheusMetricsRecorder counts operations by outcome and observes their
// latency. It fulfills MetricsRecorder.
type PrometheusMetricsRecorder struct {
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
}

// NewPrometheusMetricsRecorder registers the service collectors with reg.
// A nil registerer uses prometheus.DefaultRegisterer.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	rec := &PrometheusMetricsRecorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deskcore",
			Subsystem: "service",
			Name:      "operations_total",
			Help:      "Service operations by outcome.",
		}, []string{"operation", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "deskcore",
			Subsystem: "service",
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"operation"}),
	}
	for _, c := range []prometheus.Collector{rec.operations, rec.durations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// Observe records a service operation outcome.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.operations.WithLabelValues(operation, status).Inc()
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
}

// ZapTracer writes one debug entry per finished span, or a warning when the
// span ended with an error.
type ZapTracer struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewZapTracer constructs a tracer logging to l.
func NewZapTracer(l *zap.Logger) *ZapTracer {
	if l == nil {
		l = zap.NewNop()
	}
	return &ZapTracer{logger: l.Named("trace"), now: time.Now}
}

// Start implements the Tracer interface.
func (t *ZapTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &zapSpan{tracer: t, operation: operation, started: t.now()}
}

type zapSpan struct {
	tracer    *ZapTracer
	operation string
	started   time.Time
}

func (s *zapSpan) End(err error) {
	fields := []zap.Field{
		zap.String("operation", s.operation),
		zap.Duration("duration", s.tracer.now().Sub(s.started)),
	}
	if err != nil {
		s.tracer.logger.Warn("span failed", append(fields, zap.Error(err))...)
		return
	}
	s.tracer.logger.Debug("span", fields...)
}
