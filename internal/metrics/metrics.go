// Package metrics exports admin operation telemetry.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder captures telemetry for admin operations and the platform edits
// they issue.
type Recorder interface {
	RecordOperation(op string, duration time.Duration, err error)
	RecordPermissionEdit(class string, err error)
	RecordPurge(err error)
	RecordRoleRemoval(err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordOperation(string, time.Duration, error) {}
func (nopRecorder) RecordPermissionEdit(string, error)           {}
func (nopRecorder) RecordPurge(error)                            {}
func (nopRecorder) RecordRoleRemoval(error)                      {}

// Nop returns a recorder that drops everything.
func Nop() Recorder { return nopRecorder{} }

// OrNop returns r, or a no-op recorder when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop()
	}
	return r
}

// PrometheusRecorder exports metrics to Prometheus.
type PrometheusRecorder struct {
	operationDuration *prometheus.HistogramVec
	operationErrors   *prometheus.CounterVec
	permissionEdits   *prometheus.CounterVec
	purges            *prometheus.CounterVec
	roleRemovals      *prometheus.CounterVec
}

// NewPrometheus registers the admin metrics on reg.
func NewPrometheus(namespace string, reg prometheus.Registerer) (*PrometheusRecorder, error) {
	if namespace == "" {
		namespace = "motive_bot"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &PrometheusRecorder{
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "admin_operation_duration_seconds",
			Help:      "Latency of admin operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		operationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_operation_errors_total",
			Help:      "Admin operations that finished with at least one error.",
		}, []string{"operation"}),
		permissionEdits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "permission_edits_total",
			Help:      "Channel permission edits by channel class and result.",
		}, []string{"class", "result"}),
		purges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_purges_total",
			Help:      "Channel purges by result.",
		}, []string{"result"}),
		roleRemovals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "role_removals_total",
			Help:      "Character role removals by result.",
		}, []string{"result"}),
	}
	var err error
	if r.operationDuration, err = register(reg, r.operationDuration); err != nil {
		return nil, err
	}
	for _, c := range []**prometheus.CounterVec{&r.operationErrors, &r.permissionEdits, &r.purges, &r.roleRemovals} {
		if *c, err = register(reg, *c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// register adds c to reg. When an identical collector is already registered
// that one is returned, so recorders built twice share exported series.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return c, fmt.Errorf("register admin metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(C)
	if !ok {
		return c, fmt.Errorf("register admin metric: existing collector is %T", are.ExistingCollector)
	}
	return existing, nil
}

func (r *PrometheusRecorder) RecordOperation(op string, duration time.Duration, err error) {
	if r == nil {
		return
	}
	r.operationDuration.WithLabelValues(op).Observe(duration.Seconds())
	if err != nil {
		r.operationErrors.WithLabelValues(op).Inc()
	}
}

func (r *PrometheusRecorder) RecordPermissionEdit(class string, err error) {
	if r == nil {
		return
	}
	r.permissionEdits.WithLabelValues(class, result(err)).Inc()
}

func (r *PrometheusRecorder) RecordPurge(err error) {
	if r == nil {
		return
	}
	r.purges.WithLabelValues(result(err)).Inc()
}

func (r *PrometheusRecorder) RecordRoleRemoval(err error) {
	if r == nil {
		return
	}
	r.roleRemovals.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
