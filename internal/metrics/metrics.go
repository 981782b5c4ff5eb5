package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	downloadAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dreamlauncher",
			Name:      "download_attempts_total",
			Help:      "Installer download attempts per mirror source and result.",
		}, []string{"source", "result"},
	)
	downloadSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dreamlauncher",
			Name:      "download_seconds",
			Help:      "Wall time of a single mirror fetch.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 6, 10},
		}, []string{"source"},
	)
	installs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dreamlauncher",
			Name:      "installs_total",
			Help:      "Installer runs by verification result.",
		}, []string{"result"},
	)
	launches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dreamlauncher",
			Name:      "launches_total",
			Help:      "Runtime launch attempts by result.",
		}, []string{"result"},
	)
	livenessChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dreamlauncher",
			Name:      "liveness_checks_total",
			Help:      "Liveness queries by mode (handle, enumeration) and answer.",
		}, []string{"mode", "result"},
	)
	presencePublishes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dreamlauncher",
			Name:      "presence_publish_total",
			Help:      "Presence publish attempts by result.",
		}, []string{"result"},
	)
	runtimeRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dreamlauncher",
			Name:      "runtime_running",
			Help:      "1 while the last liveness answer was running, 0 otherwise.",
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{downloadAttempts, downloadSeconds, installs, launches, livenessChecks, presencePublishes, runtimeRunning}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

func ObserveDownload(source string, ok bool, seconds float64) {
	if regOK.Load() {
		downloadAttempts.WithLabelValues(source, result(ok)).Inc()
		downloadSeconds.WithLabelValues(source).Observe(seconds)
	}
}

func IncInstall(ok bool) {
	if regOK.Load() {
		installs.WithLabelValues(result(ok)).Inc()
	}
}

func IncLaunch(ok bool) {
	if regOK.Load() {
		launches.WithLabelValues(result(ok)).Inc()
	}
}

func ObserveLiveness(mode string, running bool) {
	if regOK.Load() {
		r := "not_running"
		if running {
			r = "running"
		}
		livenessChecks.WithLabelValues(mode, r).Inc()
	}
}

func IncPresencePublish(ok bool) {
	if regOK.Load() {
		presencePublishes.WithLabelValues(result(ok)).Inc()
	}
}

func SetRuntimeRunning(running bool) {
	if regOK.Load() {
		var v float64
		if running {
			v = 1
		}
		runtimeRunning.Set(v)
	}
}
