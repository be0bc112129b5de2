package thames

import (
	"errors"
	"net/http"
	"time"

	"github.com/maxhlc/thames/algebra"
	"github.com/maxhlc/thames/integrator"
	"github.com/maxhlc/thames/propagator"
	"github.com/maxhlc/thames/tools"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	propagationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thames_propagations_total",
			Help: "Total number of propagations by outcome.",
		},
		[]string{"equations", "algebra", "outcome"},
	)

	propagationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thames_propagation_duration_seconds",
			Help:    "Wall time of successful propagations in seconds.",
			Buckets: prometheus.ExponentialBuckets(1e-3, 4, 10),
		},
		[]string{"equations", "algebra"},
	)

	derivativeEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thames_derivative_evaluations_total",
			Help: "Total number of evaluations of the equations of motion.",
		},
		[]string{"equations", "algebra"},
	)

	rejectedStepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thames_rejected_steps_total",
			Help: "Total number of rejected adaptive steps.",
		},
		[]string{"equations", "algebra"},
	)
)

func init() {
	prometheus.MustRegister(propagationsTotal)
	prometheus.MustRegister(propagationDurationSeconds)
	prometheus.MustRegister(derivativeEvaluationsTotal)
	prometheus.MustRegister(rejectedStepsTotal)
}

// MetricsHandler returns the Prometheus metrics HTTP handler.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// outcome classifies the result of a propagation for the metrics labels.
func outcome(err error) string {
	var algErr *algebra.Error
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, integrator.ErrStepSizeUnderflow):
		return "step_underflow"
	case errors.Is(err, integrator.ErrDynamicsEvaluation):
		return "dynamics"
	case errors.Is(err, tools.ErrConvergenceFailure):
		return "convergence"
	case errors.As(err, &algErr):
		return "algebra"
	default:
		return "other"
	}
}

func observePropagation(equations propagator.Formulation, alg string, d time.Duration, stats integrator.Stats, err error) {
	eq := equations.String()
	propagationsTotal.WithLabelValues(eq, alg, outcome(err)).Inc()
	derivativeEvaluationsTotal.WithLabelValues(eq, alg).Add(float64(stats.Evaluations))
	rejectedStepsTotal.WithLabelValues(eq, alg).Add(float64(stats.Rejections))
	if err == nil {
		propagationDurationSeconds.WithLabelValues(eq, alg).Observe(d.Seconds())
	}
}

// algebraName returns the metrics label of an algebra.
func algebraName[T algebra.Number[T]]() string {
	var zero T
	switch any(zero).(type) {
	case algebra.Real:
		return "real"
	case algebra.Taylor:
		return "taylor"
	case algebra.Chebyshev:
		return "chebyshev"
	default:
		return "other"
	}
}
