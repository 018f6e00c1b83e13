package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/perfgo/citriage/model"
)

const Namespace = "citriage"

// Recorder collects triage results into a private registry so a single CLI
// invocation can export them as a node exporter textfile.
type Recorder struct {
	registry *prometheus.Registry

	testRuns        *prometheus.CounterVec
	classifications *prometheus.CounterVec
	unfinished      prometheus.Counter
	logsParsed      prometheus.Counter
	runSeconds      *prometheus.HistogramVec
}

func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Recorder{
		registry: registry,
		testRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "test_runs_total",
			Help:      "Completed test runs by status",
		}, []string{"status"}),
		classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "classifications_total",
			Help:      "Triage tags assigned to failed test runs",
		}, []string{"classification"}),
		unfinished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "unfinished_runs_total",
			Help:      "Test runs whose terminal line never appeared",
		}),
		logsParsed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "logs_parsed_total",
			Help:      "Log steps parsed",
		}),
		runSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "test_run_seconds",
			Help:      "Reported test durations",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"status"}),
	}
}

// ObserveLog records the outcome of one parsed log step.
func (r *Recorder) ObserveLog(runs []*model.TestRun, unfinished []string) {
	r.logsParsed.Inc()
	r.unfinished.Add(float64(len(unfinished)))
	for _, run := range runs {
		r.testRuns.WithLabelValues(string(run.Status)).Inc()
		if run.RunSeconds != nil {
			r.runSeconds.WithLabelValues(string(run.Status)).Observe(*run.RunSeconds)
		}
		for _, c := range run.Classifications {
			r.classifications.WithLabelValues(string(c)).Inc()
		}
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes all metrics in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
