// Package metrics exposes Prometheus collectors for the rayvn
// toolchain: a registry of compile and run statistics so
// `rayvn run --metrics-addr` can be scraped like any other service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for one toolchain process.
type Metrics struct {
	compilesTotal  *prometheus.CounterVec
	compileSeconds prometheus.Histogram
	runsTotal      *prometheus.CounterVec
	runSeconds     prometheus.Histogram
	instructions   prometheus.Counter
	opcodesTotal   *prometheus.CounterVec
	haltsTotal     *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers the toolchain's collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{registry: registry}

	m.compilesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rayvn",
			Name:      "compiles_total",
			Help:      "Total number of source compilations, by outcome.",
		},
		[]string{"outcome"},
	)

	m.compileSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "rayvn",
			Name:      "compile_duration_seconds",
			Help:      "Time spent compiling a source file to bytecode.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	m.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rayvn",
			Name:      "runs_total",
			Help:      "Total number of program executions, by outcome.",
		},
		[]string{"outcome"},
	)

	m.runSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "rayvn",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock time spent executing a compiled chunk.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	m.instructions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rayvn",
			Name:      "instructions_executed_total",
			Help:      "Total bytecode instructions dispatched across all runs.",
		},
	)

	m.opcodesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rayvn",
			Name:      "opcodes_executed_total",
			Help:      "Total bytecode instructions dispatched, broken down by opcode.",
		},
		[]string{"opcode"},
	)

	m.haltsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rayvn",
			Name:      "halts_total",
			Help:      "Total VM terminations, by cause.",
		},
		[]string{"cause"},
	)

	registry.MustRegister(m.compilesTotal, m.compileSeconds, m.runsTotal, m.runSeconds,
		m.instructions, m.opcodesTotal, m.haltsTotal)

	return m
}

// RecordCompile records one compile attempt's outcome and duration.
func (m *Metrics) RecordCompile(ok bool, d time.Duration) {
	m.compilesTotal.WithLabelValues(outcome(ok)).Inc()
	m.compileSeconds.Observe(d.Seconds())
}

// RecordRun records one program execution's outcome and duration.
func (m *Metrics) RecordRun(ok bool, d time.Duration) {
	m.runsTotal.WithLabelValues(outcome(ok)).Inc()
	m.runSeconds.Observe(d.Seconds())
}

// RecordDispatch records one dispatch of the named opcode (e.g.
// "ADD", "CALL"), called by the VM's dispatch loop once per
// instruction actually executed. It both bumps the lifetime
// dispatched-instruction counter and breaks that count down by
// opcode, so it satisfies vm.MetricsSink on its own.
func (m *Metrics) RecordDispatch(opcode string) {
	m.instructions.Inc()
	m.opcodesTotal.WithLabelValues(opcode).Inc()
}

// RecordHalt records why the VM stopped: "halt" (ran off a HALT
// opcode), "return" (a top-level RETURN with no caller to resume),
// "end-of-stream" (ip ran past the last instruction, e.g. a REPL
// snippet with no trailing HALT), or "error" (a RuntimeError aborted
// execution).
func (m *Metrics) RecordHalt(cause string) {
	m.haltsTotal.WithLabelValues(cause).Inc()
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// Handler returns an HTTP handler serving this process's metrics in
// the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
