// Package metrics exposes Prometheus collectors for issuance.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kokukuma/mdoc-issuer/internal/log"
)

var logger = log.New("metrics")

const Namespace = "issuer"

const (
	IssuanceRequestsMetric = "issuance_requests_total"
	SigningDurationMetric  = "signing_duration_seconds"
	PipelineErrorsMetric   = "pipeline_errors_total"
)

// Issuance results.
const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

// LabelUnknown replaces doctype and format labels of requests that did not
// resolve to a configuration.
const LabelUnknown = "unknown"

// Metrics records issuance outcomes and signing latency.
type Metrics struct {
	issuanceRequests *prometheus.CounterVec
	signingDuration  prometheus.Histogram
	pipelineErrors   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		issuanceRequests: newCounterVec(
			IssuanceRequestsMetric,
			"The number of credential issuance requests by doctype, format and result.",
			"doctype", "format", "result",
		),
		signingDuration: newHistogram(
			SigningDurationMetric,
			"The time (in seconds) it takes the signing service to return a credential.",
		),
		pipelineErrors: newCounterVec(
			PipelineErrorsMetric,
			"The number of requests rejected by the claim mapping pipeline, by error kind.",
			"kind",
		),
	}

	reg.MustRegister(m.issuanceRequests, m.signingDuration, m.pipelineErrors)

	return m
}

func (m *Metrics) IssuanceRequest(docType, format, result string) {
	m.issuanceRequests.WithLabelValues(docType, format, result).Inc()
}

// SigningTime records the time for one signing call.
func (m *Metrics) SigningTime(value time.Duration) {
	m.signingDuration.Observe(value.Seconds())

	logger.Debug("signing time", log.WithDuration(value))
}

func (m *Metrics) PipelineError(kind string) {
	m.pipelineErrors.WithLabelValues(kind).Inc()
}

func newCounterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      name,
		Help:      help,
	}, labels)
}

func newHistogram(name, help string) prometheus.Histogram {
	return prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      name,
		Help:      help,
		Buckets:   prometheus.DefBuckets,
	})
}
