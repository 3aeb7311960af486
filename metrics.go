package secondary

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultFound   = "found"
	resultEmpty   = "empty"
	resultError   = "error"
	resultWritten = "written"
	resultSkipped = "skipped"
)

// metrics counts what extraction and injection do.  The counters always
// exist; they are only exported when a Registerer is configured.
type metrics struct {
	extractions   *prometheus.CounterVec
	parseFailures prometheus.Counter
	provisioned   prometheus.Counter
	injections    *prometheus.CounterVec
}

func newMetrics() *metrics {
	return &metrics{
		extractions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secondary_sampling_extractions_total",
				Help: "Total number of extractions, by whether secondary sampling state resulted",
			},
			[]string{"result"},
		),
		parseFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "secondary_sampling_parse_failures_total",
				Help: "Total number of inbound sampling fields that could not be parsed",
			},
		),
		provisioned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "secondary_sampling_provisioned_states_total",
				Help: "Total number of states added by the provisioner",
			},
		),
		injections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secondary_sampling_injections_total",
				Help: "Total number of injections, by whether the sampling field was written",
			},
			[]string{"result"},
		),
	}
}

func (m *metrics) register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.extractions, m.parseFailures, m.provisioned, m.injections} {
		if err := reg.Register(c); err != nil {
			return errors.Wrap(err, "register secondary sampling metrics")
		}
	}
	return nil
}
