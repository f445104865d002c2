// Package metrics exposes the prometheus collectors tracking automod and
// warning activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the moderation counters. Create one per process and
// register it once.
type Collector struct {
	DecisionCounter          *prometheus.CounterVec
	ClassifierFailureCounter *prometheus.CounterVec
	WarningsIssuedCounter    prometheus.Counter
}

func NewCollector() *Collector {
	return &Collector{
		DecisionCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "gwarden_automod_decision_total", Help: "Messages matched per automod rule"},
			[]string{"rule"}),

		ClassifierFailureCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "gwarden_classifier_failure_total", Help: "External classifier failures treated as non-matches"},
			[]string{"service"}),

		WarningsIssuedCounter: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "gwarden_warnings_issued_total", Help: "Total warnings issued"}),
	}
}

// Register attaches every collector to the given registry.
func (c *Collector) Register(registry prometheus.Registerer) error {
	for _, metric := range []prometheus.Collector{
		c.DecisionCounter,
		c.ClassifierFailureCounter,
		c.WarningsIssuedCounter,
	} {
		if errRegister := registry.Register(metric); errRegister != nil {
			return errRegister //nolint:wrapcheck
		}
	}

	return nil
}
