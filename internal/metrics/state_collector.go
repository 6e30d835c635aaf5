package metrics

import "github.com/prometheus/client_golang/prometheus"

// StateStatFunc returns state database statistics without importing the
// state package.
type StateStatFunc func() (open, idle, inUse int)

// stateCollector implements prometheus.Collector for state DB stats.
type stateCollector struct {
	statFunc StateStatFunc

	openDesc  *prometheus.Desc
	idleDesc  *prometheus.Desc
	inUseDesc *prometheus.Desc
}

// NewStateCollector creates a collector that exposes state DB gauges.
func NewStateCollector(statFunc StateStatFunc) prometheus.Collector {
	return &stateCollector{
		statFunc: statFunc,
		openDesc: prometheus.NewDesc(
			"mlconsole_state_open_conns",
			"Open connections to the state database.",
			nil, nil,
		),
		idleDesc: prometheus.NewDesc(
			"mlconsole_state_idle_conns",
			"Idle connections to the state database.",
			nil, nil,
		),
		inUseDesc: prometheus.NewDesc(
			"mlconsole_state_in_use_conns",
			"In-use connections to the state database.",
			nil, nil,
		),
	}
}

// Describe sends the descriptors of each metric to the channel.
func (c *stateCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.openDesc
	ch <- c.idleDesc
	ch <- c.inUseDesc
}

// Collect fetches DB stats and sends them as metrics.
func (c *stateCollector) Collect(ch chan<- prometheus.Metric) {
	open, idle, inUse := c.statFunc()
	ch <- prometheus.MustNewConstMetric(c.openDesc, prometheus.GaugeValue, float64(open))
	ch <- prometheus.MustNewConstMetric(c.idleDesc, prometheus.GaugeValue, float64(idle))
	ch <- prometheus.MustNewConstMetric(c.inUseDesc, prometheus.GaugeValue, float64(inUse))
}
