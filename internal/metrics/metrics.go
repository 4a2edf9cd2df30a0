// Package metrics defines the crate's Prometheus instrumentation. All
// metrics are optional: a nil *Metrics is safe to use everywhere a
// *Metrics is accepted, so crates opened without a Registerer pay no
// instrumentation cost.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every counter and gauge the crate exposes. Construct with
// New, passing the Registerer an embedder wants these registered against.
type Metrics struct {
	AppendedRecords prometheus.Counter
	AppendedBytes   prometheus.Counter
	ReadRecords     prometheus.Counter
	ReadBytes       prometheus.Counter
	SegmentRolls    prometheus.Counter
	Recoveries      prometheus.Counter
	RecoveredBytes  prometheus.Counter
	Segments        prometheus.Gauge
}

// New registers and returns a Metrics bound to reg. Passing nil is valid --
// promauto's default registerer is not used in that case since the
// returned value is never exercised by a crate that was not given a
// Registerer (see Options.WithRegisterer).
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AppendedRecords: factory.NewCounter(prometheus.CounterOpts{
			Name: "logcrate_appended_records_total",
			Help: "Total number of records successfully appended.",
		}),
		AppendedBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "logcrate_appended_bytes_total",
			Help: "Total number of record bytes (header + payload) written.",
		}),
		ReadRecords: factory.NewCounter(prometheus.CounterOpts{
			Name: "logcrate_read_records_total",
			Help: "Total number of records successfully read.",
		}),
		ReadBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "logcrate_read_bytes_total",
			Help: "Total number of payload bytes returned to readers.",
		}),
		SegmentRolls: factory.NewCounter(prometheus.CounterOpts{
			Name: "logcrate_segment_rolls_total",
			Help: "Total number of times a new active segment was created.",
		}),
		Recoveries: factory.NewCounter(prometheus.CounterOpts{
			Name: "logcrate_recoveries_total",
			Help: "Total number of times Open ran crash recovery over a crate directory.",
		}),
		RecoveredBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "logcrate_recovered_bytes_total",
			Help: "Total number of bytes indexed while scanning segments during recovery.",
		}),
		Segments: factory.NewGauge(prometheus.GaugeOpts{
			Name: "logcrate_segments",
			Help: "Current number of segment files in the crate directory.",
		}),
	}
}

// ObserveAppend implements writer.MetricsSink.
func (m *Metrics) ObserveAppend(records int, bytes int) {
	if m == nil {
		return
	}
	m.AppendedRecords.Add(float64(records))
	m.AppendedBytes.Add(float64(bytes))
}

// ObserveRoll implements writer.MetricsSink.
func (m *Metrics) ObserveRoll() {
	if m == nil {
		return
	}
	m.SegmentRolls.Inc()
	m.Segments.Inc()
}

// ObserveRead records a successful read of n records totaling bytes
// payload bytes.
func (m *Metrics) ObserveRead(records int, bytes int) {
	if m == nil {
		return
	}
	m.ReadRecords.Add(float64(records))
	m.ReadBytes.Add(float64(bytes))
}

// ObserveRecovery records one Open-time recovery scan that indexed
// segmentCount segments totaling bytes bytes.
func (m *Metrics) ObserveRecovery(segmentCount int, bytes int) {
	if m == nil {
		return
	}
	m.Recoveries.Inc()
	m.RecoveredBytes.Add(float64(bytes))
	m.Segments.Set(float64(segmentCount))
}
