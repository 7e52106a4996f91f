package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gohttpd"

// descriptor pairs a Prometheus description with the value it reports.
type descriptor struct {
	desc  *prometheus.Desc
	kind  prometheus.ValueType
	value func(*Collector) int64
}

func newDesc(name, help string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, nil)
}

var descriptors = []descriptor{
	{newDesc("connections_active", "Connections currently holding a slot."),
		prometheus.GaugeValue, func(c *Collector) int64 { return c.connectionsActive.Load() }},
	{newDesc("connections_total", "Connections admitted."),
		prometheus.CounterValue, func(c *Collector) int64 { return c.connectionsTotal.Load() }},
	{newDesc("connections_rejected_total", "Connections turned away at the connection cap."),
		prometheus.CounterValue, func(c *Collector) int64 { return c.connectionsRejected.Load() }},
	{newDesc("requests_total", "Complete requests passed to the handler."),
		prometheus.CounterValue, func(c *Collector) int64 { return c.requestsTotal.Load() }},
	{newDesc("parse_errors_total", "Requests rejected by the parser."),
		prometheus.CounterValue, func(c *Collector) int64 { return c.parseErrors.Load() }},
	{newDesc("missing_responses_total", "Requests for which the handler produced no response."),
		prometheus.CounterValue, func(c *Collector) int64 { return c.missingResponses.Load() }},
	{newDesc("send_errors_total", "Response writes aborted by a send failure."),
		prometheus.CounterValue, func(c *Collector) int64 { return c.sendErrors.Load() }},
	{newDesc("received_bytes_total", "Bytes read from connections."),
		prometheus.CounterValue, func(c *Collector) int64 { return c.bytesIn.Load() }},
	{newDesc("sent_bytes_total", "Bytes written to connections."),
		prometheus.CounterValue, func(c *Collector) int64 { return c.bytesOut.Load() }},
	{newDesc("restarts_total", "Server restarts after a fatal worker exit."),
		prometheus.CounterValue, func(c *Collector) int64 { return c.restarts.Load() }},
	{newDesc("errors_total", "Fatal errors recorded."),
		prometheus.CounterValue, func(c *Collector) int64 { return c.errorsTotal.Load() }},
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range descriptors {
		ch <- d.desc
	}
}

// Collect implements prometheus.Collector.  A nil Collector reports
// nothing.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c == nil {
		return
	}
	for _, d := range descriptors {
		ch <- prometheus.MustNewConstMetric(d.desc, d.kind, float64(d.value(c)))
	}
}

var _ prometheus.Collector = (*Collector)(nil)
