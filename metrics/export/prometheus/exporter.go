package prometheus

import (
	"net/http"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metricsSource interface {
	MetricsSnapshot() goSession.MetricsSnapshot
}

type counterDesc struct {
	id   goSession.MetricID
	desc *prom.Desc
}

// Collector is a prom.Collector that reads an engine snapshot on every
// scrape. It keeps no state of its own.
type Collector struct {
	source     metricsSource
	counters   []counterDesc
	histograms []counterDesc
}

// NewCollector builds descriptors for every engine series.
func NewCollector(source metricsSource) *Collector {
	c := &Collector{
		source:     source,
		counters:   make([]counterDesc, 0, len(internaldefs.CounterDefs)),
		histograms: make([]counterDesc, 0, len(internaldefs.HistogramDefs)),
	}
	for _, def := range internaldefs.CounterDefs {
		c.counters = append(c.counters, counterDesc{id: def.ID, desc: prom.NewDesc(def.Name, def.Help, nil, nil)})
	}
	for _, def := range internaldefs.HistogramDefs {
		c.histograms = append(c.histograms, counterDesc{id: def.ID, desc: prom.NewDesc(def.Name, def.Help, nil, nil)})
	}
	return c
}

func (c *Collector) Describe(ch chan<- *prom.Desc) {
	for _, cd := range c.counters {
		ch <- cd.desc
	}
	for _, hd := range c.histograms {
		ch <- hd.desc
	}
}

// Collect emits nothing while engine metrics are disabled.
func (c *Collector) Collect(ch chan<- prom.Metric) {
	if c.source == nil {
		return
	}
	snapshot := c.source.MetricsSnapshot()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 {
		return
	}

	for _, cd := range c.counters {
		ch <- prom.MustNewConstMetric(cd.desc, prom.CounterValue, float64(snapshot.Counters[cd.id]))
	}

	for _, hd := range c.histograms {
		h := snapshot.Histograms[hd.id]
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(h.Buckets))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramUpperBounds))
		for i, le := range internaldefs.HistogramUpperBounds {
			buckets[le] = cumulative[i]
		}
		ch <- prom.MustNewConstHistogram(hd.desc, cumulative[len(cumulative)-1], h.Sum.Seconds(), buckets)
	}
}

// PrometheusExporter owns a private registry holding one Collector.
type PrometheusExporter struct {
	registry *prom.Registry
}

// NewPrometheusExporter exports the metrics of engine.
func NewPrometheusExporter(engine *goSession.Engine) *PrometheusExporter {
	return NewPrometheusExporterFromSource(engine)
}

// NewPrometheusExporterFromSource exports any snapshot source.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	reg := prom.NewRegistry()
	reg.MustRegister(NewCollector(source))
	return &PrometheusExporter{registry: reg}
}

// Registry exposes the private registry so callers can add process or Go
// runtime collectors next to the engine series.
func (p *PrometheusExporter) Registry() *prom.Registry {
	return p.registry
}

// Handler serves the registry in the exposition format the scraper asks for.
func (p *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
