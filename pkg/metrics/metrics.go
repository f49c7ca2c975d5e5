// Package metrics exposes parser activity as Prometheus collectors.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const namespace = "tmscope"

const labelScope = "scope"

// Collector records parses, incremental updates, runaway grammars and
// pattern cache use, labelled by grammar scope. Each Collector has its own
// registry, so several may coexist in one process.
type Collector struct {
	registry *prometheus.Registry

	parses        *prometheus.CounterVec
	parseSeconds  *prometheus.HistogramVec
	nodes         *prometheus.CounterVec
	updates       *prometheus.CounterVec
	updateSeconds *prometheus.HistogramVec
	runaways      *prometheus.CounterVec
	cacheHits     *prometheus.CounterVec
	cacheMisses   *prometheus.CounterVec
	files         *prometheus.CounterVec
}

// New creates a Collector with all metrics registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		parses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parses_total",
			Help:      "Full parses completed.",
		}, []string{labelScope}),
		parseSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "parse_duration_seconds",
			Help:      "Time spent in full parses.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{labelScope}),
		nodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_total",
			Help:      "Syntax nodes produced by full parses.",
		}, []string{labelScope}),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Incremental updates applied.",
		}, []string{labelScope}),
		updateSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_duration_seconds",
			Help:      "Time spent in incremental updates.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
		}, []string{labelScope}),
		runaways: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runaway_grammars_total",
			Help:      "Parses abandoned because the grammar made no progress.",
		}, []string{labelScope}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pattern_cache_hits_total",
			Help:      "Pattern searches answered from the result cache.",
		}, []string{labelScope}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pattern_cache_misses_total",
			Help:      "Pattern searches that had to run.",
		}, []string{labelScope}),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Files processed by the runner, by result.",
		}, []string{"result"}),
	}

	c.registry.MustRegister(
		c.parses, c.parseSeconds, c.nodes,
		c.updates, c.updateSeconds, c.runaways,
		c.cacheHits, c.cacheMisses, c.files,
	)
	return c
}

// Registry returns the registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// WriteText writes every metric in the Prometheus text format, as a
// node_exporter textfile collector expects it.
func (c *Collector) WriteText(w io.Writer) error {
	families, err := c.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// ObserveParse records a completed full parse.
func (c *Collector) ObserveParse(scope string, d time.Duration, nodes int) {
	c.parses.WithLabelValues(scope).Inc()
	c.parseSeconds.WithLabelValues(scope).Observe(d.Seconds())
	c.nodes.WithLabelValues(scope).Add(float64(nodes))
}

// ObserveUpdate records an incremental update.
func (c *Collector) ObserveUpdate(scope string, d time.Duration) {
	c.updates.WithLabelValues(scope).Inc()
	c.updateSeconds.WithLabelValues(scope).Observe(d.Seconds())
}

// ObserveRunaway records a parse abandoned by the iteration or depth limit.
func (c *Collector) ObserveRunaway(scope string) {
	c.runaways.WithLabelValues(scope).Inc()
}

// ObserveCache adds pattern cache counters.
func (c *Collector) ObserveCache(scope string, hits, misses int) {
	if hits > 0 {
		c.cacheHits.WithLabelValues(scope).Add(float64(hits))
	}
	if misses > 0 {
		c.cacheMisses.WithLabelValues(scope).Add(float64(misses))
	}
}

// ObserveFile records the outcome of one runner file.
func (c *Collector) ObserveFile(ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	c.files.WithLabelValues(result).Inc()
}

// Summary is a scope-independent total of the collected counters.
type Summary struct {
	Parses      int
	Updates     int
	Runaways    int
	Nodes       int
	CacheHits   int
	CacheMisses int
}

// HitRatio returns the share of pattern searches served from the cache.
func (s Summary) HitRatio() float64 {
	total := s.CacheHits + s.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(total)
}

// Summary sums every counter over all scopes.
func (c *Collector) Summary() (Summary, error) {
	families, err := c.registry.Gather()
	if err != nil {
		return Summary{}, err
	}

	var s Summary
	for _, mf := range families {
		total := sumCounters(mf)
		switch mf.GetName() {
		case namespace + "_parses_total":
			s.Parses = total
		case namespace + "_updates_total":
			s.Updates = total
		case namespace + "_runaway_grammars_total":
			s.Runaways = total
		case namespace + "_nodes_total":
			s.Nodes = total
		case namespace + "_pattern_cache_hits_total":
			s.CacheHits = total
		case namespace + "_pattern_cache_misses_total":
			s.CacheMisses = total
		}
	}
	return s, nil
}

func sumCounters(mf *dto.MetricFamily) int {
	var total float64
	for _, m := range mf.GetMetric() {
		total += m.GetCounter().GetValue()
	}
	return int(total)
}
