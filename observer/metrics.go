package observer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusObserver reports cache events as Prometheus counters, each
// registered with promauto.NewCounter.
type PrometheusObserver struct {
	hits    prometheus.Counter
	misses  prometheus.Counter
	fetches prometheus.Counter
	fetchBytes prometheus.Counter
	dirtyMarks  prometheus.Counter
	dirtyClears prometheus.Counter
	flushes      prometheus.Counter
	flushedItems prometheus.Counter
	flushedBytes prometheus.Counter
}

// NewPrometheusObserver registers the cache's counters under the given
// namespace (e.g. "scoutcache") and returns an Observer backed by them.
// Registering the same namespace twice against the default registry panics,
// matching promauto's own behavior — callers needing multiple cache
// instances should pass distinct namespaces.
func NewPrometheusObserver(namespace string) *PrometheusObserver {
	counter := func(name, help string) prometheus.Counter {
		return promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		})
	}
	return &PrometheusObserver{
		hits:         counter("lookup_hits_total", "Lookups that found a live item in the item index."),
		misses:       counter("lookup_misses_total", "Lookups that found the key covered with no live item."),
		fetches:      counter("segment_fetches_total", "Segment reader round trips triggered by a coverage miss."),
		fetchBytes:   counter("segment_fetch_window_bytes_total", "Sum of fetch window key-byte widths."),
		dirtyMarks:   counter("dirty_marks_total", "Items transitioned to dirty."),
		dirtyClears:  counter("dirty_clears_total", "Items transitioned to clean."),
		flushes:      counter("flushes_total", "DirtySeg calls."),
		flushedItems: counter("flushed_items_total", "Items written to a segment by DirtySeg."),
		flushedBytes: counter("flushed_bytes_total", "Key+value bytes written to a segment by DirtySeg."),
	}
}

func (p *PrometheusObserver) OnLookupHit()  { p.hits.Inc() }
func (p *PrometheusObserver) OnLookupMiss() { p.misses.Inc() }

func (p *PrometheusObserver) OnFetch(windowBytes int) {
	p.fetches.Inc()
	p.fetchBytes.Add(float64(windowBytes))
}

func (p *PrometheusObserver) OnDirtyMark()  { p.dirtyMarks.Inc() }
func (p *PrometheusObserver) OnDirtyClear() { p.dirtyClears.Inc() }

func (p *PrometheusObserver) OnFlush(items int, bytes int64) {
	p.flushes.Inc()
	p.flushedItems.Add(float64(items))
	p.flushedBytes.Add(float64(bytes))
}

var _ Observer = (*PrometheusObserver)(nil)
