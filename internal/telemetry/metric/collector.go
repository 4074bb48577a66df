package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CacheSource reports the size of the content cache.
type CacheSource interface {
	Len() int
	Aliases() int
	Bytes() int64
}

// CacheCollector reports content cache gauges at scrape time.
type CacheCollector struct {
	src CacheSource

	files   *prometheus.Desc
	aliases *prometheus.Desc
	bytes   *prometheus.Desc
}

// NewCacheCollector creates a collector over src.
func NewCacheCollector(src CacheSource) *CacheCollector {
	return &CacheCollector{
		src: src,
		files: prometheus.NewDesc(prometheus.BuildFQName(namespace, "cache", "files"),
			"Files held in the content cache.", nil, nil),
		aliases: prometheus.NewDesc(prometheus.BuildFQName(namespace, "cache", "aliases"),
			"Directory alias keys in the content cache.", nil, nil),
		bytes: prometheus.NewDesc(prometheus.BuildFQName(namespace, "cache", "bytes"),
			"Content bytes held in the content cache.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *CacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.files
	ch <- c.aliases
	ch <- c.bytes
}

// Collect implements prometheus.Collector.
func (c *CacheCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.files, prometheus.GaugeValue, float64(c.src.Len()))
	ch <- prometheus.MustNewConstMetric(c.aliases, prometheus.GaugeValue, float64(c.src.Aliases()))
	ch <- prometheus.MustNewConstMetric(c.bytes, prometheus.GaugeValue, float64(c.src.Bytes()))
}
