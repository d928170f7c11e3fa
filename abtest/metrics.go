package abtest

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector 把实验计数暴露为 Prometheus 指标（按 variant 打标）。
// 计数本身是 atomic 快照读取，Collect 不加锁。
type Collector struct {
	fw *Framework

	impressions *prometheus.Desc
	clicks      *prometheus.Desc
	conversions *prometheus.Desc
}

// NewCollector 创建实验指标采集器；由调用方注册到 Registry。
func NewCollector(fw *Framework) *Collector {
	return &Collector{
		fw: fw,
		impressions: prometheus.NewDesc(
			"abtest_impressions_total",
			"Recommendation lists served per experiment variant.",
			[]string{"variant"}, nil,
		),
		clicks: prometheus.NewDesc(
			"abtest_clicks_total",
			"Recommendation clicks per experiment variant.",
			[]string{"variant"}, nil,
		),
		conversions: prometheus.NewDesc(
			"abtest_conversions_total",
			"Recommendation conversions per experiment variant.",
			[]string{"variant"}, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.impressions
	ch <- c.clicks
	ch <- c.conversions
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for v, s := range c.fw.Snapshot() {
		ch <- prometheus.MustNewConstMetric(c.impressions, prometheus.CounterValue, float64(s.Impressions), v)
		ch <- prometheus.MustNewConstMetric(c.clicks, prometheus.CounterValue, float64(s.Clicks), v)
		ch <- prometheus.MustNewConstMetric(c.conversions, prometheus.CounterValue, float64(s.Conversions), v)
	}
}

var _ prometheus.Collector = (*Collector)(nil)
