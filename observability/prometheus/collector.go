package prometheus

import (
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/chillerno1/awaits"
)

// A Collector exports the per-room counters of a keeper as Prometheus
// metrics. It reads the counters on every scrape; nothing is buffered.
type Collector struct {
	keeper *awaits.Keeper

	submitted  *prom.Desc
	successful *prom.Desc
	failed     *prom.Desc
	waiting    *prom.Desc
	workers    *prom.Desc
}

var _ prom.Collector = (*Collector)(nil)

// NewCollector creates a collector over the given keeper. A nil keeper
// observes the package default keeper.
func NewCollector(keeper *awaits.Keeper) *Collector {
	if keeper == nil {
		keeper = awaits.Default()
	}

	labels := []string{"room"}

	return &Collector{
		keeper: keeper,
		submitted: prom.NewDesc(
			"awaits_room_tasks_submitted_total",
			"Total number of tasks accepted by the room.",
			labels, nil,
		),
		successful: prom.NewDesc(
			"awaits_room_tasks_successful_total",
			"Total number of tasks that completed without an error.",
			labels, nil,
		),
		failed: prom.NewDesc(
			"awaits_room_tasks_failed_total",
			"Total number of tasks that completed with an error or captured panic.",
			labels, nil,
		),
		waiting: prom.NewDesc(
			"awaits_room_tasks_waiting",
			"Number of accepted tasks that have not started executing yet.",
			labels, nil,
		),
		workers: prom.NewDesc(
			"awaits_room_workers",
			"Number of worker goroutines owned by the room.",
			labels, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prom.Desc) {
	ch <- c.submitted
	ch <- c.successful
	ch <- c.failed
	ch <- c.waiting
	ch <- c.workers
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prom.Metric) {
	for _, room := range c.keeper.Rooms() {
		stats := room.Stats()

		ch <- prom.MustNewConstMetric(c.submitted, prom.CounterValue, float64(stats.Submitted), stats.Name)
		ch <- prom.MustNewConstMetric(c.successful, prom.CounterValue, float64(stats.Successful), stats.Name)
		ch <- prom.MustNewConstMetric(c.failed, prom.CounterValue, float64(stats.Failed), stats.Name)
		ch <- prom.MustNewConstMetric(c.waiting, prom.GaugeValue, float64(stats.Waiting), stats.Name)
		ch <- prom.MustNewConstMetric(c.workers, prom.GaugeValue, float64(stats.Workers), stats.Name)
	}
}
