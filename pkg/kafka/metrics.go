package kafka

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Publish outcomes recorded in the result label.
const (
	resultOK    = "ok"
	resultError = "error"
)

var (
	publishedEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "kafka",
			Name:      "events_published_total",
			Help:      "Shop events written to Kafka, by topic and outcome",
		},
		[]string{"topic", "result"},
	)

	publishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "storefront",
			Subsystem: "kafka",
			Name:      "publish_duration_seconds",
			Help:      "Time spent writing one shop event to Kafka",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"topic"},
	)
)

func observePublish(topic string, start time.Time, err error) {
	publishDuration.WithLabelValues(topic).Observe(time.Since(start).Seconds())
	result := resultOK
	if err != nil {
		result = resultError
	}
	publishedEvents.WithLabelValues(topic, result).Inc()
}
