package hub

import "github.com/prometheus/client_golang/prometheus"

var (
	framesPublishedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wingmand",
		Subsystem: "hub",
		Name:      "frames_published_total",
		Help:      "Total frames accepted by the Metrics Bus.",
	})

	framesDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wingmand",
			Subsystem: "hub",
			Name:      "frames_dropped_total",
			Help:      "Total frames dropped for a subscriber whose outgoing buffer is full.",
		},
		[]string{"subscriber"},
	)

	subscribersGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "wingmand",
		Subsystem: "hub",
		Name:      "subscribers",
		Help:      "Current number of open subscription channels.",
	})
)

func init() {
	prometheus.MustRegister(framesPublishedTotal, framesDroppedTotal, subscribersGauge)
}
