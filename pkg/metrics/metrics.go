package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/blaubaer/presence-monitor/pkg/presence"
)

var (
	cyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "presence_cycles_total",
		Help: "The total number of completed presence cycles.",
	})
	loopFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "presence_loop_failures_total",
		Help: "The total number of presence cycles which failed and caused a backoff.",
	})
	detectionFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "presence_detection_failures_total",
		Help: "The total number of detections which failed and were reported as inactive, partitioned by signal.",
	}, []string{"signal"})
	deliveryFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "presence_delivery_failures_total",
		Help: "The total number of values which could not be delivered, partitioned by sink and signal.",
	}, []string{"sink", "signal"})
	signalActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "presence_signal_active",
		Help: "1 if the signal was active in the latest snapshot, 0 otherwise.",
	}, []string{"signal"})
)

func DetectionFailed(signal presence.Signal) {
	detectionFailuresTotal.WithLabelValues(signal.String()).Inc()
}

func DeliveryFailed(sink presence.SinkType, signal presence.Signal) {
	deliveryFailuresTotal.WithLabelValues(sink.String(), signal.String()).Inc()
}

// Observer records the outcome of every cycle of a presence.Loop.
type Observer struct{}

func (this Observer) OnSnapshot(snapshot presence.Snapshot) {
	cyclesTotal.Inc()
	for _, signal := range presence.AllSignals {
		v := 0.0
		if snapshot.IsActive(signal) {
			v = 1
		}
		signalActive.WithLabelValues(signal.String()).Set(v)
	}
}

func (this Observer) OnLoopFailure(error) {
	loopFailuresTotal.Inc()
}
