package metrics

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "invoicedesk"

var (
	gauges = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "gauge",
		Help:      "Runtime gauges sampled by background jobs.",
	}, []string{"name"})

	counters = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_total",
		Help:      "Domain events by name.",
	}, []string{"name"})

	amounts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invoice_amount_total",
		Help:      "Sum of invoice totals by status at creation time.",
	}, []string{"status"})

	mu         sync.Mutex
	registerer prometheus.Registerer
)

// InitMetrics registers the collectors with reg, or with the default
// registry when reg is nil. Calling it twice is harmless.
func InitMetrics(reg prometheus.Registerer) error {
	mu.Lock()
	defer mu.Unlock()
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{gauges, counters, amounts} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	registerer = reg
	return nil
}

func SetGauge(name string, value int64) {
	gauges.WithLabelValues(name).Set(float64(value))
}

func Incr(name string) {
	counters.WithLabelValues(name).Inc()
}

func AddAmount(status string, value float64) {
	amounts.WithLabelValues(status).Add(value)
}

// Gauge exposes the collector for inspection.
func Gauge(name string) prometheus.Gauge {
	return gauges.WithLabelValues(name)
}

func Counter(name string) prometheus.Counter {
	return counters.WithLabelValues(name)
}

func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if registerer == nil {
		return nil
	}
	registerer.Unregister(gauges)
	registerer.Unregister(counters)
	registerer.Unregister(amounts)
	registerer = nil
	return nil
}
