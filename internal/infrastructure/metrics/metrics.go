package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ratecast"

var (
	// Registry holds the application collectors.
	Registry = prometheus.NewRegistry()

	ticksReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "ticks_received_total",
		Help:      "Ticks received from the upstream feed.",
	})

	batchesProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "batches_processed_total",
		Help:      "Batches turned into a published snapshot.",
	})

	batchesSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "batches_skipped_total",
		Help:      "Batches dropped before publishing.",
	}, []string{"reason"})

	pairsPublished = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "last_batch_pairs",
		Help:      "Number of pairs in the last published snapshot.",
	})

	publishes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "broadcast",
		Name:      "publishes_total",
		Help:      "Publish attempts by result.",
	}, []string{"result"})

	hubClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "broadcast",
		Name:      "clients",
		Help:      "Currently connected websocket subscribers.",
	})

	feedReconnects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "feed",
		Name:      "reconnects_total",
		Help:      "Reconnect attempts scheduled after a disconnect.",
	}, []string{"feed"})

	feedState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "feed",
		Name:      "state",
		Help:      "Connection state (0 disconnected, 1 connecting, 2 connected, 3 stopped).",
	}, []string{"feed"})

	quoteFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "quote",
		Name:      "fetches_total",
		Help:      "Snapshot quote lookups by result.",
	}, []string{"result"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		ticksReceived,
		batchesProcessed,
		batchesSkipped,
		pairsPublished,
		publishes,
		hubClients,
		feedReconnects,
		feedState,
		quoteFetches,
	)
}

// Handler exposes the registry for scraping.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RecordFeedReconnect(feed string) { feedReconnects.WithLabelValues(feed).Inc() }

func SetFeedState(feed string, state int) { feedState.WithLabelValues(feed).Set(float64(state)) }

func RecordQuoteFetch(err error) {
	quoteFetches.WithLabelValues(result(err)).Inc()
}

func SetHubClients(n int) { hubClients.Set(float64(n)) }

// Recorder records pipeline events.
type Recorder struct{}

func NewRecorder() *Recorder { return &Recorder{} }

func (Recorder) BatchReceived(ticks int) { ticksReceived.Add(float64(ticks)) }

func (Recorder) BatchProcessed(pairs int) {
	batchesProcessed.Inc()
	pairsPublished.Set(float64(pairs))
}

func (Recorder) BatchSkipped(reason string) { batchesSkipped.WithLabelValues(reason).Inc() }

func (Recorder) Published(err error) { publishes.WithLabelValues(result(err)).Inc() }

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
