package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matalai_chat_requests_total",
			Help: "Chat requests by resolution strategy or failure",
		},
		[]string{"outcome"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matalai_chat_request_duration_seconds",
			Help:    "Chat request duration by resolution strategy",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"strategy"},
	)

	IntentMatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matalai_chat_intent_matches_total",
			Help: "Intent matcher outcomes",
		},
		[]string{"result"},
	)

	ActionOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matalai_chat_action_outcomes_total",
			Help: "Action executor outcomes (reply or fallthrough)",
		},
		[]string{"outcome"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matalai_chat_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matalai_chat_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)
)

func Register() {
	prometheus.MustRegister(
		RequestTotal,
		RequestDuration,
		IntentMatches,
		ActionOutcomes,
		CacheHits,
		CacheMisses,
	)
}

// Handler exposes the prometheus scrape endpoint on a fiber route.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
