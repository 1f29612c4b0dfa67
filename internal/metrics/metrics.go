package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// UpdatesTotal counts inbound Telegram updates by kind.
	UpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricebot_updates_total",
		Help: "Number of inbound Telegram updates processed.",
	}, []string{"kind"})

	// ProviderRequests counts market data API requests by endpoint and status.
	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricebot_provider_requests_total",
		Help: "Number of market data provider requests.",
	}, []string{"endpoint", "status"})

	// AlertsFired counts alert notifications sent to users.
	AlertsFired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pricebot_alerts_fired_total",
		Help: "Number of price alert notifications sent.",
	})

	// RendersSuppressed counts edits skipped because the content was unchanged.
	RendersSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pricebot_renders_suppressed_total",
		Help: "Number of message edits skipped as no-ops.",
	})
)

// Handler returns the HTTP handler serving the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
