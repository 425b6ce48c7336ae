package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FeedStatus tracks upstream dock feed health (0 = failing, 1 = ok).
	FeedStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dock_feed_status",
			Help: "Status of the upstream dock feed (0 = failing, 1 = ok)",
		},
		[]string{"feed_url"},
	)

	// DocksTracked is the number of docks in the current snapshot.
	DocksTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "docks_tracked",
		Help: "Number of docks in the current feed snapshot",
	})

	// FeedAgeSeconds is the age of the cached snapshot at collection time.
	FeedAgeSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dock_feed_age_seconds",
		Help: "Seconds since the last successful feed refresh",
	})
)

var (
	FavouriteStandardBikes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "favourite_dock_standard_bikes",
		Help: "Standard bikes currently available at a favourite dock",
	}, []string{"dock_id"})

	FavouriteEBikes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "favourite_dock_ebikes",
		Help: "E-bikes currently available at a favourite dock",
	}, []string{"dock_id"})

	FavouriteEmptySpaces = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "favourite_dock_empty_spaces",
		Help: "Empty spaces currently available at a favourite dock",
	}, []string{"dock_id"})

	FavouriteBrokenDocks = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "favourite_dock_broken_docks",
		Help: "Estimated out-of-service docking points at a favourite dock",
	}, []string{"dock_id"})
)

var (
	ConsecutiveRefreshFailures = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "refresh_consecutive_failures",
		Help: "Length of the current refresh failure streak",
	})

	RefreshErrorVisible = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "refresh_error_visible",
		Help: "Whether the failure streak has surfaced a user-visible error (0/1)",
	})

	SurfaceClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "surface_clients_connected",
		Help: "Number of auxiliary surfaces connected to the push hub",
	})
)

var (
	// OutgoingLatency observes the latency of outgoing HTTP requests,
	// labeled by URL, method, and response status.
	OutgoingLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "outgoing_request_latency_seconds",
			Help:    "Latency of outgoing HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"url", "method", "status"},
	)
)
