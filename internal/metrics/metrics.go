package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the daemon's own behavior. The gateway serves them on
// /metrics for whoever wants to scrape a running client.

var (
	MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voiceup",
		Name:      "messages_sent_total",
		Help:      "Messages sent, by type.",
	}, []string{"type"})

	RealtimeEvents = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "voiceup",
		Name:      "realtime_events_total",
		Help:      "Change-feed events applied to open chat views.",
	})

	RealtimeDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "voiceup",
		Name:      "realtime_dropped_total",
		Help:      "Change-feed payloads dropped as malformed or lagging.",
	})

	SignedURLHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "voiceup",
		Name:      "signed_url_cache_hits_total",
		Help:      "Media URL resolutions served from the per-view cache.",
	})

	SignedURLMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "voiceup",
		Name:      "signed_url_cache_misses_total",
		Help:      "Media URL resolutions that called the storage service.",
	})

	PushSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "voiceup",
		Name:      "push_suppressed_total",
		Help:      "Push events suppressed because their chat was open.",
	})
)
