package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProfileLookupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_profile_lookup_failures_total",
		Help: "Profile store reads that errored or found no row during identity resolution.",
	})

	FallbackResolutions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_fallback_resolutions_total",
		Help: "Identity resolutions served from session metadata or defaults instead of a profile.",
	})

	UnknownLabels = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_unknown_labels_total",
		Help: "Stored role or academic level labels outside the known sets, mapped to defaults.",
	}, []string{"kind"})

	GuardRedirects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_guard_redirects_total",
		Help: "Dashboard requests redirected by the route guard.",
	}, []string{"reason"})
)
