package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "powerdrive"

// Resolution outcomes recorded by ShareMetrics.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeExpired  = "expired"
	OutcomeError    = "error"
)

// Public routes that resolve a share token.
const (
	RouteView     = "view"
	RouteDownload = "download"
)

// ShareMetrics holds the share-link counters. A nil *ShareMetrics is a no-op.
type ShareMetrics struct {
	issued      prometheus.Counter
	resolutions *prometheus.CounterVec
	revoked     prometheus.Counter
}

// NewShareMetrics registers the share-link counters on reg.
func NewShareMetrics(reg prometheus.Registerer) *ShareMetrics {
	factory := promauto.With(reg)
	return &ShareMetrics{
		issued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "share_links_issued_total",
			Help:      "Number of share links issued.",
		}),
		resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "share_link_resolutions_total",
			Help:      "Share link resolutions by route and outcome.",
		}, []string{"route", "outcome"}),
		revoked: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "share_links_revoked_total",
			Help:      "Number of share links revoked.",
		}),
	}
}

func (m *ShareMetrics) Issued() {
	if m == nil {
		return
	}
	m.issued.Inc()
}

func (m *ShareMetrics) Resolved(route, outcome string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(route, outcome).Inc()
}

func (m *ShareMetrics) Revoked(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.revoked.Add(float64(n))
}
