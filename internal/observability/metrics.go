package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics bundles the engine's counters. Reservation outcomes are labeled
// so full-cohort rejections (an expected branch) stay distinguishable from
// errors.
type Metrics struct {
	Registry *prometheus.Registry

	ReservationsTotal  *prometheus.CounterVec
	ConfirmationsTotal prometheus.Counter
	ReleasesTotal      prometheus.Counter
	PromotionsTotal    prometheus.Counter
	GatewayEventsTotal *prometheus.CounterVec
	AnomaliesTotal     *prometheus.CounterVec
	ExpiredHoldsTotal  prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		Registry: registry,
		ReservationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursereg_reservations_total",
			Help: "Seat reservation attempts by outcome (reserved, full).",
		}, []string{"outcome"}),
		ConfirmationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coursereg_confirmations_total",
			Help: "Registrations confirmed by payment.",
		}),
		ReleasesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coursereg_seat_releases_total",
			Help: "Seats released back to the ledger.",
		}),
		PromotionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coursereg_waitlist_promotions_total",
			Help: "Waitlist entries promoted to an offer.",
		}),
		GatewayEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursereg_gateway_events_total",
			Help: "Gateway events by kind and outcome (applied, duplicate, retried, failed).",
		}, []string{"kind", "outcome"}),
		AnomaliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursereg_reconciliation_anomalies_total",
			Help: "Reconciliation anomalies by kind.",
		}, []string{"kind"}),
		ExpiredHoldsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coursereg_expired_holds_total",
			Help: "Pending registrations expired by the sweep.",
		}),
	}

	registry.MustRegister(
		m.ReservationsTotal,
		m.ConfirmationsTotal,
		m.ReleasesTotal,
		m.PromotionsTotal,
		m.GatewayEventsTotal,
		m.AnomaliesTotal,
		m.ExpiredHoldsTotal,
	)
	return m
}
