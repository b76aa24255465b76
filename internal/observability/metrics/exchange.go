package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExchangeTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_transitions_total",
			Help: "Total number of exchange status transitions by outcome",
		},
		[]string{"from", "to", "outcome"},
	)

	ExchangeFeedConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "exchange_feed_connections_active",
			Help: "Number of active exchange feed websocket connections",
		},
	)

	ExchangeFeedEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "exchange_feed_events_dropped_total",
			Help: "Total number of feed events dropped for slow subscribers",
		},
	)

	AccountsRegisteredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "accounts_registered_total",
			Help: "Total number of registered accounts",
		},
	)

	AuthenticationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "account_authentications_total",
			Help: "Total number of authentication attempts by outcome",
		},
		[]string{"outcome"},
	)
)
