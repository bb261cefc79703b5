package handlers

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// inboundMsgs counts accepted webhook messages by platform.
	inboundMsgs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_inbound_messages_total",
			Help: "Total number of accepted inbound messages.",
		},
		[]string{"platform"},
	)

	// dedupDrops counts webhook redeliveries dropped by the dedup ledger.
	dedupDrops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_dedup_drops_total",
			Help: "Total number of duplicate webhook deliveries dropped.",
		},
		[]string{"platform"},
	)

	// repliesSent counts reply deliveries handed to a platform sender.
	repliesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_replies_total",
			Help: "Total number of reply deliveries dispatched.",
		},
		[]string{"platform"},
	)
)

func init() {
	prometheus.MustRegister(inboundMsgs, dedupDrops, repliesSent)
}
