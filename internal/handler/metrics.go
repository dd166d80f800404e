package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	conversationsStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vidstory_conversations_started_total",
		Help: "Total number of started conversations.",
	})

	conversationsEndedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vidstory_conversations_ended_total",
		Help: "Total number of conversations that reached a terminal option.",
	})

	repliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidstory_replies_total",
			Help: "Total number of reply attempts by status.",
		},
		[]string{"status"},
	)

	purchasesRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vidstory_purchases_recorded_total",
		Help: "Total number of purchases recorded via the internal API.",
	})
)
