package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var clipTasksPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vidstory_clip_tasks_total",
	Help: "Total number of clip preparation tasks published to the queue.",
})
