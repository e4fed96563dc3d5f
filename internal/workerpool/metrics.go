package workerpool

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics — Prometheus-метрики пула воркеров
type Metrics struct {
	enqueued      *prometheus.CounterVec
	dispatched    *prometheus.CounterVec
	completed     *prometheus.CounterVec
	repliesDrop   prometheus.Counter
	queueLength   prometheus.Gauge
	busyWorkers   prometheus.Gauge
	taskDurations *prometheus.HistogramVec
}

// NewMetrics создаёт метрики и регистрирует их в reg (nil — без регистрации)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		enqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxelgen",
			Subsystem: "pool",
			Name:      "tasks_enqueued_total",
			Help:      "Число задач, поставленных в очередь пула.",
		}, []string{"kind"}),
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxelgen",
			Subsystem: "pool",
			Name:      "tasks_dispatched_total",
			Help:      "Число задач, отправленных исполнителям.",
		}, []string{"kind"}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxelgen",
			Subsystem: "pool",
			Name:      "tasks_completed_total",
			Help:      "Число завершённых задач по статусу (ok, error).",
		}, []string{"kind", "status"}),
		repliesDrop: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxelgen",
			Subsystem: "pool",
			Name:      "replies_dropped_total",
			Help:      "Ответы исполнителей без резолвера (задача отменена после отправки).",
		}),
		queueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voxelgen",
			Subsystem: "pool",
			Name:      "queue_length",
			Help:      "Количество задач в очереди пула.",
		}),
		busyWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voxelgen",
			Subsystem: "pool",
			Name:      "busy_workers",
			Help:      "Количество исполнителей, занятых задачей.",
		}),
		taskDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "voxelgen",
			Subsystem: "pool",
			Name:      "task_duration_seconds",
			Help:      "Время от отправки задачи до ответа исполнителя.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"kind"}),
	}

	if reg != nil {
		reg.MustRegister(m.enqueued, m.dispatched, m.completed, m.repliesDrop,
			m.queueLength, m.busyWorkers, m.taskDurations)
	}
	return m
}
