package workerpool

import (
	"sync"
	"time"

	"github.com/annel0/voxelgen/internal/logging"
	"github.com/annel0/voxelgen/internal/task"
)

// resolver связывает отправленную заглушку с задачей
type resolver struct {
	task    *task.Base
	started time.Time
}

// WorkerProxy — управляющая сторона одного исполнителя.
// Держит не более одного запроса в полёте.
type WorkerProxy struct {
	id      int
	unit    *executionUnit
	metrics *Metrics
	logger  *logging.Logger

	mu sync.Mutex
	// id запроса -> резолвер; nil означает, что задача отменена после отправки
	resolvers map[uint64]*resolver
	busy      bool
	free      chan struct{}
}

func newWorkerProxy(id int, unit *executionUnit, metrics *Metrics, logger *logging.Logger) *WorkerProxy {
	return &WorkerProxy{
		id:        id,
		unit:      unit,
		metrics:   metrics,
		logger:    logger,
		resolvers: make(map[uint64]*resolver),
		free:      make(chan struct{}, 1),
	}
}

// ID возвращает номер исполнителя
func (w *WorkerProxy) ID() int { return w.id }

// Busy сообщает, есть ли запрос в полёте
func (w *WorkerProxy) Busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.busy
}

// SubmitTask отправляет задачу исполнителю. Возвращает false, если исполнитель занят.
func (w *WorkerProxy) SubmitTask(t *task.Base) bool {
	w.mu.Lock()
	if w.busy {
		w.mu.Unlock()
		return false
	}
	w.busy = true
	id := t.ID()
	w.resolvers[id] = &resolver{task: t, started: time.Now()}
	w.mu.Unlock()

	w.metrics.busyWorkers.Inc()
	w.metrics.dispatched.WithLabelValues(t.Kind().String()).Inc()

	t.OnCancel(func() {
		w.mu.Lock()
		if _, ok := w.resolvers[id]; ok {
			w.resolvers[id] = nil
		}
		w.mu.Unlock()
	})

	w.unit.stubs <- t.Stub()
	return true
}

// listen обрабатывает ответы исполнителя до закрытия канала
func (w *WorkerProxy) listen() {
	for reply := range w.unit.replies {
		w.onReply(reply)
	}
}

func (w *WorkerProxy) onReply(reply task.Reply) {
	w.mu.Lock()
	res, known := w.resolvers[reply.ID]
	delete(w.resolvers, reply.ID)
	w.busy = false
	w.mu.Unlock()

	w.metrics.busyWorkers.Dec()

	switch {
	case !known || res == nil:
		w.metrics.repliesDrop.Inc()
		w.logger.Debug("исполнитель %d: ответ для задачи %d отброшен", w.id, reply.ID)
	default:
		kind := res.task.Kind().String()
		status := "ok"
		if reply.Err != nil {
			status = "error"
			w.logger.Warn("исполнитель %d: задача %d (%s) завершилась ошибкой: %v", w.id, reply.ID, kind, reply.Err)
		}
		w.metrics.completed.WithLabelValues(kind, status).Inc()
		w.metrics.taskDurations.WithLabelValues(kind).Observe(time.Since(res.started).Seconds())
		if !res.task.Complete(reply.Data, reply.Err) {
			w.metrics.repliesDrop.Inc()
		}
	}

	select {
	case w.free <- struct{}{}:
	default:
	}
}
