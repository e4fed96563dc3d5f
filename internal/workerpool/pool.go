package workerpool

import (
	"cmp"
	"context"
	"errors"
	"runtime"
	"slices"
	"sync"

	"github.com/annel0/voxelgen/internal/logging"
	"github.com/annel0/voxelgen/internal/task"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// ErrPoolClosed возвращается при повторном запуске закрытого пула
var ErrPoolClosed = errors.New("worker pool is closed")

// Options — параметры пула
type Options struct {
	Workers    int                   // Количество исполнителей, 0 — по числу CPU
	Registerer prometheus.Registerer // Регистр метрик, nil — без регистрации
	Tracer     trace.Tracer          // Трассировщик, nil — глобальный
	Logger     *logging.Logger       // Логгер, nil — компонент "pool"
}

// Stats — снимок состояния пула
type Stats struct {
	Workers int  `json:"workers"`
	Busy    int  `json:"busy"`
	Queued  int  `json:"queued"`
	Ready   bool `json:"ready"`
}

// WorkerPool — фиксированный набор исполнителей с общей очередью по рангу.
// Каждый исполнитель обслуживается своей горутиной-диспетчером.
type WorkerPool struct {
	table   task.Table
	workers int
	tracer  trace.Tracer
	metrics *Metrics
	logger  *logging.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*task.Base
	seq     uint64
	dirty   bool
	ready   bool
	closed  bool
	proxies []*WorkerProxy
	units   []*executionUnit

	done      chan struct{}
	wg        sync.WaitGroup
	listeners sync.WaitGroup
}

// New создаёт пул. Исполнители запускаются в Start; задачи, поставленные раньше, ждут.
func New(table task.Table, opts Options) *WorkerPool {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("voxelgen/workerpool")
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetPoolLogger()
	}

	p := &WorkerPool{
		table:   table,
		workers: opts.Workers,
		tracer:  opts.Tracer,
		metrics: NewMetrics(opts.Registerer),
		logger:  opts.Logger,
		done:    make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Start запускает исполнителей и диспетчеры
func (p *WorkerPool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	if p.ready {
		return nil
	}

	for i := 0; i < p.workers; i++ {
		unit := newExecutionUnit(i, p.table, p.tracer)
		proxy := newWorkerProxy(i, unit, p.metrics, p.logger)
		p.units = append(p.units, unit)
		p.proxies = append(p.proxies, proxy)

		go unit.run(ctx)
		p.listeners.Add(1)
		go func() {
			defer p.listeners.Done()
			proxy.listen()
		}()
		p.wg.Add(1)
		go p.dispatch(proxy)
	}

	p.ready = true
	p.cond.Broadcast()
	p.logger.Info("пул воркеров запущен: %d исполнителей", p.workers)
	return nil
}

// Ready сообщает, запущены ли исполнители
func (p *WorkerPool) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

// EnqueueTasks ставит задачи в очередь и будит диспетчеры.
// Завершённые и отменённые задачи пропускаются.
func (p *WorkerPool) EnqueueTasks(tasks ...*task.Base) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		for _, t := range tasks {
			t.Cancel()
		}
		return
	}

	for _, t := range tasks {
		p.seq++
		if !t.MarkWaiting(p.seq, p.wake) {
			continue
		}
		p.queue = append(p.queue, t)
		p.metrics.enqueued.WithLabelValues(t.Kind().String()).Inc()
	}
	p.dirty = true
	p.metrics.queueLength.Set(float64(len(p.queue)))
	p.cond.Broadcast()
}

// ProcessQueue пересортировывает очередь (после смены рангов), выбрасывает
// отменённые задачи и будит диспетчеры
func (p *WorkerPool) ProcessQueue() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = slices.DeleteFunc(p.queue, func(t *task.Base) bool {
		return t.State().Terminal()
	})
	p.dirty = true
	p.metrics.queueLength.Set(float64(len(p.queue)))
	p.cond.Broadcast()
}

// wake вызывается задачей при Resume
func (p *WorkerPool) wake() {
	p.mu.Lock()
	p.cond.Broadcast()
	p.mu.Unlock()
}

// QueueLength возвращает длину очереди
func (p *WorkerPool) QueueLength() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Stats возвращает снимок состояния
func (p *WorkerPool) Stats() Stats {
	p.mu.Lock()
	proxies := p.proxies
	s := Stats{Workers: p.workers, Queued: len(p.queue), Ready: p.ready}
	p.mu.Unlock()

	for _, w := range proxies {
		if w.Busy() {
			s.Busy++
		}
	}
	return s
}

// next блокируется до появления ожидающей задачи. Возвращает nil после Close.
func (p *WorkerPool) next() *task.Base {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if p.closed {
			return nil
		}
		if p.dirty {
			slices.SortStableFunc(p.queue, func(a, b *task.Base) int {
				if c := cmp.Compare(a.Rank(), b.Rank()); c != 0 {
					return c
				}
				return cmp.Compare(a.Seq(), b.Seq())
			})
			p.dirty = false
		}

		for i := 0; i < len(p.queue); {
			t := p.queue[i]
			if t.State().Terminal() {
				p.queue = slices.Delete(p.queue, i, i+1)
				continue
			}
			if t.MarkPending() {
				p.queue = slices.Delete(p.queue, i, i+1)
				p.metrics.queueLength.Set(float64(len(p.queue)))
				return t
			}
			i++
		}
		p.metrics.queueLength.Set(float64(len(p.queue)))
		p.cond.Wait()
	}
}

// dispatch — цикл диспетчера одного исполнителя
func (p *WorkerPool) dispatch(proxy *WorkerProxy) {
	defer p.wg.Done()
	for {
		t := p.next()
		if t == nil {
			return
		}
		if !proxy.SubmitTask(t) {
			// Исполнитель занят только при ошибке в логике диспетчера
			p.logger.Error("исполнитель %d занят, задача %d отменена", proxy.ID(), t.ID())
			t.Cancel()
			continue
		}
		select {
		case <-proxy.free:
		case <-p.done:
			return
		}
	}
}

// Close останавливает диспетчеры и исполнителей. Задачи в очереди отменяются.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	queued := p.queue
	p.queue = nil
	p.cond.Broadcast()
	p.mu.Unlock()

	close(p.done)
	p.wg.Wait()

	for _, t := range queued {
		t.Cancel()
	}
	for _, u := range p.units {
		close(u.stubs)
	}
	p.listeners.Wait()
	p.logger.Info("пул воркеров остановлен")
}
