package task

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var lastID atomic.Uint64

// Delegator принимает задачи на исполнение (пул воркеров)
type Delegator interface {
	EnqueueTasks(tasks ...*Base)
}

// Base — нетипизированная часть задачи, с которой работает пул
type Base struct {
	id      uint64
	kind    Kind
	input   any
	params  any
	created time.Time
	future  *Future

	mu          sync.Mutex
	state       State
	resumeState State
	rank        float64
	seq         uint64
	onCancel    []func()
	onResume    func()
}

// NewBase создаёт задачу в состоянии StateNone
func NewBase(kind Kind, input, params any) *Base {
	return &Base{
		id:      lastID.Add(1),
		kind:    kind,
		input:   input,
		params:  params,
		created: time.Now(),
		future:  newFuture(),
	}
}

// ID возвращает идентификатор задачи
func (b *Base) ID() uint64 { return b.id }

// Kind возвращает семейство задачи
func (b *Base) Kind() Kind { return b.kind }

// Created возвращает время создания
func (b *Base) Created() time.Time { return b.created }

// Future возвращает отложенный результат
func (b *Base) Future() *Future { return b.future }

// Settled закрывается, когда результат задачи разрешён
func (b *Base) Settled() <-chan struct{} { return b.future.Done() }

// State возвращает текущее состояние
func (b *Base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Rank возвращает приоритет (меньше — раньше)
func (b *Base) Rank() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rank
}

// SetRank задаёт приоритет. Пул учитывает его при следующей сортировке очереди.
func (b *Base) SetRank(r float64) {
	b.mu.Lock()
	b.rank = r
	b.mu.Unlock()
}

// Seq возвращает порядковый номер постановки в очередь
func (b *Base) Seq() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seq
}

// Stub формирует переносимое представление задачи
func (b *Base) Stub() Stub {
	return Stub{TaskID: b.id, HandlerID: b.kind, Input: b.input, Params: b.params}
}

// Schedule переводит новую задачу в StateScheduled
func (b *Base) Schedule() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateNone {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.state, StateScheduled)
	}
	b.state = StateScheduled
	return nil
}

// MarkWaiting вызывается пулом при постановке в очередь.
// Приостановленная задача остаётся приостановленной и после Resume станет ожидающей.
// Возвращает false для завершённых задач, которые в очередь не попадают.
func (b *Base) MarkWaiting(seq uint64, onResume func()) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateNone, StateScheduled, StateWaiting:
		b.state = StateWaiting
	case StateSuspended:
		b.resumeState = StateWaiting
	default:
		return false
	}
	b.seq = seq
	b.onResume = onResume
	return true
}

// MarkPending вызывается пулом при отправке задачи исполнителю
func (b *Base) MarkPending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateWaiting {
		return false
	}
	b.state = StatePending
	return true
}

// OnCancel регистрирует обработчик отмены. Для уже отменённой задачи вызывается сразу.
func (b *Base) OnCancel(fn func()) {
	b.mu.Lock()
	if b.state == StateCanceled {
		b.mu.Unlock()
		fn()
		return
	}
	b.onCancel = append(b.onCancel, fn)
	b.mu.Unlock()
}

// Complete разрешает результат. Ответ для отменённой или завершённой задачи отбрасывается.
func (b *Base) Complete(data any, err error) bool {
	b.mu.Lock()
	if b.state.Terminal() {
		b.mu.Unlock()
		return false
	}
	b.state = StateDone
	b.onCancel = nil
	b.mu.Unlock()
	return b.future.settle(data, err)
}

// Cancel отменяет задачу и немедленно отклоняет результат с ErrTaskCanceled.
// Уже отправленная исполнителю работа не прерывается, её ответ будет отброшен.
func (b *Base) Cancel() bool {
	b.mu.Lock()
	if b.state.Terminal() {
		b.mu.Unlock()
		return false
	}
	b.state = StateCanceled
	hooks := b.onCancel
	b.onCancel = nil
	b.mu.Unlock()

	b.future.settle(nil, ErrTaskCanceled)
	for _, fn := range hooks {
		fn()
	}
	return true
}

// Suspend выводит задачу, ещё не отправленную исполнителю, из очереди отбора
func (b *Base) Suspend() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateScheduled, StateWaiting:
		b.resumeState = b.state
		b.state = StateSuspended
		return nil
	case StateSuspended:
		return nil
	default:
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.state, StateSuspended)
	}
}

// Resume возвращает приостановленную задачу в состояние до приостановки
func (b *Base) Resume() error {
	b.mu.Lock()
	if b.state != StateSuspended {
		st := b.state
		b.mu.Unlock()
		return fmt.Errorf("%w: %s -> resume", ErrInvalidTransition, st)
	}
	b.state = b.resumeState
	wake := b.onResume
	b.mu.Unlock()

	if wake != nil {
		wake()
	}
	return nil
}

// Process выполняет задачу синхронно.
// Отсутствующий обработчик логируется и даёт nil без ошибки.
func (b *Base) Process(ctx context.Context, table Table) (any, error) {
	b.mu.Lock()
	if b.state.Terminal() {
		b.mu.Unlock()
		return nil, ErrTaskCanceled
	}
	b.state = StatePending
	b.mu.Unlock()

	reply := table.Execute(ctx, b.Stub())
	if !b.Complete(reply.Data, reply.Err) {
		return nil, ErrTaskCanceled
	}
	return reply.Data, reply.Err
}

// AsyncProcess выполняет задачу в отдельной горутине
func (b *Base) AsyncProcess(ctx context.Context, table Table) *Future {
	go func() {
		_, _ = b.Process(ctx, table)
	}()
	return b.future
}

// Delegate передаёт задачу пулу. Результат отклоняется с ErrTaskCanceled при отмене.
func (b *Base) Delegate(pool Delegator) *Future {
	pool.EnqueueTasks(b)
	return b.future
}

// Task — типизированная обёртка над Base
type Task[In, P, Out any] struct {
	*Base
}

// New создаёт типизированную задачу
func New[In, P, Out any](kind Kind, in In, p P) *Task[In, P, Out] {
	return &Task[In, P, Out]{Base: NewBase(kind, in, p)}
}

// Input возвращает вход задачи
func (t *Task[In, P, Out]) Input() In {
	in, _ := t.input.(In)
	return in
}

// Params возвращает параметры задачи
func (t *Task[In, P, Out]) Params() P {
	p, _ := t.params.(P)
	return p
}

// Await ждёт типизированный результат
func (t *Task[In, P, Out]) Await(ctx context.Context) (Out, error) {
	var out Out
	v, err := t.future.Wait(ctx)
	if err != nil || v == nil {
		return out, err
	}
	out, ok := v.(Out)
	if !ok {
		return out, fmt.Errorf("task %d: unexpected output %T", t.id, v)
	}
	return out, nil
}
