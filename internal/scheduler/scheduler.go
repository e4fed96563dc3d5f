// Package scheduler решает, какие патчи генерировать и в каком порядке,
// по мере движения точки обзора.
package scheduler

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/annel0/voxelgen/internal/chunkgen"
	"github.com/annel0/voxelgen/internal/logging"
	"github.com/annel0/voxelgen/internal/task"
	"github.com/annel0/voxelgen/internal/vec"
	"github.com/annel0/voxelgen/internal/world"
)

// Pool — очередь задач, в которую планировщик отдаёт работу
type Pool interface {
	EnqueueTasks(tasks ...*task.Base)
	ProcessQueue()
}

// Options — параметры планировщика
type Options struct {
	Near       int  // Радиус подземной детализации в патчах
	Blob       bool // Запрашивать сжатый результат
	SkipItems  bool // Не добавлять предметы
	ResultsBuf int  // Ёмкость канала результатов
	Logger     *logging.Logger
}

// Result — завершённая задача генерации
type Result struct {
	PatchKey string
	Range    chunkgen.Range
	Output   chunkgen.ChunksOutput
	Err      error
}

// Stats — снимок состояния планировщика
type Stats struct {
	Visible   int    `json:"visible"`
	Live      int    `json:"live"`
	Postponed int    `json:"postponed"`
	Created   uint64 `json:"created"`
	Canceled  uint64 `json:"canceled"`
}

// tracked — задача, за которой следит планировщик
type tracked struct {
	task     *chunkgen.ChunksTask
	patchID  vec.Vec2
	patchKey string
	rng      chunkgen.Range
	enqueued bool
	watching bool
}

// Scheduler поддерживает индекс видимых патчей вокруг точки обзора
type Scheduler struct {
	env    *world.Env
	pool   Pool
	opts   Options
	logger *logging.Logger

	mu         sync.Mutex
	polled     bool
	viewPos    vec.Vec2Float
	viewRange  int
	near, far  int
	center     vec.Vec2
	patchIndex map[string]vec.Vec2
	live       map[uint64]*tracked
	postponed  map[string]*tracked
	created    uint64
	canceled   uint64
	closed     bool

	results chan Result
	done    chan struct{}
}

// New создаёт планировщик
func New(env *world.Env, pool Pool, opts Options) *Scheduler {
	if opts.Logger == nil {
		opts.Logger = logging.GetSchedulerLogger()
	}
	if opts.ResultsBuf <= 0 {
		opts.ResultsBuf = 64
	}
	return &Scheduler{
		env:        env,
		pool:       pool,
		opts:       opts,
		logger:     opts.Logger,
		patchIndex: make(map[string]vec.Vec2),
		live:       make(map[uint64]*tracked),
		postponed:  make(map[string]*tracked),
		results:    make(chan Result, opts.ResultsBuf),
		done:       make(chan struct{}),
	}
}

// Results возвращает канал завершённых задач
func (s *Scheduler) Results() <-chan Result { return s.results }

// PollChunks обновляет точку обзора (мировые координаты x, z) и радиус в патчах.
// Без изменений вызов ничего не делает и возвращает false.
func (s *Scheduler) PollChunks(pos vec.Vec2Float, rng int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || (s.polled && pos == s.viewPos && rng == s.viewRange) {
		return false
	}
	s.polled = true
	s.viewPos, s.viewRange = pos, rng
	s.far = max(rng, 0)
	s.near = min(s.far, s.opts.Near)

	ps := float64(s.env.PatchSize)
	viewPatch := vec.Vec2Float{X: pos.X / ps, Y: pos.Y / ps}
	s.center = viewPatch.Floor()

	index := make(map[string]vec.Vec2)
	for _, id := range world.PatchIDsAround(s.center, s.far) {
		index[world.SerializePatchKey(id)] = id
	}

	// Отмена задач вне нового индекса
	var canceled int
	for id, tr := range s.live {
		if _, ok := index[tr.patchKey]; !ok {
			tr.task.Cancel()
			delete(s.live, id)
			canceled++
		}
	}
	for key, tr := range s.postponed {
		if _, ok := index[key]; !ok {
			tr.task.Cancel()
			delete(s.postponed, key)
			canceled++
		}
	}

	// Живые подземные задачи за пределами near откладываются
	for id, tr := range s.live {
		if tr.rng != chunkgen.RangeLower || s.withinNear(tr.patchID) {
			continue
		}
		if err := tr.task.Suspend(); err != nil {
			continue // уже отправлена исполнителю
		}
		delete(s.live, id)
		s.postponed[tr.patchKey] = tr
	}

	var batch []*task.Base

	// Отложенные задачи, оказавшиеся в пределах near, возвращаются в работу
	var readmitted int
	for key, tr := range s.postponed {
		if !s.withinNear(tr.patchID) {
			continue
		}
		delete(s.postponed, key)
		if err := tr.task.Resume(); err != nil {
			s.logger.Warn("не удалось вернуть задачу патча %s: %v", key, err)
			tr.task.Cancel()
			continue
		}
		s.track(tr)
		if !tr.enqueued {
			tr.enqueued = true
			batch = append(batch, tr.task.Base)
		}
		readmitted++
	}

	// Новые патчи: верх всегда, низ только в пределах near
	var fresh int
	for key, id := range index {
		if _, ok := s.patchIndex[key]; ok {
			continue
		}
		fresh++
		upper := s.newTracked(key, id, chunkgen.RangeUpper)
		s.track(upper)
		batch = append(batch, upper.task.Base)

		lower := s.newTracked(key, id, chunkgen.RangeLower)
		if s.withinNear(id) {
			s.track(lower)
			batch = append(batch, lower.task.Base)
		} else {
			lower.enqueued = false
			_ = lower.task.Suspend()
			s.postponed[key] = lower
		}
	}
	s.patchIndex = index
	s.canceled += uint64(canceled)

	// Ранг — расстояние от точки обзора в патчах
	for _, tr := range s.live {
		tr.task.SetRank(rankOf(viewPatch, tr.patchID))
	}

	if len(batch) > 0 {
		s.pool.EnqueueTasks(batch...)
	}
	s.pool.ProcessQueue()

	s.logger.Debug("обзор %.1f,%.1f r=%d: новых патчей %d, отменено %d, возвращено %d, отложено %d",
		pos.X, pos.Y, rng, fresh, canceled, readmitted, len(s.postponed))
	return true
}

func (s *Scheduler) withinNear(id vec.Vec2) bool {
	return id.ChebyshevTo(s.center) <= s.near
}

// rankOf — расстояние от точки обзора до центра патча в патчах
func rankOf(view vec.Vec2Float, id vec.Vec2) float64 {
	return math.Hypot(float64(id.X)+0.5-view.X, float64(id.Y)+0.5-view.Y)
}

func (s *Scheduler) newTracked(key string, id vec.Vec2, rng chunkgen.Range) *tracked {
	s.created++
	params := chunkgen.ChunksParams{Blob: s.opts.Blob, SkipItems: s.opts.SkipItems}
	return &tracked{
		task:     chunkgen.NewChunksTask(key, rng, params),
		patchID:  id,
		patchKey: key,
		rng:      rng,
		enqueued: true,
	}
}

// track добавляет задачу в живые и ждёт её завершения
func (s *Scheduler) track(tr *tracked) {
	s.live[tr.task.ID()] = tr
	if !tr.watching {
		tr.watching = true
		go s.watch(tr)
	}
}

func (s *Scheduler) watch(tr *tracked) {
	select {
	case <-tr.task.Settled():
	case <-s.done:
		return
	}

	s.mu.Lock()
	if cur, ok := s.live[tr.task.ID()]; ok && cur == tr {
		delete(s.live, tr.task.ID())
	}
	s.mu.Unlock()

	out, err := tr.task.Await(context.Background())
	if errors.Is(err, task.ErrTaskCanceled) {
		return
	}
	res := Result{PatchKey: tr.patchKey, Range: tr.rng, Output: out, Err: err}
	select {
	case s.results <- res:
	case <-s.done:
	}
}

// Stats возвращает снимок состояния
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Visible:   len(s.patchIndex),
		Live:      len(s.live),
		Postponed: len(s.postponed),
		Created:   s.created,
		Canceled:  s.canceled,
	}
}

// PatchKeys возвращает ключи видимых патчей
func (s *Scheduler) PatchKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.patchIndex))
	for k := range s.patchIndex {
		keys = append(keys, k)
	}
	return keys
}

// Close отменяет все задачи и прекращает доставку результатов
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, tr := range s.live {
		tr.task.Cancel()
		delete(s.live, id)
	}
	for key, tr := range s.postponed {
		tr.task.Cancel()
		delete(s.postponed, key)
	}
	close(s.done)
}
