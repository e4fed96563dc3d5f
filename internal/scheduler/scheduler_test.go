package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/annel0/voxelgen/internal/chunkgen"
	"github.com/annel0/voxelgen/internal/sampler"
	"github.com/annel0/voxelgen/internal/task"
	"github.com/annel0/voxelgen/internal/vec"
	"github.com/annel0/voxelgen/internal/workerpool"
	"github.com/annel0/voxelgen/internal/world"
	"github.com/annel0/voxelgen/internal/world/block"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePool запоминает задачи, не исполняя их
type fakePool struct {
	mu        sync.Mutex
	seq       uint64
	tasks     []*task.Base
	processed int
}

func (p *fakePool) EnqueueTasks(tasks ...*task.Base) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range tasks {
		p.seq++
		t.MarkWaiting(p.seq, nil)
		p.tasks = append(p.tasks, t)
	}
}

func (p *fakePool) ProcessQueue() {
	p.mu.Lock()
	p.processed++
	p.mu.Unlock()
}

func (p *fakePool) snapshot() []*task.Base {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*task.Base(nil), p.tasks...)
}

func inputOf(t *task.Base) chunkgen.ChunksInput {
	return t.Stub().Input.(chunkgen.ChunksInput)
}

func byRange(tasks []*task.Base, rng chunkgen.Range) map[string][]*task.Base {
	out := make(map[string][]*task.Base)
	for _, t := range tasks {
		in := inputOf(t)
		if in.Range == rng {
			out[in.PatchKey] = append(out[in.PatchKey], t)
		}
	}
	return out
}

func testEnv() *world.Env {
	return &world.Env{PatchSize: 4, ChunkHeight: 4, PatchMargin: 0, BottomID: 0, TopID: 3}
}

func chebyshev(key string, center vec.Vec2) int {
	id, _ := world.ParsePatchKey(key)
	return id.ChebyshevTo(center)
}

func TestInitialPollCreatesUpperEverywhereLowerNear(t *testing.T) {
	pool := &fakePool{}
	s := New(testEnv(), pool, Options{Near: 2})
	t.Cleanup(s.Close)

	require.True(t, s.PollChunks(vec.Vec2Float{X: 0, Y: 0}, 4))

	tasks := pool.snapshot()
	upper := byRange(tasks, chunkgen.RangeUpper)
	lower := byRange(tasks, chunkgen.RangeLower)
	assert.Len(t, upper, 81, "по одной верхней задаче на каждый патч 9×9")
	assert.Len(t, lower, 25, "нижние задачи только в радиусе 2")
	for key, ts := range upper {
		assert.Len(t, ts, 1, "патч %s", key)
	}
	for key := range lower {
		assert.LessOrEqual(t, chebyshev(key, vec.Vec2{}), 2)
	}

	st := s.Stats()
	assert.Equal(t, 81, st.Visible)
	assert.Equal(t, 56, st.Postponed)
	assert.Equal(t, uint64(81+81), st.Created)

	// Ближние патчи идут раньше дальних
	near := upper["0:0"][0]
	far := upper["4:4"][0]
	assert.Less(t, near.Rank(), far.Rank())
}

func TestRepeatedPollIsNoop(t *testing.T) {
	pool := &fakePool{}
	s := New(testEnv(), pool, Options{Near: 2})
	t.Cleanup(s.Close)

	require.True(t, s.PollChunks(vec.Vec2Float{X: 1, Y: 1}, 3))
	before := pool.snapshot()
	created := s.Stats().Created

	assert.False(t, s.PollChunks(vec.Vec2Float{X: 1, Y: 1}, 3))
	assert.Len(t, pool.snapshot(), len(before), "новых задач нет")
	assert.Equal(t, created, s.Stats().Created)
	for _, tk := range before {
		assert.NotEqual(t, task.StateCanceled, tk.State())
	}

	// Смена только радиуса — уже изменение
	assert.True(t, s.PollChunks(vec.Vec2Float{X: 1, Y: 1}, 2))
}

func TestMovingViewCancelsAndCreatesOnlyDifference(t *testing.T) {
	pool := &fakePool{}
	s := New(testEnv(), pool, Options{Near: 2})
	t.Cleanup(s.Close)

	require.True(t, s.PollChunks(vec.Vec2Float{X: 0, Y: 0}, 4))
	first := pool.snapshot()

	// Мировая позиция 10 при размере патча 4 — патч 2
	require.True(t, s.PollChunks(vec.Vec2Float{X: 10, Y: 0}, 4))
	all := pool.snapshot()
	added := all[len(first):]

	newCenter := vec.Vec2{X: 2, Y: 0}
	inNewIndex := func(key string) bool { return chebyshev(key, newCenter) <= 4 }

	for _, tk := range first {
		in := inputOf(tk)
		if !inNewIndex(in.PatchKey) {
			assert.Equal(t, task.StateCanceled, tk.State(), "задача %s %s вне нового индекса", in.PatchKey, in.Range)
		} else if in.Range == chunkgen.RangeUpper {
			assert.NotEqual(t, task.StateCanceled, tk.State(), "верх патча %s в перекрытии сохранён", in.PatchKey)
		}
	}

	// Новые верхние задачи только для вошедших патчей x=5..6
	newUpper := byRange(added, chunkgen.RangeUpper)
	assert.Len(t, newUpper, 18)
	for key := range newUpper {
		id, _ := world.ParsePatchKey(key)
		assert.GreaterOrEqual(t, id.X, 5)
	}

	// Подземные задачи: x=3..4 возвращены из отложенных, ничего не создано заново
	upperAll := byRange(all, chunkgen.RangeUpper)
	for key, ts := range upperAll {
		assert.Len(t, ts, 1, "патч %s не создаётся повторно", key)
	}
	readmitted := byRange(added, chunkgen.RangeLower)
	assert.Len(t, readmitted, 10)
	for key, ts := range readmitted {
		assert.LessOrEqual(t, chebyshev(key, newCenter), 2)
		assert.Equal(t, task.StateWaiting, ts[0].State())
	}

	// Живые нижние задачи x=-2..-1 ушли за near и приостановлены, а не отменены
	oldLower := byRange(first, chunkgen.RangeLower)
	assert.Equal(t, task.StateSuspended, oldLower["-1:0"][0].State())
	assert.Equal(t, task.StateWaiting, oldLower["1:0"][0].State())

	st := s.Stats()
	assert.Equal(t, 81, st.Visible)
}

func TestRerankOnMove(t *testing.T) {
	pool := &fakePool{}
	s := New(testEnv(), pool, Options{Near: 1})
	t.Cleanup(s.Close)

	require.True(t, s.PollChunks(vec.Vec2Float{X: 0, Y: 0}, 2))
	upper := byRange(pool.snapshot(), chunkgen.RangeUpper)
	before := upper["1:0"][0].Rank()

	require.True(t, s.PollChunks(vec.Vec2Float{X: 6, Y: 2}, 2))
	assert.Less(t, upper["1:0"][0].Rank(), before, "после сдвига к патчу 1:0 его ранг уменьшился")
	assert.GreaterOrEqual(t, pool.processed, 2)
}

func TestCloseCancelsEverything(t *testing.T) {
	pool := &fakePool{}
	s := New(testEnv(), pool, Options{Near: 0})
	require.True(t, s.PollChunks(vec.Vec2Float{}, 1))
	s.Close()

	for _, tk := range pool.snapshot() {
		assert.Equal(t, task.StateCanceled, tk.State())
	}
	assert.False(t, s.PollChunks(vec.Vec2Float{X: 100}, 1), "закрытый планировщик ничего не делает")
}

func TestResultsFromRealPool(t *testing.T) {
	env := testEnv()
	gen := chunkgen.NewGenerator(env, chunkgen.Deps{Ground: sampler.NewFlat(5, block.BiomePlains)})
	table := task.NewTable()
	chunkgen.Register(table, gen)

	pool := workerpool.New(table, workerpool.Options{Workers: 3, Registerer: prometheus.NewRegistry()})
	require.NoError(t, pool.Start(context.Background()))
	t.Cleanup(pool.Close)

	s := New(env, pool, Options{Near: 0, Blob: true})
	t.Cleanup(s.Close)
	require.True(t, s.PollChunks(vec.Vec2Float{X: 1, Y: 1}, 1))

	got := make(map[string]int)
	timeout := time.After(5 * time.Second)
	for i := 0; i < 10; i++ {
		select {
		case res := <-s.Results():
			require.NoError(t, res.Err)
			stubs, err := res.Output.Stubs()
			require.NoError(t, err)
			assert.NotEmpty(t, stubs)
			got[string(res.Range)]++
		case <-timeout:
			t.Fatalf("получено только %d результатов", i)
		}
	}
	assert.Equal(t, map[string]int{"upper": 9, "lower": 1}, got)

	require.Eventually(t, func() bool { return s.Stats().Live == 0 }, time.Second, 10*time.Millisecond)
}
