package eventbus

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBusDeliversMatchingEvents(t *testing.T) {
	bus := NewMemoryBus(16)
	defer bus.Close()

	var got atomic.Int32
	received := make(chan ChunksGenerated, 1)
	_, err := bus.Subscribe(context.Background(), Filter{Types: []string{EventChunksGenerated}}, func(ctx context.Context, ev *Envelope) {
		p, err := DecodePayload[ChunksGenerated](ev)
		if err == nil {
			received <- p
		}
		got.Add(1)
	})
	require.NoError(t, err)

	other, err := NewEnvelope("test", "Other", map[string]int{"x": 1})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), other))

	ev, err := NewEnvelope("test", EventChunksGenerated, ChunksGenerated{PatchKey: "1:2", Range: "upper", Chunks: []string{"1_0_2"}})
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)
	require.NoError(t, bus.Publish(context.Background(), ev))

	select {
	case p := <-received:
		assert.Equal(t, "1:2", p.PatchKey)
		assert.Equal(t, []string{"1_0_2"}, p.Chunks)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	require.NoError(t, bus.Close())
	assert.Equal(t, int32(1), got.Load())
	stats := bus.Metrics()
	assert.Equal(t, uint64(2), stats.Published)
	assert.Equal(t, uint64(1), stats.Consumed)
}

func TestMemoryBusUnsubscribe(t *testing.T) {
	bus := NewMemoryBus(4)
	var got atomic.Int32
	sub, err := bus.Subscribe(context.Background(), Filter{}, func(context.Context, *Envelope) { got.Add(1) })
	require.NoError(t, err)
	sub.Unsubscribe()

	ev, _ := NewEnvelope("test", EventChunksGenerated, ChunksGenerated{})
	require.NoError(t, bus.Publish(context.Background(), ev))
	require.NoError(t, bus.Close())
	assert.Zero(t, got.Load())
}

func TestMemoryBusClosed(t *testing.T) {
	bus := NewMemoryBus(1)
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	ev, _ := NewEnvelope("test", EventChunksGenerated, ChunksGenerated{})
	assert.ErrorIs(t, bus.Publish(context.Background(), ev), ErrBusClosed)
	_, err := bus.Subscribe(context.Background(), Filter{}, func(context.Context, *Envelope) {})
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestMatchFilter(t *testing.T) {
	ev := &Envelope{EventType: EventChunksGenerated, Source: "chunkgen"}
	assert.True(t, matchFilter(ev, Filter{}))
	assert.True(t, matchFilter(ev, Filter{Sources: []string{"chunkgen"}}))
	assert.False(t, matchFilter(ev, Filter{Types: []string{"Other"}}))
}

func TestMetricsExporterCollect(t *testing.T) {
	bus := NewMemoryBus(4)
	defer bus.Close()
	reg := prometheus.NewRegistry()
	me := NewMetricsExporter(bus, reg)

	ev, _ := NewEnvelope("test", EventChunksGenerated, ChunksGenerated{})
	require.NoError(t, bus.Publish(context.Background(), ev))
	require.NoError(t, bus.Publish(context.Background(), ev))
	prev := me.collect(Stats{})
	me.collect(prev)

	families, err := reg.Gather()
	require.NoError(t, err)
	var published float64
	for _, f := range families {
		if f.GetName() == "voxelgen_eventbus_messages_published_total" {
			published = f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, 2.0, published)
}

func TestJetStreamBus(t *testing.T) {
	url := os.Getenv("VOXELGEN_TEST_NATS")
	if url == "" {
		t.Skip("VOXELGEN_TEST_NATS не задан")
	}
	bus, err := NewJetStreamBus(url, "VOXELGEN_TEST", time.Minute)
	require.NoError(t, err)
	defer bus.Close()

	received := make(chan *Envelope, 1)
	sub, err := bus.Subscribe(context.Background(), Filter{Types: []string{EventChunksGenerated}}, func(_ context.Context, ev *Envelope) {
		received <- ev
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	ev, _ := NewEnvelope("test", EventChunksGenerated, ChunksGenerated{PatchKey: "0:0"})
	require.NoError(t, bus.Publish(context.Background(), ev))

	select {
	case got := <-received:
		assert.Equal(t, ev.ID, got.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("event not delivered")
	}
}
