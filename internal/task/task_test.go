package task

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoIn struct {
	Text string `json:"text"`
}

type echoParams struct {
	Upper bool `json:"upper"`
}

func echoTable() Table {
	table := NewTable()
	table.Register(KindGround, HandlerFunc[echoIn, echoParams, string](
		func(_ context.Context, in echoIn, p echoParams) (string, error) {
			if p.Upper {
				return "UP:" + in.Text, nil
			}
			return in.Text, nil
		}))
	return table
}

type recordingPool struct {
	got []*Base
}

func (p *recordingPool) EnqueueTasks(tasks ...*Base) {
	p.got = append(p.got, tasks...)
}

func TestProcessSync(t *testing.T) {
	tk := New[echoIn, echoParams, string](KindGround, echoIn{Text: "a"}, echoParams{Upper: true})
	out, err := tk.Process(context.Background(), echoTable())
	require.NoError(t, err)
	assert.Equal(t, "UP:a", out)
	assert.Equal(t, StateDone, tk.State())

	got, err := tk.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "UP:a", got)
}

func TestProcessHandlerNotFound(t *testing.T) {
	tk := New[echoIn, echoParams, string](KindItems, echoIn{}, echoParams{})
	out, err := tk.Process(context.Background(), echoTable())
	assert.NoError(t, err, "отсутствие обработчика не пробрасывается как ошибка")
	assert.Nil(t, out)
	assert.Equal(t, StateDone, tk.State())
}

func TestAsyncProcess(t *testing.T) {
	tk := New[echoIn, echoParams, string](KindGround, echoIn{Text: "b"}, echoParams{})
	fut := tk.AsyncProcess(context.Background(), echoTable())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := fut.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", v)
	assert.Equal(t, StateDone, tk.State())
}

func TestDelegateAndCancel(t *testing.T) {
	pool := &recordingPool{}
	tk := New[echoIn, echoParams, string](KindGround, echoIn{}, echoParams{})
	fut := tk.Delegate(pool)
	require.Len(t, pool.got, 1)
	assert.Same(t, tk.Base, pool.got[0])

	hookCalled := false
	tk.OnCancel(func() { hookCalled = true })

	assert.True(t, tk.Cancel())
	assert.True(t, hookCalled)
	assert.True(t, fut.Settled(), "результат отклоняется немедленно")
	_, err := tk.Await(context.Background())
	assert.ErrorIs(t, err, ErrTaskCanceled)

	assert.False(t, tk.Cancel(), "повторная отмена ничего не делает")
	assert.False(t, tk.Complete("late", nil), "поздний ответ отбрасывается")
	assert.Equal(t, StateCanceled, tk.State())
}

func TestSuspendResume(t *testing.T) {
	tk := NewBase(KindChunks, nil, nil)
	require.NoError(t, tk.Schedule())

	woke := 0
	require.True(t, tk.MarkWaiting(1, func() { woke++ }))
	require.NoError(t, tk.Suspend())
	assert.Equal(t, StateSuspended, tk.State())
	assert.False(t, tk.MarkPending(), "приостановленная задача не отправляется")

	require.NoError(t, tk.Resume())
	assert.Equal(t, StateWaiting, tk.State())
	assert.Equal(t, 1, woke)

	require.True(t, tk.MarkPending())
	assert.ErrorIs(t, tk.Suspend(), ErrInvalidTransition, "отправленную задачу нельзя приостановить")
	assert.ErrorIs(t, tk.Resume(), ErrInvalidTransition)
}

func TestSuspendedBeforeEnqueue(t *testing.T) {
	tk := NewBase(KindChunks, nil, nil)
	require.NoError(t, tk.Schedule())
	require.NoError(t, tk.Suspend())

	require.True(t, tk.MarkWaiting(5, nil))
	assert.Equal(t, StateSuspended, tk.State())
	require.NoError(t, tk.Resume())
	assert.Equal(t, StateWaiting, tk.State())
	assert.Equal(t, uint64(5), tk.Seq())
}

func TestTerminalTaskIsNotQueued(t *testing.T) {
	tk := NewBase(KindChunks, nil, nil)
	tk.Cancel()
	assert.False(t, tk.MarkWaiting(1, nil))

	called := false
	tk.OnCancel(func() { called = true })
	assert.True(t, called, "обработчик отмены для отменённой задачи вызывается сразу")
}

func TestTableValidate(t *testing.T) {
	table := echoTable()
	assert.NoError(t, table.Validate(KindGround))

	err := table.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHandlerNotFound)
	assert.Contains(t, err.Error(), "chunks")
	assert.Contains(t, err.Error(), "items")
}

func TestExecuteRecoversPanic(t *testing.T) {
	table := NewTable()
	table.Register(KindItems, HandlerFunc[int, int, int](func(context.Context, int, int) (int, error) {
		panic("boom")
	}))
	reply := table.Execute(context.Background(), Stub{TaskID: 9, HandlerID: KindItems, Input: 1})
	assert.Equal(t, uint64(9), reply.ID)
	assert.Nil(t, reply.Data)
	assert.Error(t, reply.Err)
}

func TestExecuteBadArguments(t *testing.T) {
	reply := echoTable().Execute(context.Background(), Stub{TaskID: 1, HandlerID: KindGround, Input: 42})
	assert.ErrorIs(t, reply.Err, ErrBadArguments)
}

func TestStubWireFormat(t *testing.T) {
	tk := NewBase(KindGround, echoIn{Text: "x"}, echoParams{})
	raw, err := json.Marshal(tk.Stub())
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "ground", fields["handlerId"])
	assert.Contains(t, fields, "taskId")
	assert.Contains(t, fields, "processingInput")
	assert.Contains(t, fields, "processingParams")

	var rs RawStub
	require.NoError(t, json.Unmarshal(raw, &rs))
	stub, err := echoTable().DecodeStub(rs)
	require.NoError(t, err)
	assert.Equal(t, echoIn{Text: "x"}, stub.Input)

	reply := echoTable().Execute(context.Background(), stub)
	assert.Equal(t, "x", reply.Data)
}

func TestDecodeUnknownKind(t *testing.T) {
	var rs RawStub
	require.NoError(t, json.Unmarshal([]byte(`{"taskId":3,"handlerId":"nope","processingInput":{}}`), &rs))
	assert.Equal(t, KindUnknown, rs.HandlerID)

	stub, err := echoTable().DecodeStub(rs)
	require.NoError(t, err)
	reply := echoTable().Execute(context.Background(), stub)
	assert.Nil(t, reply.Data)
	assert.NoError(t, reply.Err)

	_, err = echoTable().DecodeStub(RawStub{HandlerID: KindGround, Input: json.RawMessage(`[`)})
	assert.True(t, errors.Is(err, ErrBadArguments))
}

func TestKindNames(t *testing.T) {
	k, ok := ParseKind("items")
	assert.True(t, ok)
	assert.Equal(t, KindItems, k)
	_, ok = ParseKind("unknown")
	assert.False(t, ok)
}
