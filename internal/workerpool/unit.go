package workerpool

import (
	"context"

	"github.com/annel0/voxelgen/internal/task"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// executionUnit — однопоточный исполнитель. Получает заглушки и отвечает копиями
// результатов, общих контейнеров с управляющей стороной нет.
type executionUnit struct {
	id      int
	table   task.Table
	tracer  trace.Tracer
	stubs   chan task.Stub
	replies chan task.Reply
}

func newExecutionUnit(id int, table task.Table, tracer trace.Tracer) *executionUnit {
	return &executionUnit{
		id:      id,
		table:   table,
		tracer:  tracer,
		stubs:   make(chan task.Stub, 1),
		replies: make(chan task.Reply, 1),
	}
}

func (u *executionUnit) run(ctx context.Context) {
	defer close(u.replies)
	for stub := range u.stubs {
		u.replies <- u.execute(ctx, stub)
	}
}

func (u *executionUnit) execute(ctx context.Context, stub task.Stub) task.Reply {
	ctx, span := u.tracer.Start(ctx, "workerpool.execute", trace.WithAttributes(
		attribute.String("task.kind", stub.HandlerID.String()),
		attribute.Int64("task.id", int64(stub.TaskID)),
		attribute.Int("worker.id", u.id),
	))
	defer span.End()

	reply := u.table.Execute(ctx, stub)
	if reply.Err != nil {
		span.RecordError(reply.Err)
		span.SetStatus(codes.Error, reply.Err.Error())
	}
	return reply
}
