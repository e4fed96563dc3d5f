package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/annel0/voxelgen/internal/logging"
)

// Handler исполняет задачи одного семейства
type Handler interface {
	// Handle выполняет задачу над уже декодированными аргументами
	Handle(ctx context.Context, input, params any) (any, error)
	// DecodeArgs восстанавливает аргументы из JSON
	DecodeArgs(input, params []byte) (any, any, error)
}

// HandlerFunc — типизированный обработчик
type HandlerFunc[In, P, Out any] func(ctx context.Context, in In, p P) (Out, error)

// Handle приводит аргументы к типам обработчика
func (f HandlerFunc[In, P, Out]) Handle(ctx context.Context, input, params any) (any, error) {
	in, ok := input.(In)
	if !ok {
		return nil, fmt.Errorf("%w: input %T", ErrBadArguments, input)
	}
	var p P
	if params != nil {
		if p, ok = params.(P); !ok {
			return nil, fmt.Errorf("%w: params %T", ErrBadArguments, params)
		}
	}
	return f(ctx, in, p)
}

// DecodeArgs декодирует JSON в типы обработчика. Пустые параметры дают нулевое значение.
func (f HandlerFunc[In, P, Out]) DecodeArgs(input, params []byte) (any, any, error) {
	var in In
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, nil, fmt.Errorf("%w: input: %v", ErrBadArguments, err)
	}
	var p P
	if len(params) > 0 && string(params) != "null" {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, nil, fmt.Errorf("%w: params: %v", ErrBadArguments, err)
		}
	}
	return in, p, nil
}

// Table — таблица обработчиков, собираемая при старте
type Table map[Kind]Handler

// NewTable создаёт пустую таблицу
func NewTable() Table {
	return make(Table)
}

// Register регистрирует обработчик семейства
func (t Table) Register(k Kind, h Handler) {
	t[k] = h
}

// Lookup ищет обработчик
func (t Table) Lookup(k Kind) (Handler, bool) {
	h, ok := t[k]
	return h, ok
}

// Validate проверяет, что для всех kinds (по умолчанию AllKinds) есть обработчики
func (t Table) Validate(kinds ...Kind) error {
	if len(kinds) == 0 {
		kinds = AllKinds
	}
	var errs []error
	for _, k := range kinds {
		if _, ok := t[k]; !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrHandlerNotFound, k))
		}
	}
	return errors.Join(errs...)
}

// DecodeStub восстанавливает заглушку из сетевого представления.
// Для неизвестного семейства аргументы остаются пустыми, и Execute ответит nil.
func (t Table) DecodeStub(raw RawStub) (Stub, error) {
	stub := Stub{TaskID: raw.TaskID, HandlerID: raw.HandlerID}
	h, ok := t[raw.HandlerID]
	if !ok {
		return stub, nil
	}
	in, p, err := h.DecodeArgs(raw.Input, raw.Params)
	if err != nil {
		return stub, fmt.Errorf("decode stub %d: %w", raw.TaskID, err)
	}
	stub.Input, stub.Params = in, p
	return stub, nil
}

// Execute выполняет заглушку. Отсутствующий обработчик логируется и даёт nil,
// паника обработчика превращается в ошибку ответа.
func (t Table) Execute(ctx context.Context, stub Stub) (reply Reply) {
	reply.ID = stub.TaskID
	h, ok := t[stub.HandlerID]
	if !ok {
		logging.GetComponentLogger("task").Warn("обработчик для %s не найден (задача %d)", stub.HandlerID, stub.TaskID)
		return reply
	}

	defer func() {
		if r := recover(); r != nil {
			logging.GetComponentLogger("task").Error("паника в обработчике %s: %v\n%s", stub.HandlerID, r, debug.Stack())
			reply.Data = nil
			reply.Err = fmt.Errorf("handler %s panicked: %v", stub.HandlerID, r)
		}
	}()

	reply.Data, reply.Err = h.Handle(ctx, stub.Input, stub.Params)
	return reply
}
