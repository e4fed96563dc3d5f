package task

import "encoding/json"

// Stub — переносимое представление задачи для исполнителя
type Stub struct {
	TaskID    uint64 `json:"taskId"`
	HandlerID Kind   `json:"handlerId"`
	Input     any    `json:"processingInput"`
	Params    any    `json:"processingParams"`
}

// RawStub — заглушка задачи в виде, полученном из сети
type RawStub struct {
	TaskID    uint64          `json:"taskId"`
	HandlerID Kind            `json:"handlerId"`
	Input     json.RawMessage `json:"processingInput"`
	Params    json.RawMessage `json:"processingParams"`
}

// Reply — ответ исполнителя. Data равно nil, если обработчик не найден.
type Reply struct {
	ID   uint64 `json:"id"`
	Data any    `json:"data"`
	Err  error  `json:"-"`
}
