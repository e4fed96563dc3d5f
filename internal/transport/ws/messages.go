package ws

import (
	"github.com/annel0/voxelgen/internal/scheduler"
	"github.com/annel0/voxelgen/internal/task"
)

// Типы входящих сообщений
const (
	TypeTask = "task"
	TypeView = "view"
)

// Inbound — входящее сообщение клиента.
// Для "task" поля заглушки лежат на верхнем уровне рядом с type.
type Inbound struct {
	Type string `json:"type"`
	task.RawStub
	Pos   []float64 `json:"pos,omitempty"`
	Range int       `json:"range,omitempty"`
}

// TaskReply — ответ на сообщение "task"
type TaskReply struct {
	ID    uint64 `json:"id"`
	Data  any    `json:"data"`
	Error string `json:"error,omitempty"`
}

// ViewReply — подтверждение смены точки обзора
type ViewReply struct {
	Type    string          `json:"type"`
	Changed bool            `json:"changed"`
	Stats   scheduler.Stats `json:"stats"`
}

// ErrorReply — сообщение об ошибке разбора или генерации
type ErrorReply struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	PatchKey string `json:"patchKey,omitempty"`
}
