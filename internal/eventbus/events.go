package eventbus

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrBusClosed возвращается при работе с закрытой шиной.
var ErrBusClosed = errors.New("event bus closed")

// Типы событий
const (
	EventChunksGenerated = "ChunksGenerated"
)

// ChunksGenerated — полезная нагрузка события о готовых чанках патча.
type ChunksGenerated struct {
	PatchKey string   `json:"patchKey"`
	Range    string   `json:"range"`
	Chunks   []string `json:"chunks"`
	Empty    int      `json:"empty"`
	BlobSize int      `json:"blobSize,omitempty"`
}

// NewEnvelope упаковывает payload в JSON-конверт с новым UUID.
func NewEnvelope(source, eventType string, payload any) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		EventType: eventType,
		Version:   1,
		Payload:   data,
	}, nil
}

// DecodePayload распаковывает полезную нагрузку события.
func DecodePayload[T any](ev *Envelope) (T, error) {
	var v T
	if err := json.Unmarshal(ev.Payload, &v); err != nil {
		return v, fmt.Errorf("decode %s payload: %w", ev.EventType, err)
	}
	return v, nil
}
