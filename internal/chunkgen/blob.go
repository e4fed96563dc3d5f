package chunkgen

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/annel0/voxelgen/internal/vec"
	"github.com/klauspost/compress/gzip"
)

// ErrCorruptBlob — блоб не удалось разобрать
var ErrCorruptBlob = errors.New("corrupt chunk blob")

// Ограничение размера метаданных одной записи
const maxMetaSize = 1 << 16

// blobMeta — метаданные записи блоба
type blobMeta struct {
	Key    string   `json:"key"`
	Bounds vec.Box3 `json:"bounds"`
	Margin int      `json:"margin"`
	Size   int      `json:"size"`
	Empty  bool     `json:"empty"`
}

// EncodeBlob сжимает набор чанков в блоб: gzip от последовательности записей
// [u32 LE длина метаданных][JSON метаданные][полезная нагрузка].
func EncodeBlob(stubs []ChunkStub) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	if err != nil {
		return nil, err
	}

	var prefix [4]byte
	for _, s := range stubs {
		meta, err := json.Marshal(blobMeta{
			Key:    s.Key,
			Bounds: s.Bounds,
			Margin: s.Margin,
			Size:   len(s.Payload),
			Empty:  s.Empty,
		})
		if err != nil {
			return nil, fmt.Errorf("encode meta %s: %w", s.Key, err)
		}
		binary.LittleEndian.PutUint32(prefix[:], uint32(len(meta)))
		if _, err := zw.Write(prefix[:]); err != nil {
			return nil, err
		}
		if _, err := zw.Write(meta); err != nil {
			return nil, err
		}
		if _, err := zw.Write(s.Payload); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeBlob разбирает блоб обратно в заглушки чанков
func DecodeBlob(blob []byte) ([]ChunkStub, error) {
	zr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptBlob, err)
	}
	defer zr.Close()

	var stubs []ChunkStub
	var prefix [4]byte
	for {
		if _, err := io.ReadFull(zr, prefix[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return stubs, nil
			}
			return nil, fmt.Errorf("%w: record %d prefix: %v", ErrCorruptBlob, len(stubs), err)
		}

		n := binary.LittleEndian.Uint32(prefix[:])
		if n == 0 || n > maxMetaSize {
			return nil, fmt.Errorf("%w: record %d meta size %d", ErrCorruptBlob, len(stubs), n)
		}
		metaBuf := make([]byte, n)
		if _, err := io.ReadFull(zr, metaBuf); err != nil {
			return nil, fmt.Errorf("%w: record %d meta: %v", ErrCorruptBlob, len(stubs), err)
		}
		var meta blobMeta
		if err := json.Unmarshal(metaBuf, &meta); err != nil {
			return nil, fmt.Errorf("%w: record %d meta: %v", ErrCorruptBlob, len(stubs), err)
		}
		want, err := payloadSize(meta.Bounds, meta.Margin)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrCorruptBlob, len(stubs), err)
		}
		if meta.Empty {
			want = 0
		}
		if meta.Size != want {
			return nil, fmt.Errorf("%w: record %d payload size %d, expected %d", ErrCorruptBlob, len(stubs), meta.Size, want)
		}

		stub := ChunkStub{Key: meta.Key, Bounds: meta.Bounds, Margin: meta.Margin, Empty: meta.Empty}
		if meta.Size > 0 {
			stub.Payload = make([]byte, meta.Size)
			if _, err := io.ReadFull(zr, stub.Payload); err != nil {
				return nil, fmt.Errorf("%w: record %d payload: %v", ErrCorruptBlob, len(stubs), err)
			}
		}
		stubs = append(stubs, stub)
	}
}
