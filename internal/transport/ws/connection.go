package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/annel0/voxelgen/internal/scheduler"
	"github.com/annel0/voxelgen/internal/task"
	"github.com/annel0/voxelgen/internal/vec"
)

const (
	// Время на запись сообщения клиенту
	writeWait = 10 * time.Second

	// Время ожидания pong от клиента
	pongWait = 60 * time.Second

	// Период ping, меньше pongWait
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер входящего сообщения
	maxMessageSize = 64 * 1024
)

type frame struct {
	kind int
	data []byte
}

// Connection — одно WebSocket соединение со своим планировщиком видимости
type Connection struct {
	server *Server
	ws     *websocket.Conn
	send   chan frame

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once

	mu    sync.Mutex
	sched *scheduler.Scheduler
}

func newConnection(s *Server, conn *websocket.Conn) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		server: s,
		ws:     conn,
		send:   make(chan frame, 256),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (c *Connection) handle() {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.writePump()
	}()
	c.readPump()
	c.close()
	<-done
}

func (c *Connection) close() {
	c.once.Do(func() {
		c.cancel()
		c.mu.Lock()
		if c.sched != nil {
			c.sched.Close()
		}
		c.mu.Unlock()
		_ = c.ws.Close()
	})
}

func (c *Connection) readPump() {
	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.server.logger.Debug("ошибка чтения: %v", err)
			}
			return
		}

		var in Inbound
		if err := json.Unmarshal(msg, &in); err != nil {
			c.sendJSON(ErrorReply{Type: "error", Message: "malformed message"})
			continue
		}

		switch in.Type {
		case TypeTask:
			c.handleTask(in.RawStub)
		case TypeView:
			c.handleView(in)
		default:
			c.sendJSON(ErrorReply{Type: "error", Message: fmt.Sprintf("unknown message type %q", in.Type)})
		}
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case f := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(f.kind, f.data); err != nil {
				c.server.logger.Debug("ошибка записи: %v", err)
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.ctx.Done():
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return
		}
	}
}

func (c *Connection) enqueue(f frame) {
	select {
	case c.send <- f:
	case <-c.ctx.Done():
	}
}

func (c *Connection) sendJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.server.logger.Error("marshal %T: %v", v, err)
		return
	}
	c.enqueue(frame{kind: websocket.TextMessage, data: data})
}

// handleTask исполняет присланную заглушку в общем пуле и отвечает {id, data}
func (c *Connection) handleTask(raw task.RawStub) {
	stub, err := c.server.opts.Table.DecodeStub(raw)
	if err != nil {
		c.sendJSON(TaskReply{ID: raw.TaskID, Error: err.Error()})
		return
	}

	t := task.NewBase(stub.HandlerID, stub.Input, stub.Params)
	_ = t.Schedule()
	fut := t.Delegate(c.server.opts.Pool)

	go func() {
		v, err := fut.Wait(c.ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				t.Cancel()
				return
			}
			c.sendJSON(TaskReply{ID: raw.TaskID, Error: err.Error()})
			return
		}
		c.sendJSON(TaskReply{ID: raw.TaskID, Data: v})
	}()
}

// handleView сдвигает точку обзора; готовые блобы уходят бинарными кадрами
func (c *Connection) handleView(in Inbound) {
	if len(in.Pos) != 2 || in.Range < 0 {
		c.sendJSON(ErrorReply{Type: "error", Message: "view needs pos [x,z] and non-negative range"})
		return
	}
	rng := in.Range
	if limit := c.server.opts.MaxRange; limit > 0 && rng > limit {
		rng = limit
	}

	sched := c.scheduler()
	changed := sched.PollChunks(vec.Vec2Float{X: in.Pos[0], Y: in.Pos[1]}, rng)
	c.sendJSON(ViewReply{Type: TypeView, Changed: changed, Stats: sched.Stats()})
}

// scheduler создаёт планировщик соединения при первом сообщении "view"
func (c *Connection) scheduler() *scheduler.Scheduler {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sched == nil {
		c.sched = scheduler.New(c.server.opts.Env, c.server.opts.Pool, scheduler.Options{
			Near: c.server.opts.Near,
			Blob: true,
		})
		if c.ctx.Err() != nil {
			c.sched.Close()
		}
		go c.streamResults(c.sched)
	}
	return c.sched
}

func (c *Connection) streamResults(s *scheduler.Scheduler) {
	for {
		select {
		case res := <-s.Results():
			if res.Err != nil {
				c.sendJSON(ErrorReply{Type: "error", Message: res.Err.Error(), PatchKey: res.PatchKey})
				continue
			}
			if p := c.server.opts.Publisher; p != nil {
				p.Publish(c.ctx, res.Output)
			}
			c.enqueue(frame{kind: websocket.BinaryMessage, data: res.Output.Blob})
		case <-c.ctx.Done():
			return
		}
	}
}
