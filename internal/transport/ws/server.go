package ws

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/annel0/voxelgen/internal/chunkgen"
	"github.com/annel0/voxelgen/internal/logging"
	"github.com/annel0/voxelgen/internal/scheduler"
	"github.com/annel0/voxelgen/internal/task"
	"github.com/annel0/voxelgen/internal/world"
)

// Publisher получает готовые результаты видимых патчей (кеш, шина событий)
type Publisher interface {
	Publish(ctx context.Context, out chunkgen.ChunksOutput)
}

// Options — параметры WebSocket сервера
type Options struct {
	Env       *world.Env
	Pool      scheduler.Pool
	Table     task.Table
	Near      int       // Радиус подземной детализации
	MaxRange  int       // Ограничение радиуса видимости, 0 — без ограничения
	Publisher Publisher // Может быть nil
	Logger    *logging.Logger
}

// Server принимает WebSocket соединения: запросы-ответы по заглушкам задач
// и потоковую выдачу чанков вокруг точки обзора клиента.
type Server struct {
	opts     Options
	logger   *logging.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*Connection]struct{}
	wg    sync.WaitGroup
}

// NewServer создаёт сервер
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logging.GetComponentLogger("ws")
	}
	return &Server{
		opts:   opts,
		logger: opts.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(map[*Connection]struct{}),
	}
}

// Handler возвращает http.HandlerFunc для маршрута /ws
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			s.logger.Warn("upgrade %s: %v", r.RemoteAddr, err)
			return
		}

		c := newConnection(s, conn)
		if !s.add(c) {
			_ = conn.Close()
			return
		}
		defer s.remove(c)

		s.logger.Info("клиент подключён: %s", r.RemoteAddr)
		c.handle()
		s.logger.Info("клиент отключён: %s", r.RemoteAddr)
	}
}

func (s *Server) add(c *Connection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns == nil {
		return false
	}
	s.conns[c] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) remove(c *Connection) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	s.wg.Done()
}

// Connections возвращает число активных соединений
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Close закрывает все соединения и ждёт их завершения
func (s *Server) Close() {
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()

	for c := range conns {
		c.close()
	}
	s.wg.Wait()
}
