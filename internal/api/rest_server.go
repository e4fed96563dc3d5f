package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/voxelgen/internal/chunkgen"
	"github.com/annel0/voxelgen/internal/logging"
	"github.com/annel0/voxelgen/internal/middleware"
	"github.com/annel0/voxelgen/internal/world"
)

// ChunkSource выдаёт сжатые блобы чанков патча
type ChunkSource interface {
	Blob(ctx context.Context, patchKey string, rng chunkgen.Range) ([]byte, error)
}

// StatsFunc возвращает снимок состояния подсистем для /api/stats
type StatsFunc func() map[string]any

// RestServer представляет REST API сервер
type RestServer struct {
	router  *gin.Engine
	server  *http.Server
	chunks  ChunkSource
	stats   StatsFunc
	metrics *ServerMetrics
	logger  *logging.Logger
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Addr     string               // адрес для запуска сервера
	Chunks   ChunkSource          // источник блобов чанков
	Stats    StatsFunc            // статистика подсистем, может быть nil
	Registry *prometheus.Registry // регистр метрик для /metrics, nil — глобальный
	Service  string               // имя сервиса для otel и namespace метрик
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Addr == "" {
		config.Addr = ":8088"
	}
	if config.Service == "" {
		config.Service = "voxelgen"
	}

	// Устанавливаем режим релиза для gin
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	logger := logging.GetComponentLogger("api")

	// === Observability middleware ===
	router.Use(otelgin.Middleware(config.Service))
	router.Use(middleware.NewRequestLogger(logger).Handler())

	var (
		reg      prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if config.Registry != nil {
		reg, gatherer = config.Registry, config.Registry
	}
	promMw := middleware.NewPrometheusMiddleware(config.Service, reg)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, gatherer)

	rs := &RestServer{
		router:  router,
		chunks:  config.Chunks,
		stats:   config.Stats,
		metrics: NewServerMetrics(),
		logger:  logger,
	}
	rs.server = &http.Server{
		Addr:              config.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	rs.setupRoutes()
	return rs
}

// Router возвращает gin.Engine для монтирования дополнительных обработчиков
func (rs *RestServer) Router() *gin.Engine {
	return rs.router
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	api := rs.router.Group("/api")
	{
		api.GET("/stats", rs.handleStats)
		api.GET("/chunks/:patchKey", rs.handleChunks)
	}

	// Health check
	rs.router.GET("/health", rs.handleHealth)
}

// handleHealth проверка состояния сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// handleStats возвращает статистику сервера
func (rs *RestServer) handleStats(c *gin.Context) {
	stats := make(map[string]interface{})
	if rs.stats != nil {
		for k, v := range rs.stats() {
			stats[k] = v
		}
	}

	memoryMB, _ := rs.metrics.GetMemoryUsage()
	cpuPercent, err := rs.metrics.GetCPUUsage()
	if err != nil {
		rs.logger.Debug("CPU процесса недоступен: %v", err)
	}

	stats["server"] = map[string]interface{}{
		"uptime":      rs.metrics.GetUptime(),
		"memory_mb":   fmt.Sprintf("%.2f", memoryMB),
		"cpu_percent": fmt.Sprintf("%.2f", cpuPercent),
		"server_time": time.Now().Unix(),
	}
	stats["memory_details"] = rs.metrics.GetDetailedMemoryStats()

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика получена",
		Data:    stats,
	})
}

// handleChunks отдаёт сжатый блоб чанков патча. ETag — xxhash64 блоба.
func (rs *RestServer) handleChunks(c *gin.Context) {
	patchKey := c.Param("patchKey")
	if _, ok := world.ParsePatchKey(patchKey); !ok {
		c.JSON(http.StatusBadRequest, GenericResponse{Message: "Неверный ключ патча: " + patchKey})
		return
	}
	rng, ok := chunkgen.ParseRange(c.Query("range"))
	if !ok {
		c.JSON(http.StatusBadRequest, GenericResponse{Message: "Неверный диапазон: " + c.Query("range")})
		return
	}
	if rs.chunks == nil {
		c.JSON(http.StatusServiceUnavailable, GenericResponse{Message: "Генератор не подключён"})
		return
	}

	blob, err := rs.chunks.Blob(c.Request.Context(), patchKey, rng)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusServiceUnavailable
		}
		rs.logger.Warn("блоб %s/%s: %v", patchKey, rng, err)
		c.JSON(status, GenericResponse{Message: "Ошибка генерации чанков"})
		return
	}

	etag := ETag(blob)
	c.Header("ETag", etag)
	c.Header("Cache-Control", "public, max-age=60")
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", blob)
}

// ETag возвращает значение заголовка ETag для блоба
func ETag(blob []byte) string {
	return fmt.Sprintf("%q", fmt.Sprintf("%016x", xxhash.Sum64(blob)))
}

// Start запускает REST сервер и блокируется до его остановки
func (rs *RestServer) Start() error {
	rs.logger.Info("REST API слушает %s", rs.server.Addr)
	if err := rs.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("rest server: %w", err)
	}
	return nil
}

// Shutdown останавливает сервер, дожидаясь активных запросов
func (rs *RestServer) Shutdown(ctx context.Context) error {
	return rs.server.Shutdown(ctx)
}
