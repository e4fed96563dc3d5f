package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/annel0/voxelgen/internal/logging"
	"github.com/annel0/voxelgen/internal/world"
)

// Config корневая структура конфигурации приложения.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Pool      PoolConfig      `yaml:"pool"`
	View      ViewConfig      `yaml:"view"`
	Cache     CacheConfig     `yaml:"cache"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// WorldConfig задаёт геометрию мира и сид генерации
type WorldConfig struct {
	PatchSize   int   `yaml:"patch_size"`
	ChunkHeight int   `yaml:"chunk_height"`
	PatchMargin int   `yaml:"patch_margin"`
	BottomID    *int  `yaml:"bottom_id"`
	TopID       *int  `yaml:"top_id"`
	Seed        int64 `yaml:"seed"`
	Caves       bool  `yaml:"caves"`
	Items       bool  `yaml:"items"`
	TreeDensity int   `yaml:"tree_density"`
}

type PoolConfig struct {
	Workers int `yaml:"workers"`
}

type ViewConfig struct {
	Range    int `yaml:"range"`
	Near     int `yaml:"near"`
	MaxRange int `yaml:"max_range"`
}

type CacheConfig struct {
	PatchMaxCost int64  `yaml:"patch_max_cost"`
	RedisAddr    string `yaml:"redis_addr"`
	RedisDB      int    `yaml:"redis_db"`
	BadgerPath   string `yaml:"badger_path"`
	TTLSeconds   int    `yaml:"ttl_seconds"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Buffer    int    `yaml:"buffer"`
}

type ServerConfig struct {
	RESTPort int    `yaml:"rest_port"`
	Host     string `yaml:"host"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

type LoggingConfig struct {
	Dir          string `yaml:"dir"`
	File         bool   `yaml:"file"`
	ConsoleLevel string `yaml:"console_level"`
	FileLevel    string `yaml:"file_level"`
}

// Env собирает world.Env из секции world. Незаданные поля берут значения по умолчанию.
func (w *WorldConfig) Env() *world.Env {
	env := world.DefaultEnv()
	env.PatchSize = getIntWithEnvFallback(w.PatchSize, "VOXELGEN_PATCH_SIZE", env.PatchSize)
	env.ChunkHeight = getIntWithEnvFallback(w.ChunkHeight, "VOXELGEN_CHUNK_HEIGHT", env.ChunkHeight)
	env.PatchMargin = getIntWithEnvFallback(w.PatchMargin, "VOXELGEN_PATCH_MARGIN", env.PatchMargin)
	if w.BottomID != nil {
		env.BottomID = *w.BottomID
	}
	if w.TopID != nil {
		env.TopID = *w.TopID
	}
	if w.Seed != 0 {
		env.Seed = w.Seed
	} else if v := os.Getenv("VOXELGEN_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			env.Seed = seed
		}
	}
	return env
}

// GetWorkers возвращает число воркеров пула
func (p *PoolConfig) GetWorkers() int {
	return getIntWithEnvFallback(p.Workers, "VOXELGEN_WORKERS", 4)
}

// GetRange возвращает дальность видимости в патчах
func (v *ViewConfig) GetRange() int {
	return getIntWithEnvFallback(v.Range, "VOXELGEN_VIEW_RANGE", 4)
}

// GetNear возвращает радиус генерации нижних чанков
func (v *ViewConfig) GetNear() int {
	return getIntWithEnvFallback(v.Near, "VOXELGEN_VIEW_NEAR", 2)
}

// GetMaxRange возвращает предел радиуса, запрашиваемого клиентом
func (v *ViewConfig) GetMaxRange() int {
	return getIntWithEnvFallback(v.MaxRange, "VOXELGEN_VIEW_MAX_RANGE", 16)
}

// GetPatchMaxCost возвращает бюджет кеша патчей в байтах
func (c *CacheConfig) GetPatchMaxCost() int64 {
	return int64(getIntWithEnvFallback(int(c.PatchMaxCost), "VOXELGEN_PATCH_CACHE_BYTES", 64<<20))
}

// GetRedisAddr возвращает адрес Redis (пусто — Redis не используется)
func (c *CacheConfig) GetRedisAddr() string {
	return getStringWithEnvFallback(c.RedisAddr, "VOXELGEN_REDIS_ADDR", "")
}

// GetTTL возвращает время жизни блобов в кеше
func (c *CacheConfig) GetTTL() time.Duration {
	return time.Duration(getIntWithEnvFallback(c.TTLSeconds, "VOXELGEN_CACHE_TTL", 600)) * time.Second
}

// GetURL возвращает адрес NATS (пусто — шина в памяти)
func (e *EventBusConfig) GetURL() string {
	return getStringWithEnvFallback(e.URL, "VOXELGEN_NATS_URL", "")
}

// GetRetention возвращает срок хранения событий в стриме
func (e *EventBusConfig) GetRetention() time.Duration {
	return time.Duration(getIntWithEnvFallback(e.Retention, "VOXELGEN_EVENT_RETENTION_HOURS", 24)) * time.Hour
}

// GetBuffer возвращает размер буфера шины в памяти
func (e *EventBusConfig) GetBuffer() int {
	return getIntWithEnvFallback(e.Buffer, "VOXELGEN_EVENT_BUFFER", 1024)
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getIntWithEnvFallback(s.RESTPort, "VOXELGEN_REST_PORT", 8088)
}

// GetAddr возвращает адрес прослушивания HTTP сервера
func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.GetRESTPort())
}

// GetServiceName возвращает имя сервиса для трассировки
func (t *TelemetryConfig) GetServiceName() string {
	return getStringWithEnvFallback(t.ServiceName, "OTEL_SERVICE_NAME", "voxelgen")
}

// Options переводит секцию logging в параметры пакета logging
func (l *LoggingConfig) Options() logging.Options {
	fileLevel := l.FileLevel
	if fileLevel == "" {
		fileLevel = "debug"
	}
	return logging.Options{
		Dir:          getStringWithEnvFallback(l.Dir, "VOXELGEN_LOG_DIR", "logs"),
		FileEnabled:  l.File,
		ConsoleLevel: logging.ParseLevel(getStringWithEnvFallback(l.ConsoleLevel, "VOXELGEN_LOG_LEVEL", "info")),
		FileLevel:    logging.ParseLevel(fileLevel),
	}
}

// getIntWithEnvFallback возвращает значение с приоритетом: config -> env -> default
func getIntWithEnvFallback(configVal int, envVar string, defaultVal int) int {
	// Если значение задано в конфиге и больше 0, используем его
	if configVal > 0 {
		return configVal
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if v, err := strconv.Atoi(envVal); err == nil && v > 0 {
			return v
		}
	}

	return defaultVal
}

func getStringWithEnvFallback(configVal, envVar, defaultVal string) string {
	if configVal != "" {
		return configVal
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		return envVal
	}
	return defaultVal
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать из ENV VOXELGEN_CONFIG, иначе возвращает пустой конфиг.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("VOXELGEN_CONFIG")
		if path == "" {
			return &Config{}, nil // конфиг не задан — использовать дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.World.Env().Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}
