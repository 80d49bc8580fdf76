package health

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eleven-am/smart-selfie/internal/capture"
	"github.com/eleven-am/smart-selfie/internal/vision"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

type ComponentStatus struct {
	Status    Status          `json:"status"`
	LatencyMs int64           `json:"latency_ms"`
	Error     string          `json:"error,omitempty"`
	Models    map[string]bool `json:"models,omitempty"`
}

type RuntimeStats struct {
	Goroutines         int    `json:"goroutines"`
	MemoryAllocMB      uint64 `json:"memory_alloc_mb"`
	MemoryTotalAllocMB uint64 `json:"memory_total_alloc_mb"`
	MemorySysMB        uint64 `json:"memory_sys_mb"`
	NumGC              uint32 `json:"num_gc"`
}

type CameraStats struct {
	Running          bool   `json:"running"`
	Starting         bool   `json:"starting,omitempty"`
	SessionID        string `json:"session_id,omitempty"`
	FPS              int    `json:"fps"`
	Faces            int    `json:"faces"`
	BackendAvailable bool   `json:"backend_available"`
	Subscribers      int    `json:"subscribers"`
}

type RequestStats struct {
	TotalRequests     uint64 `json:"total_requests"`
	ActiveConnections int64  `json:"active_connections"`
}

type Stats struct {
	Camera   CameraStats  `json:"camera"`
	Requests RequestStats `json:"requests"`
	Runtime  RuntimeStats `json:"runtime"`
}

type HealthResponse struct {
	Status        Status                     `json:"status"`
	Timestamp     time.Time                  `json:"timestamp"`
	Version       string                     `json:"version"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	Stats         Stats                      `json:"stats"`
	Components    map[string]ComponentStatus `json:"components"`
}

// Backend reports on the analysis service without touching the capture
// loop's availability flag.
type Backend interface {
	Health(ctx context.Context) (*vision.HealthStatus, error)
}

type Camera interface {
	Status() capture.Status
}

type Subscribers interface {
	Subscribers() int
}

type Handler struct {
	db          *gorm.DB
	redis       *redis.Client
	backend     Backend
	camera      Camera
	subscribers Subscribers
	version     string
	startTime   time.Time

	totalRequests     uint64
	activeConnections int64
}

func NewHandler(
	db *gorm.DB,
	redis *redis.Client,
	backend Backend,
	camera Camera,
	subscribers Subscribers,
	version string,
) *Handler {
	return &Handler{
		db:          db,
		redis:       redis,
		backend:     backend,
		camera:      camera,
		subscribers: subscribers,
		version:     version,
		startTime:   time.Now(),
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Liveness)
	e.GET("/health/ready", h.Readiness)
}

func (h *Handler) IncrementRequests() {
	atomic.AddUint64(&h.totalRequests, 1)
}

func (h *Handler) IncrementConnections() {
	atomic.AddInt64(&h.activeConnections, 1)
}

func (h *Handler) DecrementConnections() {
	atomic.AddInt64(&h.activeConnections, -1)
}

func (h *Handler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (h *Handler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	components := make(map[string]ComponentStatus)
	var mu sync.Mutex
	var wg sync.WaitGroup

	checks := []struct {
		name  string
		check func(context.Context) ComponentStatus
	}{
		{"database", h.checkDatabase},
		{"redis", h.checkRedis},
		{"analysis", h.checkBackend},
	}

	wg.Add(len(checks))
	for _, check := range checks {
		go func(name string, fn func(context.Context) ComponentStatus) {
			defer wg.Done()
			status := fn(ctx)
			mu.Lock()
			components[name] = status
			mu.Unlock()
		}(check.name, check.check)
	}
	wg.Wait()

	overallStatus := computeOverallStatus(components)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	resp := HealthResponse{
		Status:        overallStatus,
		Timestamp:     time.Now().UTC(),
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Stats: Stats{
			Camera: h.cameraStats(),
			Requests: RequestStats{
				TotalRequests:     atomic.LoadUint64(&h.totalRequests),
				ActiveConnections: atomic.LoadInt64(&h.activeConnections),
			},
			Runtime: RuntimeStats{
				Goroutines:         runtime.NumGoroutine(),
				MemoryAllocMB:      memStats.Alloc / 1024 / 1024,
				MemoryTotalAllocMB: memStats.TotalAlloc / 1024 / 1024,
				MemorySysMB:        memStats.Sys / 1024 / 1024,
				NumGC:              memStats.NumGC,
			},
		},
		Components: components,
	}

	statusCode := http.StatusOK
	if overallStatus == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	return c.JSON(statusCode, resp)
}

func (h *Handler) cameraStats() CameraStats {
	var stats CameraStats
	if h.camera != nil {
		s := h.camera.Status()
		stats.Running = s.Running
		stats.Starting = s.Starting
		stats.SessionID = s.SessionID
		stats.FPS = s.FPS
		stats.Faces = s.Faces
		stats.BackendAvailable = s.BackendAvailable
	}
	if h.subscribers != nil {
		stats.Subscribers = h.subscribers.Subscribers()
	}
	return stats
}

func component(start time.Time, status Status, errMsg string) ComponentStatus {
	return ComponentStatus{
		Status:    status,
		LatencyMs: time.Since(start).Milliseconds(),
		Error:     errMsg,
	}
}

func (h *Handler) checkDatabase(ctx context.Context) ComponentStatus {
	start := time.Now()
	if h.db == nil {
		return component(start, StatusUnhealthy, "database not configured")
	}

	sqlDB, err := h.db.DB()
	if err != nil {
		return component(start, StatusUnhealthy, "failed to get underlying db")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return component(start, StatusUnhealthy, "ping failed")
	}
	return component(start, evaluateDBStats(sqlDB.Stats()), "")
}

func evaluateDBStats(stats sql.DBStats) Status {
	if stats.MaxOpenConnections > 0 && stats.OpenConnections >= stats.MaxOpenConnections {
		return StatusDegraded
	}
	return StatusHealthy
}

func (h *Handler) checkRedis(ctx context.Context) ComponentStatus {
	start := time.Now()
	if h.redis == nil {
		return component(start, StatusUnhealthy, "redis not configured")
	}
	if err := h.redis.Ping(ctx).Err(); err != nil {
		return component(start, StatusUnhealthy, "ping failed")
	}
	return component(start, StatusHealthy, "")
}

// The capture loop keeps working in simulation without the analysis
// service, so its failure only degrades readiness.
func (h *Handler) checkBackend(ctx context.Context) ComponentStatus {
	start := time.Now()
	if h.backend == nil {
		return component(start, StatusDegraded, "analysis backend not configured")
	}

	health, err := h.backend.Health(ctx)
	if err != nil {
		return component(start, StatusDegraded, "health check failed")
	}
	status := component(start, StatusHealthy, "")
	status.Models = health.Models
	return status
}

func computeOverallStatus(components map[string]ComponentStatus) Status {
	criticalComponents := []string{"database", "redis"}

	for _, name := range criticalComponents {
		if status, ok := components[name]; ok && status.Status == StatusUnhealthy {
			return StatusUnhealthy
		}
	}

	for _, status := range components {
		if status.Status != StatusHealthy {
			return StatusDegraded
		}
	}

	return StatusHealthy
}
