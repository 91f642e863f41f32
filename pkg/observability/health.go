package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// DefaultReadinessTimeout bounds a single readiness check.
const DefaultReadinessTimeout = 5 * time.Second

// CheckFunc checks one dependency. A nil error means healthy.
type CheckFunc func(ctx context.Context) error

type dependency struct {
	name     string
	critical bool
	check    CheckFunc
}

// HealthChecker reports the health of the server and the backends it depends on.
// Critical dependencies make the server unhealthy when they fail; the others
// only degrade it.
type HealthChecker struct {
	mu           sync.RWMutex
	dependencies []dependency
	version      string
	timeout      time.Duration
}

// HealthStatus is the readiness report.
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Version      string                      `json:"version,omitempty"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus is the health of a single dependency.
type DependencyStatus struct {
	Status    string    `json:"status"`
	Critical  bool      `json:"critical"`
	Message   string    `json:"message,omitempty"`
	LatencyMs int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
}

// NewHealthChecker creates a health checker with no dependencies.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		version: buildVersion(),
		timeout: DefaultReadinessTimeout,
	}
}

func buildVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" {
		return "devel"
	}
	return info.Main.Version
}

// SetVersion overrides the version reported by the build info.
func (h *HealthChecker) SetVersion(version string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.version = version
}

// AddCheck registers a named dependency check.
func (h *HealthChecker) AddCheck(name string, critical bool, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dependencies = append(h.dependencies, dependency{name: name, critical: critical, check: check})
}

// AddDatabase registers a SQL database. Databases are always critical.
func (h *HealthChecker) AddDatabase(name string, db *sql.DB) {
	if db == nil {
		return
	}
	h.AddCheck(name, true, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		var one int
		return db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
	})
}

// AddRedis registers a Redis client.
func (h *HealthChecker) AddRedis(name string, client *redis.Client, critical bool) {
	if client == nil {
		return
	}
	h.AddCheck(name, critical, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

// Check runs every dependency check concurrently.
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	h.mu.RLock()
	deps := make([]dependency, len(h.dependencies))
	copy(deps, h.dependencies)
	version := h.version
	h.mu.RUnlock()

	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    time.Now(),
		Version:      version,
		Dependencies: make(map[string]DependencyStatus, len(deps)),
	}

	results := make([]DependencyStatus, len(deps))
	var wg sync.WaitGroup
	for i, dep := range deps {
		wg.Add(1)
		go func(i int, dep dependency) {
			defer wg.Done()
			defer RecoverPanic(GetLogger(ctx), "health check "+dep.name)
			results[i] = DependencyStatus{
				Status:    StatusUnhealthy,
				Critical:  dep.critical,
				Message:   "check panicked",
				Timestamp: time.Now(),
			}
			results[i] = checkDependency(ctx, dep)
		}(i, dep)
	}
	wg.Wait()

	for i, dep := range deps {
		result := results[i]
		status.Dependencies[dep.name] = result
		if result.Status != StatusUnhealthy {
			continue
		}
		if result.Critical {
			status.Status = StatusUnhealthy
		} else if status.Status == StatusHealthy {
			status.Status = StatusDegraded
		}
	}

	return status
}

func checkDependency(ctx context.Context, dep dependency) DependencyStatus {
	start := time.Now()
	result := DependencyStatus{
		Status:    StatusHealthy,
		Critical:  dep.critical,
		Timestamp: start,
	}
	err := dep.check(ctx)
	result.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = err.Error()
	}
	return result
}

// Liveness always answers 200 while the process is serving.
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	writeHealthJSON(w, http.StatusOK, map[string]interface{}{
		"status":    StatusHealthy,
		"timestamp": time.Now(),
	})
}

// Readiness answers 503 when a critical dependency is down, 200 otherwise.
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status := h.Check(ctx)
	code := http.StatusOK
	if status.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeHealthJSON(w, code, status)
}

func writeHealthJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// RegisterHealthRoutes registers the health endpoints.
func RegisterHealthRoutes(mux *http.ServeMux, checker *HealthChecker) {
	mux.HandleFunc("/health", checker.Readiness)
	mux.HandleFunc("/health/live", checker.Liveness)
	mux.HandleFunc("/health/ready", checker.Readiness)
}
