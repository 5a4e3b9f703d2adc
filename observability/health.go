package observability

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck represents a health check function
type HealthCheck func(ctx context.Context) HealthCheckResult

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status      HealthStatus   `json:"status"`
	Message     string         `json:"message,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	LastChecked time.Time      `json:"last_checked"`
	Duration    time.Duration  `json:"duration_ms"`
}

// HealthReport is the aggregated answer served on the health endpoint.
type HealthReport struct {
	Status HealthStatus                 `json:"status"`
	Checks map[string]HealthCheckResult `json:"checks,omitempty"`
}

// HealthChecker runs named health checks on demand.
type HealthChecker struct {
	checks  map[string]HealthCheck
	mu      sync.RWMutex
	timeout time.Duration
}

// NewHealthChecker creates a health checker. Each check gets timeout.
func NewHealthChecker(timeout time.Duration) *HealthChecker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HealthChecker{
		checks:  make(map[string]HealthCheck),
		timeout: timeout,
	}
}

// Register registers a health check, replacing one with the same name.
func (hc *HealthChecker) Register(name string, check HealthCheck) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[name] = check
}

// Names returns the registered check names in sorted order.
func (hc *HealthChecker) Names() []string {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	names := make([]string, 0, len(hc.checks))
	for name := range hc.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check runs every check concurrently and aggregates the results.
func (hc *HealthChecker) Check(ctx context.Context) HealthReport {
	hc.mu.RLock()
	checks := make(map[string]HealthCheck, len(hc.checks))
	for name, check := range hc.checks {
		checks[name] = check
	}
	hc.mu.RUnlock()

	results := make(map[string]HealthCheckResult, len(checks))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for name, check := range checks {
		wg.Add(1)
		go func(n string, c HealthCheck) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, hc.timeout)
			defer cancel()

			start := time.Now()
			result := c(checkCtx)
			result.Duration = time.Since(start)
			result.LastChecked = time.Now()

			mu.Lock()
			results[n] = result
			mu.Unlock()
		}(name, check)
	}
	wg.Wait()

	return HealthReport{Status: OverallStatus(results), Checks: results}
}

// OverallStatus is the worst status among results; no results is healthy.
func OverallStatus(results map[string]HealthCheckResult) HealthStatus {
	status := HealthStatusHealthy
	for _, result := range results {
		switch result.Status {
		case HealthStatusUnhealthy:
			return HealthStatusUnhealthy
		case HealthStatusDegraded:
			status = HealthStatusDegraded
		}
	}
	return status
}

// CountHealthCheck reports degraded when count() reaches limit. A limit of
// zero disables the upper bound.
func CountHealthCheck(label string, count func() int, limit int) HealthCheck {
	return func(ctx context.Context) HealthCheckResult {
		n := count()
		result := HealthCheckResult{
			Status:  HealthStatusHealthy,
			Details: map[string]any{label: n},
		}
		if limit > 0 && n >= limit {
			result.Status = HealthStatusDegraded
			result.Message = label + " at limit"
			result.Details["limit"] = limit
		}
		return result
	}
}

// NonEmptyHealthCheck reports unhealthy when count() is zero.
func NonEmptyHealthCheck(label string, count func() int) HealthCheck {
	return func(ctx context.Context) HealthCheckResult {
		n := count()
		if n == 0 {
			return HealthCheckResult{
				Status:  HealthStatusUnhealthy,
				Message: "no " + label + " configured",
			}
		}
		return HealthCheckResult{
			Status:  HealthStatusHealthy,
			Details: map[string]any{label: n},
		}
	}
}

// MemoryHealthCheck creates a memory usage health check
func MemoryHealthCheck(maxMemoryMB uint64) HealthCheck {
	return func(ctx context.Context) HealthCheckResult {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		allocMB := m.Alloc / 1024 / 1024
		sysMB := m.Sys / 1024 / 1024

		status := HealthStatusHealthy
		message := "Memory usage within limits"

		if allocMB > maxMemoryMB {
			status = HealthStatusUnhealthy
			message = "Memory usage exceeds limit"
		} else if allocMB > maxMemoryMB*80/100 {
			status = HealthStatusDegraded
			message = "Memory usage approaching limit"
		}

		return HealthCheckResult{
			Status:  status,
			Message: message,
			Details: map[string]any{
				"allocated_mb":  allocMB,
				"system_mb":     sysMB,
				"max_memory_mb": maxMemoryMB,
				"num_gc":        m.NumGC,
				"goroutines":    runtime.NumGoroutine(),
			},
		}
	}
}
