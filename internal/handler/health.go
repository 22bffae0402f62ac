// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/olegiv/eduportal/internal/dal"
	"github.com/olegiv/eduportal/internal/model"
)

// Health status values.
const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// dbCheckTimeout bounds the database ping.
const dbCheckTimeout = 2 * time.Second

// HealthHandler handles the health check endpoints.
type HealthHandler struct {
	db        *sql.DB
	guard     *dal.Guard
	version   string
	startTime time.Time
}

// NewHealthHandler creates a new HealthHandler. guard may be nil, which
// hides the detailed report.
func NewHealthHandler(db *sql.DB, guard *dal.Guard, version string) *HealthHandler {
	return &HealthHandler{db: db, guard: guard, version: version, startTime: time.Now()}
}

// HealthStatus is the health report.
type HealthStatus struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version,omitempty"`
	Uptime  string                 `json:"uptime,omitempty"`
	Checks  map[string]HealthCheck `json:"checks,omitempty"`
	System  *SystemInfo            `json:"system,omitempty"`
}

// HealthCheck is the result of one dependency check.
type HealthCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SystemInfo is runtime information shown to admins.
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"goroutines"`
	NumCPU       int    `json:"cpus"`
	MemAlloc     string `json:"mem_alloc"`
	MemSys       string `json:"mem_sys"`
}

// Health reports overall health. Anonymous callers get the status only,
// signed-in callers the checks, and admins the runtime details as well.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	db := h.checkDatabase(r.Context())
	status := HealthStatus{Status: db.Status}

	var user *dal.User
	if h.guard != nil {
		if u, err := h.guard.CurrentUser(r.Context()); err == nil {
			user = u
		}
	}
	if user != nil {
		status.Checks = map[string]HealthCheck{"database": db}
	}
	if user != nil && user.Role == model.RoleAdmin {
		status.Version = h.version
		status.Uptime = time.Since(h.startTime).Round(time.Second).String()
		status.System = systemInfo()
	}

	code := http.StatusOK
	if db.Status != statusHealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// Liveness reports that the process is serving.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Readiness reports whether the database is reachable.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	db := h.checkDatabase(r.Context())
	if db.Status != statusHealthy {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": db.Error})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *HealthHandler) checkDatabase(ctx context.Context) HealthCheck {
	ctx, cancel := context.WithTimeout(ctx, dbCheckTimeout)
	defer cancel()

	start := time.Now()
	if err := h.db.PingContext(ctx); err != nil {
		return HealthCheck{Status: statusUnhealthy, Error: "database unreachable"}
	}
	return HealthCheck{Status: statusHealthy, Latency: time.Since(start).String()}
}

func systemInfo() *SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return &SystemInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     formatBytes(m.Alloc),
		MemSys:       formatBytes(m.Sys),
	}
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}
