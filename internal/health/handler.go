// AngelaMos | 2026
// handler.go

package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
)

type Checker interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	db       Checker
	redis    Checker
	ready    atomic.Bool
	shutdown atomic.Bool
}

type StatusResponse struct {
	Status string        `json:"status"`
	Checks []CheckResult `json:"checks,omitempty"`
}

type CheckResult struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

func NewHandler(db, redis Checker) *Handler {
	h := &Handler{
		db:    db,
		redis: redis,
	}
	h.ready.Store(true)
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Liveness)
	r.Get("/livez", h.Liveness)
	r.Get("/readyz", h.Readiness)
}

func (h *Handler) SetShutdown() {
	h.shutdown.Store(true)
	h.ready.Store(false)
}

func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	if h.shutdown.Load() {
		h.writeStatus(w, http.StatusServiceUnavailable, StatusResponse{
			Status: "shutting_down",
		})
		return
	}

	h.writeStatus(w, http.StatusOK, StatusResponse{
		Status: "ok",
	})
}

func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.shutdown.Load() {
		h.writeStatus(w, http.StatusServiceUnavailable, StatusResponse{
			Status: "shutting_down",
		})
		return
	}

	if !h.ready.Load() {
		h.writeStatus(w, http.StatusServiceUnavailable, StatusResponse{
			Status: "not_ready",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := h.runHealthChecks(ctx)

	allHealthy := true
	for _, check := range checks {
		if !check.Healthy {
			allHealthy = false
			break
		}
	}

	status := http.StatusOK
	response := StatusResponse{Status: "ready", Checks: checks}

	if !allHealthy {
		status = http.StatusServiceUnavailable
		response.Status = "degraded"
	}

	h.writeStatus(w, status, response)
}

func (h *Handler) runHealthChecks(ctx context.Context) []CheckResult {
	type namedChecker struct {
		name    string
		checker Checker
	}

	checkers := []namedChecker{
		{name: "database", checker: h.db},
		{name: "redis", checker: h.redis},
	}

	results := make([]CheckResult, len(checkers))

	var wg sync.WaitGroup
	for i, nc := range checkers {
		if nc.checker == nil {
			results[i] = CheckResult{Name: nc.name, Healthy: true}
			continue
		}

		wg.Add(1)
		go func(i int, nc namedChecker) {
			defer wg.Done()

			result := CheckResult{Name: nc.name, Healthy: true}
			if err := nc.checker.Ping(ctx); err != nil {
				result.Healthy = false
				result.Error = err.Error()
			}
			results[i] = result
		}(i, nc)
	}
	wg.Wait()

	return results
}

func (h *Handler) writeStatus(
	w http.ResponseWriter,
	status int,
	response StatusResponse,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	//nolint:errcheck // best-effort response write
	_ = json.NewEncoder(w).Encode(response)
}
