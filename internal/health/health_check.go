package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/devrev/pairdb/placement/internal/model"
	"github.com/devrev/pairdb/placement/internal/store"
	"go.uber.org/zap"
)

const readinessTimeout = 5 * time.Second

var errEmptyRing = errors.New("hash ring has no nodes")

// RingSource reports the current state of the hash ring
type RingSource interface {
	RingInfo() model.RingInfo
}

// HealthChecker provides health check endpoints
type HealthChecker struct {
	membership store.MembershipStore
	ring       RingSource
	logger     *zap.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp int64             `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(membership store.MembershipStore, ring RingSource, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		membership: membership,
		ring:       ring,
		logger:     logger,
	}
}

// LivenessHandler handles liveness probe requests
func (h *HealthChecker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusOK, HealthStatus{
		Status:    "alive",
		Timestamp: time.Now().Unix(),
	})
}

// ReadinessHandler reports ready once the membership store answers and the ring has nodes
func (h *HealthChecker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	ready, checks := h.Check(ctx)
	status := HealthStatus{
		Timestamp: time.Now().Unix(),
		Checks:    checks,
	}

	if ready {
		status.Status = "ready"
		writeStatus(w, http.StatusOK, status)
		return
	}
	status.Status = "not_ready"
	writeStatus(w, http.StatusServiceUnavailable, status)
}

// Check runs every readiness check and reports whether all passed
func (h *HealthChecker) Check(ctx context.Context) (bool, map[string]string) {
	checks := make(map[string]string)
	allHealthy := true

	if err := h.checkMembershipStore(ctx); err != nil {
		h.logger.Error("Membership store health check failed", zap.Error(err))
		checks["membership_store"] = "unhealthy: " + err.Error()
		allHealthy = false
	} else {
		checks["membership_store"] = "healthy"
	}

	if err := h.checkRing(); err != nil {
		h.logger.Warn("Hash ring health check failed", zap.Error(err))
		checks["hash_ring"] = "unhealthy: " + err.Error()
		allHealthy = false
	} else {
		checks["hash_ring"] = "healthy"
	}

	return allHealthy, checks
}

func (h *HealthChecker) checkMembershipStore(ctx context.Context) error {
	if h.membership == nil {
		return nil
	}
	return h.membership.Ping(ctx)
}

func (h *HealthChecker) checkRing() error {
	if h.ring == nil {
		return nil
	}
	if h.ring.RingInfo().PhysicalNodes == 0 {
		return errEmptyRing
	}
	return nil
}

func writeStatus(w http.ResponseWriter, code int, status HealthStatus) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}
