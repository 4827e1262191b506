// Package handler provides HTTP request handlers for the placement admin API.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	apierrors "github.com/devrev/pairdb/placement/internal/errors"
	"github.com/devrev/pairdb/placement/internal/model"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Placement is the subset of the placement service used by the handlers.
type Placement interface {
	GetOwner(ctx context.Context, key string) (*model.StorageNode, error)
	GetReplicas(ctx context.Context, key string, n int) ([]*model.StorageNode, error)
	AddNode(ctx context.Context, node *model.StorageNode) error
	RemoveNode(ctx context.Context, nodeID string) error
	ListNodes() []*model.StorageNode
	RingInfo() model.RingInfo
}

// PlacementResponse is returned by GET /v1/placement.
type PlacementResponse struct {
	Key      string               `json:"key"`
	Owner    *model.StorageNode   `json:"owner"`
	Replicas []*model.StorageNode `json:"replicas,omitempty"`
}

// NodeListResponse is returned by GET /v1/admin/storage-nodes.
type NodeListResponse struct {
	Nodes []*model.StorageNode `json:"nodes"`
	Count int                  `json:"count"`
}

// RemoveNodeResponse is returned by DELETE /v1/admin/storage-nodes/{node_id}.
type RemoveNodeResponse struct {
	NodeID  string `json:"node_id"`
	Removed bool   `json:"removed"`
}

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	placement    Placement
	errorHandler *apierrors.Handler
	logger       *zap.Logger
	timeout      time.Duration
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(placement Placement, errorHandler *apierrors.Handler, logger *zap.Logger, timeout time.Duration) *Handlers {
	return &Handlers{
		placement:    placement,
		errorHandler: errorHandler,
		logger:       logger,
		timeout:      timeout,
	}
}

// GetPlacement handles GET /v1/placement?key=<key>[&replicas=<n>] requests.
func (h *Handlers) GetPlacement(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")

	key := r.URL.Query().Get("key")
	if key == "" {
		h.errorHandler.WriteValidationError(w, "key is required", requestID)
		return
	}

	replicas := 0
	if raw := r.URL.Query().Get("replicas"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.errorHandler.WriteValidationError(w, "replicas must be a positive integer", requestID)
			return
		}
		replicas = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp := PlacementResponse{Key: key}
	if replicas > 0 {
		nodes, err := h.placement.GetReplicas(ctx, key, replicas)
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		resp.Owner = nodes[0]
		resp.Replicas = nodes
	} else {
		owner, err := h.placement.GetOwner(ctx, key)
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		resp.Owner = owner
	}

	h.writeJSONResponse(w, http.StatusOK, resp)
}

// ListStorageNodes handles GET /v1/admin/storage-nodes requests.
func (h *Handlers) ListStorageNodes(w http.ResponseWriter, r *http.Request) {
	nodes := h.placement.ListNodes()
	h.writeJSONResponse(w, http.StatusOK, NodeListResponse{Nodes: nodes, Count: len(nodes)})
}

// AddStorageNode handles POST /v1/admin/storage-nodes requests.
func (h *Handlers) AddStorageNode(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")

	var node model.StorageNode
	if err := json.NewDecoder(r.Body).Decode(&node); err != nil {
		h.errorHandler.WriteValidationError(w, fmt.Sprintf("invalid request body: %v", err), requestID)
		return
	}
	if node.NodeID == "" {
		h.errorHandler.WriteValidationError(w, "node_id is required", requestID)
		return
	}
	if node.Status == "" {
		node.Status = model.NodeStatusActive
	}
	switch node.Status {
	case model.NodeStatusActive, model.NodeStatusDraining, model.NodeStatusInactive:
	default:
		h.errorHandler.WriteValidationError(w, fmt.Sprintf("unknown status %q", node.Status), requestID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.placement.AddNode(ctx, &node); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusCreated, &node)
}

// RemoveStorageNode handles DELETE /v1/admin/storage-nodes/{node_id} requests.
func (h *Handlers) RemoveStorageNode(w http.ResponseWriter, r *http.Request) {
	nodeID := mux.Vars(r)["node_id"]
	if nodeID == "" {
		h.errorHandler.WriteValidationError(w, "node_id is required", r.Header.Get("X-Request-ID"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.placement.RemoveNode(ctx, nodeID); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, RemoveNodeResponse{NodeID: nodeID, Removed: true})
}

// RingInfo handles GET /debug/ring requests.
func (h *Handlers) RingInfo(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, h.placement.RingInfo())
}

// writeJSONResponse writes a JSON response to the HTTP response writer.
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}
