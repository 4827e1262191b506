package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apierrors "github.com/devrev/pairdb/placement/internal/errors"
	"github.com/devrev/pairdb/placement/internal/model"
	"github.com/devrev/pairdb/placement/internal/service"
	"github.com/devrev/pairdb/placement/internal/store"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockPlacement is a mock implementation of Placement
type MockPlacement struct {
	mock.Mock
}

func (m *MockPlacement) GetOwner(ctx context.Context, key string) (*model.StorageNode, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StorageNode), args.Error(1)
}

func (m *MockPlacement) GetReplicas(ctx context.Context, key string, n int) ([]*model.StorageNode, error) {
	args := m.Called(ctx, key, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.StorageNode), args.Error(1)
}

func (m *MockPlacement) AddNode(ctx context.Context, node *model.StorageNode) error {
	args := m.Called(ctx, node)
	return args.Error(0)
}

func (m *MockPlacement) RemoveNode(ctx context.Context, nodeID string) error {
	args := m.Called(ctx, nodeID)
	return args.Error(0)
}

func (m *MockPlacement) ListNodes() []*model.StorageNode {
	args := m.Called()
	return args.Get(0).([]*model.StorageNode)
}

func (m *MockPlacement) RingInfo() model.RingInfo {
	args := m.Called()
	return args.Get(0).(model.RingInfo)
}

func newTestHandlers(p Placement) *Handlers {
	logger := zap.NewNop()
	return NewHandlers(p, apierrors.NewHandler(logger), logger, time.Second)
}

func node(id string) *model.StorageNode {
	return &model.StorageNode{NodeID: id, Host: id + ".internal", Port: 9000, Status: model.NodeStatusActive}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apierrors.ErrorResponse {
	t.Helper()
	var resp apierrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandlers_GetPlacement(t *testing.T) {
	t.Run("owner only", func(t *testing.T) {
		p := new(MockPlacement)
		p.On("GetOwner", mock.Anything, "user:1").Return(node("node-a"), nil)
		h := newTestHandlers(p)

		w := httptest.NewRecorder()
		h.GetPlacement(w, httptest.NewRequest(http.MethodGet, "/v1/placement?key=user:1", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp PlacementResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "user:1", resp.Key)
		assert.Equal(t, node("node-a"), resp.Owner)
		assert.Empty(t, resp.Replicas)
		p.AssertExpectations(t)
	})

	t.Run("with replicas", func(t *testing.T) {
		p := new(MockPlacement)
		p.On("GetReplicas", mock.Anything, "user:1", 2).Return([]*model.StorageNode{node("node-b"), node("node-a")}, nil)
		h := newTestHandlers(p)

		w := httptest.NewRecorder()
		h.GetPlacement(w, httptest.NewRequest(http.MethodGet, "/v1/placement?key=user:1&replicas=2", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp PlacementResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "node-b", resp.Owner.NodeID)
		require.Len(t, resp.Replicas, 2)
		assert.Equal(t, "node-a", resp.Replicas[1].NodeID)
	})

	t.Run("validation", func(t *testing.T) {
		h := newTestHandlers(new(MockPlacement))
		for _, target := range []string{
			"/v1/placement",
			"/v1/placement?key=k&replicas=0",
			"/v1/placement?key=k&replicas=two",
		} {
			w := httptest.NewRecorder()
			h.GetPlacement(w, httptest.NewRequest(http.MethodGet, target, nil))
			assert.Equal(t, http.StatusBadRequest, w.Code, target)
			assert.Equal(t, apierrors.ErrorCodeInvalidRequest, decodeError(t, w).ErrorCode)
		}
	})

	t.Run("empty ring", func(t *testing.T) {
		p := new(MockPlacement)
		p.On("GetOwner", mock.Anything, "k").Return(nil, service.ErrNoOwner)
		h := newTestHandlers(p)

		w := httptest.NewRecorder()
		h.GetPlacement(w, httptest.NewRequest(http.MethodGet, "/v1/placement?key=k", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, apierrors.ErrorCodeRingEmpty, decodeError(t, w).ErrorCode)
	})

	t.Run("insufficient nodes", func(t *testing.T) {
		p := new(MockPlacement)
		p.On("GetReplicas", mock.Anything, "k", 5).
			Return(nil, fmt.Errorf("%w: need 5, got 2", service.ErrInsufficientNodes))
		h := newTestHandlers(p)

		w := httptest.NewRecorder()
		h.GetPlacement(w, httptest.NewRequest(http.MethodGet, "/v1/placement?key=k&replicas=5", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, apierrors.ErrorCodeInsufficientNodes, decodeError(t, w).ErrorCode)
	})
}

func TestHandlers_ListStorageNodes(t *testing.T) {
	p := new(MockPlacement)
	p.On("ListNodes").Return([]*model.StorageNode{node("node-a"), node("node-b")})
	h := newTestHandlers(p)

	w := httptest.NewRecorder()
	h.ListStorageNodes(w, httptest.NewRequest(http.MethodGet, "/v1/admin/storage-nodes", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp NodeListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "node-b", resp.Nodes[1].NodeID)
}

func TestHandlers_AddStorageNode(t *testing.T) {
	t.Run("defaults status to active", func(t *testing.T) {
		p := new(MockPlacement)
		p.On("AddNode", mock.Anything, mock.MatchedBy(func(n *model.StorageNode) bool {
			return n.NodeID == "node-c" && n.Status == model.NodeStatusActive && n.Port == 9003
		})).Return(nil)
		h := newTestHandlers(p)

		body := `{"node_id":"node-c","host":"10.0.0.3","port":9003}`
		w := httptest.NewRecorder()
		h.AddStorageNode(w, httptest.NewRequest(http.MethodPost, "/v1/admin/storage-nodes", strings.NewReader(body)))

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp model.StorageNode
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, model.NodeStatusActive, resp.Status)
		p.AssertExpectations(t)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		h := newTestHandlers(new(MockPlacement))
		for _, body := range []string{
			`not json`,
			`{"host":"10.0.0.3"}`,
			`{"node_id":"n","status":"retired"}`,
		} {
			w := httptest.NewRecorder()
			h.AddStorageNode(w, httptest.NewRequest(http.MethodPost, "/v1/admin/storage-nodes", strings.NewReader(body)))
			assert.Equal(t, http.StatusBadRequest, w.Code, body)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		p := new(MockPlacement)
		p.On("AddNode", mock.Anything, mock.Anything).Return(errors.New("write failed"))
		h := newTestHandlers(p)

		w := httptest.NewRecorder()
		h.AddStorageNode(w, httptest.NewRequest(http.MethodPost, "/v1/admin/storage-nodes", strings.NewReader(`{"node_id":"n"}`)))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHandlers_RemoveStorageNode(t *testing.T) {
	p := new(MockPlacement)
	p.On("RemoveNode", mock.Anything, "node-a").Return(nil)
	p.On("RemoveNode", mock.Anything, "node-x").Return(fmt.Errorf("storage node node-x: %w", store.ErrNotFound))
	h := newTestHandlers(p)

	req := mux.SetURLVars(httptest.NewRequest(http.MethodDelete, "/v1/admin/storage-nodes/node-a", nil), map[string]string{"node_id": "node-a"})
	w := httptest.NewRecorder()
	h.RemoveStorageNode(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp RemoveNodeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, RemoveNodeResponse{NodeID: "node-a", Removed: true}, resp)

	req = mux.SetURLVars(httptest.NewRequest(http.MethodDelete, "/v1/admin/storage-nodes/node-x", nil), map[string]string{"node_id": "node-x"})
	w = httptest.NewRecorder()
	h.RemoveStorageNode(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlers_RingInfo(t *testing.T) {
	p := new(MockPlacement)
	p.On("RingInfo").Return(model.RingInfo{VirtualPoints: 6, PhysicalNodes: 2, Replicas: 3, Positions: []string{"00", "ff"}})
	h := newTestHandlers(p)

	w := httptest.NewRecorder()
	h.RingInfo(w, httptest.NewRequest(http.MethodGet, "/debug/ring", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Equal(t, float64(6), raw["total_virtual_nodes"])
	assert.Equal(t, float64(2), raw["physical_nodes"])
	assert.Equal(t, float64(3), raw["replicas_per_node"])
	assert.Len(t, raw["sorted_keys"], 2)
}
