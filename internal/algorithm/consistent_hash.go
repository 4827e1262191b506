package algorithm

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"sync"

	"github.com/devrev/pairdb/placement/internal/model"
)

// DefaultReplicas is the configured number of virtual nodes per physical node when none is set
const DefaultReplicas = 3

// infoPreviewSize bounds the positions listed by Info
const infoPreviewSize = 10

// ErrInvalidReplicas is returned when a ring is configured with fewer than one replica
var ErrInvalidReplicas = errors.New("replicas must be at least 1")

// Options configures a HashRing
type Options struct {
	// Nodes are added in order during construction
	Nodes []string
	// Replicas is the number of virtual nodes per node and must be at least 1
	Replicas int
	// Hash maps virtual node labels and keys onto the ring; nil selects MD5Hash
	Hash HashFunc
}

type ringPoint struct {
	position Position
	owner    string
}

// HashRing implements consistent hashing with virtual nodes.
//
// Points are kept in a single slice sorted by position. Points sharing a
// position are adjacent and always carry the same owner: the node that was
// inserted last at that position.
type HashRing struct {
	points   []ringPoint
	replicas int
	hash     HashFunc
	mu       sync.RWMutex
}

// NewHashRing creates a ring and adds opts.Nodes to it
func NewHashRing(opts Options) (*HashRing, error) {
	replicas := opts.Replicas
	if replicas < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidReplicas, replicas)
	}

	hash := opts.Hash
	if hash == nil {
		hash = MD5Hash
	}

	r := &HashRing{
		points:   make([]ringPoint, 0, len(opts.Nodes)*replicas),
		replicas: replicas,
		hash:     hash,
	}
	for _, node := range opts.Nodes {
		r.AddNode(node)
	}

	return r, nil
}

// AddNode places the node's virtual nodes on the ring.
// Adding a node twice leaves duplicate entries at its positions.
func (r *HashRing) AddNode(node string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := 0; i < r.replicas; i++ {
		r.insert(r.hash([]byte(virtualNodeLabel(node, i))), node)
	}

	r.checkInvariants()
}

// RemoveNode removes every point owned by the node. Unknown nodes are ignored.
func (r *HashRing) RemoveNode(node string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.points = slices.DeleteFunc(r.points, func(p ringPoint) bool {
		return p.owner == node
	})

	r.checkInvariants()
}

// GetNode returns the owner of the first point clockwise from the key's position
func (r *HashRing) GetNode(key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.points) == 0 {
		return "", false
	}

	idx := r.successor(r.hash([]byte(key)))
	return r.points[idx].owner, true
}

// GetNodes returns up to count distinct nodes in the order they are met
// walking clockwise from the key's position. The walk covers the ring at most once.
func (r *HashRing) GetNodes(key string, count int) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.points) == 0 || count <= 0 {
		return []string{}
	}

	start := r.successor(r.hash([]byte(key)))

	nodes := make([]string, 0, min(count, len(r.points)))
	seen := make(map[string]struct{})

	for i := 0; i < len(r.points) && len(nodes) < count; i++ {
		owner := r.points[(start+i)%len(r.points)].owner
		if _, ok := seen[owner]; ok {
			continue
		}
		seen[owner] = struct{}{}
		nodes = append(nodes, owner)
	}

	return nodes
}

// Info returns a diagnostic snapshot of the ring
func (r *HashRing) Info() model.RingInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owners := make(map[string]struct{})
	distinct := 0
	for i, p := range r.points {
		owners[p.owner] = struct{}{}
		if i == 0 || p.position != r.points[i-1].position {
			distinct++
		}
	}

	preview := make([]string, 0, min(infoPreviewSize, len(r.points)))
	for i := 0; i < len(r.points) && i < infoPreviewSize; i++ {
		preview = append(preview, r.points[i].position.String())
	}

	return model.RingInfo{
		VirtualPoints: distinct,
		PhysicalNodes: len(owners),
		Replicas:      r.replicas,
		Positions:     preview,
	}
}

// Points returns a copy of the ordered ring, duplicates included
func (r *HashRing) Points() []model.RingPoint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	points := make([]model.RingPoint, len(r.points))
	for i, p := range r.points {
		points[i] = model.RingPoint{Position: p.position.String(), Owner: p.owner}
	}
	return points
}

// Nodes returns the distinct nodes on the ring, sorted
func (r *HashRing) Nodes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	nodes := make([]string, 0)
	for _, p := range r.points {
		if _, ok := seen[p.owner]; ok {
			continue
		}
		seen[p.owner] = struct{}{}
		nodes = append(nodes, p.owner)
	}
	sort.Strings(nodes)
	return nodes
}

// Contains reports whether the node owns at least one point
func (r *HashRing) Contains(node string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.ContainsFunc(r.points, func(p ringPoint) bool {
		return p.owner == node
	})
}

// Len returns the number of entries in the ordered ring
func (r *HashRing) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.points)
}

// Replicas returns the configured number of virtual nodes per node
func (r *HashRing) Replicas() int {
	return r.replicas
}

// Hash computes the ring position of a key
func (r *HashRing) Hash(key string) Position {
	return r.hash([]byte(key))
}

// insert adds a point after any existing points at the same position and
// hands those points over to the new owner.
func (r *HashRing) insert(pos Position, owner string) {
	idx := r.upperBound(pos)
	for j := idx - 1; j >= 0 && r.points[j].position == pos; j-- {
		r.points[j].owner = owner
	}
	r.points = slices.Insert(r.points, idx, ringPoint{position: pos, owner: owner})
}

// upperBound returns the index of the first point strictly greater than pos
func (r *HashRing) upperBound(pos Position) int {
	return sort.Search(len(r.points), func(i int) bool {
		return pos.Less(r.points[i].position)
	})
}

// successor returns the index of the clockwise successor of pos, wrapping to 0
func (r *HashRing) successor(pos Position) int {
	idx := r.upperBound(pos)
	if idx >= len(r.points) {
		idx = 0
	}
	return idx
}

// checkInvariants panics if the ordered ring is no longer a valid ring.
// Callers must hold the write lock.
func (r *HashRing) checkInvariants() {
	for i := 1; i < len(r.points); i++ {
		prev, cur := r.points[i-1], r.points[i]
		if cur.position.Less(prev.position) {
			panic(fmt.Sprintf("hash ring out of order at index %d: %s < %s", i, cur.position, prev.position))
		}
		if cur.position == prev.position && cur.owner != prev.owner {
			panic(fmt.Sprintf("hash ring position %s has owners %q and %q", cur.position, prev.owner, cur.owner))
		}
	}
}

func virtualNodeLabel(node string, i int) string {
	return node + ":" + strconv.Itoa(i)
}
