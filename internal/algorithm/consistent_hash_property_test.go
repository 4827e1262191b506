package algorithm

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nodeNames(n int) []string {
	nodes := make([]string, n)
	for i := range nodes {
		nodes[i] = fmt.Sprintf("node-%d", i)
	}
	return nodes
}

func sampleKeys(n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("user:%d", i)
	}
	return keys
}

// TestHashRing_Property_OwnerExists checks every lookup resolves to a node on the ring
func TestHashRing_Property_OwnerExists(t *testing.T) {
	nodes := nodeNames(7)
	r := newTestRing(t, Options{Nodes: nodes, Replicas: 20})

	for _, key := range sampleKeys(2000) {
		owner, ok := r.GetNode(key)
		require.True(t, ok)
		assert.Contains(t, nodes, owner)
	}
}

// TestHashRing_Property_ReplicaCount checks N nodes with R replicas yield N*R points
func TestHashRing_Property_ReplicaCount(t *testing.T) {
	for _, tc := range []struct{ nodes, replicas int }{
		{nodes: 1, replicas: 1},
		{nodes: 3, replicas: 3},
		{nodes: 10, replicas: 5},
		{nodes: 25, replicas: 100},
	} {
		t.Run(fmt.Sprintf("%dx%d", tc.nodes, tc.replicas), func(t *testing.T) {
			r := newTestRing(t, Options{Nodes: nodeNames(tc.nodes), Replicas: tc.replicas})

			info := r.Info()
			assert.Equal(t, tc.nodes*tc.replicas, info.VirtualPoints)
			assert.Equal(t, tc.nodes, info.PhysicalNodes)
			assert.Equal(t, tc.nodes*tc.replicas, r.Len())
		})
	}
}

// TestHashRing_Property_IdempotentRemoval checks a repeated removal changes nothing
func TestHashRing_Property_IdempotentRemoval(t *testing.T) {
	r := newTestRing(t, Options{Nodes: nodeNames(5), Replicas: 10})

	r.RemoveNode("node-2")
	once := r.Points()
	onceInfo := r.Info()

	r.RemoveNode("node-2")

	assert.Equal(t, once, r.Points())
	assert.Equal(t, onceInfo, r.Info())
}

// TestHashRing_Property_WrapAround checks keys past the last point go to the first point's owner
func TestHashRing_Property_WrapAround(t *testing.T) {
	r := newTestRing(t, Options{Nodes: nodeNames(4), Replicas: 3})
	points := r.Points()
	require.NotEmpty(t, points)

	last := r.Hash(virtualNodeLabel(points[len(points)-1].Owner, 0))
	for i := 0; i < r.Replicas(); i++ {
		pos := r.Hash(virtualNodeLabel(points[len(points)-1].Owner, i))
		if last.Less(pos) {
			last = pos
		}
	}
	require.Equal(t, points[len(points)-1].Position, last.String())

	// any key hashing at or above the maximum position wraps
	wrapped := 0
	for _, key := range sampleKeys(5000) {
		if r.Hash(key).Less(last) {
			continue
		}
		wrapped++
		owner, ok := r.GetNode(key)
		require.True(t, ok)
		assert.Equal(t, points[0].Owner, owner)
	}

	// pin a key above every position to make sure the branch is exercised
	hash := fixedHash(map[string]uint64{"A:0": 10, "B:0": 20, "top": 30})
	pinned := newTestRing(t, Options{Nodes: []string{"B", "A"}, Replicas: 1, Hash: hash})
	owner, ok := pinned.GetNode("top")
	require.True(t, ok)
	assert.Equal(t, "A", owner)
	t.Logf("%d sampled keys wrapped around", wrapped)
}

// TestHashRing_Property_GetNodesPrefix checks GetNodes(k) is a prefix of GetNodes(k+1)
func TestHashRing_Property_GetNodesPrefix(t *testing.T) {
	const n = 8
	r := newTestRing(t, Options{Nodes: nodeNames(n), Replicas: 10})

	for _, key := range sampleKeys(300) {
		full := r.GetNodes(key, n)
		require.Len(t, full, n)

		owner, _ := r.GetNode(key)
		assert.Equal(t, owner, full[0])

		for k := 1; k < n; k++ {
			assert.Equal(t, r.GetNodes(key, k+1)[:k], r.GetNodes(key, k), "key %s, k=%d", key, k)
		}
	}
}

// TestHashRing_Property_GetNodesDistinct checks results never repeat a node and never exceed the node count
func TestHashRing_Property_GetNodesDistinct(t *testing.T) {
	r := newTestRing(t, Options{Nodes: nodeNames(3), Replicas: 50})

	for _, key := range sampleKeys(200) {
		nodes := r.GetNodes(key, 10)
		assert.Len(t, nodes, 3)

		seen := make(map[string]bool)
		for _, node := range nodes {
			assert.False(t, seen[node], "duplicate node %s for key %s", node, key)
			seen[node] = true
		}
	}
}

// TestHashRing_Property_StableUnderRemoval checks removing a node only remaps the keys it owned
func TestHashRing_Property_StableUnderRemoval(t *testing.T) {
	const removed = "node-7"
	r := newTestRing(t, Options{Nodes: nodeNames(20), Replicas: 50})
	keys := sampleKeys(10000)

	before := make(map[string]string, len(keys))
	ownedByRemoved := 0
	for _, key := range keys {
		owner, ok := r.GetNode(key)
		require.True(t, ok)
		before[key] = owner
		if owner == removed {
			ownedByRemoved++
		}
	}

	r.RemoveNode(removed)

	changed := 0
	for _, key := range keys {
		owner, ok := r.GetNode(key)
		require.True(t, ok)
		assert.NotEqual(t, removed, owner)
		if owner != before[key] {
			changed++
			assert.Equal(t, removed, before[key], "key %s moved from %s to %s", key, before[key], owner)
		}
	}
	assert.Equal(t, ownedByRemoved, changed)
	assert.Less(t, changed, len(keys)/4)

	// positions are deterministic, so re-adding restores the previous mapping
	r.AddNode(removed)
	for _, key := range keys {
		owner, _ := r.GetNode(key)
		assert.Equal(t, before[key], owner)
	}
}

// TestHashRing_Property_Determinism checks two rings built from the same nodes agree
func TestHashRing_Property_Determinism(t *testing.T) {
	r1 := newTestRing(t, Options{Nodes: nodeNames(6), Replicas: 16})

	reversed := nodeNames(6)
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	r2 := newTestRing(t, Options{Nodes: reversed, Replicas: 16})

	assert.Equal(t, r1.Points(), r2.Points())
	for _, key := range sampleKeys(500) {
		o1, _ := r1.GetNode(key)
		o2, _ := r2.GetNode(key)
		assert.Equal(t, o1, o2)
		assert.Equal(t, r1.GetNodes(key, 3), r2.GetNodes(key, 3))
	}
}
