// Package hashtable provides a string-keyed hash table using open addressing
// with quadratic probing. Deleted entries leave tombstones that are reused on
// insert and dropped on resize. Tables are not safe for concurrent use.
package hashtable

const (
	DefaultCapacity   = 16
	DefaultLoadFactor = 0.75

	hashBase = 31
)

type slotState uint8

const (
	slotEmpty slotState = iota
	slotOccupied
	slotDeleted
)

type slot[V any] struct {
	key   string
	value V
	state slotState
}

// Entry is a key-value pair stored in the table
type Entry[V any] struct {
	Key   string
	Value V
}

// Stats describes the table's occupancy
type Stats struct {
	Size          int     `json:"size"`
	Capacity      int     `json:"capacity"`
	LoadFactor    float64 `json:"load_factor"`
	MaxLoadFactor float64 `json:"max_load_factor"`
	EmptySlots    int     `json:"empty_slots"`
}

// Table is an open addressing hash table keyed by string
type Table[V any] struct {
	slots      []slot[V]
	size       int
	tombstones int
	loadFactor float64
}

// New creates a table. Non-positive capacities and load factors outside (0, 1]
// fall back to DefaultCapacity and DefaultLoadFactor.
func New[V any](initialCapacity int, loadFactor float64) *Table[V] {
	if initialCapacity <= 0 {
		initialCapacity = DefaultCapacity
	}
	if loadFactor <= 0 || loadFactor > 1 {
		loadFactor = DefaultLoadFactor
	}
	return &Table[V]{
		slots:      make([]slot[V], initialCapacity),
		loadFactor: loadFactor,
	}
}

// Put inserts or updates a key
func (t *Table[V]) Put(key string, value V) {
	capacity := float64(len(t.slots))
	if float64(t.size+t.tombstones) >= capacity*t.loadFactor {
		if float64(t.size*2) < capacity*t.loadFactor {
			// mostly tombstones: rehash in place
			t.rehash(len(t.slots))
		} else {
			t.rehash(nextPrime(len(t.slots) * 2))
		}
	}
	t.put(key, value)
}

// Get returns the value stored under key
func (t *Table[V]) Get(key string) (V, bool) {
	idx, found := t.findSlot(key)
	if !found {
		var zero V
		return zero, false
	}
	return t.slots[idx].value, true
}

// Delete removes key and reports whether it was present
func (t *Table[V]) Delete(key string) bool {
	idx, found := t.findSlot(key)
	if !found {
		return false
	}

	var zero V
	t.slots[idx] = slot[V]{value: zero, state: slotDeleted}
	t.size--
	t.tombstones++
	return true
}

// Contains reports whether key is present
func (t *Table[V]) Contains(key string) bool {
	_, found := t.findSlot(key)
	return found
}

// Len returns the number of stored keys
func (t *Table[V]) Len() int {
	return t.size
}

// Keys returns the stored keys in slot order
func (t *Table[V]) Keys() []string {
	keys := make([]string, 0, t.size)
	for _, s := range t.slots {
		if s.state == slotOccupied {
			keys = append(keys, s.key)
		}
	}
	return keys
}

// Values returns the stored values in slot order
func (t *Table[V]) Values() []V {
	values := make([]V, 0, t.size)
	for _, s := range t.slots {
		if s.state == slotOccupied {
			values = append(values, s.value)
		}
	}
	return values
}

// Items returns the stored entries in slot order
func (t *Table[V]) Items() []Entry[V] {
	items := make([]Entry[V], 0, t.size)
	for _, s := range t.slots {
		if s.state == slotOccupied {
			items = append(items, Entry[V]{Key: s.key, Value: s.value})
		}
	}
	return items
}

// Stats returns occupancy statistics
func (t *Table[V]) Stats() Stats {
	capacity := len(t.slots)
	return Stats{
		Size:          t.size,
		Capacity:      capacity,
		LoadFactor:    float64(t.size) / float64(capacity),
		MaxLoadFactor: t.loadFactor,
		EmptySlots:    capacity - t.size,
	}
}

func (t *Table[V]) put(key string, value V) {
	idx, found := t.findSlot(key)
	for idx < 0 {
		// probe sequence exhausted without a free slot
		t.rehash(nextPrime(len(t.slots) * 2))
		idx, found = t.findSlot(key)
	}

	if !found {
		if t.slots[idx].state == slotDeleted {
			t.tombstones--
		}
		t.size++
	}
	t.slots[idx] = slot[V]{key: key, value: value, state: slotOccupied}
}

// findSlot probes h, h+1², h+2², ... and returns the key's slot if present.
// Otherwise it returns the first reusable slot on the probe path, or -1.
func (t *Table[V]) findSlot(key string) (int, bool) {
	capacity := len(t.slots)
	h := t.hash(key)
	firstDeleted := -1

	for i := 0; i < capacity; i++ {
		idx := (h + i*i) % capacity
		s := &t.slots[idx]

		switch s.state {
		case slotEmpty:
			if firstDeleted >= 0 {
				return firstDeleted, false
			}
			return idx, false
		case slotDeleted:
			if firstDeleted < 0 {
				firstDeleted = idx
			}
		case slotOccupied:
			if s.key == key {
				return idx, true
			}
		}
	}

	return firstDeleted, false
}

// hash is a polynomial rolling hash reduced modulo the capacity
func (t *Table[V]) hash(key string) int {
	capacity := len(t.slots)
	h := 0
	for _, c := range key {
		h = (h*hashBase + int(c)) % capacity
	}
	return h
}

// rehash moves live entries into a table of the given capacity, dropping tombstones
func (t *Table[V]) rehash(capacity int) {
	old := t.slots
	t.slots = make([]slot[V], capacity)
	t.size = 0
	t.tombstones = 0

	for _, s := range old {
		if s.state == slotOccupied {
			t.put(s.key, s.value)
		}
	}
}

func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	if n == 2 {
		return true
	}
	if n%2 == 0 {
		return false
	}
	for i := 3; i*i <= n; i += 2 {
		if n%i == 0 {
			return false
		}
	}
	return true
}

// nextPrime returns the smallest prime strictly greater than n
func nextPrime(n int) int {
	if n < 2 {
		return 2
	}
	candidate := n + 1
	if candidate%2 == 0 {
		candidate++
	}
	for !isPrime(candidate) {
		candidate += 2
	}
	return candidate
}
