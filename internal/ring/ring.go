package ring

import (
	"errors"
	"sort"
	"strconv"
	"sync"

	"github.com/spaolacci/murmur3"
)

// VirtualNodes is the number of virtual ring entries each registered
// group contributes (M in the router's terminology).
const VirtualNodes = 10

// ErrEmptyRing is returned by Owner when no group has been registered
// yet. The dispatcher treats this as a configuration bug, not a
// transient condition.
var ErrEmptyRing = errors.New("ring: empty")

type entry struct {
	hash  uint32
	group string
}

// less reports whether a sorts before b, ordering by hash and breaking
// ties lexicographically on group, per the router's fixed tie-break
// rule.
func less(a, b entry) bool {
	if a.hash != b.hash {
		return a.hash < b.hash
	}
	return a.group < b.group
}

// Ring is a consistent-hash router over replica groups. The zero value
// is not usable; construct one with New.
type Ring struct {
	mu      sync.Mutex
	entries []entry
	groups  map[string]bool
}

// New returns an empty Ring.
func New() *Ring {
	return &Ring{groups: make(map[string]bool)}
}

func hash(s string) uint32 {
	return murmur3.Sum32([]byte(s))
}

func virtualLabel(group string, i int) string {
	return group + strconv.Itoa(i)
}

// AddGroup registers group on the ring, inserting its VirtualNodes
// virtual entries atomically with respect to other router operations.
// It returns false if group was already registered, leaving the ring
// unchanged.
func (r *Ring) AddGroup(group string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.groups[group] {
		return false
	}

	for i := 0; i < VirtualNodes; i++ {
		r.entries = append(r.entries, entry{hash: hash(virtualLabel(group, i)), group: group})
	}
	sort.Slice(r.entries, func(i, j int) bool { return less(r.entries[i], r.entries[j]) })
	r.groups[group] = true
	return true
}

// NodeExists reports whether group is currently registered.
func (r *Ring) NodeExists(group string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.groups[group]
}

// lowerBound returns the index of the first entry not less than target,
// wrapping to 0 if target sorts after every entry. Callers hold r.mu.
func (r *Ring) lowerBound(target entry) int {
	idx := sort.Search(len(r.entries), func(i int) bool {
		return !less(r.entries[i], target)
	})
	if idx == len(r.entries) {
		idx = 0
	}
	return idx
}

// Owner returns the group responsible for key: the group contributing
// the first ring entry at or after H(key), wrapping around the ring.
// It returns ErrEmptyRing if no group has been registered yet.
func (r *Ring) Owner(key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries) == 0 {
		return "", ErrEmptyRing
	}

	h := hash(key)
	idx := r.lowerBound(entry{hash: h, group: ""})
	return r.entries[idx].group, nil
}

// Entry is a snapshot of a single virtual-node ring entry, exported for
// callers that need to inspect router state without mutating it (the
// admin HTTP surface's /groups endpoint).
type Entry struct {
	Hash  uint32 `json:"hash"`
	Group string `json:"group"`
}

// Entries returns a snapshot of every virtual-node entry currently on
// the ring, in ring order.
func (r *Ring) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, len(r.entries))
	for i, e := range r.entries {
		out[i] = Entry{Hash: e.hash, Group: e.group}
	}
	return out
}

// Successors returns the distinct set of groups that immediately follow
// any of group's virtual entries on the ring, excluding group itself.
// This is the set of groups that would inherit group's keys if group
// were removed.
func (r *Ring) Successors(group string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var result []string
	for i := 0; i < VirtualNodes; i++ {
		target := entry{hash: hash(virtualLabel(group, i)), group: group}
		idx := r.lowerBound(target)
		next := r.entries[(idx+1)%len(r.entries)]
		if next.group == group || seen[next.group] {
			continue
		}
		seen[next.group] = true
		result = append(result, next.group)
	}
	return result
}
