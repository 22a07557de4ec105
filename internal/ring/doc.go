// Package ring implements the consistent-hash router that maps keys to
// replica groups, so every node in the cluster agrees on which group
// owns a given key without any per-request coordination.
//
// # Overview
//
// The ring is a sorted collection of (hash, group) entries. Each
// registered group contributes VirtualNodes virtual entries, hashed as
// group_id+"0" through group_id+"9" with 32-bit MurmurHash3. Looking up
// a key hashes it the same way and walks to the first entry at or after
// that hash, wrapping around to the start of the ring if the hash falls
// past the last entry. Spreading each group across many points on the
// ring, rather than one, keeps the load on each group roughly even even
// with a small number of groups; a single point per group would let one
// unlucky hash placement give a group a disproportionate share of the
// keyspace.
//
// # Architecture
//
//	hash space: 0 .............................. 2^32-1
//	            |                                    |
//	   entries: A0   B2     A3  C1    B0   A1   C0   B1
//	            |────|──────|───|─────|────|────|────|
//	             ▲
//	       H("user:42") lands here, owned by group B
//	       (first entry at or after the hash, here B2)
//
// Every group appears several times (A0, A1, A3, ... up to VirtualNodes
// entries), interleaved with every other group's entries in hash order,
// not grouped together. A lookup never inspects group identity during
// the search, only hash order; the group each winning entry carries is
// the answer.
//
// # Why consistent hashing instead of a fixed modulo
//
// A naive `hash(key) % groupCount` scheme remaps nearly every key when
// groupCount changes, since the modulo of almost every hash changes
// when the divisor does. Placing groups and keys on the same ring and
// walking forward from the key's hash means adding or removing a group
// only reassigns the keys that were mapped to that group's ring
// segments, leaving everything else untouched. This repo's topology is
// static once loaded (internal/topology), so rebalancing on a live
// membership change is out of scope, but the ring still uses this
// placement scheme because it is the natural, idiomatic way to build a
// hash router, and because Successors (see below) depends on it.
//
// # Core operations
//
// AddGroup: registers a group's VirtualNodes entries in one atomic
// step, re-sorting the full entry slice. Call this once per group at
// startup, before Owner is ever called for a key that should route to
// it; a group with no entries is simply never chosen as an owner.
//
// Owner: the primary lookup. Hashes the key, binary-searches
// (sort.Search) for the first entry not less than that hash, and
// returns its group. Wraps to index 0 if the hash sorts after every
// entry. Returns ErrEmptyRing if no group has been registered.
//
// Successors: for a given group, returns the distinct set of groups
// whose ring segments would inherit that group's keys if it were
// removed, found by walking one step past each of the group's own
// virtual entries. This is informational; nothing in this repo performs
// the actual data migration automatically, since groups are fixed for
// a cluster's lifetime, but the admin surface and any future rebalance
// tooling can use it to know where data would land.
//
// Entries: a full snapshot of the ring, used only for observability
// (internal/adminhttp's /groups endpoint serves this verbatim as JSON).
//
// # Tie-breaking
//
// Two entries can share a hash (a collision between two groups' virtual
// labels, vanishingly unlikely at 32 bits but possible). Entries compare
// by hash first and group id second, so the order is fully determined
// and Owner is deterministic even in that case; Successors uses the
// same comparison to find "the next entry" unambiguously.
//
// # Concurrency and thread safety
//
// A single mutex guards the sorted entry slice and the registered-group
// set; AddGroup, Owner, Successors, NodeExists, and Entries all take it
// for their entire body, since lookups that raced with an AddGroup's
// sort could observe a partially reordered slice. None of Ring's
// methods ever block on another package's lock: the router's lock is
// never held together with a replication or table lock, so a caller
// holding the router lock is always safe to then call into
// internal/replgroup or internal/table without a deadlock risk.
//
// # Performance characteristics
//
//   - AddGroup: O(n log n) in the total number of entries, since it
//     re-sorts the whole slice; called only at startup, once per group,
//     so this cost is paid a handful of times per process lifetime.
//   - Owner, Successors: O(log n) for the binary search, O(1) amortized
//     beyond that; Successors does VirtualNodes such searches, so it is
//     O(VirtualNodes * log n).
//   - Entries: O(n), a full copy; intended for human-timescale polling,
//     not a per-request hot path.
//
// # Usage example
//
//	router := ring.New()
//	router.AddGroup("group-a")
//	router.AddGroup("group-b")
//
//	owner, err := router.Owner("user:42")
//	if err != nil {
//	    // no group registered yet
//	}
//
//	// who would inherit group-a's keys if it were removed
//	candidates := router.Successors("group-a")
//
// # Best practices
//
//   - Register every group before serving any client traffic. Owner's
//     answer for a key can change if a group is added later, since new
//     virtual entries can land between the key's hash and its previous
//     owner's entry.
//   - Treat the group string returned by Owner as an opaque topology
//     key; resolve it to an address through internal/topology, not by
//     any convention on the string's shape.
//   - Don't call AddGroup after the router is serving lookups from
//     multiple goroutines unless you're prepared for Owner's answers to
//     shift mid-flight; this repo only calls it once at startup, before
//     the dispatcher and admin server are listening.
//
// # See also
//
// Related packages:
//   - internal/topology: resolves the group id Owner returns to a
//     leader address and replica list
//   - internal/dispatch: calls Owner for every incoming command to
//     decide whether to apply locally or forward
//   - internal/adminhttp: serves Entries via /groups for observability
package ring
