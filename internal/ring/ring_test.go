package ring

import (
	"errors"
	"testing"
)

func TestRing(t *testing.T) {
	t.Run("empty ring has no owner", func(t *testing.T) {
		r := New()
		_, err := r.Owner("apple")
		if !errors.Is(err, ErrEmptyRing) {
			t.Errorf("expected ErrEmptyRing, got %v", err)
		}
	})

	t.Run("add_group is idempotent", func(t *testing.T) {
		r := New()
		if added := r.AddGroup("g1"); !added {
			t.Fatalf("expected first add to succeed")
		}
		if added := r.AddGroup("g1"); added {
			t.Errorf("expected duplicate add to report failure")
		}
		if !r.NodeExists("g1") {
			t.Errorf("expected g1 to be registered")
		}
	})

	t.Run("each group contributes exactly M virtual entries", func(t *testing.T) {
		r := New()
		r.AddGroup("g1")
		if got := len(r.entries); got != VirtualNodes {
			t.Errorf("got %d entries, want %d", got, VirtualNodes)
		}
	})

	t.Run("owner is deterministic", func(t *testing.T) {
		r := New()
		r.AddGroup("g1")
		r.AddGroup("g2")
		r.AddGroup("g3")

		first, _ := r.Owner("apple")
		for i := 0; i < 10; i++ {
			got, err := r.Owner("apple")
			if err != nil || got != first {
				t.Errorf("owner changed across calls: got %q, want %q", got, first)
			}
		}
	})

	t.Run("owner is always a registered group", func(t *testing.T) {
		r := New()
		r.AddGroup("alpha")
		r.AddGroup("beta")
		r.AddGroup("gamma")

		for _, key := range []string{"a", "bb", "ccc", "dddd", "eeeee", "zz", "quux"} {
			owner, err := r.Owner(key)
			if err != nil {
				t.Fatalf("expected an owner for %q", key)
			}
			if !r.NodeExists(owner) {
				t.Errorf("owner %q for key %q is not a registered group", owner, key)
			}
		}
	})

	t.Run("single group owns every key", func(t *testing.T) {
		r := New()
		r.AddGroup("only")
		for _, key := range []string{"a", "b", "c", "xyz"} {
			owner, err := r.Owner(key)
			if err != nil || owner != "only" {
				t.Errorf("got (%q, %v), want (only, nil)", owner, err)
			}
		}
	})

	t.Run("successors excludes the group itself", func(t *testing.T) {
		r := New()
		r.AddGroup("g1")
		r.AddGroup("g2")
		r.AddGroup("g3")

		for _, g := range []string{"g1", "g2", "g3"} {
			for _, s := range r.Successors(g) {
				if s == g {
					t.Errorf("successors(%q) included itself", g)
				}
			}
		}
	})

	t.Run("successors of the only group is empty", func(t *testing.T) {
		r := New()
		r.AddGroup("only")
		if got := r.Successors("only"); len(got) != 0 {
			t.Errorf("expected no successors, got %v", got)
		}
	})

	t.Run("successors returns distinct groups", func(t *testing.T) {
		r := New()
		r.AddGroup("g1")
		r.AddGroup("g2")

		successors := r.Successors("g1")
		seen := make(map[string]bool)
		for _, s := range successors {
			if seen[s] {
				t.Errorf("successors(g1) contained duplicate %q", s)
			}
			seen[s] = true
		}
	})

	t.Run("M of 1 still functions", func(t *testing.T) {
		r := New()
		r.entries = nil
		r.groups = make(map[string]bool)

		for _, g := range []string{"a", "b"} {
			r.groups[g] = true
			r.entries = append(r.entries, entry{hash: hash(virtualLabel(g, 0)), group: g})
		}

		owner, err := r.Owner("somekey")
		if err != nil {
			t.Fatalf("expected an owner")
		}
		if owner != "a" && owner != "b" {
			t.Errorf("unexpected owner %q", owner)
		}
	})
}
