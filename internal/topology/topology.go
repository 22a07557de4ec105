package topology

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrGroupNotFound is returned by Resolve when the requested group id
// does not appear in the topology.
var ErrGroupNotFound = errors.New("topology: group not found")

// Group is one replica group's static configuration: its id, its
// leader's data-path address, and its replicas' data-path addresses.
type Group struct {
	ID       string   `yaml:"id"`
	Leader   string   `yaml:"leader"`
	Replicas []string `yaml:"replicas"`
}

// document mirrors the on-disk YAML shape.
type document struct {
	Groups []Group `yaml:"groups"`
}

// Topology is the parsed, validated cluster layout.
type Topology struct {
	Groups []Group
}

// Load reads and parses the topology document at path.
func Load(path string) (*Topology, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("topology: reading %s: %w", path, err)
	}

	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("topology: parsing %s: %w", path, err)
	}

	for _, g := range doc.Groups {
		if g.ID == "" {
			return nil, fmt.Errorf("topology: %s: group with empty id", path)
		}
		if g.Leader == "" {
			return nil, fmt.Errorf("topology: %s: group %q has no leader address", path, g.ID)
		}
	}

	return &Topology{Groups: doc.Groups}, nil
}

// SortedGroupIDs returns every group id in the topology, sorted
// lexicographically, so that repeated calls to ring.AddGroup across
// independent processes build an identical ring.
func (t *Topology) SortedGroupIDs() []string {
	ids := make([]string, len(t.Groups))
	for i, g := range t.Groups {
		ids[i] = g.ID
	}
	sort.Strings(ids)
	return ids
}

// Resolve returns the Group configuration for groupID.
func (t *Topology) Resolve(groupID string) (Group, error) {
	for _, g := range t.Groups {
		if g.ID == groupID {
			return g, nil
		}
	}
	return Group{}, ErrGroupNotFound
}

// IsLeaderAddr reports whether addr is the configured leader address
// for group g, distinguishing a node's own role within its group.
func (g Group) IsLeaderAddr(addr string) bool {
	return g.Leader == addr
}
