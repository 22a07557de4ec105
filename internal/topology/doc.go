// Package topology loads the static cluster layout from a YAML file:
// the set of replica groups, each with its leader address and replica
// addresses.
//
// The topology document is the only place group membership is
// configured; there is no dynamic group registration or rebalancing.
// cmd/kvnode reads it once at startup, feeds every group into the
// router in a fixed order, and looks up its own configured group id to
// find that group's leader address. The node's role (leader or
// follower) comes from its --role flag, not from the document.
package topology
