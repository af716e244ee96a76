// Package loadbalance picks which bridge server a client talks to.
//
// A client resolves its target once, at construction; the balancer decides
// which of the discovered instances that is:
//   - RoundRobin:      spread successive clients evenly
//   - WeightedRandom:  favour bigger servers
//   - ConsistentHash:  pin an account (e.g. its pubkey) to the same server
package loadbalance

import (
	"errors"
	"netbridge/registry"
)

var ErrNoInstances = errors.New("loadbalance: no instances available")

// Balancer is the interface for load balancing strategies.
type Balancer interface {
	// Pick selects one instance from the available list. Must be goroutine-safe.
	Pick(instances []registry.ServiceInstance) (*registry.ServiceInstance, error)

	// Name returns the strategy name (for logging/debugging).
	Name() string
}
