package loadbalance

import (
	"netbridge/registry"
	"sync/atomic"
)

// RoundRobinBalancer hands out instances in order, starting with the first.
type RoundRobinBalancer struct {
	next atomic.Uint64
}

func (b *RoundRobinBalancer) Pick(instances []registry.ServiceInstance) (*registry.ServiceInstance, error) {
	if len(instances) == 0 {
		return nil, ErrNoInstances
	}
	n := b.next.Add(1) - 1
	return &instances[n%uint64(len(instances))], nil
}

func (b *RoundRobinBalancer) Name() string {
	return "RoundRobin"
}
