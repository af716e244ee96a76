package loadbalance

import (
	"fmt"
	"hash/crc32"
	"netbridge/registry"
	"sort"
)

const defaultReplicas = 100

// Ring maps keys to instances on a crc32 hash ring with virtual nodes.
//
// Each instance is placed at Replicas points hashed from "{addr}#{i}". A key goes
// to the first point clockwise from its own hash, wrapping at the end.
type Ring struct {
	replicas int
	points   []uint32
	nodes    map[uint32]*registry.ServiceInstance
}

func NewRing(replicas int) *Ring {
	if replicas <= 0 {
		replicas = defaultReplicas
	}
	return &Ring{replicas: replicas, nodes: make(map[uint32]*registry.ServiceInstance)}
}

// Add places an instance onto the ring.
func (r *Ring) Add(instance *registry.ServiceInstance) {
	for i := 0; i < r.replicas; i++ {
		hash := crc32.ChecksumIEEE([]byte(fmt.Sprintf("%s#%d", instance.Addr, i)))
		r.points = append(r.points, hash)
		r.nodes[hash] = instance
	}
	sort.Slice(r.points, func(i, j int) bool { return r.points[i] < r.points[j] })
}

// Get returns the instance responsible for key.
func (r *Ring) Get(key string) (*registry.ServiceInstance, error) {
	if len(r.points) == 0 {
		return nil, ErrNoInstances
	}
	hash := crc32.ChecksumIEEE([]byte(key))
	idx := sort.Search(len(r.points), func(i int) bool { return r.points[i] >= hash })
	if idx == len(r.points) {
		idx = 0
	}
	return r.nodes[r.points[idx]], nil
}

// ConsistentHashBalancer always sends the same key to the same instance while
// the instance set is unchanged. The ring is rebuilt from the list on each Pick,
// so the balancer holds no mutable state.
type ConsistentHashBalancer struct {
	key string
}

func NewConsistentHashBalancer(key string) *ConsistentHashBalancer {
	return &ConsistentHashBalancer{key: key}
}

func (b *ConsistentHashBalancer) Pick(instances []registry.ServiceInstance) (*registry.ServiceInstance, error) {
	ring := NewRing(defaultReplicas)
	for i := range instances {
		ring.Add(&instances[i])
	}
	return ring.Get(b.key)
}

func (b *ConsistentHashBalancer) Name() string {
	return "ConsistentHash"
}
