// Package registry provides the etcd-based implementation of the Registry interface.
//
//	Key:   /netbridge/{ServiceName}/{Addr}
//	Value: JSON-encoded ServiceInstance
//
// Registration uses TTL-based leases: if the server crashes, the lease expires
// and the entry is automatically removed.
package registry

import (
	"context"
	"encoding/json"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

const keyPrefix = "/netbridge/"

// EtcdRegistry implements the Registry interface using etcd v3.
type EtcdRegistry struct {
	client  *clientv3.Client // etcd client connection (thread-safe, shared across goroutines)
	logger  *zap.Logger
	timeout time.Duration // per-call timeout for Put/Get/Delete
}

// NewEtcdRegistry creates a new registry connected to the given etcd endpoints.
// A nil logger disables logging.
func NewEtcdRegistry(endpoints []string, dialTimeout time.Duration, logger *zap.Logger) (*EtcdRegistry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: dialTimeout,
		Logger:      logger.Named("etcd"),
	})
	if err != nil {
		return nil, err
	}
	timeout := dialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &EtcdRegistry{client: c, logger: logger, timeout: timeout}, nil
}

func serviceKey(serviceName string) string {
	return keyPrefix + serviceName + "/"
}

// Register adds a service instance to etcd with a TTL lease and keeps the lease
// alive until the registry is closed.
//
// Note: leaseID is a local variable, NOT stored on the struct, so several servers
// may share one EtcdRegistry.
func (r *EtcdRegistry) Register(serviceName string, instance ServiceInstance, ttl int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	lease, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return err
	}

	val, err := json.Marshal(instance)
	if err != nil {
		return err
	}

	_, err = r.client.Put(ctx, serviceKey(serviceName)+instance.Addr, string(val), clientv3.WithLease(lease.ID))
	if err != nil {
		return err
	}

	// KeepAlive must outlive this call, so it gets the client's own context.
	ch, err := r.client.KeepAlive(r.client.Ctx(), lease.ID)
	if err != nil {
		return err
	}

	go func() {
		for range ch {
		}
		r.logger.Info("lease keepalive stopped",
			zap.String("service", serviceName),
			zap.String("addr", instance.Addr))
	}()
	return nil
}

// Deregister removes a service instance from etcd.
func (r *EtcdRegistry) Deregister(serviceName string, addr string) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	_, err := r.client.Delete(ctx, serviceKey(serviceName)+addr)
	return err
}

// Watch emits the full instance list whenever the service prefix changes.
func (r *EtcdRegistry) Watch(serviceName string) <-chan []ServiceInstance {
	ch := make(chan []ServiceInstance, 1)

	go func() {
		defer close(ch)
		watchChan := r.client.Watch(r.client.Ctx(), serviceKey(serviceName), clientv3.WithPrefix())
		for range watchChan {
			instances, err := r.Discover(serviceName)
			if err != nil {
				r.logger.Warn("discover after watch event failed", zap.String("service", serviceName), zap.Error(err))
				continue
			}
			ch <- instances
		}
	}()

	return ch
}

// Discover returns all currently registered instances for a service.
func (r *EtcdRegistry) Discover(serviceName string) ([]ServiceInstance, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	resp, err := r.client.Get(ctx, serviceKey(serviceName), clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	instances := make([]ServiceInstance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var instance ServiceInstance
		if err := json.Unmarshal(kv.Value, &instance); err != nil {
			r.logger.Warn("skipping malformed instance", zap.ByteString("key", kv.Key))
			continue
		}
		instances = append(instances, instance)
	}

	return instances, nil
}

// Close releases the etcd connection; lease keepalives stop with it.
func (r *EtcdRegistry) Close() error {
	return r.client.Close()
}
