// Package config loads the JSON configuration shared by the bridge binaries.
//
// Example:
//
//	{
//	  "server": {"listen": ":8080", "advertise": "10.0.0.5:8080", "rate_limit": 50, "burst": 100},
//	  "client": {"service": "netbridge", "balancer": "consistent_hash", "hash_key": "05ab..."},
//	  "etcd":   {"endpoints": ["127.0.0.1:2379"], "dial_timeout": "5s"}
//	}
//
// Every field is optional; Default fills the gaps. Command-line flags override
// file values.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"netbridge/loadbalance"
	"os"
	"strings"
	"time"
)

type Config struct {
	Server ServerConfig `json:"server"`
	Client ClientConfig `json:"client"`
	Etcd   EtcdConfig   `json:"etcd"`
}

type ServerConfig struct {
	Listen    string `json:"listen,omitempty"`
	Advertise string `json:"advertise,omitempty"` // host:port registered in etcd
	Path      string `json:"path,omitempty"`
	// RateLimit is requests per second across all callers; 0 disables limiting.
	RateLimit    float64 `json:"rate_limit,omitempty"`
	Burst        int     `json:"burst,omitempty"`
	MaxBodyBytes int64   `json:"max_body_bytes,omitempty"`
}

type ClientConfig struct {
	// Target is a bridge URL. When empty the client discovers Service via etcd.
	Target   string `json:"target,omitempty"`
	Service  string `json:"service,omitempty"`
	Balancer string `json:"balancer,omitempty"` // round_robin, weighted_random, consistent_hash
	HashKey  string `json:"hash_key,omitempty"`
}

type EtcdConfig struct {
	Endpoints   []string `json:"endpoints,omitempty"`
	DialTimeout string   `json:"dial_timeout,omitempty"`
}

const (
	BalancerRoundRobin     = "round_robin"
	BalancerWeightedRandom = "weighted_random"
	BalancerConsistentHash = "consistent_hash"
)

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Listen:       ":8080",
			Path:         "/",
			Burst:        1,
			MaxBodyBytes: 32 << 20,
		},
		Client: ClientConfig{
			Service:  "netbridge",
			Balancer: BalancerRoundRobin,
		},
		Etcd: EtcdConfig{
			DialTimeout: "5s",
		},
	}
}

// LoadFile reads path over Default and validates the result.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, errors.New("config: empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if !strings.HasPrefix(c.Server.Path, "/") {
		return fmt.Errorf("config: server.path must start with '/', got %q", c.Server.Path)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("config: server.rate_limit must not be negative, got %v", c.Server.RateLimit)
	}
	if c.Server.RateLimit > 0 && c.Server.Burst < 1 {
		return errors.New("config: server.burst must be at least 1 when rate_limit is set")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.New("config: server.max_body_bytes must be positive")
	}

	switch c.Client.Balancer {
	case BalancerRoundRobin, BalancerWeightedRandom:
	case BalancerConsistentHash:
		if c.Client.HashKey == "" {
			return errors.New("config: client.hash_key is required for consistent_hash")
		}
	default:
		return fmt.Errorf("config: invalid client.balancer %q", c.Client.Balancer)
	}
	if c.Client.Target == "" && c.Client.Service == "" {
		return errors.New("config: client needs a target or a service")
	}

	if _, err := c.Etcd.Timeout(); err != nil {
		return err
	}
	for _, ep := range c.Etcd.Endpoints {
		if ep == "" {
			return errors.New("config: empty etcd endpoint")
		}
	}
	return nil
}

// Timeout parses DialTimeout.
func (e EtcdConfig) Timeout() (time.Duration, error) {
	d, err := time.ParseDuration(e.DialTimeout)
	if err != nil {
		return 0, fmt.Errorf("config: etcd.dial_timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: etcd.dial_timeout must be positive, got %s", d)
	}
	return d, nil
}

// NewBalancer builds the configured load balancing strategy.
func (c ClientConfig) NewBalancer() (loadbalance.Balancer, error) {
	switch c.Balancer {
	case BalancerRoundRobin:
		return &loadbalance.RoundRobinBalancer{}, nil
	case BalancerWeightedRandom:
		return &loadbalance.WeightedRandomBalancer{}, nil
	case BalancerConsistentHash:
		return loadbalance.NewConsistentHashBalancer(c.HashKey), nil
	}
	return nil, fmt.Errorf("config: invalid client.balancer %q", c.Balancer)
}
