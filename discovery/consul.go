// Package discovery resolves a WAMP router's transport URL at runtime
// instead of hardcoding it in Config.TransportURL, following the
// teacher's restful/discovery.go Discovery interface.
package discovery

import (
	"fmt"

	"github.com/hashicorp/consul/api"
	"github.com/pkg/errors"
)

// Discovery resolves a logical router name to a dialable transport URL.
type Discovery interface {
	LookupRouter(name string) (string, error)
}

// ConsulDiscovery resolves router addresses from Consul's service
// catalog, unlike the teacher's stubbed ConsulDiscovery which was never
// implemented.
type ConsulDiscovery struct {
	client *api.Client
	scheme string
}

// NewConsulDiscovery dials Consul at addr. scheme is prefixed onto the
// resolved host:port, e.g. "ws" to produce a ws:// transport URL.
func NewConsulDiscovery(addr, scheme string) (*ConsulDiscovery, error) {
	cfg := api.DefaultConfig()
	if addr != "" {
		cfg.Address = addr
	}
	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, errors.WithMessagef(err, "connect to consul at %s", addr)
	}
	if scheme == "" {
		scheme = "ws"
	}
	return &ConsulDiscovery{client: client, scheme: scheme}, nil
}

// LookupRouter returns the first healthy service instance registered
// under name, formatted as "<scheme>://<address>:<port>/ws".
func (d *ConsulDiscovery) LookupRouter(name string) (string, error) {
	entries, _, err := d.client.Health().Service(name, "", true, nil)
	if err != nil {
		return "", errors.WithMessagef(err, "consul health query for %s", name)
	}
	if len(entries) == 0 {
		return "", errors.Errorf("no healthy instance of %s registered in consul", name)
	}
	svc := entries[0].Service
	addr := svc.Address
	if addr == "" {
		addr = entries[0].Node.Address
	}
	return fmt.Sprintf("%s://%s:%d/ws", d.scheme, addr, svc.Port), nil
}

// EnvDiscovery resolves a router address from an environment-backed
// viper key, mirroring the teacher's EnvDiscovery fallback.
type EnvDiscovery struct {
	lookup func(key string) string
}

// NewEnvDiscovery wraps lookup (typically viper.GetString) as a
// Discovery, so callers can swap in Consul without touching call sites.
func NewEnvDiscovery(lookup func(key string) string) *EnvDiscovery {
	return &EnvDiscovery{lookup: lookup}
}

func (d *EnvDiscovery) LookupRouter(name string) (string, error) {
	v := d.lookup(name)
	if v == "" {
		return "", errors.Errorf("no transport url configured for %s", name)
	}
	return v, nil
}
