package consul

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// ServiceInstance is one healthy instance of a service
type ServiceInstance struct {
	ID      string
	Name    string
	Address string
	Port    int
	Tags    []string
}

// BaseURL is the instance's plain HTTP origin
func (s *ServiceInstance) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", s.Address, s.Port)
}

// ServiceDiscovery resolves service names to instances
type ServiceDiscovery interface {
	Discover(serviceName string) ([]*ServiceInstance, error)
	DiscoverOne(serviceName string) (*ServiceInstance, error)
}

// Discover returns every instance passing its health check
func (c *Client) Discover(serviceName string) ([]*ServiceInstance, error) {
	entries, _, err := c.api.Health().Service(serviceName, "", true, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to discover service %s: %w", serviceName, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no healthy instances found for service: %s", serviceName)
	}

	instances := make([]*ServiceInstance, 0, len(entries))
	for _, e := range entries {
		addr := e.Service.Address
		if addr == "" {
			addr = e.Node.Address
		}
		instances = append(instances, &ServiceInstance{
			ID:      e.Service.ID,
			Name:    e.Service.Service,
			Address: addr,
			Port:    e.Service.Port,
			Tags:    e.Service.Tags,
		})
	}
	return instances, nil
}

// DiscoverOne rotates through the healthy instances of serviceName
func (c *Client) DiscoverOne(serviceName string) (*ServiceInstance, error) {
	instances, err := c.Discover(serviceName)
	if err != nil {
		return nil, err
	}
	return instances[c.rr.next(serviceName, len(instances))], nil
}

// roundRobin keeps one counter per service name
type roundRobin struct {
	counters sync.Map // string -> *atomic.Uint64
}

func (r *roundRobin) next(name string, n int) int {
	v, _ := r.counters.LoadOrStore(name, new(atomic.Uint64))
	return int((v.(*atomic.Uint64).Add(1) - 1) % uint64(n))
}
