package consul

import (
	"errors"
	"fmt"

	consulapi "github.com/hashicorp/consul/api"
)

var ErrInvalidRegistration = errors.New("registration needs an id, a name and a port")

// Check defaults applied when a HealthCheck leaves them empty
const (
	defaultCheckInterval   = "10s"
	defaultCheckTimeout    = "3s"
	defaultDeregisterAfter = "1m"
)

// ServiceConfig describes a registration
type ServiceConfig struct {
	ID      string
	Name    string
	Address string
	Port    int
	Tags    []string
	// Meta is stored with the instance, e.g. the build version
	Meta  map[string]string
	Check *HealthCheck
}

// HealthCheck is an HTTP check consul polls
type HealthCheck struct {
	HTTP     string
	Interval string
	Timeout  string
	// DeregisterAfter removes an instance that stayed critical this long
	DeregisterAfter string
}

// ServiceRegistrar registers and removes service instances
type ServiceRegistrar interface {
	Register(cfg *ServiceConfig) error
	Deregister(serviceID string) error
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// registration converts cfg into the agent payload
func registration(cfg *ServiceConfig) (*consulapi.AgentServiceRegistration, error) {
	if cfg == nil || cfg.ID == "" || cfg.Name == "" || cfg.Port <= 0 {
		return nil, ErrInvalidRegistration
	}

	reg := &consulapi.AgentServiceRegistration{
		ID:      cfg.ID,
		Name:    cfg.Name,
		Address: cfg.Address,
		Port:    cfg.Port,
		Tags:    cfg.Tags,
		Meta:    cfg.Meta,
	}
	if chk := cfg.Check; chk != nil && chk.HTTP != "" {
		reg.Check = &consulapi.AgentServiceCheck{
			HTTP:                           chk.HTTP,
			Interval:                       orDefault(chk.Interval, defaultCheckInterval),
			Timeout:                        orDefault(chk.Timeout, defaultCheckTimeout),
			DeregisterCriticalServiceAfter: orDefault(chk.DeregisterAfter, defaultDeregisterAfter),
		}
	}
	return reg, nil
}

// Register adds cfg to the local agent, replacing an instance with the same id
func (c *Client) Register(cfg *ServiceConfig) error {
	reg, err := registration(cfg)
	if err != nil {
		return err
	}
	if err := c.api.Agent().ServiceRegister(reg); err != nil {
		return fmt.Errorf("consul: register %s: %w", cfg.ID, err)
	}
	return nil
}

// Deregister removes serviceID from the local agent
func (c *Client) Deregister(serviceID string) error {
	if serviceID == "" {
		return ErrInvalidRegistration
	}
	if err := c.api.Agent().ServiceDeregister(serviceID); err != nil {
		return fmt.Errorf("consul: deregister %s: %w", serviceID, err)
	}
	return nil
}
