// Package consul registers services with Consul and resolves healthy
// instances for the gateway.
package consul

import (
	"fmt"

	consulapi "github.com/hashicorp/consul/api"

	"studybuddy/internal/config"
)

// Client wraps the Consul API client
type Client struct {
	api *consulapi.Client
	rr  roundRobin
}

// NewClient connects to the agent at addr. token may be empty.
func NewClient(addr, token string) (*Client, error) {
	cfg := consulapi.DefaultConfig()
	cfg.Address = addr
	if token != "" {
		cfg.Token = token
	}

	api, err := consulapi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client for %s: %w", addr, err)
	}
	return &Client{api: api}, nil
}

// NewClientFromEnv reads CONSUL_HTTP_ADDR and CONSUL_HTTP_TOKEN
func NewClientFromEnv() (*Client, error) {
	return NewClient(
		config.GetEnvOrDefault("CONSUL_HTTP_ADDR", "localhost:8500"),
		config.GetEnvOrDefault("CONSUL_HTTP_TOKEN", ""),
	)
}

// API returns the underlying Consul API client
func (c *Client) API() *consulapi.Client {
	return c.api
}

// RegistrarFromEnv returns a client when CONSUL_HTTP_ADDR is set and a nil
// registrar otherwise, which server.Run treats as "do not register".
func RegistrarFromEnv() (ServiceRegistrar, error) {
	if config.GetEnvOrDefault("CONSUL_HTTP_ADDR", "") == "" {
		return nil, nil
	}
	c, err := NewClientFromEnv()
	if err != nil {
		return nil, err
	}
	return c, nil
}
