// Package gateway is the single public entry point. It resolves the session
// cookie into identity headers and proxies to services found in consul.
package gateway

import (
	"github.com/gin-gonic/gin"

	"studybuddy/internal/consul"
	"studybuddy/internal/server"
	"studybuddy/internal/session"
)

// SetupRouter configures and returns the gateway router
func SetupRouter(discovery consul.ServiceDiscovery, sessions session.Manager) *gin.Engine {
	r := server.NewEngine()
	proxy := NewProxyHandler(discovery)

	r.GET("/health", proxy.Health)
	r.Use(OptionalSessionMiddleware(sessions))

	// strip is the part of prefix removed before forwarding
	mount := func(prefix, strip, service string, guard gin.HandlerFunc) {
		g := r.Group(prefix)
		if guard != nil {
			g.Use(guard)
		}
		g.Any("", proxy.Proxy(service, strip))
		g.Any("/*path", proxy.Proxy(service, strip))
	}

	mount("/auth", "/auth", "auth-service", nil)
	mount("/api/groups", "/api/groups", "groups-service", RequireSessionForWrites())
	mount("/api/comments", "/api/comments", "comments-service", RequireSessionForWrites())
	mount("/api/discussions", "/api/discussions", "discussions-service", RequireSessionForWrites())
	// one service owns both, so only /api is stripped
	mount("/api/todos", "/api", "todos-service", RequireSessionMiddleware())
	mount("/api/study-times", "/api", "todos-service", RequireSessionMiddleware())
	return r
}
