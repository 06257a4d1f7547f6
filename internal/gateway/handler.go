package gateway

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"studybuddy/internal/consul"
)

// HeaderForwardedPrefix tells a service which path prefix the gateway removed
const HeaderForwardedPrefix = "X-Forwarded-Prefix"

// ProxyHandler forwards requests to instances found through discovery
type ProxyHandler struct {
	discovery consul.ServiceDiscovery
}

// NewProxyHandler creates a new proxy handler
func NewProxyHandler(discovery consul.ServiceDiscovery) *ProxyHandler {
	return &ProxyHandler{discovery: discovery}
}

// Proxy forwards to serviceName with stripPrefix removed from the path.
// Websocket upgrades pass through unchanged.
func (h *ProxyHandler) Proxy(serviceName, stripPrefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		instance, err := h.discovery.DiscoverOne(serviceName)
		if err != nil {
			slog.Warn("Service discovery failed", "service", serviceName, "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": fmt.Sprintf("service %s unavailable", serviceName),
			})
			return
		}

		target, err := url.Parse(instance.BaseURL())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		c.Set("upstream_service", serviceName)

		proxy := &httputil.ReverseProxy{
			Rewrite: func(pr *httputil.ProxyRequest) {
				pr.SetURL(target)
				pr.Out.URL.Path = rewritePath(pr.In.URL.Path, stripPrefix)
				pr.Out.URL.RawPath = ""
				pr.SetXForwarded()
				// Rewrite drops hop headers but keeps the identity headers set by the session middleware
				pr.Out.Header.Set(HeaderForwardedPrefix, stripPrefix)
			},
			ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
				slog.Error("Proxy error", "service", serviceName, "error", err)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte(`{"error":"bad gateway"}`))
			},
		}
		proxy.ServeHTTP(c.Writer, c.Request)
	}
}

func rewritePath(path, stripPrefix string) string {
	out := strings.TrimPrefix(path, stripPrefix)
	if !strings.HasPrefix(out, "/") {
		out = "/" + out
	}
	return out
}

// Health is the gateway health check handler
func (h *ProxyHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "api-gateway",
	})
}
