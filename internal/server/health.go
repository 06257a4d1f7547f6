package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Check reports one dependency. A "status" of "down" fails the health check.
type Check func(ctx context.Context) map[string]string

// Health serves GET /health for service name
func Health(name string, checks map[string]Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status, code := "healthy", http.StatusOK
		body := gin.H{"service": name, "timestamp": time.Now().UTC()}
		for dep, check := range checks {
			result := check(ctx)
			if result["status"] == "down" {
				status, code = "unhealthy", http.StatusServiceUnavailable
			}
			body[dep] = result
		}
		body["status"] = status
		c.JSON(code, body)
	}
}

// PingCheck adapts a func that returns an error, such as a Redis ping
func PingCheck(ping func(ctx context.Context) error) Check {
	return func(ctx context.Context) map[string]string {
		if err := ping(ctx); err != nil {
			return map[string]string{"status": "down", "error": err.Error()}
		}
		return map[string]string{"status": "up"}
	}
}
