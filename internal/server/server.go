// Package server holds what every StudyBuddy service shares around its
// router: the gin engine and middleware, health reporting, consul
// registration and graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"studybuddy/internal/config"
	"studybuddy/internal/consul"
)

// Config holds server configuration
type Config struct {
	// Name is the consul service name, e.g. "comments-service"
	Name         string
	Host         string
	Port         int
	Tags         []string
	Version      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// LoadConfig reads PORT, SERVICE_HOST, SERVICE_VERSION and the SERVER_* timeouts
func LoadConfig(name string, defaultPort int, tags ...string) Config {
	return Config{
		Name:         name,
		Host:         config.GetEnvOrDefault("SERVICE_HOST", "localhost"),
		Port:         config.GetEnvInt("PORT", defaultPort),
		Tags:         tags,
		Version:      config.GetEnvOrDefault("SERVICE_VERSION", "dev"),
		ReadTimeout:  config.GetEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
		WriteTimeout: config.GetEnvDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:  config.GetEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
	}
}

// ServiceID is stable per host so a restart replaces the old registration
func (c Config) ServiceID() string {
	return fmt.Sprintf("%s-%s", c.Name, c.Host)
}

// New wraps handler in an http.Server using cfg's timeouts
func New(cfg Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}

// Run registers the service with consul, serves until SIGINT/SIGTERM or ctx
// ends, then deregisters and drains in-flight requests. registrar may be nil.
func Run(ctx context.Context, cfg Config, handler http.Handler, registrar consul.ServiceRegistrar) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serviceID := cfg.ServiceID()
	if registrar != nil {
		// clear a registration left behind by a crash
		_ = registrar.Deregister(serviceID)

		err := registrar.Register(&consul.ServiceConfig{
			ID:      serviceID,
			Name:    cfg.Name,
			Address: cfg.Host,
			Port:    cfg.Port,
			Tags:    cfg.Tags,
			Meta:    map[string]string{"version": cfg.Version},
			Check: &consul.HealthCheck{
				HTTP:     fmt.Sprintf("http://%s:%d/health", cfg.Host, cfg.Port),
				Interval: "10s",
				Timeout:  "3s",
			},
		})
		if err != nil {
			return fmt.Errorf("failed to register %s with consul: %w", cfg.Name, err)
		}
		slog.Info("Registered with Consul", "service_id", serviceID)
	}

	srv := New(cfg, handler)
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Listening", "service", cfg.Name, "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			deregister(registrar, serviceID)
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop()
	deregister(registrar, serviceID)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	slog.Info("Server exiting", "service", cfg.Name)
	return nil
}

func deregister(registrar consul.ServiceRegistrar, serviceID string) {
	if registrar == nil {
		return
	}
	if err := registrar.Deregister(serviceID); err != nil {
		slog.Warn("Failed to deregister from Consul", "service_id", serviceID, "error", err)
		return
	}
	slog.Info("Deregistered from Consul", "service_id", serviceID)
}
