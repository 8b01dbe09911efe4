// Package health reports readiness of the store and the scope policy for /healthz and the
// gRPC health service.
package health

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// DefaultTimeout bounds a single Check.
const DefaultTimeout = 2 * time.Second

// Pinger checks store connectivity. *pgxpool.Pool and *bolt.Store implement it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PolicyChecker checks that the scope policy compiles and evaluates.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Checker runs the configured checks. Nil dependencies are skipped.
type Checker struct {
	pinger  Pinger
	policy  PolicyChecker
	timeout time.Duration
}

// NewChecker returns a Checker for pinger and policy; either may be nil.
func NewChecker(pinger Pinger, policy PolicyChecker) *Checker {
	return &Checker{pinger: pinger, policy: policy, timeout: DefaultTimeout}
}

// Check returns the first failing dependency.
func (c *Checker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if c.pinger != nil {
		if err := c.pinger.Ping(ctx); err != nil {
			return fmt.Errorf("store: %w", err)
		}
	}
	if c.policy != nil {
		if err := c.policy.HealthCheck(ctx); err != nil {
			return fmt.Errorf("scope policy: %w", err)
		}
	}
	return nil
}

// Sync runs Check and publishes the result for the overall server ("") on hs.
func (c *Checker) Sync(ctx context.Context, hs *health.Server) error {
	err := c.Check(ctx)
	status := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	hs.SetServingStatus("", status)
	return err
}

// Watch calls Sync every interval until ctx is done.
func (c *Checker) Watch(ctx context.Context, hs *health.Server, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		_ = c.Sync(ctx, hs)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
