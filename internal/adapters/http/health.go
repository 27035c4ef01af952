package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

const readyTimeout = 3 * time.Second

var errNATSDisconnected = errors.New("disconnected")

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).Round(time.Second).String(),
			"version": Version,
		})
	}
}

// dependencyProbe is one readiness check. A nil probe means the dependency
// is not configured, which only fails readiness when it is required.
type dependencyProbe struct {
	name     string
	required bool
	probe    func(ctx context.Context) error
}

func readinessProbes(deps *Dependencies) []dependencyProbe {
	probes := []dependencyProbe{
		{name: "database", required: true},
		{name: "nats"},
		{name: "cache"},
	}
	if deps.DB != nil {
		probes[0].probe = deps.DB.Ping
	}
	if nc := deps.NATS; nc != nil {
		probes[1].probe = func(context.Context) error {
			if !nc.IsConnected() {
				return errNATSDisconnected
			}
			return nil
		}
	}
	if deps.Cache != nil {
		probes[2].probe = deps.Cache.Ping
	}
	return probes
}

// ReadyHandler reports whether the service can take traffic. Targets and
// candidate locations live in the database, so it is the only hard
// requirement; without NATS verdicts go unpublished and without the cache
// every lookup hits the database.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	probes := readinessProbes(deps)

	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
		defer cancel()

		checks := make(map[string]string, len(probes))
		ready := true
		for _, p := range probes {
			switch {
			case p.probe == nil:
				checks[p.name] = "not configured"
				ready = ready && !p.required
			default:
				if err := p.probe(ctx); err != nil {
					checks[p.name] = "error: " + err.Error()
					ready = false
				} else {
					checks[p.name] = "ok"
				}
			}
		}

		if !ready {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not ready", "checks": checks})
		}
		return c.JSON(fiber.Map{"status": "ready", "checks": checks})
	}
}
