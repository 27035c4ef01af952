package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/questgeo/internal/core/usecases"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Nearby       *usecases.NearbyService
	Verification *usecases.VerificationService
	NATS         *nats.Conn
	DB           Pinger
	Cache        Pinger
	RateLimit    int // requests per minute per IP; 0 means 120
}
