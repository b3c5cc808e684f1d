// Package anybank is the HTTP client surface for the system under test:
// Keycloak, the resource API, the BFF auth endpoints, and the debug
// control plane exposed by the frontend.
package anybank

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/anybank/anybank-e2e/internal/config"
	"github.com/anybank/anybank-e2e/internal/session"
)

// Client issues requests against the AnyBank services through a shared
// session, so cookies set by one call are visible to the next.
type Client struct {
	cfg  *config.Config
	sess *session.State
	log  *log.Logger
}

// New creates a client bound to the given session state.
func New(cfg *config.Config, sess *session.State, logger *log.Logger) *Client {
	return &Client{cfg: cfg, sess: sess, log: logger}
}

// Session exposes the underlying session state.
func (c *Client) Session() *session.State {
	return c.sess
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.cfg.HTTPTimeout)
}

func (c *Client) withTokenTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.cfg.TokenTimeout)
}
