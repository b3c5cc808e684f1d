package anybank

import (
	"context"

	"github.com/anybank/anybank-e2e/internal/session"
)

// DebugGet issues a GET against the debug control plane. The path is
// relative to /debug/api, e.g. "/data/sessions".
func (c *Client) DebugGet(ctx context.Context, path string) (*session.Response, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.sess.Get(ctx, c.cfg.DebugAPIURL()+path, nil)
}

// DebugPost issues a JSON POST against the debug control plane.
func (c *Client) DebugPost(ctx context.Context, path string, payload any) (*session.Response, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.sess.PostJSON(ctx, c.cfg.DebugAPIURL()+path, payload, nil)
}

// DebugUIGet fetches a static asset of the debug UI. The path is
// relative to /debug, e.g. "/" or "/css/debug-styles.css".
func (c *Client) DebugUIGet(ctx context.Context, path string) (*session.Response, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.sess.Get(ctx, c.cfg.DebugUIURL()+path, nil)
}
