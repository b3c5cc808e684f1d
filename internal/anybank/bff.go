package anybank

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/anybank/anybank-e2e/internal/session"
)

var formActionRe = regexp.MustCompile(`action="([^"]+)"`)

// ParseFormAction pulls the login form's submit URL out of the Keycloak
// login page. The page is rendered HTML, so the URL arrives with its
// query separators entity-escaped.
func ParseFormAction(html []byte) (string, error) {
	m := formActionRe.FindSubmatch(html)
	if m == nil {
		return "", fmt.Errorf("no form action found in login page")
	}
	return strings.ReplaceAll(string(m[1]), "&amp;", "&"), nil
}

// StartLogin begins the BFF login flow. The BFF redirects the browser to
// the Keycloak login page; the returned response is that page after
// redirects.
func (c *Client) StartLogin(ctx context.Context) (*session.Response, error) {
	ctx, cancel := c.withTokenTimeout(ctx)
	defer cancel()
	return c.sess.Get(ctx, c.cfg.BackendURL+"/bff/auth/login", nil)
}

// SubmitCredentials posts the configured credentials to the Keycloak
// login form and follows the redirects back to the application. A final
// URL containing "error" means Keycloak rejected the login.
func (c *Client) SubmitCredentials(ctx context.Context, actionURL string) (*session.Response, error) {
	ctx, cancel := c.withTokenTimeout(ctx)
	defer cancel()

	form := url.Values{
		"username": {c.cfg.Email},
		"password": {c.cfg.Password},
	}
	return c.sess.PostForm(ctx, actionURL, form)
}

// SessionIdentity fetches the BFF session identity. The response body
// carries authenticated, email, and the tenant list.
func (c *Client) SessionIdentity(ctx context.Context) (*session.Response, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.sess.Get(ctx, c.cfg.BackendURL+"/bff/auth/me", nil)
}

// ExchangeTenant swaps the BFF session to the given tenant.
func (c *Client) ExchangeTenant(ctx context.Context, tenantID string) (*session.Response, error) {
	ctx, cancel := c.withTokenTimeout(ctx)
	defer cancel()
	return c.sess.PostJSON(ctx, c.cfg.BackendURL+"/bff/auth/token/exchange",
		map[string]string{"target_tenant_id": tenantID}, nil)
}

// Logout ends the BFF session, following any redirect chain.
func (c *Client) Logout(ctx context.Context) (*session.Response, error) {
	ctx, cancel := c.withTokenTimeout(ctx)
	defer cancel()
	return c.sess.Get(ctx, c.cfg.BackendURL+"/bff/auth/logout", nil)
}
