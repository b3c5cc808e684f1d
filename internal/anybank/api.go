package anybank

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anybank/anybank-e2e/internal/session"
)

// Me fetches the user profile from the backend directly, bypassing the
// BFF session, using a bearer token from the password grant.
func (c *Client) Me(ctx context.Context, token string) (*session.Response, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.sess.Get(ctx, c.cfg.BackendURL+"/auth/me", session.Bearer(token))
}

// TokenExchangeDirect swaps tenant context on the backend auth endpoint
// using a bearer token. The BFF variant is ExchangeTenant.
func (c *Client) TokenExchangeDirect(ctx context.Context, token, tenantID string) (*session.Response, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.sess.PostJSON(ctx, c.cfg.BackendURL+"/auth/token/exchange",
		map[string]string{"targetTenantId": tenantID}, session.Bearer(token))
}

// Accounts lists accounts for the current tenant context. Pass nil hdr
// to rely on the BFF session cookie, or session.Bearer plus
// session.WithTenant for direct backend access.
func (c *Client) Accounts(ctx context.Context, hdr map[string][]string) (*session.Response, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.sess.Get(ctx, c.cfg.BackendURL+"/api/accounts", hdr)
}

// ParseAccounts extracts the account list from an accounts response.
// The endpoint has returned a bare array, an object keyed "accounts",
// and a paged object keyed "content" across versions; all three parse.
func ParseAccounts(resp *session.Response) ([]map[string]any, error) {
	var arr []map[string]any
	if err := json.Unmarshal(resp.Body, &arr); err == nil {
		return arr, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body, &obj); err != nil {
		return nil, fmt.Errorf("accounts response is neither array nor object: %w", err)
	}
	for _, key := range []string{"accounts", "content"} {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &arr); err != nil {
			return nil, fmt.Errorf("parsing %q field: %w", key, err)
		}
		return arr, nil
	}
	return nil, nil
}

// AccountDetail fetches one account.
func (c *Client) AccountDetail(ctx context.Context, accountID string, hdr map[string][]string) (*session.Response, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.sess.Get(ctx, c.cfg.BackendURL+"/api/accounts/"+accountID, hdr)
}

// AccountTransactions fetches an account's transactions.
func (c *Client) AccountTransactions(ctx context.Context, accountID string, hdr map[string][]string) (*session.Response, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.sess.Get(ctx, c.cfg.BackendURL+"/api/accounts/"+accountID+"/transactions", hdr)
}

// Transfer moves money between two accounts of the current tenant.
// Success returns 200 or 201 with an empty body.
func (c *Client) Transfer(ctx context.Context, fromID, toID string, amount float64, memo string, hdr map[string][]string) (*session.Response, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	payload := map[string]any{
		"toAccountId": toID,
		"amount":      amount,
		"memo":        memo,
	}
	return c.sess.PostJSON(ctx, c.cfg.BackendURL+"/api/accounts/"+fromID+"/transfer", payload, hdr)
}

// AdminUsers lists users visible to the current tenant context. Consumer
// tenants show at most the owner; commercial tenants show the team.
func (c *Client) AdminUsers(ctx context.Context, hdr map[string][]string) (*session.Response, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.sess.Get(ctx, c.cfg.BackendURL+"/api/admin/users", hdr)
}

// BackendHealth checks the backend actuator health endpoint.
func (c *Client) BackendHealth(ctx context.Context) (*session.Response, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.sess.Get(ctx, c.cfg.BackendURL+"/actuator/health", nil)
}

// FrontendHealth checks the frontend health endpoint.
func (c *Client) FrontendHealth(ctx context.Context) (*session.Response, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.sess.Get(ctx, c.cfg.FrontendURL+"/health", nil)
}
