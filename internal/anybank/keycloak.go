package anybank

import (
	"context"
	"fmt"
	"net/url"

	"github.com/anybank/anybank-e2e/internal/session"
)

// TokenResponse is the Keycloak token endpoint payload.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

// RealmStatus checks whether the Keycloak realm is reachable.
func (c *Client) RealmStatus(ctx context.Context) (*session.Response, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.sess.Get(ctx, c.cfg.RealmURL(), nil)
}

// PasswordGrant authenticates with the resource owner password flow and
// returns the token payload. A non-200 from Keycloak is returned as an
// error carrying the status; the usual cause is direct access grants
// being disabled for the client.
func (c *Client) PasswordGrant(ctx context.Context) (*TokenResponse, *session.Response, error) {
	ctx, cancel := c.withTokenTimeout(ctx)
	defer cancel()

	form := url.Values{
		"grant_type": {"password"},
		"client_id":  {c.cfg.KeycloakClientID},
		"username":   {c.cfg.Email},
		"password":   {c.cfg.Password},
		"scope":      {"openid profile email"},
	}

	resp, err := c.sess.PostForm(ctx, c.cfg.TokenURL(), form)
	if err != nil {
		return nil, nil, err
	}
	if resp.Status != 200 {
		return nil, resp, fmt.Errorf("token endpoint returned %d", resp.Status)
	}

	var tok TokenResponse
	if err := resp.JSON(&tok); err != nil {
		return nil, resp, err
	}
	if tok.AccessToken == "" {
		return nil, resp, fmt.Errorf("no access_token in token response")
	}
	return &tok, resp, nil
}
