// Package scenarios defines the check suites that run against a live
// AnyBank deployment.
package scenarios

import (
	"context"
	"fmt"
	"strings"

	"github.com/anybank/anybank-e2e/internal/anybank"
	"github.com/anybank/anybank-e2e/internal/harness"
	"github.com/anybank/anybank-e2e/internal/session"
)

// E2EFlow walks the core banking path: authenticate, inspect identity,
// pick a tenant, list accounts, and move money. Every step depends on
// the one before it, so each check is a prerequisite for the rest.
func E2EFlow() harness.Suite {
	return harness.Suite{
		Name:        "e2e-flow",
		Description: "Keycloak auth, identity, tenant selection, accounts, transfer",
		Checks: []harness.Check{
			{Name: "keycloak_auth", Fatal: true, Run: checkKeycloakAuth},
			{Name: "user_info", Fatal: true, Run: checkUserInfo},
			{Name: "select_tenant", Fatal: true, Run: checkSelectTenant},
			{Name: "fetch_accounts", Fatal: true, Run: checkFetchAccounts},
			{Name: "transfer", Run: checkTransfer},
		},
	}
}

func checkKeycloakAuth(ctx context.Context, d *harness.Deps) harness.Result {
	realm, err := d.Bank.RealmStatus(ctx)
	if err != nil {
		return harness.Errf(err, "cannot connect to Keycloak").With("url", d.Config.RealmURL())
	}
	if realm.Status != 200 {
		return harness.Failf("Keycloak realm not accessible: %d", realm.Status).
			With("url", d.Config.RealmURL())
	}

	tok, resp, err := d.Bank.PasswordGrant(ctx)
	if err != nil {
		r := harness.Errf(err, "failed to get token").
			With("hint", "direct access grants might be disabled for this client")
		if resp != nil {
			r = r.With("status", resp.Status)
		}
		return r
	}

	d.Session.AccessToken = tok.AccessToken

	claims, err := anybank.DecodeClaims(tok.AccessToken)
	if err != nil {
		return harness.Errf(err, "token payload did not decode")
	}

	email, _ := claims["email"].(string)
	if email == "" {
		email = "unknown"
	}
	return harness.Passf("got access token for %s", email).
		With("token_type", tok.TokenType).
		With("expires_in", tok.ExpiresIn).
		With("scope", tok.Scope).
		With("sub", claims["sub"])
}

func checkUserInfo(ctx context.Context, d *harness.Deps) harness.Result {
	resp, err := d.Bank.Me(ctx, d.Session.AccessToken)
	if err != nil {
		return harness.Errf(err, "fetching user info")
	}
	if resp.Status != 200 {
		return harness.Failf("failed to get user info: %d", resp.Status).
			With("body", string(resp.Body))
	}

	info, err := resp.Map()
	if err != nil {
		return harness.Errf(err, "parsing user info")
	}
	d.Session.UserInfo = info
	d.Session.Tenants = nil
	if raw, ok := info["tenants"].([]any); ok {
		for _, t := range raw {
			if m, ok := t.(map[string]any); ok {
				d.Session.Tenants = append(d.Session.Tenants, m)
			}
		}
	}

	return harness.Passf("got user info with %d tenant(s)", len(d.Session.Tenants)).
		With("user_id", info["id"]).
		With("email", info["email"])
}

func checkSelectTenant(ctx context.Context, d *harness.Deps) harness.Result {
	if len(d.Session.Tenants) == 0 {
		return harness.Fail("no tenants available")
	}

	var business map[string]any
	for _, t := range d.Session.Tenants {
		typ, _ := t["type"].(string)
		name, _ := t["name"].(string)
		if typ == "COMMERCIAL" || strings.Contains(strings.ToLower(name), "business") {
			business = t
			break
		}
	}
	if business == nil {
		business = d.Session.Tenants[0]
	}
	d.Session.SelectedTenant = business

	return harness.Passf("selected tenant: %v", business["name"]).
		With("tenant_id", business["id"]).
		With("tenant_type", business["type"]).
		With("role", business["role"])
}

func checkFetchAccounts(ctx context.Context, d *harness.Deps) harness.Result {
	tenantID := fmt.Sprintf("%v", d.Session.SelectedTenant["id"])
	hdr := session.WithTenant(session.Bearer(d.Session.AccessToken), tenantID)

	resp, err := d.Bank.Accounts(ctx, hdr)
	if err != nil {
		return harness.Errf(err, "fetching accounts")
	}
	if resp.Status != 200 {
		return harness.Failf("failed to fetch accounts: %d", resp.Status).
			With("tenant_id", tenantID).
			With("body", string(resp.Body))
	}

	accounts, err := anybank.ParseAccounts(resp)
	if err != nil {
		return harness.Errf(err, "parsing accounts")
	}
	d.Session.Accounts = accounts

	return harness.Passf("fetched %d account(s)", len(accounts)).
		With("tenant_id", tenantID)
}

func checkTransfer(ctx context.Context, d *harness.Deps) harness.Result {
	if len(d.Session.Accounts) < 2 {
		return harness.Failf("need at least 2 accounts for transfer, have %d", len(d.Session.Accounts))
	}

	source := d.Session.Accounts[0]
	target := d.Session.Accounts[1]
	tenantID := fmt.Sprintf("%v", d.Session.SelectedTenant["id"])
	hdr := session.WithTenant(session.Bearer(d.Session.AccessToken), tenantID)

	resp, err := d.Bank.Transfer(ctx,
		fmt.Sprintf("%v", source["id"]), fmt.Sprintf("%v", target["id"]),
		100.00, "harness transfer", hdr)
	if err != nil {
		return harness.Errf(err, "submitting transfer")
	}
	if resp.Status != 200 && resp.Status != 201 {
		return harness.Failf("transfer failed: %d", resp.Status).
			With("body", string(resp.Body))
	}

	return harness.Pass("transfer completed").
		With("source", source["name"]).
		With("target", target["name"]).
		With("amount", 100.00)
}
