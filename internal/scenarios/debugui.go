package scenarios

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/anybank/anybank-e2e/internal/anybank"
	"github.com/anybank/anybank-e2e/internal/browser"
	"github.com/anybank/anybank-e2e/internal/harness"
	"github.com/anybank/anybank-e2e/internal/session"
)

// DebugUI is the full integration path: open the debug UI in a real
// browser, log in over the BFF, click around the app, swap tenants, and
// then check that every request surfaced in the debug event log's DOM.
//
// Browser-dependent checks fail rather than abort when no browser could
// be started, matching the rest of the suite still being worth running.
func DebugUI() harness.Suite {
	var initialCount int

	return harness.Suite{
		Name:        "debug-ui",
		Description: "BFF login, app navigation, tenant swaps, DOM verification",
		Checks: []harness.Check{
			{Name: "service_health", Fatal: true, Run: checkServiceHealth},
			{Name: "init_browser", Run: checkInitBrowser},
			{Name: "open_debug_ui", Run: checkOpenDebugUI},
			{Name: "initial_event_count", Run: func(ctx context.Context, d *harness.Deps) harness.Result {
				res, count := checkInitialEventCount(ctx, d)
				initialCount = count
				return res
			}},
			{Name: "login", Fatal: true, Run: checkBFFLogin},
			{Name: "navigate_dashboard", Run: checkNavigateDashboard},
			{Name: "navigate_accounts", Run: checkNavigateAccounts},
			{Name: "view_account_details", Run: checkViewAccountDetails},
			{Name: "swap_business_tenant", Run: checkSwapBusiness},
			{Name: "business_dashboard", Run: checkBusinessDashboard},
			{Name: "business_accounts", Run: checkBusinessAccounts},
			{Name: "swap_back_consumer", Run: checkSwapBackConsumer},
			{Name: "burst_requests", Run: checkBurstRequests},
			{Name: "verify_events_dom", Run: func(ctx context.Context, d *harness.Deps) harness.Result {
				return checkEventsInDOM(ctx, d, initialCount)
			}},
			{Name: "verify_api_events_dom", Run: checkAPIEventsInDOM},
			{Name: "logout", Run: checkBFFLogout},
		},
		Teardown: func(d *harness.Deps) {
			if d.Browser != nil {
				d.Browser.Close()
				d.Browser = nil
			}
		},
	}
}

func checkServiceHealth(ctx context.Context, d *harness.Deps) harness.Result {
	type probe struct {
		name string
		run  func() (*session.Response, error)
	}
	probes := []probe{
		{"frontend", func() (*session.Response, error) { return d.Bank.FrontendHealth(ctx) }},
		{"backend", func() (*session.Response, error) { return d.Bank.BackendHealth(ctx) }},
		{"keycloak", func() (*session.Response, error) { return d.Bank.RealmStatus(ctx) }},
		{"debug API", func() (*session.Response, error) { return d.Bank.DebugGet(ctx, "/health") }},
	}

	var failed []string
	for _, p := range probes {
		resp, err := p.run()
		if err != nil {
			failed = append(failed, p.name+" (connection failed)")
			continue
		}
		if resp.Status != 200 && resp.Status != 204 {
			failed = append(failed, fmt.Sprintf("%s (%d)", p.name, resp.Status))
		}
	}
	if len(failed) > 0 {
		return harness.Failf("services unavailable: %s", strings.Join(failed, ", "))
	}
	return harness.Pass("all services healthy")
}

func checkInitBrowser(ctx context.Context, d *harness.Deps) harness.Result {
	b, err := browser.New(ctx, d.Config.Headless)
	if err != nil {
		return harness.Errf(err, "no browser available").
			With("hint", "install Chrome or Chromium")
	}
	d.Browser = b
	return harness.Pass("browser initialized")
}

func checkOpenDebugUI(ctx context.Context, d *harness.Deps) harness.Result {
	if d.Browser == nil {
		return harness.Fail("browser not initialized")
	}

	url := d.Config.DebugUIURL() + "/"
	if err := d.Browser.Navigate(url, 10*time.Second); err != nil {
		return harness.Errf(err, "loading debug UI").With("url", url)
	}
	if err := d.Browser.WaitVisible("#events-container", 10*time.Second); err != nil {
		return harness.Errf(err, "waiting for events container")
	}

	connection := "Connected"
	if err := d.Browser.WaitTextContains("#connection-status", "Connected", 15*time.Second); err != nil {
		if text, terr := d.Browser.Text("#connection-status", 3*time.Second); terr == nil {
			connection = text
		} else {
			connection = "Unknown"
		}
	}

	title, err := d.Browser.Title(3 * time.Second)
	if err != nil {
		return harness.Errf(err, "reading page title")
	}
	if !strings.Contains(title, "Debug") && !strings.Contains(title, "AnyBank") {
		return harness.Failf("unexpected page title: %s", title)
	}

	return harness.Passf("debug UI loaded, stream status: %s", connection).
		With("title", title)
}

func checkInitialEventCount(ctx context.Context, d *harness.Deps) (harness.Result, int) {
	if d.Browser == nil {
		return harness.Fail("browser not initialized"), 0
	}

	text, err := d.Browser.Text("#event-count", 5*time.Second)
	if err != nil {
		return harness.Errf(err, "reading event count badge"), 0
	}
	count, _ := strconv.Atoi(strings.TrimSpace(text))

	rows, err := d.Browser.Count("[data-event-id]", 5*time.Second)
	if err != nil {
		return harness.Errf(err, "counting event rows"), 0
	}

	return harness.Passf("initial event count: %d (badge), %d rows", count, rows).
		With("badge_count", count).
		With("dom_rows", rows), count
}

func checkBFFLogin(ctx context.Context, d *harness.Deps) harness.Result {
	page, err := d.Bank.StartLogin(ctx)
	if err != nil {
		return harness.Errf(err, "starting login flow")
	}
	if page.Status != 200 {
		return harness.Failf("failed to reach login page: %d", page.Status).
			With("url", page.FinalURL)
	}

	action, err := anybank.ParseFormAction(page.Body)
	if err != nil {
		return harness.Errf(err, "parsing login form")
	}

	resp, err := d.Bank.SubmitCredentials(ctx, action)
	if err != nil {
		return harness.Errf(err, "submitting credentials")
	}
	if strings.Contains(resp.FinalURL, "error") {
		return harness.Fail("login failed with error").With("final_url", resp.FinalURL)
	}

	me, err := d.Bank.SessionIdentity(ctx)
	if err != nil {
		return harness.Errf(err, "verifying session")
	}
	d.Session.Track("GET", "/bff/auth/me", me.Status)
	if me.Status != 200 {
		return harness.Failf("session not established after login: %d", me.Status)
	}

	identity, err := me.Map()
	if err != nil {
		return harness.Errf(err, "parsing session identity")
	}
	if authed, _ := identity["authenticated"].(bool); !authed {
		return harness.Fail("user not authenticated after login")
	}

	return harness.Passf("logged in as %v", identity["email"])
}

func checkNavigateDashboard(ctx context.Context, d *harness.Deps) harness.Result {
	exchange, err := d.Bank.ExchangeTenant(ctx, d.Config.ConsumerTenantID)
	if err != nil {
		return harness.Errf(err, "selecting consumer tenant")
	}
	d.Session.Track("POST", "/bff/auth/token/exchange", exchange.Status)
	if exchange.Status != 200 {
		return harness.Failf("failed to select tenant: %d", exchange.Status)
	}

	accounts, err := d.Bank.Accounts(ctx, nil)
	if err != nil {
		return harness.Errf(err, "fetching dashboard accounts")
	}
	d.Session.Track("GET", "/api/accounts", accounts.Status)
	if accounts.Status != 200 {
		return harness.Failf("failed to fetch accounts: %d", accounts.Status)
	}

	list, err := anybank.ParseAccounts(accounts)
	if err != nil {
		return harness.Errf(err, "parsing accounts")
	}
	d.Session.Accounts = list
	return harness.Passf("dashboard loaded with %d accounts", len(list))
}

func checkNavigateAccounts(ctx context.Context, d *harness.Deps) harness.Result {
	resp, err := d.Bank.Accounts(ctx, nil)
	if err != nil {
		return harness.Errf(err, "fetching accounts list")
	}
	d.Session.Track("GET", "/api/accounts", resp.Status)
	if resp.Status != 200 {
		return harness.Failf("failed to fetch accounts: %d", resp.Status)
	}
	return harness.Pass("accounts list loaded")
}

func checkViewAccountDetails(ctx context.Context, d *harness.Deps) harness.Result {
	resp, err := d.Bank.Accounts(ctx, nil)
	if err != nil || resp.Status != 200 {
		return harness.Fail("could not fetch accounts")
	}
	accounts, err := anybank.ParseAccounts(resp)
	if err != nil {
		return harness.Errf(err, "parsing accounts")
	}
	if len(accounts) == 0 {
		return harness.Pass("no accounts to view")
	}

	accountID := fmt.Sprintf("%v", accounts[0]["id"])

	detail, err := d.Bank.AccountDetail(ctx, accountID, nil)
	if err != nil {
		return harness.Errf(err, "fetching account detail")
	}
	d.Session.Track("GET", "/api/accounts/"+accountID, detail.Status)

	// Transactions may legitimately not exist for a fresh account.
	tx, err := d.Bank.AccountTransactions(ctx, accountID, nil)
	if err != nil {
		return harness.Errf(err, "fetching transactions")
	}
	d.Session.Track("GET", "/api/accounts/"+accountID+"/transactions", tx.Status)

	return harness.Passf("viewed account %s", accountID).With("account_id", accountID)
}

func checkSwapBusiness(ctx context.Context, d *harness.Deps) harness.Result {
	resp, err := d.Bank.ExchangeTenant(ctx, d.Config.BusinessTenantID)
	if err != nil {
		return harness.Errf(err, "swapping tenant")
	}
	d.Session.Track("POST", "/bff/auth/token/exchange", resp.Status)
	if resp.Status != 200 {
		return harness.Failf("failed to swap tenant: %d", resp.Status).
			With("body", string(resp.Body))
	}

	body, err := resp.Map()
	if err != nil {
		return harness.Errf(err, "parsing exchange response")
	}
	if body["success"] != true {
		return harness.Failf("exchange did not report success: %v", body["success"]).
			With("body", string(resp.Body))
	}

	me, err := d.Bank.SessionIdentity(ctx)
	if err != nil {
		return harness.Errf(err, "verifying session after swap")
	}
	d.Session.Track("GET", "/bff/auth/me", me.Status)
	if me.Status != 200 {
		return harness.Failf("session lost after tenant swap: %d", me.Status)
	}

	return harness.Passf("swapped to business tenant: %v", body["tenant_id"])
}

func checkBusinessDashboard(ctx context.Context, d *harness.Deps) harness.Result {
	accounts, err := d.Bank.Accounts(ctx, nil)
	if err != nil {
		return harness.Errf(err, "fetching business accounts")
	}
	d.Session.Track("GET", "/api/accounts", accounts.Status)
	if accounts.Status != 200 {
		return harness.Failf("failed to fetch business accounts: %d", accounts.Status)
	}

	admin, err := d.Bank.AdminUsers(ctx, nil)
	if err != nil {
		return harness.Errf(err, "fetching admin users")
	}
	d.Session.Track("GET", "/api/admin/users", admin.Status)

	return harness.Pass("business dashboard loaded")
}

func checkBusinessAccounts(ctx context.Context, d *harness.Deps) harness.Result {
	resp, err := d.Bank.Accounts(ctx, nil)
	if err != nil {
		return harness.Errf(err, "fetching business accounts")
	}
	d.Session.Track("GET", "/api/accounts", resp.Status)
	return harness.Pass("business accounts loaded")
}

func checkSwapBackConsumer(ctx context.Context, d *harness.Deps) harness.Result {
	resp, err := d.Bank.ExchangeTenant(ctx, d.Config.ConsumerTenantID)
	if err != nil {
		return harness.Errf(err, "swapping back")
	}
	d.Session.Track("POST", "/bff/auth/token/exchange", resp.Status)
	if resp.Status != 200 {
		return harness.Failf("failed to swap back: %d", resp.Status)
	}

	me, err := d.Bank.SessionIdentity(ctx)
	if err != nil {
		return harness.Errf(err, "verifying session after swap back")
	}
	d.Session.Track("GET", "/bff/auth/me", me.Status)
	if me.Status != 200 {
		return harness.Failf("session lost after swap back: %d", me.Status)
	}

	return harness.Pass("swapped back to consumer tenant")
}

func checkBurstRequests(ctx context.Context, d *harness.Deps) harness.Result {
	n := d.Config.BurstCount
	for i := 0; i < n; i++ {
		resp, err := d.Bank.Accounts(ctx, nil)
		if err != nil {
			return harness.Errf(err, fmt.Sprintf("burst request %d/%d", i+1, n))
		}
		d.Session.Track("GET", "/api/accounts", resp.Status)
		if resp.Status != 200 {
			return harness.Failf("burst request %d/%d returned %d", i+1, n, resp.Status)
		}
	}
	return harness.Passf("all %d burst requests returned 200", n)
}

func checkEventsInDOM(ctx context.Context, d *harness.Deps, initialCount int) harness.Result {
	if d.Browser == nil {
		return harness.Fail("browser not initialized")
	}

	// Give the stream time to push and the page time to render.
	time.Sleep(2 * time.Second)

	text, err := d.Browser.Text("#event-count", 5*time.Second)
	if err != nil {
		return harness.Errf(err, "reading event count badge")
	}
	current, _ := strconv.Atoi(strings.TrimSpace(text))

	rows, err := d.Browser.Count("[data-event-id]", 5*time.Second)
	if err != nil {
		return harness.Errf(err, "counting event rows")
	}

	calls := len(d.Session.Calls())
	newEvents := current - initialCount

	if rows == 0 {
		res := harness.Fail("no event rows found in DOM").
			With("badge_count", current).
			With("initial_count", initialCount).
			With("api_calls_made", calls)
		if errs := d.Browser.ConsoleErrors(); len(errs) > 0 {
			res = res.With("console_errors", errs)
		}
		screenshotOnFailure(d, "events-dom")
		return res
	}
	// Not every tracked call maps 1:1 onto a rendered event; half is the
	// floor below which the pipeline is clearly dropping things.
	if newEvents < calls/2 {
		res := harness.Failf("too few events in DOM: %d new, expected ~%d", newEvents, calls).
			With("badge_count", current).
			With("dom_rows", rows).
			With("initial_count", initialCount)
		screenshotOnFailure(d, "events-dom")
		return res
	}

	return harness.Passf("events appear in DOM: %d rows, %d new (made %d API calls)", rows, newEvents, calls).
		With("badge_count", current)
}

func checkAPIEventsInDOM(ctx context.Context, d *harness.Deps) harness.Result {
	if d.Browser == nil {
		return harness.Fail("browser not initialized")
	}

	apiBadges, err := d.Browser.Count(".event-badge-api", 5*time.Second)
	if err != nil {
		return harness.Errf(err, "counting API badges")
	}
	allBadges, err := d.Browser.Count(".event-badge", 5*time.Second)
	if err != nil {
		return harness.Errf(err, "counting badges")
	}

	containerText, err := d.Browser.ContainerText("#events-container", 5*time.Second)
	if err != nil {
		return harness.Errf(err, "reading event log text")
	}
	var pathsFound []string
	seen := map[string]bool{}
	for _, call := range d.Session.Calls() {
		if !seen[call.Path] && strings.Contains(containerText, call.Path) {
			seen[call.Path] = true
			pathsFound = append(pathsFound, call.Path)
		}
	}

	if apiBadges == 0 && allBadges == 0 {
		return harness.Fail("no event badges found in DOM")
	}
	if apiBadges == 0 {
		return harness.Failf("no API-type events found (but %d other badges)", allBadges).
			With("paths_found", pathsFound)
	}

	return harness.Passf("found %d API events in DOM, %d paths matched", apiBadges, len(pathsFound)).
		With("all_badges", allBadges).
		With("paths_found", pathsFound)
}

func checkBFFLogout(ctx context.Context, d *harness.Deps) harness.Result {
	resp, err := d.Bank.Logout(ctx)
	if err != nil {
		return harness.Errf(err, "logging out")
	}
	d.Session.Track("GET", "/bff/auth/logout", resp.Status)

	me, err := d.Bank.SessionIdentity(ctx)
	if err != nil {
		return harness.Errf(err, "checking session after logout")
	}
	if me.Status == 401 {
		return harness.Pass("logged out successfully")
	}
	if me.Status == 200 {
		if identity, err := me.Map(); err == nil {
			if authed, _ := identity["authenticated"].(bool); !authed {
				return harness.Pass("logged out (session invalidated)")
			}
		}
	}
	return harness.Passf("logout completed (final status: %d)", me.Status)
}

func screenshotOnFailure(d *harness.Deps, name string) {
	if d.Browser == nil || d.Config.ScreenshotDir == "" {
		return
	}
	path := filepath.Join(d.Config.ScreenshotDir, name+".png")
	if err := d.Browser.Screenshot(path, 5*time.Second); err != nil {
		d.Log.Warn("screenshot failed", "path", path, "err", err)
	} else {
		d.Log.Info("saved failure screenshot", "path", path)
	}
}
