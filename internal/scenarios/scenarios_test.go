package scenarios

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anybank/anybank-e2e/internal/anybank"
	"github.com/anybank/anybank-e2e/internal/config"
	"github.com/anybank/anybank-e2e/internal/harness"
	"github.com/anybank/anybank-e2e/internal/session"
	"github.com/anybank/anybank-e2e/internal/testutil/fakebank"
)

func fakeDeps(t *testing.T) *harness.Deps {
	t.Helper()
	srv := fakebank.New()
	t.Cleanup(srv.Close)

	cfg := srv.Config()
	sess, err := session.New()
	require.NoError(t, err)

	logger := log.New(io.Discard)
	return &harness.Deps{
		Config:  cfg,
		Log:     logger,
		Session: sess,
		Bank:    anybank.New(cfg, sess, logger),
	}
}

func TestE2EFlowSuite(t *testing.T) {
	deps := fakeDeps(t)
	sr, err := harness.NewRunner(deps).RunSuite(context.Background(), E2EFlow())
	require.NoError(t, err)

	for _, r := range sr.Results {
		assert.Equal(t, harness.StatusPass, r.Status, "%s: %s", r.Check, r.Message)
	}
	assert.True(t, sr.Passed)

	// the flow picked the commercial tenant
	assert.Equal(t, fakebank.BusinessID, deps.Session.SelectedTenant["id"])
	assert.Len(t, deps.Session.Accounts, 2)
}

func TestE2EFlowStopsOnAuthFailure(t *testing.T) {
	deps := fakeDeps(t)
	deps.Config.Password = "wrong"

	sr, err := harness.NewRunner(deps).RunSuite(context.Background(), E2EFlow())
	require.NoError(t, err)

	assert.False(t, sr.Passed)
	require.Len(t, sr.Results, 5)
	assert.Equal(t, harness.StatusFail, sr.Results[0].Status)
	for _, r := range sr.Results[1:] {
		assert.Equal(t, harness.StatusSkip, r.Status, r.Check)
	}
}

func TestDebugAPISuite(t *testing.T) {
	deps := fakeDeps(t)
	sr, err := harness.NewRunner(deps).RunSuite(context.Background(), DebugAPI())
	require.NoError(t, err)

	for _, r := range sr.Results {
		assert.Equal(t, harness.StatusPass, r.Status, "%s: %s", r.Check, r.Message)
	}
	assert.True(t, sr.Passed)
	assert.Len(t, sr.Results, len(DebugAPI().Checks))
}

func TestAuthDecodeCheck(t *testing.T) {
	deps := fakeDeps(t)
	res := checkAuthDecode(context.Background(), deps)
	assert.Equal(t, harness.StatusPass, res.Status, res.Message)
}

func TestTimelineActionsWithMultipleSessions(t *testing.T) {
	deps := fakeDeps(t)
	ctx := context.Background()

	// Earlier checks leave older sessions for the same user behind; the
	// tenant switch must be looked up on the newest one.
	for i := 0; i < 2; i++ {
		_, _, err := deps.Bank.PasswordGrant(ctx)
		require.NoError(t, err)
	}

	res := checkTimelineActions(ctx, deps)
	assert.Equal(t, harness.StatusPass, res.Status, res.Message)
}

func TestSwapBusinessRequiresSuccessFlag(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /bff/auth/me", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"authenticated": true}`)
	})
	mux.HandleFunc("POST /bff/auth/token/exchange", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"tenant_id": "tenant-003"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.BackendURL = srv.URL
	sess, err := session.New()
	require.NoError(t, err)
	logger := log.New(io.Discard)
	deps := &harness.Deps{
		Config:  &cfg,
		Log:     logger,
		Session: sess,
		Bank:    anybank.New(&cfg, sess, logger),
	}

	res := checkSwapBusiness(context.Background(), deps)
	assert.Equal(t, harness.StatusFail, res.Status)
	assert.Contains(t, res.Message, "success")
}

func TestDebugUIHTTPChecks(t *testing.T) {
	deps := fakeDeps(t)
	ctx := context.Background()

	res := checkServiceHealth(ctx, deps)
	require.Equal(t, harness.StatusPass, res.Status, res.Message)

	res = checkBFFLogin(ctx, deps)
	require.Equal(t, harness.StatusPass, res.Status, res.Message)

	for _, step := range []struct {
		name string
		run  func(context.Context, *harness.Deps) harness.Result
	}{
		{"navigate_dashboard", checkNavigateDashboard},
		{"navigate_accounts", checkNavigateAccounts},
		{"view_account_details", checkViewAccountDetails},
		{"swap_business_tenant", checkSwapBusiness},
		{"business_dashboard", checkBusinessDashboard},
		{"business_accounts", checkBusinessAccounts},
		{"swap_back_consumer", checkSwapBackConsumer},
		{"burst_requests", checkBurstRequests},
		{"logout", checkBFFLogout},
	} {
		res := step.run(ctx, deps)
		assert.Equal(t, harness.StatusPass, res.Status, "%s: %s", step.name, res.Message)
	}

	// the navigation tracked its calls for DOM verification
	assert.NotEmpty(t, deps.Session.Calls())
}

func TestBurstCountsAllRequests(t *testing.T) {
	deps := fakeDeps(t)
	ctx := context.Background()

	require.Equal(t, harness.StatusPass, checkBFFLogin(ctx, deps).Status)
	before := len(deps.Session.Calls())

	res := checkBurstRequests(ctx, deps)
	require.Equal(t, harness.StatusPass, res.Status, res.Message)
	assert.Equal(t, before+deps.Config.BurstCount, len(deps.Session.Calls()))
}

func TestBrowserChecksFailWithoutBrowser(t *testing.T) {
	deps := fakeDeps(t)
	ctx := context.Background()

	res := checkOpenDebugUI(ctx, deps)
	assert.Equal(t, harness.StatusFail, res.Status)
	assert.Contains(t, res.Message, "browser not initialized")

	res, count := checkInitialEventCount(ctx, deps)
	assert.Equal(t, harness.StatusFail, res.Status)
	assert.Zero(t, count)

	res = checkEventsInDOM(ctx, deps, 0)
	assert.Equal(t, harness.StatusFail, res.Status)

	res = checkAPIEventsInDOM(ctx, deps)
	assert.Equal(t, harness.StatusFail, res.Status)
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"debug-api", "debug-ui", "e2e-flow"}, Names())

	s, err := ByName("e2e-flow")
	require.NoError(t, err)
	assert.Equal(t, "e2e-flow", s.Name)

	_, err = ByName("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown suite")
}

func TestSuitesHaveUniqueCheckNames(t *testing.T) {
	for _, s := range All() {
		seen := map[string]bool{}
		for _, c := range s.Checks {
			assert.False(t, seen[c.Name], "duplicate check %s in %s", c.Name, s.Name)
			seen[c.Name] = true
			assert.NotNil(t, c.Run, "%s/%s has no body", s.Name, c.Name)
		}
	}
}
