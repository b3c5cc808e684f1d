package scenarios

import (
	"context"
	"fmt"
	"strings"

	"github.com/anybank/anybank-e2e/internal/harness"
	"github.com/anybank/anybank-e2e/internal/session"
)

// Header {"alg":"RS256","typ":"JWT"}, payload {"sub":"test","name":"Test User","iat":1234567890}.
// The signature is garbage on purpose; the decoder must not need it.
const sampleJWT = "eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9.eyJzdWIiOiJ0ZXN0IiwibmFtZSI6IlRlc3QgVXNlciIsImlhdCI6MTIzNDU2Nzg5MH0.signature"

// DebugAPI probes the debug control plane: static UI assets, SSE
// endpoints, read-only data views, auth introspection, session
// timelines, and the risk/time/policy controls.
func DebugAPI() harness.Suite {
	return harness.Suite{
		Name:        "debug-api",
		Description: "Debug control plane endpoints and UI assets",
		Checks: []harness.Check{
			{Name: "frontend_health", Run: checkFrontendHealth},
			{Name: "backend_health", Run: checkBackendHealth},
			{Name: "debug_ui_index", Run: checkDebugUIIndex},
			{Name: "debug_ui_css", Run: checkDebugUICSS},
			{Name: "debug_ui_js", Run: checkDebugUIJS},
			{Name: "sse_backend_direct", Run: checkSSEBackend},
			{Name: "sse_via_proxy", Run: checkSSEProxy},
			{Name: "debug_api_health", Run: checkDebugHealth},
			{Name: "data_users", Run: dataCheck("/data/users", "users")},
			{Name: "data_tenants", Run: dataCheck("/data/tenants", "tenants")},
			{Name: "data_sessions", Run: dataCheck("/data/sessions", "sessions")},
			{Name: "data_accounts", Run: checkDataAccounts},
			{Name: "data_memberships", Run: checkDataMemberships},
			{Name: "auth_tokens", Run: checkAuthTokens},
			{Name: "keycloak_events", Run: checkKeycloakEvents},
			{Name: "auth_decode", Run: checkAuthDecode},
			{Name: "session_visibility", Run: checkSessionVisibility},
			{Name: "session_timeline", Run: checkSessionTimeline},
			{Name: "session_timeline_workflow_path", Run: checkTimelineWorkflowPath},
			{Name: "session_timeline_actions", Run: checkTimelineActions},
			{Name: "opa_decisions", Run: checkOPADecisions},
			{Name: "risk_controls_get", Run: checkRiskControlsGet},
			{Name: "risk_controls_set_clear", Run: checkRiskControlsSetClear},
			{Name: "controls_state", Run: checkControlsState},
			{Name: "time_controls", Run: checkTimeControls},
			{Name: "policy_list", Run: checkPolicyList},
			{Name: "slide_over_element", Run: checkSlideOver},
			{Name: "policy_evaluate", Run: checkPolicyEvaluate},
			{Name: "admin_users_per_tenant", Run: checkAdminUsersPerTenant},
		},
	}
}

func checkFrontendHealth(ctx context.Context, d *harness.Deps) harness.Result {
	resp, err := d.Bank.FrontendHealth(ctx)
	if err != nil {
		return harness.Errf(err, "cannot connect to frontend")
	}
	if resp.Status != 200 {
		return harness.Failf("unexpected status: %d", resp.Status)
	}
	return harness.Pass("frontend is healthy")
}

func checkBackendHealth(ctx context.Context, d *harness.Deps) harness.Result {
	resp, err := d.Bank.BackendHealth(ctx)
	if err != nil {
		return harness.Errf(err, "cannot connect to backend")
	}
	if resp.Status != 200 {
		return harness.Failf("unexpected status: %d", resp.Status)
	}
	return harness.Pass("backend is healthy")
}

func checkDebugUIIndex(ctx context.Context, d *harness.Deps) harness.Result {
	resp, err := d.Bank.DebugUIGet(ctx, "/")
	if err != nil {
		return harness.Errf(err, "cannot load debug UI")
	}
	if resp.Status != 200 {
		return harness.Failf("status %d", resp.Status)
	}
	if !strings.Contains(resp.ContentType(), "text/html") {
		return harness.Failf("wrong content type: %s", resp.ContentType())
	}

	html := string(resp.Body)
	for _, want := range []string{"Debug Control Plane", "debug-styles.css", "main.js", "connection-status"} {
		if !strings.Contains(html, want) {
			return harness.Failf("index page missing %q", want)
		}
	}
	return harness.Pass("debug UI index loaded correctly")
}

func checkDebugUICSS(ctx context.Context, d *harness.Deps) harness.Result {
	resp, err := d.Bank.DebugUIGet(ctx, "/css/debug-styles.css")
	if err != nil {
		return harness.Errf(err, "cannot load debug CSS")
	}
	if resp.Status != 200 {
		return harness.Failf("status %d", resp.Status)
	}
	if !strings.Contains(resp.ContentType(), "text/css") {
		return harness.Failf("wrong content type: %s", resp.ContentType())
	}
	if !strings.Contains(string(resp.Body), ".debug-card") {
		return harness.Fail("stylesheet missing debug-card class")
	}
	return harness.Pass("debug CSS loaded correctly")
}

func checkDebugUIJS(ctx context.Context, d *harness.Deps) harness.Result {
	resp, err := d.Bank.DebugUIGet(ctx, "/js/main.js")
	if err != nil {
		return harness.Errf(err, "cannot load debug JavaScript")
	}
	if resp.Status != 200 {
		return harness.Failf("status %d", resp.Status)
	}
	ct := resp.ContentType()
	if !strings.Contains(ct, "javascript") && !strings.Contains(ct, "text/plain") {
		return harness.Failf("wrong content type: %s", ct)
	}
	js := string(resp.Body)
	if !strings.Contains(js, "import") || !strings.Contains(js, "debugState") {
		return harness.Fail("script missing expected imports")
	}
	return harness.Pass("debug JavaScript loaded correctly")
}

func streamCheck(url, label string) func(context.Context, *harness.Deps) harness.Result {
	return func(ctx context.Context, d *harness.Deps) harness.Result {
		probe, err := d.Bank.ProbeStream(ctx, url)
		if err != nil {
			return harness.Errf(err, "cannot connect to "+label)
		}
		// A held-open stream that never returns headers within the
		// timeout is a live stream, not a failure.
		if probe.TimedOut {
			return harness.Passf("%s responds (timeout expected)", label)
		}
		if probe.Status == 404 {
			return harness.Failf("%s not found (404)", label).With("url", url)
		}
		if probe.Status != 200 {
			return harness.Failf("status %d", probe.Status)
		}
		if !strings.Contains(probe.ContentType, "text/event-stream") {
			return harness.Failf("wrong content type: %s (expected text/event-stream)", probe.ContentType).
				With("url", url)
		}
		return harness.Passf("%s responds correctly", label)
	}
}

func checkSSEBackend(ctx context.Context, d *harness.Deps) harness.Result {
	return streamCheck(d.Config.BackendSSEURL(), "backend SSE endpoint")(ctx, d)
}

func checkSSEProxy(ctx context.Context, d *harness.Deps) harness.Result {
	return streamCheck(d.Config.DebugSSEURL(), "proxied SSE endpoint")(ctx, d)
}

func checkDebugHealth(ctx context.Context, d *harness.Deps) harness.Result {
	resp, err := d.Bank.DebugGet(ctx, "/health")
	if err != nil {
		return harness.Errf(err, "cannot connect to debug API")
	}
	if resp.Status == 404 {
		return harness.Fail("debug health endpoint not found")
	}
	if resp.Status != 200 {
		return harness.Failf("status %d", resp.Status)
	}
	if !strings.Contains(resp.ContentType(), "application/json") {
		return harness.Failf("wrong content type: %s", resp.ContentType())
	}
	return harness.Pass("debug health endpoint works")
}

// dataCheck builds a check for the read-only data views, which may
// return either a list or an object.
func dataCheck(path, label string) func(context.Context, *harness.Deps) harness.Result {
	return func(ctx context.Context, d *harness.Deps) harness.Result {
		resp, err := d.Bank.DebugGet(ctx, path)
		if err != nil {
			return harness.Errf(err, "cannot connect to debug API")
		}
		if resp.Status == 404 {
			return harness.Failf("%s endpoint not found", label)
		}
		if resp.Status != 200 {
			return harness.Failf("status %d", resp.Status)
		}

		var asList []any
		if err := resp.JSON(&asList); err == nil {
			return harness.Passf("got %s data", label).With("count", len(asList))
		}
		var asObj map[string]any
		if err := resp.JSON(&asObj); err != nil {
			return harness.Fail("response is neither list nor object")
		}
		return harness.Passf("got %s data", label).With("count", "object")
	}
}

func checkDataAccounts(ctx context.Context, d *harness.Deps) harness.Result {
	resp, err := d.Bank.DebugGet(ctx, "/data/accounts")
	if err != nil {
		return harness.Errf(err, "cannot connect to debug API")
	}
	switch resp.Status {
	case 404:
		return harness.Fail("accounts endpoint not found")
	case 500:
		return harness.Fail("server error (500) on accounts view")
	}
	if resp.Status != 200 {
		return harness.Failf("status %d", resp.Status)
	}

	var accounts []map[string]any
	if err := resp.JSON(&accounts); err != nil {
		return harness.Errf(err, "accounts response is not a list")
	}
	if len(accounts) > 0 {
		want := []string{"id", "tenantId", "tenantName", "accountNumber",
			"accountType", "name", "balance", "currency", "status"}
		if missing := missingFields(accounts[0], want); len(missing) > 0 {
			return harness.Failf("missing expected fields: %v", missing)
		}
	}
	return harness.Passf("got %d accounts with expected fields", len(accounts))
}

func checkDataMemberships(ctx context.Context, d *harness.Deps) harness.Result {
	resp, err := d.Bank.DebugGet(ctx, "/data/memberships")
	if err != nil {
		return harness.Errf(err, "cannot connect to debug API")
	}
	switch resp.Status {
	case 404:
		return harness.Fail("memberships endpoint not found")
	case 500:
		return harness.Fail("server error (500) on memberships view")
	}
	if resp.Status != 200 {
		return harness.Failf("status %d", resp.Status)
	}

	var memberships []map[string]any
	if err := resp.JSON(&memberships); err != nil {
		return harness.Errf(err, "memberships response is not a list")
	}
	if len(memberships) > 0 {
		want := []string{"id", "userId", "userEmail", "tenantId", "tenantName", "role", "status"}
		if missing := missingFields(memberships[0], want); len(missing) > 0 {
			return harness.Failf("missing expected fields: %v", missing)
		}
	}
	return harness.Passf("got %d memberships with expected fields", len(memberships))
}

func checkAuthTokens(ctx context.Context, d *harness.Deps) harness.Result {
	resp, err := d.Bank.DebugGet(ctx, "/auth/tokens")
	if err != nil {
		return harness.Errf(err, "cannot connect to debug API")
	}
	if resp.Status != 200 {
		return harness.Failf("status %d", resp.Status)
	}
	body, err := resp.Map()
	if err != nil {
		return harness.Errf(err, "parsing tokens response")
	}
	if _, ok := body["tokens"]; !ok {
		return harness.Fail("missing expected fields (tokens, count)")
	}
	if _, ok := body["count"]; !ok {
		return harness.Fail("missing expected fields (tokens, count)")
	}
	return harness.Passf("got %v active tokens", body["count"])
}

func checkKeycloakEvents(ctx context.Context, d *harness.Deps) harness.Result {
	resp, err := d.Bank.DebugGet(ctx, "/auth/keycloak/events")
	if err != nil {
		return harness.Errf(err, "cannot connect to debug API")
	}
	if resp.Status != 200 {
		return harness.Failf("status %d", resp.Status)
	}
	body, err := resp.Map()
	if err != nil {
		return harness.Errf(err, "parsing events response")
	}
	if _, ok := body["events"]; !ok {
		return harness.Fail("missing expected fields (events, count)")
	}
	if _, ok := body["count"]; !ok {
		return harness.Fail("missing expected fields (events, count)")
	}
	return harness.Passf("got %v Keycloak events", body["count"])
}

func checkAuthDecode(ctx context.Context, d *harness.Deps) harness.Result {
	resp, err := d.Bank.DebugPost(ctx, "/auth/decode", map[string]string{"token": sampleJWT})
	if err != nil {
		return harness.Errf(err, "cannot connect to debug API")
	}
	switch resp.Status {
	case 404:
		return harness.Fail("decode endpoint not found")
	case 500:
		return harness.Fail("server error (500) on decode")
	case 400:
		// Rejecting the unsigned sample is fine as long as the endpoint
		// says so explicitly.
		body, err := resp.Map()
		if err == nil {
			if valid, ok := body["valid"].(bool); ok && !valid {
				return harness.Pass("decode endpoint works (rejected test token)")
			}
		}
		return harness.Fail("400 without valid:false in body")
	case 200:
		body, err := resp.Map()
		if err != nil {
			return harness.Errf(err, "parsing decode response")
		}
		return harness.Pass("decode endpoint works").With("valid", body["valid"])
	}
	return harness.Failf("unexpected status %d", resp.Status)
}

// authenticate runs a password grant plus a direct /auth/me so the
// backend registers a session, returning the user's email.
func authenticate(ctx context.Context, d *harness.Deps) (token, email string, res harness.Result, ok bool) {
	tok, _, err := d.Bank.PasswordGrant(ctx)
	if err != nil {
		return "", "", harness.Errf(err, "Keycloak auth failed"), false
	}
	me, err := d.Bank.Me(ctx, tok.AccessToken)
	if err != nil {
		return "", "", harness.Errf(err, "/auth/me failed"), false
	}
	if me.Status != 200 {
		return "", "", harness.Failf("/auth/me failed: %d", me.Status), false
	}
	info, err := me.Map()
	if err != nil {
		return "", "", harness.Errf(err, "parsing /auth/me"), false
	}
	email, _ = info["email"].(string)
	return tok.AccessToken, email, harness.Result{}, true
}

// sessionList pulls the debug sessions view and tolerates both
// user_email and userEmail key spellings.
func sessionList(ctx context.Context, d *harness.Deps) ([]map[string]any, error) {
	resp, err := d.Bank.DebugGet(ctx, "/data/sessions")
	if err != nil {
		return nil, err
	}
	if resp.Status != 200 {
		return nil, fmt.Errorf("sessions view returned %d", resp.Status)
	}
	var body struct {
		Sessions []map[string]any `json:"sessions"`
	}
	if err := resp.JSON(&body); err != nil {
		return nil, err
	}
	return body.Sessions, nil
}

func sessionEmail(s map[string]any) string {
	if v, ok := s["user_email"].(string); ok && v != "" {
		return v
	}
	v, _ := s["userEmail"].(string)
	return v
}

func checkSessionVisibility(ctx context.Context, d *harness.Deps) harness.Result {
	_, email, res, ok := authenticate(ctx, d)
	if !ok {
		return res
	}

	sessions, err := sessionList(ctx, d)
	if err != nil {
		return harness.Errf(err, "fetching debug sessions")
	}

	for _, s := range sessions {
		if sessionEmail(s) == email {
			return harness.Passf("session for %s visible in debug view", email).
				With("session_id", s["id"]).
				With("total_sessions", len(sessions))
		}
	}
	return harness.Failf("session for %s not found in debug sessions", email).
		With("session_count", len(sessions))
}

func firstSessionID(ctx context.Context, d *harness.Deps) (string, harness.Result, bool) {
	sessions, err := sessionList(ctx, d)
	if err != nil {
		return "", harness.Errf(err, "fetching debug sessions"), false
	}
	if len(sessions) == 0 {
		// Create one by authenticating, then retry.
		if _, _, res, ok := authenticate(ctx, d); !ok {
			return "", res, false
		}
		sessions, err = sessionList(ctx, d)
		if err != nil {
			return "", harness.Errf(err, "fetching debug sessions"), false
		}
	}
	if len(sessions) == 0 {
		return "", harness.Fail("no sessions available to inspect"), false
	}
	id := fmt.Sprintf("%v", sessions[0]["id"])
	return id, harness.Result{}, true
}

func checkSessionTimeline(ctx context.Context, d *harness.Deps) harness.Result {
	id, res, ok := firstSessionID(ctx, d)
	if !ok {
		return res
	}

	resp, err := d.Bank.DebugGet(ctx, "/sessions/"+id+"/timeline")
	if err != nil {
		return harness.Errf(err, "fetching timeline")
	}
	if resp.Status != 200 {
		return harness.Failf("timeline endpoint returned %d", resp.Status).With("session_id", id)
	}
	body, err := resp.Map()
	if err != nil {
		return harness.Errf(err, "parsing timeline")
	}
	if _, ok := body["session"]; !ok {
		return harness.Fail("timeline response missing 'session' field")
	}
	return harness.Passf("timeline retrieved for session %s", id).
		With("event_count", body["eventCount"])
}

func checkTimelineWorkflowPath(ctx context.Context, d *harness.Deps) harness.Result {
	id, res, ok := firstSessionID(ctx, d)
	if !ok {
		return res
	}

	resp, err := d.Bank.DebugGet(ctx, "/workflows/sessions/"+id+"/timeline")
	if err != nil {
		return harness.Errf(err, "fetching timeline")
	}
	switch resp.Status {
	case 404:
		return harness.Fail("workflows timeline path not routed").With("session_id", id)
	case 500:
		return harness.Fail("server error (500) on workflows timeline path")
	}
	if resp.Status != 200 {
		return harness.Failf("timeline endpoint returned %d", resp.Status)
	}

	var body struct {
		Session map[string]any   `json:"session"`
		Events  []map[string]any `json:"events"`
	}
	if err := resp.JSON(&body); err != nil {
		return harness.Errf(err, "parsing timeline")
	}
	if body.Session == nil {
		return harness.Fail("timeline response missing 'session' field")
	}
	if body.Events == nil {
		return harness.Fail("timeline response missing 'events' field")
	}
	if len(body.Events) > 0 {
		want := []string{"id", "timestamp", "type", "action"}
		if missing := missingFields(body.Events[0], want); len(missing) > 0 {
			return harness.Failf("event missing expected fields: %v", missing)
		}
	}
	return harness.Passf("timeline retrieved via workflows path for session %s", id).
		With("event_count", len(body.Events))
}

func checkTimelineActions(ctx context.Context, d *harness.Deps) harness.Result {
	token, email, res, ok := authenticate(ctx, d)
	if !ok {
		return res
	}

	// A tenant switch should land in the timeline as well.
	switched := false
	if resp, err := d.Bank.TokenExchangeDirect(ctx, token, d.Config.ConsumerTenantID); err == nil && resp.Status == 200 {
		switched = true
	}

	sessions, err := sessionList(ctx, d)
	if err != nil {
		return harness.Errf(err, "fetching debug sessions")
	}
	// The switch event lands on the newest session for this user, so
	// take the last match rather than the first.
	var id string
	for _, s := range sessions {
		if sessionEmail(s) == email {
			id = fmt.Sprintf("%v", s["id"])
		}
	}
	if id == "" {
		return harness.Failf("session for %s not found", email)
	}

	resp, err := d.Bank.DebugGet(ctx, "/workflows/sessions/"+id+"/timeline")
	if err != nil {
		return harness.Errf(err, "fetching timeline")
	}
	if resp.Status != 200 {
		return harness.Failf("timeline endpoint returned %d", resp.Status)
	}
	var body struct {
		Events []map[string]any `json:"events"`
	}
	if err := resp.JSON(&body); err != nil {
		return harness.Errf(err, "parsing timeline")
	}

	hasLogin, hasSwitch := false, false
	for _, e := range body.Events {
		if e["type"] == "AUTH" && e["action"] == "login_success" {
			hasLogin = true
		}
		if e["type"] == "CONTEXT_SWITCH" && e["action"] == "tenant_switch" {
			hasSwitch = true
		}
	}
	if !hasLogin {
		return harness.Fail("login event (AUTH/login_success) not found in timeline").
			With("event_count", len(body.Events))
	}
	if switched && !hasSwitch {
		return harness.Fail("context switch event not found after tenant switch").
			With("event_count", len(body.Events))
	}

	msg := "timeline shows login event"
	if switched {
		msg += " and tenant switch"
	}
	return harness.Pass(msg).With("event_count", len(body.Events))
}

func checkOPADecisions(ctx context.Context, d *harness.Deps) harness.Result {
	resp, err := d.Bank.DebugGet(ctx, "/opa/decisions")
	if err != nil {
		return harness.Errf(err, "cannot connect to debug API")
	}
	if resp.Status != 200 {
		return harness.Failf("decisions endpoint returned %d", resp.Status)
	}
	body, err := resp.Map()
	if err != nil {
		return harness.Errf(err, "parsing decisions")
	}
	if _, ok := body["decisions"]; !ok {
		return harness.Fail("response missing 'decisions' field")
	}
	return harness.Passf("got %v policy decisions", body["count"])
}

func checkRiskControlsGet(ctx context.Context, d *harness.Deps) harness.Result {
	resp, err := d.Bank.DebugGet(ctx, "/controls/risk")
	if err != nil {
		return harness.Errf(err, "cannot connect to debug API")
	}
	if resp.Status != 200 {
		return harness.Failf("risk controls endpoint returned %d", resp.Status)
	}
	body, err := resp.Map()
	if err != nil {
		return harness.Errf(err, "parsing risk controls")
	}
	if _, ok := body["active"]; !ok {
		return harness.Fail("response missing 'active' field")
	}
	return harness.Passf("risk override active: %v", body["active"]).
		With("score", body["score"])
}

func checkRiskControlsSetClear(ctx context.Context, d *harness.Deps) harness.Result {
	set, err := d.Bank.DebugPost(ctx, "/controls/risk", map[string]any{"score": 75})
	if err != nil {
		return harness.Errf(err, "setting risk override")
	}
	if set.Status != 200 {
		return harness.Failf("failed to set risk override: %d", set.Status)
	}

	get, err := d.Bank.DebugGet(ctx, "/controls/risk")
	if err != nil {
		return harness.Errf(err, "verifying risk override")
	}
	body, err := get.Map()
	if err != nil {
		return harness.Errf(err, "parsing risk controls")
	}
	active, _ := body["active"].(bool)
	score, _ := body["score"].(float64)
	if !active || score != 75 {
		return harness.Fail("risk override was not set correctly").
			With("expected_score", 75).With("actual", body)
	}

	clear, err := d.Bank.DebugPost(ctx, "/controls/risk", map[string]any{"score": nil})
	if err != nil {
		return harness.Errf(err, "clearing risk override")
	}
	if clear.Status != 200 {
		return harness.Failf("failed to clear risk override: %d", clear.Status)
	}

	final, err := d.Bank.DebugGet(ctx, "/controls/risk")
	if err != nil {
		return harness.Errf(err, "verifying cleared override")
	}
	body, err = final.Map()
	if err != nil {
		return harness.Errf(err, "parsing risk controls")
	}
	if active, _ := body["active"].(bool); active {
		return harness.Fail("risk override was not cleared")
	}
	return harness.Pass("risk override set to 75 and cleared")
}

func checkControlsState(ctx context.Context, d *harness.Deps) harness.Result {
	resp, err := d.Bank.DebugGet(ctx, "/controls")
	if err != nil {
		return harness.Errf(err, "cannot connect to debug API")
	}
	if resp.Status != 200 {
		return harness.Failf("controls endpoint returned %d", resp.Status)
	}
	body, err := resp.Map()
	if err != nil {
		return harness.Errf(err, "parsing controls state")
	}
	if missing := missingFields(body, []string{"risk_override_active", "time_override_active"}); len(missing) > 0 {
		return harness.Failf("response missing fields: %v", missing)
	}
	return harness.Pass("controls state retrieved").
		With("risk_override_active", body["risk_override_active"]).
		With("time_override_active", body["time_override_active"])
}

func checkTimeControls(ctx context.Context, d *harness.Deps) harness.Result {
	resp, err := d.Bank.DebugGet(ctx, "/controls/time")
	if err != nil {
		return harness.Errf(err, "cannot connect to debug API")
	}
	if resp.Status != 200 {
		return harness.Failf("time controls endpoint returned %d", resp.Status)
	}
	body, err := resp.Map()
	if err != nil {
		return harness.Errf(err, "parsing time controls")
	}
	if missing := missingFields(body, []string{"active", "effective"}); len(missing) > 0 {
		return harness.Failf("time response missing fields: %v", missing)
	}
	return harness.Passf("time controls retrieved: active=%v", body["active"]).
		With("effective", body["effective"])
}

func checkPolicyList(ctx context.Context, d *harness.Deps) harness.Result {
	resp, err := d.Bank.DebugGet(ctx, "/policy/policies")
	if err != nil {
		return harness.Errf(err, "cannot connect to debug API")
	}
	if resp.Status != 200 {
		return harness.Failf("policy list endpoint returned %d", resp.Status)
	}
	var body struct {
		Policies []map[string]any `json:"policies"`
	}
	if err := resp.JSON(&body); err != nil {
		return harness.Errf(err, "parsing policy list")
	}
	if body.Policies == nil {
		return harness.Fail("response missing 'policies' field")
	}
	if len(body.Policies) == 0 {
		return harness.Fail("no policies returned")
	}
	if missing := missingFields(body.Policies[0], []string{"id", "name", "raw"}); len(missing) > 0 {
		return harness.Failf("policy missing fields: %v", missing)
	}
	return harness.Passf("got %d policies", len(body.Policies))
}

func checkSlideOver(ctx context.Context, d *harness.Deps) harness.Result {
	resp, err := d.Bank.DebugUIGet(ctx, "/")
	if err != nil {
		return harness.Errf(err, "cannot load debug UI")
	}
	if resp.Status != 200 {
		return harness.Failf("debug UI returned %d", resp.Status)
	}
	html := string(resp.Body)
	for _, id := range []string{"slide-over", "close-slide-over", "slide-over-title", "slide-over-content"} {
		if !strings.Contains(html, fmt.Sprintf("id=%q", id)) {
			return harness.Failf("%s element not found in page", id)
		}
	}
	return harness.Pass("slide-over panel elements present")
}

func checkPolicyEvaluate(ctx context.Context, d *harness.Deps) harness.Result {
	resp, err := d.Bank.DebugPost(ctx, "/policy/evaluate", map[string]any{
		"action": "view_balance",
		"user":   map[string]any{"roles": []string{"viewer"}},
	})
	if err != nil {
		return harness.Errf(err, "cannot connect to debug API")
	}
	if resp.Status != 200 {
		return harness.Failf("evaluate endpoint returned %d", resp.Status)
	}
	var body struct {
		Result map[string]any `json:"result"`
	}
	if err := resp.JSON(&body); err != nil {
		return harness.Errf(err, "parsing evaluation")
	}
	if body.Result == nil {
		return harness.Fail("response missing 'result' field")
	}
	allow, ok := body.Result["allow"]
	if !ok {
		return harness.Fail("result missing 'allow' field")
	}
	return harness.Passf("policy evaluation returned allow=%v", allow)
}

func checkAdminUsersPerTenant(ctx context.Context, d *harness.Deps) harness.Result {
	token, _, res, ok := authenticate(ctx, d)
	if !ok {
		return res
	}

	fetch := func(tenantID string) (int, int, harness.Result, bool) {
		hdr := session.WithTenant(session.Bearer(token), tenantID)
		resp, err := d.Bank.AdminUsers(ctx, hdr)
		if err != nil {
			return 0, 0, harness.Errf(err, "fetching admin users"), false
		}
		// 403 is a legitimate outcome for a non-admin membership.
		if resp.Status == 403 {
			return 0, 403, harness.Result{}, true
		}
		if resp.Status != 200 {
			return 0, resp.Status, harness.Failf("admin users returned %d for tenant %s", resp.Status, tenantID), false
		}
		var users []map[string]any
		if err := resp.JSON(&users); err != nil {
			return 0, 0, harness.Errf(err, "parsing admin users"), false
		}
		return len(users), 200, harness.Result{}, true
	}

	personalCount, personalStatus, res, ok := fetch(d.Config.ConsumerTenantID)
	if !ok {
		return res
	}
	businessCount, businessStatus, res, ok := fetch(d.Config.BusinessTenantID)
	if !ok {
		return res
	}

	// A consumer tenant shows at most its owner. A commercial tenant is
	// allowed to show the whole team.
	personalValid := personalCount <= 1 || personalStatus == 403
	different := personalCount != businessCount

	if !different && !personalValid {
		return harness.Fail("personal and business tenants returned the same user list").
			With("personal_count", personalCount).
			With("business_count", businessCount)
	}
	return harness.Passf("personal tenant has %d users, business has %d", personalCount, businessCount).
		With("personal_status", personalStatus).
		With("business_status", businessStatus)
}

func missingFields(m map[string]any, want []string) []string {
	var missing []string
	for _, f := range want {
		if _, ok := m[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}
