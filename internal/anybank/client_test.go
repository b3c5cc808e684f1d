package anybank_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anybank/anybank-e2e/internal/anybank"
	"github.com/anybank/anybank-e2e/internal/session"
	"github.com/anybank/anybank-e2e/internal/testutil/fakebank"
)

func newClient(t *testing.T) (*anybank.Client, *fakebank.Server) {
	t.Helper()
	srv := fakebank.New()
	t.Cleanup(srv.Close)

	sess, err := session.New()
	require.NoError(t, err)
	return anybank.New(srv.Config(), sess, log.New(io.Discard)), srv
}

func TestPasswordGrant(t *testing.T) {
	c, _ := newClient(t)

	tok, resp, err := c.PasswordGrant(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.NotEmpty(t, tok.AccessToken)

	claims, err := anybank.DecodeClaims(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, fakebank.UserEmail, claims["email"])
}

func TestPasswordGrantBadCredentials(t *testing.T) {
	srv := fakebank.New()
	defer srv.Close()
	badCfg := srv.Config()
	badCfg.Password = "wrong"
	sess, err := session.New()
	require.NoError(t, err)
	bad := anybank.New(badCfg, sess, log.New(io.Discard))

	_, resp, err := bad.PasswordGrant(context.Background())
	require.Error(t, err)
	assert.Equal(t, 401, resp.Status)
}

func TestDecodeClaims(t *testing.T) {
	// payload {"sub":"test","name":"Test User","iat":1234567890}
	token := "eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9.eyJzdWIiOiJ0ZXN0IiwibmFtZSI6IlRlc3QgVXNlciIsImlhdCI6MTIzNDU2Nzg5MH0.signature"

	claims, err := anybank.DecodeClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "test", claims["sub"])
	assert.Equal(t, "Test User", claims["name"])

	_, err = anybank.DecodeClaims("not-a-jwt")
	assert.Error(t, err)
}

func TestParseFormAction(t *testing.T) {
	html := `<form id="kc-form-login" action="http://kc/auth?execution=abc&amp;tab_id=1" method="post">`
	action, err := anybank.ParseFormAction([]byte(html))
	require.NoError(t, err)
	assert.Equal(t, "http://kc/auth?execution=abc&tab_id=1", action)

	_, err = anybank.ParseFormAction([]byte("<html>no form</html>"))
	assert.Error(t, err)
}

func TestBFFLoginFlow(t *testing.T) {
	c, _ := newClient(t)
	ctx := context.Background()

	// unauthenticated session
	resp, err := c.SessionIdentity(ctx)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.Status)

	// login form
	resp, err = c.StartLogin(ctx)
	require.NoError(t, err)
	require.Equal(t, 200, resp.Status)
	action, err := anybank.ParseFormAction(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, action, "execution=")
	assert.NotContains(t, action, "&amp;")

	// submit credentials, redirected into the app
	resp, err = c.SubmitCredentials(ctx, action)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.NotContains(t, resp.FinalURL, "error")

	// session is now established
	resp, err = c.SessionIdentity(ctx)
	require.NoError(t, err)
	require.Equal(t, 200, resp.Status)
	body, err := resp.Map()
	require.NoError(t, err)
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, fakebank.UserEmail, body["email"])

	// tenant exchange sticks
	resp, err = c.ExchangeTenant(ctx, fakebank.BusinessID)
	require.NoError(t, err)
	require.Equal(t, 200, resp.Status)

	resp, err = c.SessionIdentity(ctx)
	require.NoError(t, err)
	body, err = resp.Map()
	require.NoError(t, err)
	assert.Equal(t, fakebank.BusinessID, body["tenant_id"])

	// logout invalidates the session
	_, err = c.Logout(ctx)
	require.NoError(t, err)
	resp, err = c.SessionIdentity(ctx)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.Status)
}

func TestAccountsAndParse(t *testing.T) {
	c, _ := newClient(t)
	ctx := context.Background()

	tok, _, err := c.PasswordGrant(ctx)
	require.NoError(t, err)

	hdr := session.WithTenant(session.Bearer(tok.AccessToken), fakebank.ConsumerID)
	resp, err := c.Accounts(ctx, hdr)
	require.NoError(t, err)
	require.Equal(t, 200, resp.Status)

	accounts, err := anybank.ParseAccounts(resp)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "acct-101", accounts[0]["id"])
}

func TestParseAccountsShapes(t *testing.T) {
	for _, body := range []string{
		`[{"id":"a1"}]`,
		`{"accounts":[{"id":"a1"}]}`,
		`{"content":[{"id":"a1"}]}`,
	} {
		resp := &session.Response{Body: []byte(body)}
		accounts, err := anybank.ParseAccounts(resp)
		require.NoError(t, err, body)
		require.Len(t, accounts, 1, body)
		assert.Equal(t, "a1", accounts[0]["id"])
	}

	resp := &session.Response{Body: []byte(`{"other":true}`)}
	accounts, err := anybank.ParseAccounts(resp)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestTransfer(t *testing.T) {
	c, _ := newClient(t)
	ctx := context.Background()

	resp, err := c.Transfer(ctx, "acct-101", "acct-102", 100.00, "test transfer", nil)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)

	resp, err = c.Transfer(ctx, "acct-101", "", 100.00, "missing target", nil)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.Status)
}

func TestAdminUsersPerTenant(t *testing.T) {
	c, _ := newClient(t)
	ctx := context.Background()

	resp, err := c.AdminUsers(ctx, session.WithTenant(nil, fakebank.ConsumerID))
	require.NoError(t, err)
	var personal []map[string]any
	require.NoError(t, resp.JSON(&personal))
	assert.Len(t, personal, 1)

	resp, err = c.AdminUsers(ctx, session.WithTenant(nil, fakebank.BusinessID))
	require.NoError(t, err)
	var business []map[string]any
	require.NoError(t, resp.JSON(&business))
	assert.Greater(t, len(business), 1)
}

func TestDebugEndpoints(t *testing.T) {
	c, _ := newClient(t)
	ctx := context.Background()

	resp, err := c.DebugGet(ctx, "/health")
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Contains(t, resp.ContentType(), "application/json")

	resp, err = c.DebugPost(ctx, "/controls/risk", map[string]any{"score": 75})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)

	resp, err = c.DebugGet(ctx, "/controls/risk")
	require.NoError(t, err)
	body, err := resp.Map()
	require.NoError(t, err)
	assert.Equal(t, true, body["active"])
	assert.Equal(t, float64(75), body["score"])
}

func TestDebugUIAssets(t *testing.T) {
	c, _ := newClient(t)
	ctx := context.Background()

	resp, err := c.DebugUIGet(ctx, "/")
	require.NoError(t, err)
	require.Equal(t, 200, resp.Status)
	html := string(resp.Body)
	assert.Contains(t, html, "Debug Control Plane")
	assert.Contains(t, html, `id="events-container"`)
	assert.Contains(t, html, `id="slide-over"`)

	resp, err = c.DebugUIGet(ctx, "/css/debug-styles.css")
	require.NoError(t, err)
	assert.Contains(t, resp.ContentType(), "text/css")
	assert.True(t, strings.Contains(string(resp.Body), ".debug-card"))
}

func TestProbeStream(t *testing.T) {
	c, srv := newClient(t)

	probe, err := c.ProbeStream(context.Background(), srv.URL+"/debug/events/stream")
	require.NoError(t, err)
	assert.Equal(t, 200, probe.Status)
	assert.Contains(t, probe.ContentType, "text/event-stream")
	assert.False(t, probe.TimedOut)
}
