package harness

import (
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResults() []SuiteResult {
	return []SuiteResult{
		{
			Suite:  "e2e-flow",
			Passed: true,
			Results: []Result{
				{Check: "keycloak_realm", Status: StatusPass, Message: "realm anybank reachable"},
				{Check: "login", Status: StatusPass, Message: "authenticated as jdoe@example.com"},
			},
			Duration: 1200 * time.Millisecond,
		},
		{
			Suite:  "debug-api",
			Passed: false,
			Results: []Result{
				{Check: "health", Status: StatusPass, Message: "status 200"},
				{Check: "sessions", Status: StatusFail, Message: "expected 200, got 500"},
				{Check: "timeline", Status: StatusSkip, Message: `skipped: prerequisite "sessions" failed`},
			},
			Duration: 340 * time.Millisecond,
		},
	}
}

func TestRenderSummaryGolden(t *testing.T) {
	out := RenderSummary(sampleResults(), false)
	g := goldie.New(t)
	g.Assert(t, "summary", []byte(out))
}

func TestRenderSummaryVerdict(t *testing.T) {
	out := RenderSummary(sampleResults(), false)
	assert.Contains(t, out, "OVERALL: FAIL")
	assert.Contains(t, out, "3 passed, 1 failed, 1 skipped")

	passing := sampleResults()[:1]
	out = RenderSummary(passing, false)
	assert.Contains(t, out, "OVERALL: PASS")
}

func TestRenderJSON(t *testing.T) {
	out, err := RenderJSON(sampleResults()[:1])
	require.NoError(t, err)
	assert.Contains(t, out, `"suite": "e2e-flow"`)
	assert.Contains(t, out, `"passed": true`)
}

func TestSucceeded(t *testing.T) {
	assert.False(t, Succeeded(sampleResults()))
	assert.True(t, Succeeded(sampleResults()[:1]))
	assert.True(t, Succeeded(nil))
}
