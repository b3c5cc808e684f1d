package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anybank/anybank-e2e/internal/harness"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(passed bool) []harness.SuiteResult {
	status := harness.StatusPass
	if !passed {
		status = harness.StatusFail
	}
	return []harness.SuiteResult{
		{
			Suite:   "e2e-flow",
			Passed:  passed,
			Started: time.Now().Add(-time.Minute),
			Results: []harness.Result{
				{Check: "keycloak_auth", Status: harness.StatusPass, Message: "ok"},
				{Check: "transfer", Status: status, Message: "outcome"},
			},
			Duration: 900 * time.Millisecond,
		},
	}
}

func TestRecordAndReadBack(t *testing.T) {
	s := openStore(t)

	id, err := s.RecordRun(sampleRun(true))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	last, err := s.LastRun()
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, id, last.ID)
	assert.True(t, last.Passed)
	assert.Equal(t, 900*time.Millisecond, last.Duration)

	results, err := s.Results(id)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "keycloak_auth", results[0].Check)
	assert.Equal(t, harness.StatusPass, results[0].Status)
	assert.Equal(t, "e2e-flow", results[1].Suite)
}

func TestLastRunEmpty(t *testing.T) {
	s := openStore(t)
	last, err := s.LastRun()
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestRunsNewestFirst(t *testing.T) {
	s := openStore(t)

	first, err := s.RecordRun(sampleRun(false))
	require.NoError(t, err)
	// distinct started_at ordering
	time.Sleep(5 * time.Millisecond)
	older := sampleRun(true)
	older[0].Started = time.Now()
	second, err := s.RecordRun(older)
	require.NoError(t, err)

	runs, err := s.Runs(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID)
	assert.Equal(t, first, runs[1].ID)
	assert.False(t, runs[1].Passed)
}
