package harness

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDeps() *Deps {
	return &Deps{Log: log.New(io.Discard)}
}

func TestRunSuiteOrderAndOverall(t *testing.T) {
	var order []string
	suite := Suite{
		Name: "ordering",
		Checks: []Check{
			{Name: "first", Run: func(ctx context.Context, d *Deps) Result {
				order = append(order, "first")
				return Pass("ok")
			}},
			{Name: "second", Run: func(ctx context.Context, d *Deps) Result {
				order = append(order, "second")
				return Fail("nope")
			}},
			{Name: "third", Run: func(ctx context.Context, d *Deps) Result {
				order = append(order, "third")
				return Pass("ok")
			}},
		},
	}

	sr, err := NewRunner(testDeps()).RunSuite(context.Background(), suite)
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second", "third"}, order)
	assert.False(t, sr.Passed)
	require.Len(t, sr.Results, 3)
	assert.Equal(t, StatusPass, sr.Results[0].Status)
	assert.Equal(t, StatusFail, sr.Results[1].Status)
	// non-fatal failure does not stop the sequence
	assert.Equal(t, StatusPass, sr.Results[2].Status)
}

func TestFatalFailureSkipsRemaining(t *testing.T) {
	ran := map[string]bool{}
	suite := Suite{
		Name: "fatal",
		Checks: []Check{
			{Name: "login", Fatal: true, Run: func(ctx context.Context, d *Deps) Result {
				ran["login"] = true
				return Fail("credentials rejected")
			}},
			{Name: "accounts", Run: func(ctx context.Context, d *Deps) Result {
				ran["accounts"] = true
				return Pass("ok")
			}},
			{Name: "transfer", Run: func(ctx context.Context, d *Deps) Result {
				ran["transfer"] = true
				return Pass("ok")
			}},
		},
	}

	sr, err := NewRunner(testDeps()).RunSuite(context.Background(), suite)
	require.NoError(t, err)

	assert.False(t, ran["accounts"])
	assert.False(t, ran["transfer"])
	require.Len(t, sr.Results, 3)
	assert.Equal(t, StatusFail, sr.Results[0].Status)
	assert.Equal(t, StatusSkip, sr.Results[1].Status)
	assert.Equal(t, StatusSkip, sr.Results[2].Status)
	assert.Contains(t, sr.Results[1].Message, "login")
	assert.False(t, sr.Passed)
}

func TestPanicBecomesFailedResult(t *testing.T) {
	suite := Suite{
		Name: "panics",
		Checks: []Check{
			{Name: "boom", Run: func(ctx context.Context, d *Deps) Result {
				panic("nil map write")
			}},
			{Name: "after", Run: func(ctx context.Context, d *Deps) Result {
				return Pass("still running")
			}},
		},
	}

	sr, err := NewRunner(testDeps()).RunSuite(context.Background(), suite)
	require.NoError(t, err)

	require.Len(t, sr.Results, 2)
	assert.Equal(t, StatusFail, sr.Results[0].Status)
	assert.Contains(t, sr.Results[0].Message, "nil map write")
	assert.NotEmpty(t, sr.Results[0].Details["stack"])
	assert.Equal(t, StatusPass, sr.Results[1].Status)
}

func TestSetupErrorAbortsSuite(t *testing.T) {
	called := false
	suite := Suite{
		Name: "setup-fail",
		Setup: func(ctx context.Context, d *Deps) error {
			return errors.New("browser did not start")
		},
		Checks: []Check{
			{Name: "never", Run: func(ctx context.Context, d *Deps) Result {
				called = true
				return Pass("ok")
			}},
		},
	}

	_, err := NewRunner(testDeps()).RunSuite(context.Background(), suite)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "browser did not start")
	assert.False(t, called)
}

func TestTeardownRunsAfterFailures(t *testing.T) {
	tornDown := false
	suite := Suite{
		Name: "teardown",
		Checks: []Check{
			{Name: "fails", Fatal: true, Run: func(ctx context.Context, d *Deps) Result {
				return Fail("no")
			}},
		},
		Teardown: func(d *Deps) { tornDown = true },
	}

	_, err := NewRunner(testDeps()).RunSuite(context.Background(), suite)
	require.NoError(t, err)
	assert.True(t, tornDown)
}

func TestTeardownRunsWhenSetupFails(t *testing.T) {
	tornDown := false
	suite := Suite{
		Name: "setup-fail-teardown",
		Setup: func(ctx context.Context, d *Deps) error {
			return errors.New("browser did not start")
		},
		Teardown: func(d *Deps) { tornDown = true },
	}

	_, err := NewRunner(testDeps()).RunSuite(context.Background(), suite)
	require.Error(t, err)
	assert.True(t, tornDown)
}

func TestTeardownRunsWhenSetupPanics(t *testing.T) {
	tornDown := false
	called := false
	suite := Suite{
		Name: "setup-panic",
		Setup: func(ctx context.Context, d *Deps) error {
			panic("allocator gone")
		},
		Checks: []Check{
			{Name: "never", Run: func(ctx context.Context, d *Deps) Result {
				called = true
				return Pass("ok")
			}},
		},
		Teardown: func(d *Deps) { tornDown = true },
	}

	_, err := NewRunner(testDeps()).RunSuite(context.Background(), suite)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "allocator gone")
	assert.True(t, tornDown)
	assert.False(t, called)
}

func TestResultWithDetails(t *testing.T) {
	r := Passf("status %d", 200).With("url", "/api/accounts").With("count", 3)
	assert.Equal(t, "status 200", r.Message)
	assert.Equal(t, "/api/accounts", r.Details["url"])
	assert.Equal(t, 3, r.Details["count"])
	assert.True(t, r.Passed())
}

func TestCounts(t *testing.T) {
	sr := SuiteResult{Results: []Result{
		{Status: StatusPass}, {Status: StatusPass},
		{Status: StatusFail},
		{Status: StatusSkip}, {Status: StatusSkip}, {Status: StatusSkip},
	}}
	p, f, s := sr.Counts()
	assert.Equal(t, 2, p)
	assert.Equal(t, 1, f)
	assert.Equal(t, 3, s)
}
