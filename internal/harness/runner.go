package harness

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"
)

// SuiteResult is the recorded outcome of one suite execution.
type SuiteResult struct {
	Suite    string        `json:"suite"`
	Results  []Result      `json:"results"`
	Passed   bool          `json:"passed"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
}

// Counts returns how many checks passed, failed, and were skipped.
func (sr SuiteResult) Counts() (passed, failed, skipped int) {
	for _, r := range sr.Results {
		switch r.Status {
		case StatusPass:
			passed++
		case StatusFail:
			failed++
		case StatusSkip:
			skipped++
		}
	}
	return passed, failed, skipped
}

// Runner executes suites sequentially against a shared Deps.
type Runner struct {
	deps *Deps
}

// NewRunner creates a runner bound to the given dependencies.
func NewRunner(deps *Deps) *Runner {
	return &Runner{deps: deps}
}

// RunSuite executes one suite in order. It never returns a non-nil error
// for check failures; those are captured in the SuiteResult. The error
// return covers setup failures only. Teardown runs whenever it is set,
// even when Setup fails or panics, so held resources always get released.
func (r *Runner) RunSuite(ctx context.Context, s Suite) (SuiteResult, error) {
	sr := SuiteResult{Suite: s.Name, Started: time.Now()}

	if s.Teardown != nil {
		defer s.Teardown(r.deps)
	}

	if s.Setup != nil {
		if serr := r.runSetup(ctx, s); serr != nil {
			sr.Duration = time.Since(sr.Started)
			return sr, fmt.Errorf("suite %s setup: %w", s.Name, serr)
		}
	}

	fatalFailed := ""
	for _, c := range s.Checks {
		if fatalFailed != "" {
			res := Skipped(fatalFailed)
			res.Check = c.Name
			sr.Results = append(sr.Results, res)
			r.deps.Log.Warn("check skipped", "check", c.Name, "after", fatalFailed)
			continue
		}

		res := r.runCheck(ctx, c)
		sr.Results = append(sr.Results, res)

		switch res.Status {
		case StatusPass:
			r.deps.Log.Info("check passed", "check", c.Name, "msg", res.Message)
		default:
			r.deps.Log.Error("check failed", "check", c.Name, "msg", res.Message)
			if c.Fatal {
				fatalFailed = c.Name
			}
		}
	}

	sr.Duration = time.Since(sr.Started)
	sr.Passed = true
	for _, res := range sr.Results {
		if !res.Passed() {
			sr.Passed = false
			break
		}
	}
	return sr, nil
}

// runSetup invokes the suite's Setup, converting a panic into an error.
func (r *Runner) runSetup(ctx context.Context, s Suite) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.deps.Log.Error("suite setup panicked", "suite", s.Name, "panic", rec)
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return s.Setup(ctx, r.deps)
}

// RunAll executes the given suites in order, continuing past suite
// failures and accumulating results.
func (r *Runner) RunAll(ctx context.Context, suites []Suite) ([]SuiteResult, error) {
	var out []SuiteResult
	for _, s := range suites {
		sr, err := r.RunSuite(ctx, s)
		if err != nil {
			return out, err
		}
		out = append(out, sr)
	}
	return out, nil
}

// runCheck executes one check, converting panics into failed results so
// a misbehaving check body cannot take down the whole run.
func (r *Runner) runCheck(ctx context.Context, c Check) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r.deps.Log.Error("check panicked", "check", c.Name, "panic", rec)
			res = Failf("panic: %v", rec).With("stack", string(debug.Stack()))
			res.Check = c.Name
		}
	}()
	res = c.Run(ctx, r.deps)
	res.Check = c.Name
	return res
}
