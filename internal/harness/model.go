package harness

import "fmt"

// Status represents the outcome of a check execution.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	StatusSkip Status = "skip"
)

// Result is the outcome of a single check.
type Result struct {
	Check   string         `json:"check"`
	Status  Status         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Passed reports whether the result counts toward overall success.
// Skipped checks do not: a skipped check means a prerequisite failed.
func (r Result) Passed() bool {
	return r.Status == StatusPass
}

// With attaches a detail key for diagnostics and returns the result,
// so check bodies can chain it onto a constructor.
func (r Result) With(key string, value any) Result {
	if r.Details == nil {
		r.Details = map[string]any{}
	}
	r.Details[key] = value
	return r
}

// Pass builds a passing result.
func Pass(msg string) Result {
	return Result{Status: StatusPass, Message: msg}
}

// Passf builds a passing result with a formatted message.
func Passf(format string, args ...any) Result {
	return Pass(fmt.Sprintf(format, args...))
}

// Fail builds a failing result.
func Fail(msg string) Result {
	return Result{Status: StatusFail, Message: msg}
}

// Failf builds a failing result with a formatted message.
func Failf(format string, args ...any) Result {
	return Fail(fmt.Sprintf(format, args...))
}

// Skipped builds a skipped result, noting which prerequisite failed.
func Skipped(after string) Result {
	return Result{Status: StatusSkip, Message: fmt.Sprintf("skipped: prerequisite %q failed", after)}
}

// Errf builds a failing result from an error, typically a transport
// failure rather than an assertion miss.
func Errf(err error, context string) Result {
	return Failf("%s: %v", context, err)
}
