package harness

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/anybank/anybank-e2e/internal/anybank"
	"github.com/anybank/anybank-e2e/internal/browser"
	"github.com/anybank/anybank-e2e/internal/config"
	"github.com/anybank/anybank-e2e/internal/session"
)

// Deps carries everything a check may need. The runner builds one Deps
// per suite run; checks mutate the session state inside it as they go.
type Deps struct {
	Config  *config.Config
	Log     *log.Logger
	Session *session.State
	Bank    *anybank.Client
	Browser *browser.Session
}

// Check is one named verification step. Checks in a suite run strictly
// in declaration order and share the Deps instance.
//
// Fatal marks a prerequisite: if a fatal check fails, the remaining
// checks are recorded as skipped instead of being executed.
type Check struct {
	Name  string
	Fatal bool
	Run   func(ctx context.Context, d *Deps) Result
}

// Suite is an ordered scenario. Setup runs before the first check and
// may fail the whole suite; Teardown always runs if Setup succeeded.
type Suite struct {
	Name        string
	Description string
	Setup       func(ctx context.Context, d *Deps) error
	Checks      []Check
	Teardown    func(d *Deps)
}
