//go:build e2e
// +build e2e

// Package e2e runs the full suite catalog against a live deployment.
// It is excluded from normal test runs; invoke with the e2e build tag
// and a reachable stack, e.g.
//
//	go test -tags e2e ./e2e -anybank.config=anybank-e2e.yaml
package e2e

import (
	"context"
	"flag"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/anybank/anybank-e2e/internal/anybank"
	"github.com/anybank/anybank-e2e/internal/config"
	"github.com/anybank/anybank-e2e/internal/harness"
	"github.com/anybank/anybank-e2e/internal/logging"
	"github.com/anybank/anybank-e2e/internal/scenarios"
	"github.com/anybank/anybank-e2e/internal/session"
)

var configPath = flag.String("anybank.config", "", "path to a harness config file")

func liveConfig(t *testing.T) *config.Config {
	t.Helper()
	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, cfg.FrontendURL+"/health", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Skipf("no live deployment at %s: %v", cfg.FrontendURL, err)
	}
	resp.Body.Close()
	return cfg
}

func liveDeps(t *testing.T) *harness.Deps {
	t.Helper()
	cfg := liveConfig(t)
	sess, err := session.New()
	if err != nil {
		t.Fatalf("creating session: %v", err)
	}
	logger := logging.New(os.Stderr, cfg.LogLevel)
	return &harness.Deps{
		Config:  cfg,
		Log:     logger,
		Session: sess,
		Bank:    anybank.New(cfg, sess, logger),
	}
}

func runLive(t *testing.T, name string) {
	t.Helper()
	suite, err := scenarios.ByName(name)
	if err != nil {
		t.Fatal(err)
	}
	deps := liveDeps(t)
	result, err := harness.NewRunner(deps).RunSuite(context.Background(), suite)
	if err != nil {
		t.Fatalf("suite setup failed: %v", err)
	}
	for _, r := range result.Results {
		if r.Status == harness.StatusFail {
			t.Errorf("[%s] %s: %s", r.Status, r.Check, r.Message)
		} else {
			t.Logf("[%s] %s: %s", r.Status, r.Check, r.Message)
		}
	}
}

func TestLiveE2EFlow(t *testing.T)  { runLive(t, "e2e-flow") }
func TestLiveDebugAPI(t *testing.T) { runLive(t, "debug-api") }

func TestLiveDebugUI(t *testing.T) {
	if os.Getenv("ANYBANK_E2E_BROWSER") == "" {
		t.Skip("set ANYBANK_E2E_BROWSER=1 to run browser checks against a live stack")
	}
	runLive(t, "debug-ui")
}
