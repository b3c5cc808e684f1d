// Package browser drives a headless Chrome instance for DOM-level
// verification of the debug UI.
package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// Session owns one browser instance and the chromedp contexts behind it.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	mu          sync.Mutex
	consoleErrs []string
}

// New launches a browser. The error covers the common case of no Chrome
// or Chromium binary on the host; callers decide whether that fails the
// run or just the DOM checks.
func New(parent context.Context, headless bool) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	// Starting with an empty task list forces the browser to launch now,
	// so a missing binary surfaces here instead of in the first check.
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	s := &Session{ctx: ctx, cancel: cancel, allocCancel: allocCancel}

	// Record console errors so DOM check failures can report what the
	// page itself complained about.
	chromedp.ListenTarget(ctx, func(ev any) {
		msg, ok := ev.(*runtime.EventConsoleAPICalled)
		if !ok || msg.Type != runtime.APITypeError {
			return
		}
		var parts []string
		for _, arg := range msg.Args {
			if len(arg.Value) > 0 {
				parts = append(parts, string(arg.Value))
			}
		}
		s.mu.Lock()
		s.consoleErrs = append(s.consoleErrs, strings.Join(parts, " "))
		s.mu.Unlock()
	})

	return s, nil
}

// ConsoleErrors returns console error messages seen since launch.
func (s *Session) ConsoleErrors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.consoleErrs...)
}

// Close shuts the browser down.
func (s *Session) Close() {
	s.cancel()
	s.allocCancel()
}

func (s *Session) run(timeout time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// Navigate loads a URL and waits for the body to be ready.
func (s *Session) Navigate(url string, timeout time.Duration) error {
	return s.run(timeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	)
}

// WaitVisible blocks until the selector matches a visible element.
func (s *Session) WaitVisible(sel string, timeout time.Duration) error {
	return s.run(timeout, chromedp.WaitVisible(sel, chromedp.ByQuery))
}

// Text returns the text content of the first element matching sel.
func (s *Session) Text(sel string, timeout time.Duration) (string, error) {
	var out string
	err := s.run(timeout, chromedp.Text(sel, &out, chromedp.ByQuery))
	return strings.TrimSpace(out), err
}

// Title returns the current page title.
func (s *Session) Title(timeout time.Duration) (string, error) {
	var title string
	err := s.run(timeout, chromedp.Title(&title))
	return title, err
}

// Count returns how many elements match a CSS selector.
func (s *Session) Count(sel string, timeout time.Duration) (int, error) {
	var n int
	expr := fmt.Sprintf("document.querySelectorAll(%q).length", sel)
	err := s.run(timeout, chromedp.Evaluate(expr, &n))
	return n, err
}

// ContainerText returns the full text of the element matching sel,
// empty string if absent.
func (s *Session) ContainerText(sel string, timeout time.Duration) (string, error) {
	var out string
	expr := fmt.Sprintf("(document.querySelector(%q) || {textContent: ''}).textContent", sel)
	err := s.run(timeout, chromedp.Evaluate(expr, &out))
	return out, err
}

// WaitTextContains polls until the element's text contains substr or
// the timeout lapses.
func (s *Session) WaitTextContains(sel, substr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}
		text, err := s.ContainerText(sel, remaining)
		if err == nil && strings.Contains(text, substr) {
			return nil
		}
		if time.Now().After(deadline) {
			if err != nil {
				return fmt.Errorf("waiting for %q in %s: %w", substr, sel, err)
			}
			return fmt.Errorf("waiting for %q in %s: last text %q", substr, sel, text)
		}
		time.Sleep(250 * time.Millisecond)
	}
}

// Screenshot captures the viewport to path, creating parent directories.
func (s *Session) Screenshot(path string, timeout time.Duration) error {
	var buf []byte
	if err := s.run(timeout, chromedp.CaptureScreenshot(&buf)); err != nil {
		return fmt.Errorf("capturing screenshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0o644)
}
