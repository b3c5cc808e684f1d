package harness

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	skipStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func statusLabel(s Status, styled bool) string {
	switch s {
	case StatusPass:
		if styled {
			return passStyle.Render("PASS")
		}
		return "PASS"
	case StatusFail:
		if styled {
			return failStyle.Render("FAIL")
		}
		return "FAIL"
	default:
		if styled {
			return skipStyle.Render("SKIP")
		}
		return "SKIP"
	}
}

// RenderSummary renders suite results as a human-readable report. With
// styled=false the output carries no escape sequences, which suits
// non-TTY destinations and keeps the report diffable.
func RenderSummary(results []SuiteResult, styled bool) string {
	var b strings.Builder

	allPassed := true
	totalPass, totalFail, totalSkip := 0, 0, 0

	for _, sr := range results {
		header := fmt.Sprintf("Suite: %s", sr.Suite)
		if styled {
			header = headerStyle.Render(header)
		}
		b.WriteString(header)
		b.WriteString("\n")

		for _, r := range sr.Results {
			line := fmt.Sprintf("  %s  %s", statusLabel(r.Status, styled), r.Check)
			if r.Message != "" {
				msg := "- " + r.Message
				if styled {
					msg = dimStyle.Render(msg)
				}
				line += " " + msg
			}
			b.WriteString(line)
			b.WriteString("\n")
		}

		passed, failed, skipped := sr.Counts()
		totalPass += passed
		totalFail += failed
		totalSkip += skipped
		if !sr.Passed {
			allPassed = false
		}

		b.WriteString(fmt.Sprintf("  %d passed, %d failed, %d skipped in %s\n\n",
			passed, failed, skipped, sr.Duration.Round(time.Millisecond)))
	}

	verdict := "OVERALL: PASS"
	if !allPassed {
		verdict = "OVERALL: FAIL"
	}
	if styled {
		if allPassed {
			verdict = passStyle.Render(verdict)
		} else {
			verdict = failStyle.Render(verdict)
		}
	}
	b.WriteString(fmt.Sprintf("%s (%d passed, %d failed, %d skipped)\n",
		verdict, totalPass, totalFail, totalSkip))

	return b.String()
}

// RenderJSON renders suite results as indented JSON for machine use.
func RenderJSON(results []SuiteResult) (string, error) {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding results: %w", err)
	}
	return string(data), nil
}

// Succeeded reports whether every suite in results passed.
func Succeeded(results []SuiteResult) bool {
	for _, sr := range results {
		if !sr.Passed {
			return false
		}
	}
	return true
}
