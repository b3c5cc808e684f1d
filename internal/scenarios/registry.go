package scenarios

import (
	"fmt"
	"sort"

	"github.com/anybank/anybank-e2e/internal/harness"
)

// All returns every suite in run order. The e2e flow runs first because
// it is the cheapest signal that the deployment is up at all.
func All() []harness.Suite {
	return []harness.Suite{
		E2EFlow(),
		DebugAPI(),
		DebugUI(),
	}
}

// ByName resolves a suite by its name.
func ByName(name string) (harness.Suite, error) {
	for _, s := range All() {
		if s.Name == name {
			return s, nil
		}
	}
	return harness.Suite{}, fmt.Errorf("unknown suite %q (available: %v)", name, Names())
}

// Names lists the available suite names, sorted.
func Names() []string {
	var names []string
	for _, s := range All() {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names
}
