package testutil

import "testing"

// Step is one clause of a scenario.
type Step struct {
	name string
	fn   func(t *testing.T)
}

func Given(desc string, fn func(t *testing.T)) Step { return Step{name: "Given " + desc, fn: fn} }

func When(desc string, fn func(t *testing.T)) Step { return Step{name: "When " + desc, fn: fn} }

func Then(desc string, fn func(t *testing.T)) Step { return Step{name: "Then " + desc, fn: fn} }

func And(desc string, fn func(t *testing.T)) Step { return Step{name: "And " + desc, fn: fn} }

// Scenario runs steps in order as flat subtests under name, so output reads
// "scenario/Given .../When .../Then ...". Steps share state through the
// enclosing test's variables; once a step fails the remaining ones are
// reported as skipped.
func Scenario(t *testing.T, name string, steps ...Step) {
	t.Helper()
	t.Run(name, func(t *testing.T) {
		for i, step := range steps {
			if t.Run(step.name, step.fn) {
				continue
			}
			for _, rest := range steps[i+1:] {
				t.Logf("skipped %q after failed step", rest.name)
			}
			return
		}
	})
}
