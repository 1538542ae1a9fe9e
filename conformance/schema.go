// Package conformance runs YAML suites of Luiggi scripts and checks their
// results, output and errors.
package conformance

import "gopkg.in/yaml.v3"

// Suite represents a complete YAML test file.
type Suite struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Tests       []Case `yaml:"tests"`
}

// Case represents a single script within a suite.
type Case struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Skip        interface{} `yaml:"skip,omitempty"` // bool or string
	Source      string      `yaml:"source"`
	MaxSteps    int         `yaml:"max_steps,omitempty"`
	Expect      Expectation `yaml:"expect"`
}

// Expectation defines what a case must produce. Value is kept as a node so
// that an explicit null can be told apart from no value at all.
type Expectation struct {
	Value   yaml.Node `yaml:"value,omitempty"`   // returned value, compared structurally
	Repr    string    `yaml:"repr,omitempty"`    // returned value, compared as printed
	Output  *string   `yaml:"output,omitempty"`  // everything logged
	Error   string    `yaml:"error,omitempty"`   // compile error kind, or "runtime"
	Message string    `yaml:"message,omitempty"` // substring of the error message
}

// HasValue reports whether the case expects a particular returned value.
func (e *Expectation) HasValue() bool {
	return !e.Value.IsZero()
}

// IsSkipped returns true if this case should be skipped.
func (c *Case) IsSkipped() (bool, string) {
	switch v := c.Skip.(type) {
	case bool:
		if v {
			return true, "skipped"
		}
	case string:
		return true, v
	}
	return false, ""
}
