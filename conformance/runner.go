package conformance

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/chazu/luiggi/compiler"
	"github.com/chazu/luiggi/stdlib"
	"github.com/chazu/luiggi/vm"
)

// DefaultMaxSteps bounds cases that set no max_steps of their own.
const DefaultMaxSteps = 1_000_000

// Result represents the outcome of running a single case.
type Result struct {
	Case       LoadedCase
	Passed     bool
	Skipped    bool
	SkipReason string
	Error      error
}

// Runner executes conformance cases, each on a fresh compiler and machine.
type Runner struct {
	extend []func(*stdlib.Registry)
}

// NewRunner creates a runner with the standard natives plus any added by
// extend.
func NewRunner(extend ...func(*stdlib.Registry)) *Runner {
	return &Runner{extend: extend}
}

// Run executes a single case.
func (r *Runner) Run(lc LoadedCase) Result {
	if skipped, reason := lc.Case.IsSkipped(); skipped {
		return Result{Case: lc, Skipped: true, SkipReason: reason}
	}

	var out bytes.Buffer
	reg := stdlib.New(&out)
	for _, fn := range r.extend {
		fn(reg)
	}

	steps := lc.Case.MaxSteps
	if steps == 0 {
		steps = DefaultMaxSteps
	}
	c := compiler.New()
	m := vm.New(vm.WithStepLimit(steps))
	if err := reg.Install(c, m); err != nil {
		return Result{Case: lc, Error: fmt.Errorf("install natives: %w", err)}
	}

	v := vm.Null
	prog, err := c.CompileSource(lc.Case.Source)
	if err == nil {
		v, err = m.Run(context.Background(), prog)
	}

	if err := checkExpectation(lc.Case.Expect, v, out.String(), err); err != nil {
		return Result{Case: lc, Error: err}
	}
	return Result{Case: lc, Passed: true}
}

// RunAll executes all loaded cases.
func (r *Runner) RunAll(cases []LoadedCase) []Result {
	results := make([]Result, len(cases))
	for i, lc := range cases {
		results[i] = r.Run(lc)
	}
	return results
}

// SummaryStats counts results by outcome.
type SummaryStats struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
}

// ComputeStats generates statistics from results.
func ComputeStats(results []Result) SummaryStats {
	stats := SummaryStats{Total: len(results)}
	for _, r := range results {
		if r.Skipped {
			stats.Skipped++
		} else if r.Passed {
			stats.Passed++
		} else {
			stats.Failed++
		}
	}
	return stats
}

// FormatStats returns a human-readable summary.
func FormatStats(stats SummaryStats) string {
	return fmt.Sprintf("%d passed, %d failed, %d skipped (%d total)",
		stats.Passed, stats.Failed, stats.Skipped, stats.Total)
}

// checkExpectation compares what a case produced with what it expects.
func checkExpectation(expect Expectation, got vm.Value, output string, runErr error) error {
	if !expect.HasValue() && expect.Repr == "" && expect.Output == nil && expect.Error == "" {
		return errors.New("no expectation specified")
	}

	if expect.Error != "" {
		if runErr == nil {
			return fmt.Errorf("expected error %s, got value: %s", expect.Error, got.Repr())
		}
		if kind := errorKind(runErr); kind != expect.Error {
			return fmt.Errorf("expected error %s, got %s: %v", expect.Error, kind, runErr)
		}
		if expect.Message != "" && !strings.Contains(runErr.Error(), expect.Message) {
			return fmt.Errorf("error %q does not mention %q", runErr.Error(), expect.Message)
		}
	} else if runErr != nil {
		return fmt.Errorf("unexpected error: %w", runErr)
	}

	if expect.Output != nil && output != *expect.Output {
		return fmt.Errorf("expected output %q, got %q", *expect.Output, output)
	}
	if expect.Repr != "" && got.Repr() != expect.Repr {
		return fmt.Errorf("expected %s, got %s", expect.Repr, got.Repr())
	}
	if expect.HasValue() {
		want, err := expectedValue(&expect.Value)
		if err != nil {
			return fmt.Errorf("failed to convert expected value: %w", err)
		}
		if !reflect.DeepEqual(want, got.Interface()) {
			return fmt.Errorf("expected %v, got %s", want, got.Repr())
		}
	}
	return nil
}

// errorKind names an error the way expectations do.
func errorKind(err error) string {
	var ce *compiler.Error
	var re *vm.RuntimeError
	switch {
	case errors.As(err, &ce):
		return ce.Kind.String()
	case errors.As(err, &re):
		return "runtime"
	}
	return "unknown"
}

// expectedValue decodes a YAML value into the shape vm.Value.Interface
// produces.
func expectedValue(node *yaml.Node) (any, error) {
	var v any
	if err := node.Decode(&v); err != nil {
		return nil, err
	}
	return normalize(v)
}

func normalize(v any) (any, error) {
	switch val := v.(type) {
	case nil, float64, string, bool:
		return val, nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported YAML type: %T", v)
	}
}
