package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/matchpoint/internal/ir"
)

// TraceSnapshot is the golden-file form of a scenario run.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	MatchID      string       `json:"match_id"`
	Digest       string       `json:"digest"`
	Trace        []TraceEvent `json:"trace"`
	Summary      string       `json:"summary"`
}

// Snapshot returns the canonical JSON snapshot of a run. Two runs of the
// same scenario produce identical bytes.
func Snapshot(name string, result *Result) ([]byte, error) {
	v, err := ir.FromStruct(TraceSnapshot{
		ScenarioName: name,
		MatchID:      result.MatchID,
		Digest:       result.Digest,
		Trace:        result.Trace,
		Summary:      result.Summary,
	})
	if err != nil {
		return nil, err
	}
	return ir.Canonical(v)
}

// RunWithGolden executes a scenario, fails the test on any scenario error,
// and compares the match summary against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	for _, e := range result.Errors {
		t.Errorf("scenario %s: %s", scenario.Name, e)
	}

	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares the result's summary against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(result.Summary))
}
