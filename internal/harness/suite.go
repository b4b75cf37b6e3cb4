package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SuiteResult summarises a run over several scenario files.
type SuiteResult struct {
	Total     int              `json:"total"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Scenarios []ScenarioResult `json:"scenarios"`
}

// ScenarioResult is the outcome of one scenario file.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"` // "match", "updated", "mismatch" or "" without a golden file
	Errors []string `json:"errors,omitempty"`
}

// SuiteOptions controls golden-file handling in RunSuite.
type SuiteOptions struct {
	// Update rewrites golden snapshots instead of comparing them.
	Update bool
}

// RunSuite loads and runs every scenario file. A scenario with a snapshot
// at golden/<file>.golden beside it must also reproduce that snapshot.
func RunSuite(paths []string, opts SuiteOptions) *SuiteResult {
	suite := &SuiteResult{Scenarios: make([]ScenarioResult, 0, len(paths))}

	for _, path := range paths {
		res := runFile(path, opts)
		suite.Total++
		if res.Pass {
			suite.Passed++
		} else {
			suite.Failed++
		}
		suite.Scenarios = append(suite.Scenarios, res)
	}
	return suite
}

func runFile(path string, opts SuiteOptions) ScenarioResult {
	res := ScenarioResult{Name: filepath.Base(path), Path: path}

	scenario, err := LoadScenario(path)
	if err != nil {
		res.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return res
	}
	res.Name = scenario.Name

	result, err := Run(scenario)
	if err != nil {
		res.Errors = []string{fmt.Sprintf("scenario execution failed: %v", err)}
		return res
	}
	res.Errors = result.Errors
	res.Pass = result.Pass

	snapshot, err := Snapshot(scenario.Name, result)
	if err != nil {
		res.Pass = false
		res.Errors = append(res.Errors, fmt.Sprintf("failed to build snapshot: %v", err))
		return res
	}

	goldenPath := GoldenPath(path)
	if opts.Update {
		if err := os.MkdirAll(filepath.Dir(goldenPath), 0755); err != nil {
			res.Pass = false
			res.Errors = append(res.Errors, fmt.Sprintf("failed to create golden directory: %v", err))
			return res
		}
		if err := os.WriteFile(goldenPath, snapshot, 0644); err != nil {
			res.Pass = false
			res.Errors = append(res.Errors, fmt.Sprintf("failed to write golden file: %v", err))
			return res
		}
		res.Golden = "updated"
		return res
	}

	want, err := os.ReadFile(goldenPath)
	if os.IsNotExist(err) {
		return res
	}
	if err != nil {
		res.Pass = false
		res.Errors = append(res.Errors, fmt.Sprintf("failed to read golden file: %v", err))
		return res
	}
	if !bytes.Equal(want, snapshot) {
		res.Golden = "mismatch"
		res.Pass = false
		res.Errors = append(res.Errors, "snapshot does not match golden file (run with --update to regenerate)")
		return res
	}
	res.Golden = "match"
	return res
}

// GoldenPath returns golden/<name>.golden in the scenario's directory.
func GoldenPath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}
