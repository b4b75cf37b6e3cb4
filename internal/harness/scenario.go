package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/matchpoint/internal/config"
	"github.com/roach88/matchpoint/internal/scoring"
)

// Scenario defines a conformance test scenario: one match, a sequence of
// commands, and assertions over what happened.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is the match configuration, in YAML match-file form.
	Config yaml.Node `yaml:"config"`

	// Setup steps are executed before the flow. Any error aborts the run.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow steps may carry expect clauses.
	Flow []Step `yaml:"flow"`

	Assertions []Assertion `yaml:"assertions"`

	// path is the file the scenario was loaded from, if any.
	path string
}

// Step is one command against the scenario's match.
type Step struct {
	// Action is one of point, points, undo, retire, suspend.
	Action string `yaml:"action"`

	// Player is 1 or 2 (point, points, retire).
	Player int `yaml:"player,omitempty"`

	// Type is the point type for point and points. Defaults to normal.
	Type scoring.PointType `yaml:"type,omitempty"`

	// Count is the number of points for the points action.
	Count int `yaml:"count,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a flow step. Unset fields are
// not checked.
type Expect struct {
	// Error is the expected error code, e.g. MATCH_OVER. Empty means the
	// step must succeed.
	Error string `yaml:"error,omitempty"`

	MatchOver *bool  `yaml:"matchOver,omitempty"`
	Reopened  *bool  `yaml:"reopened,omitempty"`
	Points    string `yaml:"points,omitempty"`
	Games     string `yaml:"games,omitempty"`
	Sets      string `yaml:"sets,omitempty"`
	Server    int    `yaml:"server,omitempty"`
	Status    string `yaml:"status,omitempty"`
}

// Assertion validates the notices or the final state.
type Assertion struct {
	// Type is one of notice_contains, notice_order, notice_count, final_state.
	Type string `yaml:"type"`

	// Notice is the notice kind (notice_contains, notice_count).
	Notice scoring.NoticeKind `yaml:"notice,omitempty"`

	// Player narrows notice_contains to notices about this player.
	Player int `yaml:"player,omitempty"`

	// Notices is the expected relative order (notice_order).
	Notices []scoring.NoticeKind `yaml:"notices,omitempty"`

	// Count is the exact number of occurrences (notice_count).
	Count int `yaml:"count,omitempty"`

	// Expect maps final-state field names to values (final_state).
	// Subset match: only listed fields are checked.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Step actions.
const (
	ActionPoint   = "point"
	ActionPoints  = "points"
	ActionUndo    = "undo"
	ActionRetire  = "retire"
	ActionSuspend = "suspend"
)

// Assertion type constants.
const (
	AssertNoticeContains = "notice_contains"
	AssertNoticeOrder    = "notice_order"
	AssertNoticeCount    = "notice_count"
	AssertFinalState     = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	scenario.path = path
	return scenario, nil
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarios returns the .yaml and .yml files under root, sorted. root
// may also be a single scenario file. filter, if set, is a glob matched
// against the file name without extension.
func FindScenarios(root, filter string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != root && info.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	sort.Strings(files)
	return files, err
}

// MatchConfig decodes the config block through the match-file loader, so
// scenarios get the same schema checks and defaults as YAML match files.
func (s *Scenario) MatchConfig() (scoring.Config, error) {
	data, err := yaml.Marshal(&s.Config)
	if err != nil {
		return scoring.Config{}, fmt.Errorf("encode config: %w", err)
	}
	name := s.path
	if name == "" {
		name = s.Name + ".yaml"
	}
	return config.Parse(data, config.FormatYAML, name)
}

// Path returns the file the scenario was loaded from, or "".
func (s *Scenario) Path() string {
	return s.path
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Config.Kind != yaml.MappingNode {
		return fmt.Errorf("config mapping is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(fmt.Sprintf("setup[%d]", i), step); err != nil {
			return err
		}
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: expect is only allowed in flow steps", i)
		}
	}

	for i, step := range s.Flow {
		if err := validateStep(fmt.Sprintf("flow[%d]", i), step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(where string, step Step) error {
	switch step.Action {
	case ActionPoint, ActionPoints:
		if step.Player != 1 && step.Player != 2 {
			return fmt.Errorf("%s: player must be 1 or 2 for %s", where, step.Action)
		}
		if step.Type != "" && !step.Type.Valid() {
			return fmt.Errorf("%s: unknown point type %q", where, step.Type)
		}
		if step.Action == ActionPoints && step.Count <= 0 {
			return fmt.Errorf("%s: count must be positive for points", where)
		}
	case ActionRetire:
		if step.Player != 1 && step.Player != 2 {
			return fmt.Errorf("%s: player must be 1 or 2 for retire", where)
		}
	case ActionUndo, ActionSuspend:
	case "":
		return fmt.Errorf("%s: action is required", where)
	default:
		return fmt.Errorf("%s: unknown action %q", where, step.Action)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertNoticeContains:
		if a.Notice == "" {
			return fmt.Errorf("assertions[%d]: notice is required for notice_contains", index)
		}
	case AssertNoticeOrder:
		if len(a.Notices) == 0 {
			return fmt.Errorf("assertions[%d]: notices list is required for notice_order", index)
		}
	case AssertNoticeCount:
		if a.Notice == "" {
			return fmt.Errorf("assertions[%d]: notice is required for notice_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for notice_count", index)
		}
	case AssertFinalState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
