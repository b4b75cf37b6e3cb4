package harness

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/matchpoint/internal/report"
	"github.com/roach88/matchpoint/internal/scoring"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Notices  []scoring.Notice
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Notices) > 0 {
		fmt.Fprintf(&buf, "\nNotices:\n")
		for i, n := range e.Notices {
			if n.Player != scoring.PlayerNone {
				fmt.Fprintf(&buf, "  [%d] %s player %d\n", i+1, n.Kind, n.Player)
			} else {
				fmt.Fprintf(&buf, "  [%d] %s\n", i+1, n.Kind)
			}
		}
	}

	return buf.String()
}

// assertNoticeContains checks that a notice of the given kind, and player
// if one is set, was emitted.
func assertNoticeContains(notices []scoring.Notice, assertion Assertion) error {
	for _, n := range notices {
		if n.Kind != assertion.Notice {
			continue
		}
		if assertion.Player == 0 || n.Player == scoring.Player(assertion.Player) {
			return nil
		}
	}

	expected := string(assertion.Notice)
	if assertion.Player != 0 {
		expected += fmt.Sprintf(" for player %d", assertion.Player)
	}
	return &AssertionError{
		Type:     AssertNoticeContains,
		Expected: expected,
		Actual:   "not emitted",
		Notices:  notices,
	}
}

// assertNoticeOrder checks that the first occurrences of the listed kinds
// appear in order. Other notices may come in between.
func assertNoticeOrder(notices []scoring.Notice, assertion Assertion) error {
	positions := make(map[scoring.NoticeKind]int)
	for i, n := range notices {
		if _, seen := positions[n.Kind]; !seen {
			positions[n.Kind] = i + 1
		}
	}

	for _, kind := range assertion.Notices {
		if positions[kind] == 0 {
			return &AssertionError{
				Type:     AssertNoticeOrder,
				Expected: fmt.Sprintf("all notices present: %v", assertion.Notices),
				Actual:   fmt.Sprintf("missing notice: %s", kind),
				Notices:  notices,
			}
		}
	}

	for i := 1; i < len(assertion.Notices); i++ {
		prev, curr := assertion.Notices[i-1], assertion.Notices[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertNoticeOrder,
				Expected: fmt.Sprintf("notices in order: %v", assertion.Notices),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Notices: notices,
			}
		}
	}
	return nil
}

// assertNoticeCount checks that a notice kind was emitted exactly Count times.
func assertNoticeCount(notices []scoring.Notice, assertion Assertion) error {
	count := 0
	for _, n := range notices {
		if n.Kind == assertion.Notice {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertNoticeCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Notice),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Notices:  notices,
		}
	}
	return nil
}

// assertFinalState checks the expected fields against the final state.
// Fields are compared in sorted order so the first reported mismatch is
// stable.
func assertFinalState(final *scoring.State, assertion Assertion) error {
	actual := StateFields(final)

	keys := make([]string, 0, len(assertion.Expect))
	for k := range assertion.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		expectedValue := assertion.Expect[key]
		actualValue, exists := actual[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("known fields: %s", strings.Join(fieldNames(actual), ", ")),
			}
		}

		if !stateValuesEqual(expectedValue, actualValue) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expectedValue, expectedValue),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actualValue, actualValue),
			}
		}
	}
	return nil
}

// StateFields flattens the assertable parts of a state into a map keyed by
// the names used in final_state assertions.
func StateFields(s *scoring.State) map[string]any {
	retirement := "none"
	switch {
	case s.Retirement.Suspended:
		retirement = "suspended"
	case s.Retirement.Player.Valid():
		retirement = s.Retirement.Player.String()
	}

	return map[string]any{
		"matchOver":        s.MatchOver,
		"winner":           int(s.Winner),
		"server":           int(s.Server),
		"currentSet":       s.CurrentSet,
		"isTiebreak":       s.IsTiebreak,
		"sets":             report.SetLine(s),
		"setsWon":          s.SetsWon.String(),
		"games":            s.GameScore(),
		"points":           s.PointScore(),
		"status":           string(s.Status().Kind),
		"banner":           report.Banner(s),
		"result":           report.Result(s),
		"retirement":       retirement,
		"pointsPlayed":     len(s.PointLog),
		"aces":             s.Stats.Aces.String(),
		"doubleFaults":     s.Stats.DoubleFaults.String(),
		"unforcedErrors":   s.Stats.UnforcedErrors.String(),
		"breakPointsWon":   s.Stats.BreakPointsWon.String(),
		"breakPointsFaced": s.Stats.BreakPointsFaced.String(),
		"pointsWon":        s.Stats.PointsWon.String(),
	}
}

func fieldNames(m map[string]any) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// stateValuesEqual compares a YAML-decoded expected value with a state
// field. YAML numbers may arrive as int, int64 or float64.
func stateValuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	if actualInt, ok := actual.(int); ok {
		switch exp := expected.(type) {
		case int:
			return exp == actualInt
		case int64:
			return exp == int64(actualInt)
		case float64:
			return exp == float64(actualInt)
		}
		return false
	}

	switch exp := expected.(type) {
	case string:
		actualStr, ok := actual.(string)
		return ok && exp == actualStr
	case bool:
		actualBool, ok := actual.(bool)
		return ok && exp == actualBool
	}

	return reflect.DeepEqual(expected, actual)
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string
	notices := result.notices()

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertNoticeContains:
			err = assertNoticeContains(notices, assertion)
		case AssertNoticeOrder:
			err = assertNoticeOrder(notices, assertion)
		case AssertNoticeCount:
			err = assertNoticeCount(notices, assertion)
		case AssertFinalState:
			err = assertFinalState(&result.Final, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
