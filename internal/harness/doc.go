// Package harness runs conformance scenarios against the scoring engine.
//
// A scenario is a YAML file that configures one match, plays a sequence of
// commands through a real engine.Engine backed by an in-memory store, and
// then checks the notices it produced and the final state.
//
// # Scenario Format
//
//	name: tiebreak_first_set
//	description: "Set 1 goes to a tiebreak won 7-5"
//	config:
//	  player1: Alice
//	  player2: Bob
//	  deuceType: noAd
//	setup:
//	  - action: points
//	    player: 1
//	    count: 20
//	flow:
//	  - action: point
//	    player: 2
//	    type: ace
//	    expect:
//	      points: "15-0"
//	  - action: undo
//	    expect:
//	      error: CANNOT_UNDO
//	assertions:
//	  - type: notice_contains
//	    notice: break
//	    player: 2
//	  - type: final_state
//	    expect: { matchOver: true, winner: 1, sets: "6-0 6-0" }
//
// Actions are point, points (repeated count times), undo, retire and
// suspend. The config block accepts the same fields as a YAML match file
// and is checked against the same CUE schema.
//
// # Assertion Types
//
//   - notice_contains: a notice of the given kind (and player, if set) was emitted
//   - notice_order: the listed notice kinds appear in this relative order
//   - notice_count: a notice kind was emitted exactly count times
//   - final_state: fields of the final state have the expected values
//
// # Deterministic Testing
//
// Scenarios run with a fixed wall clock that advances by PointInterval on
// every reading and with sequential match IDs, so traces and summaries are
// byte-identical across runs. Every scenario is also replayed from its
// stored point log; a replay that does not reproduce the stored digest
// fails the scenario.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/straight_sets.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, e := range result.Errors {
//	    log.Println(e)
//	}
package harness
