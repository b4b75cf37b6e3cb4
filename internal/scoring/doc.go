// Package scoring implements the tennis match scoring state machine.
//
// A Match converts a stream of "player X won a point (by way Y)" events into the
// full representation of an in-progress or completed match: game and set scores,
// tiebreak state, server rotation, statistics and the point log.
//
// ARCHITECTURE:
//
// One State value is owned by one Match. The Match is the only writer:
//   - ScorePoint / ScoreTyped apply a point
//   - Undo restores the most recent ledger snapshot
//   - Retire / Suspend end the match early
//
// Derived-state queries (IsBreakPoint, CountPointOpportunities, Status, ...) are
// pure methods on State. They are computed fresh on every call and never cached.
// The Match never calls them for presentation; collaborators do.
//
// Notices (change ends, break, set won, ...) are structured records appended to a
// bounded outbound queue. Dropping them has no effect on State.
//
// CONCURRENCY:
//
// A Match is single-threaded and non-reentrant. Callers that share a Match
// between goroutines must serialise access themselves (see internal/engine).
//
// UNDO:
//
// Before every mutating call the Match pushes a deep copy of State (without the
// point log) onto a fixed-capacity ring buffer of DefaultHistoryDepth entries.
// Undo pops it, restores every field and drops the point-log entry the undone
// call appended. Points older than the ledger depth cannot be recovered.
package scoring
