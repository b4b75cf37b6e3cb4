// Package engine implements the MatchPoint command loop.
//
// The engine owns every live scoring.Match in the process. Commands (new,
// point, undo, retire, suspend, show, delete) reach it either through the
// single-writer Run loop (Submit, used by the HTTP server) or directly
// through Process (used by one-shot CLI commands).
//
// ARCHITECTURE:
//
// Single-Writer Command Loop:
// All matches are mutated by one goroutine. This ensures:
// - No locking inside scoring.Match, which is not safe for concurrent use
// - A total order of accepted commands, stamped by the logical Clock
// - Each accepted command is saved before its outcome is returned
//
// Command Processing Flow:
// 1. Submit enqueues the command with a reply channel
// 2. Run dequeues commands one at a time
// 3. The match is taken from the live cache or resumed from the store
// 4. The scoring call is applied; rule violations return scoring.Error unchanged
// 5. The new state is saved and its notices drained into the Outcome
// 6. The stamped Outcome goes to the UpdateSink, still on the engine goroutine
//
// CRITICAL PATTERNS:
//
// Logical Clock
// Outcomes carry seq from Clock.Next(). Wall time is only used for the
// timestamps recorded inside the match document.
//
// Resume Boundary
// A match resumed from the store starts with an empty undo ledger, and a
// finished match is never resumed. WithReplayResume moves the boundary:
// the match is rebuilt from its stored point log (store.Rebuild), so the
// ledger and a finished match's final call can still be undone.
package engine
