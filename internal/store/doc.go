// Package store provides SQLite-backed durable storage for match documents.
//
// The store keeps:
//   - Matches: one row per match with the full State JSON and its digest
//   - Points: the point log mirrored row-per-point with content-addressed IDs
//
// # Critical Patterns
//
// Logical ordering
//   - matches.seq is a logical write counter, NEVER a timestamp
//   - "Most recent" queries order by seq DESC, id COLLATE BINARY ASC
//
// Documents are validated on load
//   - A row that fails to decode or breaks a State invariant is deleted and
//     reported as ErrDiscarded; callers start fresh instead of receiving a
//     partially valid state
//   - A finished match is never handed out for resumption (ErrNotResumable)
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity (points cascade with matches)
//
// Digests and point IDs are computed by internal/ir using RFC 8785 canonical
// JSON and SHA-256 with domain separation.
package store
