// Package ir provides the canonical value form used to identify persisted
// match documents and point records.
//
// This package has no internal dependencies. Callers marshal their own types
// with encoding/json and hand the bytes to Parse; ir never imports the
// scoring model.
//
// Key design constraints:
//   - NO float types anywhere; every number in a match document is an integer
//   - Canonical bytes follow RFC 8785 (UTF-16 key order, NFC strings, no HTML escaping)
//   - Digests are domain-separated SHA-256, hex encoded
package ir
