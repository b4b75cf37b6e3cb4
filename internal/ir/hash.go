package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix allows a future algorithm migration.
const (
	DomainState = "matchpoint/state/v1"
	DomainPoint = "matchpoint/point/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data), hex encoded.
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// StateDigest computes the digest of a JSON match document. Two documents
// that differ only in key order, whitespace or Unicode normalisation share
// a digest.
func StateDigest(doc []byte) (string, error) {
	canonical, err := CanonicalJSON(doc)
	if err != nil {
		return "", fmt.Errorf("StateDigest: %w", err)
	}
	return hashWithDomain(DomainState, canonical), nil
}

// PointID computes the content-addressed ID of the point at index (0-based)
// in a match's point log. The ID is stable across replays given the same
// match ID and record.
func PointID(matchID string, index int, record []byte) (string, error) {
	rec, err := Parse(record)
	if err != nil {
		return "", fmt.Errorf("PointID: %w", err)
	}
	canonical, err := Canonical(Object{
		"match_id": String(matchID),
		"index":    Int(index),
		"record":   rec,
	})
	if err != nil {
		return "", fmt.Errorf("PointID: %w", err)
	}
	return hashWithDomain(DomainPoint, canonical), nil
}

// MustStateDigest is like StateDigest but panics on error.
// Use only in tests or when the document is known to be valid.
func MustStateDigest(doc []byte) string {
	d, err := StateDigest(doc)
	if err != nil {
		panic(err)
	}
	return d
}
