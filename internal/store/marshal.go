package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/matchpoint/internal/scoring"
)

// marshalState serializes a State as the persisted match document.
// Field order follows the State struct, so equal states yield equal bytes.
func marshalState(s scoring.State) ([]byte, error) {
	if s.PointLog == nil {
		s.PointLog = []scoring.PointRecord{}
	}
	doc, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	return doc, nil
}

// unmarshalState strictly decodes a match document and checks it against
// the State invariants. Unknown fields, trailing data and invariant
// violations are all errors.
func unmarshalState(doc []byte) (scoring.State, error) {
	var s scoring.State
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return scoring.State{}, fmt.Errorf("unmarshal state: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return scoring.State{}, fmt.Errorf("unmarshal state: trailing data after document")
	}
	if err := scoring.ValidateState(&s); err != nil {
		return scoring.State{}, fmt.Errorf("unmarshal state: %w", err)
	}
	return s, nil
}

// marshalPoint serializes one point-log entry.
func marshalPoint(rec scoring.PointRecord) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal point: %w", err)
	}
	return data, nil
}

// unmarshalPoint decodes one point-log entry.
func unmarshalPoint(data []byte) (scoring.PointRecord, error) {
	var rec scoring.PointRecord
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rec); err != nil {
		return scoring.PointRecord{}, fmt.Errorf("unmarshal point: %w", err)
	}
	return rec, nil
}
