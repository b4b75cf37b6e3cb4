package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/matchpoint/internal/scoring"
)

func TestMarshalState_Deterministic(t *testing.T) {
	state := playedMatch(t, scoring.Player1, scoring.Player2).State()

	a, err := marshalState(state)
	require.NoError(t, err)
	b, err := marshalState(state.Clone())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMarshalState_NilPointLogIsEmptyArray(t *testing.T) {
	state := playedMatch(t).State()
	state.PointLog = nil

	doc, err := marshalState(state)
	require.NoError(t, err)
	assert.Contains(t, string(doc), `"pointLog":[]`)
}

func TestUnmarshalState_RoundTrip(t *testing.T) {
	m := playedMatch(t, scoring.Player2, scoring.Player2)
	require.NoError(t, m.Retire(scoring.Player2))
	state := m.State()

	doc, err := marshalState(state)
	require.NoError(t, err)
	got, err := unmarshalState(doc)
	require.NoError(t, err)
	assert.Equal(t, state, got)
}

func TestUnmarshalPoint_RejectsUnknownField(t *testing.T) {
	_, err := unmarshalPoint([]byte(`{"set":1,"extra":true}`))
	assert.Error(t, err)
}
