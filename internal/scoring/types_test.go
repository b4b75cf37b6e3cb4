package scoring

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlayer(t *testing.T) {
	tests := []struct {
		in      string
		want    Player
		wantErr bool
	}{
		{"1", Player1, false},
		{"p2", Player2, false},
		{" Player1 ", Player1, false},
		{"player2", Player2, false},
		{"3", PlayerNone, true},
		{"", PlayerNone, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePlayer(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, ErrCodeInvalidPlayer, CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRetirementJSON(t *testing.T) {
	tests := []struct {
		r    Retirement
		json string
	}{
		{Retirement{}, "null"},
		{RetiredBy(Player1), "1"},
		{RetiredBy(Player2), "2"},
		{Suspension(), `"suspended"`},
	}

	for _, tt := range tests {
		t.Run(tt.json, func(t *testing.T) {
			data, err := json.Marshal(tt.r)
			require.NoError(t, err)
			assert.Equal(t, tt.json, string(data))

			var got Retirement
			require.NoError(t, json.Unmarshal(data, &got))
			assert.Equal(t, tt.r, got)
		})
	}

	var r Retirement
	assert.Error(t, json.Unmarshal([]byte(`3`), &r))
	assert.Error(t, json.Unmarshal([]byte(`1.5`), &r))
	assert.Error(t, json.Unmarshal([]byte(`"gone"`), &r))
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{Player1: "  Aná  ", Player2: "Bea"}.WithDefaults()

	assert.Equal(t, "Aná", cfg.Player1, "names are trimmed and NFC normalised")
	assert.Equal(t, CourtHard, cfg.CourtType)
	assert.Equal(t, BestOf3, cfg.Format)
	assert.Equal(t, FinalSetTiebreak, cfg.FinalSetType)
	assert.Equal(t, DeuceAdvantage, cfg.DeuceType)
	assert.Equal(t, Player1, cfg.FirstServer)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate_ReportsEveryProblem(t *testing.T) {
	err := Config{Format: 4, DeuceType: "x", FinalSetType: "y"}.Validate()
	require.Error(t, err)
	assert.True(t, IsInvalidConfig(err))

	msg := err.Error()
	for _, want := range []string{"player1", "player2", "format", "deuceType", "finalSetType", "firstServer"} {
		assert.True(t, strings.Contains(msg, want), "missing %q in %q", want, msg)
	}
}

func TestStateJSON_FieldOrder(t *testing.T) {
	m := newTestMatch(t)
	scoreN(t, m, Player1, 1)

	data, err := json.Marshal(m.State())
	require.NoError(t, err)

	order := []string{
		`"config":`, `"server":`, `"currentSet":`, `"setScores":`, `"setsWon":`, `"gamePoints":`,
		`"isTiebreak":`, `"tiebreakTarget":`, `"tiebreakFirstServer":`, `"tiebreakPoints":`,
		`"advantage":`, `"matchOver":`, `"winner":`, `"retirement":`, `"stats":`,
		`"tiebreakFinalScores":`, `"startTime":`, `"endTime":`, `"pointLog":`,
	}
	doc := string(data)
	last := -1
	for _, key := range order {
		idx := strings.Index(doc, key)
		require.Greater(t, idx, last, "%s out of order", key)
		last = idx
	}
	assert.Contains(t, doc, `"tiebreakFinalScores":[null]`)
	assert.Contains(t, doc, `"endTime":null`)
	assert.NotContains(t, doc, "history")
}
