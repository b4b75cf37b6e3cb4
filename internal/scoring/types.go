package scoring

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Player identifies one side of the match. PlayerNone is only valid where the
// model allows "nobody" (advantage, winner).
type Player int

const (
	PlayerNone Player = 0
	Player1    Player = 1
	Player2    Player = 2
)

// Valid reports whether p is Player1 or Player2.
func (p Player) Valid() bool {
	return p == Player1 || p == Player2
}

// Opponent returns the other player. PlayerNone has no opponent.
func (p Player) Opponent() Player {
	switch p {
	case Player1:
		return Player2
	case Player2:
		return Player1
	default:
		return PlayerNone
	}
}

// Index returns the zero-based slot for p in per-player arrays.
// Callers must check Valid first.
func (p Player) Index() int {
	return int(p) - 1
}

func (p Player) String() string {
	switch p {
	case Player1:
		return "player1"
	case Player2:
		return "player2"
	default:
		return "none"
	}
}

// ParsePlayer accepts "1", "2", "p1", "p2", "player1" and "player2".
func ParsePlayer(s string) (Player, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "p1", "player1":
		return Player1, nil
	case "2", "p2", "player2":
		return Player2, nil
	}
	return PlayerNone, NewInvalidPlayerError(s)
}

// PointType records how a point was won.
type PointType string

const (
	PointNormal        PointType = "normal"
	PointAce           PointType = "ace"
	PointDoubleFault   PointType = "doubleFault"
	PointUnforcedError PointType = "unforcedError"
)

// Valid reports whether t is one of the four point types.
func (t PointType) Valid() bool {
	switch t {
	case PointNormal, PointAce, PointDoubleFault, PointUnforcedError:
		return true
	}
	return false
}

// DeuceRule selects how a game at 40-40 is resolved.
type DeuceRule string

const (
	DeuceAdvantage DeuceRule = "advantage"
	DeuceNoAd      DeuceRule = "noAd"
)

// Valid reports whether r is a known deuce rule.
func (r DeuceRule) Valid() bool {
	return r == DeuceAdvantage || r == DeuceNoAd
}

// FinalSetRule selects how the deciding set is played at 6-6.
type FinalSetRule string

const (
	// FinalSetTiebreak plays a regular tiebreak to 7 at 6-6.
	FinalSetTiebreak FinalSetRule = "tiebreak"
	// FinalSetTiebreak10 plays a super-tiebreak to 10 at 6-6.
	FinalSetTiebreak10 FinalSetRule = "tiebreak10"
	// FinalSetAdvantage plays on past 6-6 without a tiebreak.
	FinalSetAdvantage FinalSetRule = "advantage"
)

// Valid reports whether r is a known final-set rule.
func (r FinalSetRule) Valid() bool {
	switch r {
	case FinalSetTiebreak, FinalSetTiebreak10, FinalSetAdvantage:
		return true
	}
	return false
}

// Format is the maximum number of sets (best-of).
type Format int

const (
	BestOf1 Format = 1
	BestOf3 Format = 3
	BestOf5 Format = 5
)

// Valid reports whether f is best of 1, 3 or 5.
func (f Format) Valid() bool {
	return f == BestOf1 || f == BestOf3 || f == BestOf5
}

// SetsNeeded returns ceil(format/2), the sets required to win the match.
func (f Format) SetsNeeded() int {
	return (int(f) + 1) / 2
}

// CourtType is a display-only surface tag.
type CourtType string

const (
	CourtHard   CourtType = "Hard"
	CourtClay   CourtType = "Clay"
	CourtGrass  CourtType = "Grass"
	CourtCarpet CourtType = "Carpet"
	CourtIndoor CourtType = "Indoor"
)

// Valid reports whether c is a known surface.
func (c CourtType) Valid() bool {
	switch c {
	case CourtHard, CourtClay, CourtGrass, CourtCarpet, CourtIndoor:
		return true
	}
	return false
}

// Retirement records an early end of the match: a player retiring, or the
// umpire suspending play. The zero value means the match was not cut short.
//
// The JSON form is null, 1, 2 or "suspended".
type Retirement struct {
	Player    Player
	Suspended bool
}

// None reports whether the match ended (or is running) without retirement.
func (r Retirement) None() bool {
	return r.Player == PlayerNone && !r.Suspended
}

// RetiredBy returns a Retirement for player p.
func RetiredBy(p Player) Retirement {
	return Retirement{Player: p}
}

// Suspension returns the umpire-suspended Retirement.
func Suspension() Retirement {
	return Retirement{Suspended: true}
}

// MarshalJSON implements json.Marshaler.
func (r Retirement) MarshalJSON() ([]byte, error) {
	switch {
	case r.Suspended:
		return []byte(`"suspended"`), nil
	case r.Player.Valid():
		return []byte(fmt.Sprintf("%d", r.Player)), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Retirement) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*r = Retirement{}
	case string:
		if v != "suspended" {
			return fmt.Errorf("retirement: unknown value %q", v)
		}
		*r = Suspension()
	case float64:
		p := Player(int(v))
		if float64(int(v)) != v || !p.Valid() {
			return fmt.Errorf("retirement: invalid player %v", v)
		}
		*r = RetiredBy(p)
	default:
		return fmt.Errorf("retirement: unsupported JSON type %T", raw)
	}
	return nil
}

// Config describes one match. It is supplied once and never changes.
type Config struct {
	Umpire       string       `json:"umpire"`
	Player1      string       `json:"player1"`
	Player2      string       `json:"player2"`
	CourtType    CourtType    `json:"courtType"`
	Format       Format       `json:"format"`
	FinalSetType FinalSetRule `json:"finalSetType"`
	DeuceType    DeuceRule    `json:"deuceType"`
	FirstServer  Player       `json:"firstServer"`
}

// WithDefaults returns a copy of c with names trimmed and NFC normalised and
// unset enumerations filled: Hard court, best of 3, standard final-set
// tiebreak, advantage deuce, player 1 serving first.
func (c Config) WithDefaults() Config {
	c.Umpire = normalizeName(c.Umpire)
	c.Player1 = normalizeName(c.Player1)
	c.Player2 = normalizeName(c.Player2)
	if c.CourtType == "" {
		c.CourtType = CourtHard
	}
	if c.Format == 0 {
		c.Format = BestOf3
	}
	if c.FinalSetType == "" {
		c.FinalSetType = FinalSetTiebreak
	}
	if c.DeuceType == "" {
		c.DeuceType = DeuceAdvantage
	}
	if c.FirstServer == PlayerNone {
		c.FirstServer = Player1
	}
	return c
}

// Validate rejects configurations the engine cannot score. It does not apply
// defaults; call WithDefaults first when zero values should be filled.
func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Player1) == "" {
		problems = append(problems, "player1 name is required")
	}
	if strings.TrimSpace(c.Player2) == "" {
		problems = append(problems, "player2 name is required")
	}
	if !c.Format.Valid() {
		problems = append(problems, fmt.Sprintf("format must be 1, 3 or 5, got %d", c.Format))
	}
	if !c.FinalSetType.Valid() {
		problems = append(problems, fmt.Sprintf("unknown finalSetType %q", c.FinalSetType))
	}
	if !c.DeuceType.Valid() {
		problems = append(problems, fmt.Sprintf("unknown deuceType %q", c.DeuceType))
	}
	if !c.FirstServer.Valid() {
		problems = append(problems, fmt.Sprintf("firstServer must be 1 or 2, got %d", c.FirstServer))
	}
	if c.CourtType != "" && !c.CourtType.Valid() {
		problems = append(problems, fmt.Sprintf("unknown courtType %q", c.CourtType))
	}
	if len(problems) > 0 {
		return NewInvalidConfigError(problems)
	}
	return nil
}

// PlayerName returns the configured display name for p.
func (c Config) PlayerName(p Player) string {
	switch p {
	case Player1:
		return c.Player1
	case Player2:
		return c.Player2
	default:
		return ""
	}
}

func normalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
