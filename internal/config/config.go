// Package config loads match configurations from CUE, YAML and JSON files.
//
// Every format is checked against the embedded #MatchConfig CUE schema
// before defaults are applied and scoring.Config.Validate runs, so a file
// with an unknown key, a misspelled enumeration or a missing player name is
// rejected with an INVALID_CONFIG error listing each problem.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/matchpoint/internal/scoring"
)

//go:embed schema.cue
var schemaCUE string

// ErrUnsupportedFormat is returned for a file extension no loader handles.
var ErrUnsupportedFormat = errors.New("unsupported config file extension")

// Format identifies a configuration file syntax.
type Format string

const (
	FormatCUE  Format = "cue"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return FormatCUE, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w %q (want .cue, .yaml, .yml or .json)", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// fileConfig mirrors #MatchConfig. Pointer fields distinguish "absent"
// from zero values.
type fileConfig struct {
	Umpire       *string `json:"umpire,omitempty" yaml:"umpire"`
	Player1      *string `json:"player1,omitempty" yaml:"player1"`
	Player2      *string `json:"player2,omitempty" yaml:"player2"`
	CourtType    *string `json:"courtType,omitempty" yaml:"courtType"`
	Format       *int    `json:"format,omitempty" yaml:"format"`
	FinalSetType *string `json:"finalSetType,omitempty" yaml:"finalSetType"`
	DeuceType    *string `json:"deuceType,omitempty" yaml:"deuceType"`
	FirstServer  *int    `json:"firstServer,omitempty" yaml:"firstServer"`
}

// fields returns the keys that were present, for schema unification.
func (f fileConfig) fields() map[string]any {
	out := make(map[string]any)
	putString := func(k string, v *string) {
		if v != nil {
			out[k] = *v
		}
	}
	putInt := func(k string, v *int) {
		if v != nil {
			out[k] = *v
		}
	}
	putString("umpire", f.Umpire)
	putString("player1", f.Player1)
	putString("player2", f.Player2)
	putString("courtType", f.CourtType)
	putInt("format", f.Format)
	putString("finalSetType", f.FinalSetType)
	putString("deuceType", f.DeuceType)
	putInt("firstServer", f.FirstServer)
	return out
}

func (f fileConfig) toConfig() scoring.Config {
	var c scoring.Config
	if f.Umpire != nil {
		c.Umpire = *f.Umpire
	}
	if f.Player1 != nil {
		c.Player1 = *f.Player1
	}
	if f.Player2 != nil {
		c.Player2 = *f.Player2
	}
	if f.CourtType != nil {
		c.CourtType = scoring.CourtType(*f.CourtType)
	}
	if f.Format != nil {
		c.Format = scoring.Format(*f.Format)
	}
	if f.FinalSetType != nil {
		c.FinalSetType = scoring.FinalSetRule(*f.FinalSetType)
	}
	if f.DeuceType != nil {
		c.DeuceType = scoring.DeuceRule(*f.DeuceType)
	}
	if f.FirstServer != nil {
		c.FirstServer = scoring.Player(*f.FirstServer)
	}
	return c
}

// LoadMatchConfig reads the file at path and returns a validated config
// with defaults applied.
func LoadMatchConfig(path string) (scoring.Config, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return scoring.Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return scoring.Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, format, path)
}

// Parse decodes data in the given format. name labels CUE error positions.
func Parse(data []byte, format Format, name string) (scoring.Config, error) {
	ctx := cuecontext.New()

	var (
		fc  fileConfig
		err error
	)
	switch format {
	case FormatCUE:
		fc, err = decodeCUE(ctx, data, name)
	case FormatYAML:
		fc, err = decodeYAML(data)
		if err == nil {
			err = checkSchema(ctx, ctx.Encode(fc.fields()))
		}
	case FormatJSON:
		fc, err = decodeJSON(data)
		if err == nil {
			err = checkSchema(ctx, ctx.Encode(fc.fields()))
		}
	default:
		return scoring.Config{}, fmt.Errorf("unknown config format %q", format)
	}
	if err != nil {
		return scoring.Config{}, err
	}

	cfg := fc.toConfig().WithDefaults()
	if err := cfg.Validate(); err != nil {
		return scoring.Config{}, err
	}
	return cfg, nil
}

func decodeCUE(ctx *cue.Context, data []byte, name string) (fileConfig, error) {
	v := ctx.CompileBytes(data, cue.Filename(name))
	if err := v.Err(); err != nil {
		return fileConfig{}, invalid(err)
	}
	if err := checkSchema(ctx, v); err != nil {
		return fileConfig{}, err
	}
	var fc fileConfig
	if err := v.Decode(&fc); err != nil {
		return fileConfig{}, invalid(err)
	}
	return fc, nil
}

func decodeYAML(data []byte) (fileConfig, error) {
	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		return fileConfig{}, scoring.NewInvalidConfigError([]string{fmt.Sprintf("yaml: %v", err)})
	}
	return fc, nil
}

func decodeJSON(data []byte) (fileConfig, error) {
	var fc fileConfig
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return fileConfig{}, scoring.NewInvalidConfigError([]string{fmt.Sprintf("json: %v", err)})
	}
	return fc, nil
}

// checkSchema unifies v with #MatchConfig and requires a concrete result.
func checkSchema(ctx *cue.Context, v cue.Value) error {
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#MatchConfig"))
	unified := def.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return invalid(err)
	}
	return nil
}

// invalid converts a CUE error into INVALID_CONFIG with one problem per
// CUE error.
func invalid(err error) error {
	var problems []string
	for _, e := range cueerrors.Errors(err) {
		problems = append(problems, strings.TrimSpace(e.Error()))
	}
	if len(problems) == 0 {
		problems = []string{err.Error()}
	}
	return scoring.NewInvalidConfigError(problems)
}
