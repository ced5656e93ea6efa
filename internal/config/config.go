// Package config loads decoder configuration from CUE.
//
// A configuration file sets top-level fields of the embedded #Config
// schema; unknown fields are rejected and unset fields take their
// defaults:
//
//	workers:        4
//	failure_policy: "random"
//	timeout:        "250ms"
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/hyperdem/internal/decoder"
)

//go:embed schema.cue
var schemaSource string

// Error codes.
const (
	ErrCodeRead     = "CONFIG_READ"
	ErrCodeSyntax   = "CONFIG_SYNTAX"
	ErrCodeSchema   = "CONFIG_SCHEMA"
	ErrCodeSemantic = "CONFIG_INVALID"
)

// ConfigError reports a configuration that could not be loaded.
type ConfigError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *ConfigError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func cueError(code string, err error) *ConfigError {
	ce := &ConfigError{Code: code, Message: cueerrors.Details(err, nil)}
	if positions := cueerrors.Positions(err); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}

// fileConfig mirrors #Config.
type fileConfig struct {
	Solver            string  `json:"solver"`
	MaxNullity        int     `json:"max_nullity"`
	Timeout           string  `json:"timeout"`
	FalsePositiveRate float64 `json:"false_positive_rate"`
	ProbabilityFloor  float64 `json:"probability_floor"`
	FailurePolicy     string  `json:"failure_policy"`
	Workers           int     `json:"workers"`
	Seed              uint64  `json:"seed"`
	CacheSize         int     `json:"cache_size"`
}

// Load reads and validates a configuration file.
func Load(path string) (decoder.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return decoder.Config{}, &ConfigError{Code: ErrCodeRead, Message: err.Error()}
	}
	return Parse(path, data)
}

// Parse validates CUE source against #Config and converts it.
func Parse(filename string, data []byte) (decoder.Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return decoder.Config{}, fmt.Errorf("embedded schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return decoder.Config{}, cueError(ErrCodeSyntax, err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return decoder.Config{}, cueError(ErrCodeSchema, err)
	}

	var f fileConfig
	if err := unified.Decode(&f); err != nil {
		return decoder.Config{}, cueError(ErrCodeSchema, err)
	}

	timeout, err := time.ParseDuration(f.Timeout)
	if err != nil {
		return decoder.Config{}, &ConfigError{
			Code:    ErrCodeSemantic,
			Message: fmt.Sprintf("timeout: %v", err),
			Pos:     unified.LookupPath(cue.ParsePath("timeout")).Pos(),
		}
	}

	cfg := decoder.Config{
		Solver:            f.Solver,
		MaxNullity:        f.MaxNullity,
		Timeout:           timeout,
		FalsePositiveRate: f.FalsePositiveRate,
		ProbabilityFloor:  f.ProbabilityFloor,
		FailurePolicy:     decoder.FailurePolicy(f.FailurePolicy),
		Workers:           f.Workers,
		Seed:              f.Seed,
		CacheSize:         f.CacheSize,
	}
	if err := cfg.Validate(); err != nil {
		return decoder.Config{}, &ConfigError{Code: ErrCodeSemantic, Message: err.Error()}
	}
	return cfg, nil
}

// Default returns the configuration of an empty file.
func Default() decoder.Config {
	cfg, err := Parse("default.cue", nil)
	if err != nil {
		panic(err)
	}
	return cfg
}
