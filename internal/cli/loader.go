package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/hyperdem/internal/config"
	"github.com/roach88/hyperdem/internal/decoder"
	"github.com/roach88/hyperdem/internal/dem"
	"github.com/roach88/hyperdem/internal/frame"
	"github.com/roach88/hyperdem/internal/herald"
	"github.com/roach88/hyperdem/internal/native"
	"github.com/roach88/hyperdem/internal/refcircuit"
)

// LoadError is an input that could not be read or parsed.
type LoadError struct {
	Code    string
	Path    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// loadCircuit reads and parses a native circuit file.
func loadCircuit(path string) (*refcircuit.Circuit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeReadFailed, Path: path, Message: "cannot read circuit", Err: err}
	}
	c, err := refcircuit.ParseNative(string(data))
	if err != nil {
		return nil, &LoadError{Code: errorCode(err), Path: path, Message: err.Error(), Err: err}
	}
	return c, nil
}

// loadErrorModel reads and parses a native error model file.
func loadErrorModel(path string) (*dem.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeReadFailed, Path: path, Message: "cannot read error model", Err: err}
	}
	m, err := dem.Parse(string(data))
	if err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Path: path, Message: err.Error(), Err: err}
	}
	return m, nil
}

// loadConfig loads a CUE decoder configuration, or the defaults when path
// is empty.
func loadConfig(path string) (decoder.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return decoder.Config{}, &LoadError{Code: errorCode(err), Path: path, Message: err.Error(), Err: err}
	}
	return cfg, nil
}

// compileInput compiles a circuit, or a native error model when isModel is
// set.
func compileInput(d *decoder.Decoder, path string, isModel bool) (*decoder.Compiled, error) {
	if isModel {
		m, err := loadErrorModel(path)
		if err != nil {
			return nil, err
		}
		return d.CompileForErrorModel(m)
	}
	c, err := loadCircuit(path)
	if err != nil {
		return nil, err
	}
	return d.CompileForCircuit(c)
}

// errorCode maps package errors to the code shown to users.
func errorCode(err error) string {
	var (
		loadErr    *LoadError
		circuitErr *refcircuit.CircuitError
		heraldErr  *herald.HeraldError
		frameErr   *frame.AnalysisError
		configErr  *config.ConfigError
		nativeErr  *native.ParseError
		demErr     *dem.ParseError
		modelErr   *dem.ModelError
	)
	switch {
	case errors.As(err, &loadErr):
		return loadErr.Code
	case errors.As(err, &circuitErr):
		return string(circuitErr.Code)
	case errors.As(err, &heraldErr):
		return string(heraldErr.Code)
	case errors.As(err, &frameErr):
		return string(frameErr.Code)
	case errors.As(err, &configErr):
		return configErr.Code
	case errors.As(err, &nativeErr), errors.As(err, &demErr):
		return ErrCodeParse
	case errors.As(err, &modelErr):
		return "UNKNOWN_DETECTOR"
	case decoder.IsSolverFailure(err):
		return decoder.ErrCodeSolverFailure
	default:
		return ErrCodeGeneric
	}
}
