package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/polyinline/internal/config"
	"github.com/roach88/polyinline/internal/harness"
)

// LoadMode controls how errors are handled during scenario loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadedScenario is a parsed scenario together with its source file.
type LoadedScenario struct {
	Path     string
	Scenario *harness.Scenario
}

// LoadError is one failure to load a scenario or configuration.
type LoadError struct {
	Code    string
	File    string
	Message string
	Pos     token.Pos // CUE position, if the failure is in a configuration
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %s", e.File, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Line returns the CUE line of the failure, or 0.
func (e *LoadError) Line() int {
	if e.Pos.IsValid() {
		return e.Pos.Line()
	}
	return 0
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No scenario files found
	ErrCodeLoadFailed  = "E004" // Scenario unreadable or malformed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeConfig      = "E006" // Configuration rejected
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeStore       = "E008" // Journal database error
)

// LoadScenarios resolves every path (files or directories) to scenario
// files and parses them, checking each embedded configuration too. A
// filter, if set, is a glob matched against the file name without its
// extension.
//
// In LoadModeFailFast the first error is returned alone; in
// LoadModeCollectAll every file is tried and all errors are returned.
func LoadScenarios(paths []string, filter string, mode LoadMode) ([]LoadedScenario, []error) {
	var files []string
	for _, p := range paths {
		found, err := harness.FindScenarios(p)
		if err != nil {
			var nf *harness.ScenarioNotFoundError
			if errors.As(err, &nf) {
				return nil, []error{&LoadError{Code: ErrCodeNotFound, File: p, Message: "path not found"}}
			}
			return nil, []error{&LoadError{Code: ErrCodeScanError, File: p, Message: err.Error()}}
		}
		for _, f := range found {
			ok, err := matchFilter(f, filter)
			if err != nil {
				return nil, []error{&LoadError{Code: ErrCodeGeneric, Message: err.Error()}}
			}
			if ok {
				files = append(files, f)
			}
		}
	}

	var loaded []LoadedScenario
	var errs []error
	for _, f := range files {
		s, err := loadOne(f)
		if err != nil {
			errs = append(errs, err)
			if mode == LoadModeFailFast {
				return loaded, errs
			}
			continue
		}
		loaded = append(loaded, LoadedScenario{Path: f, Scenario: s})
	}
	return loaded, errs
}

func loadOne(path string) (*harness.Scenario, error) {
	s, err := harness.LoadScenario(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, File: path, Message: err.Error()}
	}
	if _, err := config.LoadString(s.Config); err != nil {
		return nil, convertConfigError(path, err)
	}
	return s, nil
}

// convertConfigError converts a configuration error to a LoadError with
// position info.
func convertConfigError(file string, err error) *LoadError {
	var cfgErr *config.ConfigError
	if errors.As(err, &cfgErr) {
		return &LoadError{Code: ErrCodeConfig, File: file, Message: cfgErr.Message, Pos: cfgErr.Pos}
	}
	return &LoadError{Code: ErrCodeConfig, File: file, Message: err.Error()}
}

func matchFilter(path, filter string) (bool, error) {
	if filter == "" {
		return true, nil
	}
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	matched, err := filepath.Match(filter, name)
	if err != nil {
		return false, fmt.Errorf("invalid filter pattern: %w", err)
	}
	return matched, nil
}

// errorCode returns the code of a LoadError, or ErrCodeGeneric.
func errorCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return ErrCodeGeneric
}
