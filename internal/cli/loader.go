package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/token"

	"github.com/roach88/rete/internal/compiler"
)

// LoadError represents an error that occurred while loading rules.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadResult contains the compiled rules of a directory.
type LoadResult struct {
	Rules     *compiler.Ruleset
	FileCount int // Number of CUE files found
}

// LoadRules compiles the CUE package in dir. Every failure is a *LoadError.
func LoadRules(dir string) (*LoadResult, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("rules directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing rules directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	rs, err := compiler.LoadDir(dir)
	if err != nil {
		return nil, convertCompileError(err)
	}
	if len(rs.Rules) == 0 {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: "no rules found"}
	}
	return &LoadResult{Rules: rs, FileCount: len(files)}, nil
}

// FindCUEFiles returns the .cue files directly in dir. Subdirectories are
// separate CUE packages and are not loaded.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != dir {
			return filepath.SkipDir
		}
		if !d.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error

	// Facts and journal errors
	ErrCodeFactsInvalid   = "E010" // Facts file unreadable or malformed
	ErrCodeStepFailed     = "E011" // Assert or retract rejected by the engine
	ErrCodeStoreFailed    = "E012" // Journal open/read/write failed
	ErrCodeReplayMismatch = "E013" // Journal disagrees with the rebuilt network
	ErrCodeScenarioFailed = "E014" // One or more test scenarios failed

	// Rule compile errors; validation errors use the compiler's E1xx codes
	ErrCodeInvalidSchema  = "E120" // schema list malformed
	ErrCodeInvalidWhen    = "E121" // when clause malformed
	ErrCodeInvalidArity   = "E122" // pattern width differs from schema
	ErrCodeUnknownField   = "E123" // pattern names a field not in the schema
	ErrCodeInvalidVarTerm = "E124" // malformed variable term
	ErrCodeInvalidType    = "E125" // unsupported constant type (e.g., float)
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "schema":
		return ErrCodeInvalidSchema
	case "when":
		return ErrCodeInvalidWhen
	case "when.arity":
		return ErrCodeInvalidArity
	case "when.field":
		return ErrCodeUnknownField
	case "when.var":
		return ErrCodeInvalidVarTerm
	case "type":
		return ErrCodeInvalidType
	case "cue":
		return ErrCodeBuildFailed
	default:
		return ErrCodeGeneric
	}
}
