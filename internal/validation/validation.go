// Package validation provides input validation for values that arrive from
// the hook host: working directories, session IDs and relative state paths.
package validation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// Validation errors
var (
	ErrNullByte         = errors.New("path contains null byte")
	ErrPathEscape       = errors.New("path escapes working directory")
	ErrInvalidWorkDir   = errors.New("invalid working directory")
	ErrSessionIDEmpty   = errors.New("session ID is empty")
	ErrSessionIDTooLong = errors.New("session ID too long")
	ErrSessionIDInvalid = errors.New("session ID contains invalid characters")
)

// MaxSessionIDLength is the maximum allowed session ID length
const MaxSessionIDLength = 128

// ValidateWorkDir checks that workDir names an existing directory by
// absolute path. Errors wrap ErrInvalidWorkDir or ErrNullByte.
func ValidateWorkDir(workDir string) error {
	switch {
	case workDir == "":
		return fmt.Errorf("%w: empty", ErrInvalidWorkDir)
	case strings.ContainsRune(workDir, 0):
		return ErrNullByte
	case !filepath.IsAbs(workDir):
		return fmt.Errorf("%w: %q is not absolute", ErrInvalidWorkDir, workDir)
	}

	info, err := os.Stat(workDir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWorkDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInvalidWorkDir, workDir)
	}
	return nil
}

// ValidateSessionID checks that a session ID only holds letters, digits,
// dashes and underscores.
func ValidateSessionID(id string) error {
	if id == "" {
		return ErrSessionIDEmpty
	}

	if len(id) > MaxSessionIDLength {
		return ErrSessionIDTooLong
	}

	for _, r := range id {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return ErrSessionIDInvalid
		}
	}

	return nil
}

// SafeJoin joins paths onto base and returns the absolute result.
// Returns an error if the result would escape base.
func SafeJoin(base string, paths ...string) (string, error) {
	if base == "" {
		return "", ErrInvalidWorkDir
	}

	for _, p := range paths {
		if strings.ContainsRune(p, 0) {
			return "", ErrNullByte
		}
	}

	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", ErrInvalidWorkDir
	}

	absResult := filepath.Join(append([]string{absBase}, paths...)...)

	rel, err := filepath.Rel(absBase, absResult)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrPathEscape
	}

	return absResult, nil
}

// ResolvePath returns p unchanged when absolute, otherwise joins it onto
// workDir and rejects results that escape it.
func ResolvePath(workDir, p string) (string, error) {
	if filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	return SafeJoin(workDir, p)
}

// GetWorkDir returns the project directory the hook should operate on.
// Host environment variables win over the event cwd, which wins over the
// process working directory.
func GetWorkDir(eventCwd string) string {
	for _, env := range []string{"CLAUDE_PROJECT_DIR", "CLAUDE_WORKING_DIRECTORY"} {
		if dir := os.Getenv(env); dir != "" {
			return dir
		}
	}
	if eventCwd != "" {
		return eventCwd
	}
	if dir, err := os.Getwd(); err == nil {
		return dir
	}
	return ""
}
