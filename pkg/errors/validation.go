package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidatePackageName validates a workspace package name for safety and
// correctness. It rejects names that could be used for path traversal or
// injection when the name is later embedded in file paths.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters or null bytes
//   - No path traversal sequences (.., //)
//   - Maximum length of 256 characters
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeParse, "package name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeParse, "package name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeParse, "package name contains control characters").WithSubject(name)
		}
	}

	for _, pattern := range []string{"..", "//", "\x00", "\\"} {
		if strings.Contains(name, pattern) {
			return New(ErrCodeParse, "package name contains invalid sequence %q", pattern).WithSubject(name)
		}
	}

	return nil
}

// npmPackageNameRegex matches valid npm package names, including scoped ones.
var npmPackageNameRegex = regexp.MustCompile(`^(@[a-z0-9-~][a-z0-9-._~]*/)?[a-z0-9-~][a-z0-9-._~]*$`)

// ValidateNpmPackageName validates an npm package name.
func ValidateNpmPackageName(name string) error {
	if err := ValidatePackageName(name); err != nil {
		return err
	}

	if strings.ToLower(name) != name {
		return New(ErrCodeParse, "npm package names must be lowercase").WithSubject(name)
	}

	if !npmPackageNameRegex.MatchString(name) {
		return New(ErrCodeParse, "invalid npm package name").WithSubject(name)
	}

	return nil
}

// changesetIDRegex matches changeset identifiers: a human token plus a
// content-hash suffix, all lowercase, dash separated.
var changesetIDRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// ValidateChangesetID validates a changeset identifier.
// IDs become file basenames, so the same traversal rules apply as for
// package names, plus a restricted character set.
func ValidateChangesetID(id string) error {
	if id == "" {
		return New(ErrCodeParse, "changeset id cannot be empty")
	}
	if len(id) > 128 {
		return New(ErrCodeParse, "changeset id too long (max 128 characters)").WithSubject(id)
	}
	if !changesetIDRegex.MatchString(id) {
		return New(ErrCodeParse, "changeset id must be lowercase alphanumeric with dashes").WithSubject(id)
	}
	return nil
}

// ValidateRelPath validates a workspace-relative file path.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidateRelPath(path string) error {
	if path == "" {
		return New(ErrCodeParse, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeParse, "path too long (max %d characters)", maxPathLength).WithSubject(path)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeParse, "path contains invalid characters").WithSubject(path)
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeParse, "path must be relative").WithSubject(path)
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeParse, "path cannot contain traversal sequences").WithSubject(path)
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeParse, "path cannot contain backslashes").WithSubject(path)
	}

	return nil
}
