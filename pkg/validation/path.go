// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

// Package validation holds small, reusable validity checks used by the
// config loader.
package validation

import (
	"path/filepath"
	"strings"
)

// IsRelativePath reports whether p is a relative path that does not escape
// its base directory via "..", used when resolving a "glob" config
// specifier supplied by an operator.
func IsRelativePath(p string) bool {
	if filepath.IsAbs(p) {
		return false
	}
	clean := filepath.ToSlash(filepath.Clean(p))
	return clean != ".." && !strings.HasPrefix(clean, "../")
}

// IsYAMLFile reports whether name has a *.yaml or *.yml extension,
// case-insensitively.
func IsYAMLFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
