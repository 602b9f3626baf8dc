// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

// Package util holds small, dependency-free helpers shared across
// components: environment-variable interpolation and TLS certificate
// retrieval.
package util

import (
	"os"
	"regexp"

	"github.com/ibmi-tools/db2i-mcp-server/pkg/logging"
)

var envTokenPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// InterpolateEnv replaces every literal ${NAME} occurrence in raw with the
// value of environment variable NAME. A missing variable leaves the
// placeholder untouched and records a debug event —
// interpolation never fails here; an unresolved placeholder surfaces later
// as a schema or cross-reference violation if it ends up somewhere that
// can't tolerate it.
func InterpolateEnv(raw string) string {
	return envTokenPattern.ReplaceAllStringFunc(raw, func(tok string) string {
		name := envTokenPattern.FindStringSubmatch(tok)[1]
		val, ok := os.LookupEnv(name)
		if !ok {
			logging.GetLogger().Debug("unresolved env placeholder in config", "name", name)
			return tok
		}
		return val
	})
}
