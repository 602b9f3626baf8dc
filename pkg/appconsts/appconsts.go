// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

// Package appconsts holds the process-wide name and version string, set at
// build time via -ldflags for Version and otherwise defaulting to "dev".
package appconsts

// Name is the process name reported by `version` and used as the MCP
// Implementation.Name.
const Name = "db2i-mcp-server"

// Version is overridden at build time with
// -ldflags "-X github.com/ibmi-tools/db2i-mcp-server/pkg/appconsts.Version=...".
var Version = "dev"
