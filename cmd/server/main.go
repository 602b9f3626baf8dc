// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

// Command server is the db2i-mcp-server entrypoint: it parses the CLI
// surface and runs the wired application until
// interrupted.
package main

import (
	"fmt"
	"os"

	"github.com/ibmi-tools/db2i-mcp-server/pkg/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return cli.ExitCode(err)
	}
	return 0
}
