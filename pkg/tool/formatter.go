// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"fmt"
	"strings"
)

// MaxFormattedRows bounds the markdown table the runtime adapter renders
// as the tool's text content; the structured content always carries
// every row.
const MaxFormattedRows = 500

// FormatMarkdownTable renders result as a markdown table truncated to
// MaxFormattedRows, noting how many rows were omitted.
func FormatMarkdownTable(result *InvocationResult) string {
	if !result.Success {
		return fmt.Sprintf("error: %s", result.Error)
	}
	if len(result.Columns) == 0 {
		return "(no columns returned)"
	}

	var b strings.Builder
	b.WriteString("| ")
	b.WriteString(strings.Join(result.Columns, " | "))
	b.WriteString(" |\n|")
	for range result.Columns {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")

	shown := result.Data
	truncated := false
	if len(shown) > MaxFormattedRows {
		shown = shown[:MaxFormattedRows]
		truncated = true
	}

	for _, row := range shown {
		b.WriteString("| ")
		cells := make([]string, len(result.Columns))
		for i, col := range result.Columns {
			cells[i] = fmt.Sprintf("%v", row[col])
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString(" |\n")
	}

	if truncated {
		fmt.Fprintf(&b, "\n_%d additional row(s) omitted; structured content contains the full result._\n", len(result.Data)-MaxFormattedRows)
	}

	return b.String()
}
