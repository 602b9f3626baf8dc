// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"

	"github.com/ibmi-tools/db2i-mcp-server/pkg/errs"
	"github.com/samber/lo"
)

// mergeDocuments merges parsed documents in declaration order, producing warnings for accepted overrides via the returned
// diagnostics.
func mergeDocuments(docs []*Document, opts MergeOptions) (*MergedConfig, []Diagnostic, error) {
	merged := newMergedConfig()
	var diags []Diagnostic

	for _, doc := range docs {
		for name, src := range doc.Sources {
			src.Name = name
			if _, dup := merged.Sources[name]; dup {
				if !opts.AllowDuplicateSources {
					return nil, diags, errs.New(errs.KindConfig, fmt.Sprintf("duplicate source %q", name))
				}
				diags = append(diags, Diagnostic{Level: "warning", Message: fmt.Sprintf("source %q overridden by a later document", name)})
			}
			merged.Sources[name] = src
		}

		for name, tool := range doc.Tools {
			tool.Name = name
			if _, dup := merged.Tools[name]; dup {
				if !opts.AllowDuplicateTools {
					return nil, diags, errs.New(errs.KindConfig, fmt.Sprintf("duplicate tool %q", name))
				}
				diags = append(diags, Diagnostic{Level: "warning", Message: fmt.Sprintf("tool %q overridden by a later document", name)})
			}
			merged.Tools[name] = tool
		}

		for name, ts := range doc.Toolsets {
			ts.Name = name
			existing, dup := merged.Toolsets[name]
			if dup && opts.MergeArrays {
				combined := append(append([]string{}, existing.Tools...), ts.Tools...)
				ts.Tools = lo.Uniq(combined)
				if ts.Title == "" {
					ts.Title = existing.Title
				}
				if ts.Description == "" {
					ts.Description = existing.Description
				}
			} else if dup {
				diags = append(diags, Diagnostic{Level: "warning", Message: fmt.Sprintf("toolset %q overridden by a later document", name)})
			}
			merged.Toolsets[name] = ts
		}

		for k, v := range doc.Metadata {
			merged.Metadata[k] = v
		}
	}

	if opts.ValidateMerged {
		if err := validateCrossReferences(merged); err != nil {
			return nil, diags, errs.Wrap(errs.KindConfig, err, "cross-reference validation failed")
		}
	}

	return merged, diags, nil
}
