// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"
)

var placeholderPattern = regexp.MustCompile(`:[A-Za-z_][A-Za-z0-9_]*`)

var validParamTypes = map[ParamType]bool{
	ParamString: true, ParamNumber: true, ParamInteger: true,
	ParamFloat: true, ParamBoolean: true, ParamArray: true,
}

var validItemTypes = map[ParamType]bool{
	ParamString: true, ParamNumber: true, ParamInteger: true,
	ParamFloat: true, ParamBoolean: true,
}

// validateDocument validates a single parsed document's shape, collecting
// every violation instead of stopping at the first.
func validateDocument(path string, doc *Document) error {
	var merr *multierror.Error

	for name, src := range doc.Sources {
		if name == "" {
			merr = multierror.Append(merr, fmt.Errorf("%s: source has empty name", path))
			continue
		}
		if src.Host == "" {
			merr = multierror.Append(merr, fmt.Errorf("%s: source %q: host is required", path, name))
		}
		if src.Port < 0 {
			merr = multierror.Append(merr, fmt.Errorf("%s: source %q: port must be positive", path, name))
		}
	}

	for name, tool := range doc.Tools {
		merr = multierror.Append(merr, validateTool(path, name, tool)...)
	}

	for name, ts := range doc.Toolsets {
		if len(ts.Tools) == 0 {
			merr = multierror.Append(merr, fmt.Errorf("%s: toolset %q: tools must be non-empty", path, name))
		}
	}

	return merr.ErrorOrNil()
}

func validateTool(path, name string, tool *ToolDescriptor) []error {
	var errsList []error
	fail := func(format string, args ...interface{}) {
		errsList = append(errsList, fmt.Errorf("%s: tool %q: "+format, append([]interface{}{path, name}, args...)...))
	}

	if tool.Description == "" {
		fail("description is required")
	}
	if tool.Statement == "" {
		fail("statement is required")
	}
	if tool.Source == "" {
		fail("source is required")
	}

	named := strings.Contains(tool.Statement, ":") && placeholderPattern.MatchString(stripLiterals(tool.Statement))
	positional := strings.Contains(stripLiterals(tool.Statement), "?")
	if named && positional {
		fail("statement mixes :name and ? placeholder styles")
	}

	declared := map[string]*ToolParameterDescriptor{}
	for _, p := range tool.Parameters {
		if p.Name == "" {
			fail("parameter has empty name")
			continue
		}
		if _, dup := declared[p.Name]; dup {
			fail("parameter %q declared more than once", p.Name)
		}
		declared[p.Name] = p
		validateParam(fail, p)
	}

	if named {
		for _, match := range placeholderPattern.FindAllString(stripLiterals(tool.Statement), -1) {
			pname := strings.TrimPrefix(match, ":")
			if _, ok := declared[pname]; !ok {
				fail("placeholder :%s has no matching parameter declaration", pname)
			}
		}
	}

	if tool.Security != nil && len(declared) == 1 && isRawSQLTemplate(tool.Statement, tool.Parameters) {
		if !tool.Security.ReadOnlyOrDefault() || len(tool.Security.ForbiddenKeywords) == 0 {
			fail("raw-SQL direct-substitution tool requires security.readOnly=true and a non-empty forbiddenKeywords list")
		}
	} else if isRawSQLTemplate(tool.Statement, tool.Parameters) && tool.Security == nil {
		fail("raw-SQL direct-substitution tool requires an explicit security policy")
	}

	return errsList
}

func validateParam(fail func(string, ...interface{}), p *ToolParameterDescriptor) {
	if !validParamTypes[p.Type] {
		fail("parameter %q has unknown type %q", p.Name, p.Type)
	}
	if p.Type == ParamArray && p.ItemType == "" {
		fail("parameter %q is type array but declares no itemType", p.Name)
	}
	if p.Type == ParamArray && p.ItemType != "" && !validItemTypes[p.ItemType] {
		fail("parameter %q has unknown itemType %q", p.Name, p.ItemType)
	}
	if p.Min != nil && p.Max != nil && *p.Min > *p.Max {
		fail("parameter %q has min > max", p.Name)
	}
	if p.MinLength != nil && p.MaxLength != nil && *p.MinLength > *p.MaxLength {
		fail("parameter %q has minLength > maxLength", p.Name)
	}
	if len(p.Enum) > 0 && p.Default != nil {
		if s, ok := p.Default.(string); ok && !containsStr(p.Enum, s) {
			fail("parameter %q default %v is not a member of enum", p.Name, p.Default)
		}
	}
}

func containsStr(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// stripLiterals removes single-quoted string literals, line comments, and
// block comments so placeholder scanning in validateTool doesn't mistake
// quoted/commented text for a real placeholder.
func stripLiterals(sql string) string {
	var b strings.Builder
	runes := []rune(sql)
	for i := 0; i < len(runes); i++ {
		switch {
		case runes[i] == '\'':
			i++
			for i < len(runes) && runes[i] != '\'' {
				i++
			}
		case i+1 < len(runes) && runes[i] == '-' && runes[i+1] == '-':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
		case i+1 < len(runes) && runes[i] == '/' && runes[i+1] == '*':
			i += 2
			for i+1 < len(runes) && !(runes[i] == '*' && runes[i+1] == '/') {
				i++
			}
			i++
		default:
			b.WriteRune(runes[i])
		}
	}
	return b.String()
}

// isRawSQLTemplate reports the direct-substitution shape: exactly one
// string parameter whose name matches the entire trimmed statement
// literal ":name".
func isRawSQLTemplate(statement string, params []*ToolParameterDescriptor) bool {
	if len(params) != 1 || params[0].Type != ParamString {
		return false
	}
	return strings.TrimSpace(statement) == ":"+params[0].Name
}

// validateCrossReferences checks every tool's source and every toolset's
// tool names resolve within the merged config.
func validateCrossReferences(m *MergedConfig) error {
	var merr *multierror.Error
	for name, tool := range m.Tools {
		if _, ok := m.Sources[tool.Source]; !ok {
			merr = multierror.Append(merr, fmt.Errorf("tool %q references unknown source %q", name, tool.Source))
		}
	}
	for name, ts := range m.Toolsets {
		for _, t := range ts.Tools {
			if _, ok := m.Tools[t]; !ok {
				merr = multierror.Append(merr, fmt.Errorf("toolset %q references unknown tool %q", name, t))
			}
		}
	}
	if len(m.Sources) == 0 && len(m.Tools) == 0 && len(m.Toolsets) == 0 {
		merr = multierror.Append(merr, fmt.Errorf("merged config is empty: at least one of sources/tools/toolsets must be present"))
	}
	return merr.ErrorOrNil()
}
