// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

// Package binder implements SQL parameter binding: given a SQL
// template and declared parameter descriptors, it validates supplied
// values and emits the final SQL plus an ordered bind list.
//
// Placeholder scanning is a small hand-rolled scanner; the shapes it has
// to recognize (:name tokens, bare ?, quoted literals, comments) do not
// call for a full SQL parser.
package binder

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ibmi-tools/db2i-mcp-server/pkg/config"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/errs"
)

// Mode is the detected placeholder style of a statement.
type Mode string

const (
	ModeNamed      Mode = "named"
	ModePositional Mode = "positional"
	ModeNone       Mode = "none"
)

var identPattern = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)`)

// Result is the outcome of a successful Bind.
type Result struct {
	SQL     string
	Binds   []interface{}
	Mode    Mode
	Used    []string
	Missing []string
}

// Bind validates supplied against params and rewrites template into SQL a
// driver can execute with Binds as positional arguments.
func Bind(template string, supplied map[string]interface{}, params []*config.ToolParameterDescriptor) (*Result, error) {
	if raw, ok := rawSubstitution(template, supplied, params); ok {
		return raw, nil
	}

	byName := map[string]*config.ToolParameterDescriptor{}
	for _, p := range params {
		byName[p.Name] = p
	}

	scan := scanTemplate(template)
	if scan.hasNamed && scan.hasPositional {
		return nil, errs.New(errs.KindValidation, "statement mixes :name and ? placeholder styles")
	}

	switch {
	case scan.hasNamed:
		return bindNamed(template, scan, supplied, byName)
	case scan.hasPositional:
		return bindPositional(template, scan, supplied, params)
	default:
		return &Result{SQL: template, Mode: ModeNone}, nil
	}
}

// rawSubstitution handles the opt-in raw-SQL escape hatch: a
// single string parameter whose name is the entire trimmed template.
func rawSubstitution(template string, supplied map[string]interface{}, params []*config.ToolParameterDescriptor) (*Result, bool) {
	if len(params) != 1 || params[0].Type != config.ParamString {
		return nil, false
	}
	name := params[0].Name
	if strings.TrimSpace(template) != ":"+name {
		return nil, false
	}
	v, ok := supplied[name]
	if !ok {
		return nil, false
	}
	s, ok := v.(string)
	if !ok {
		return nil, false
	}
	return &Result{SQL: s, Mode: ModeNone, Used: []string{name}}, true
}

type templateScan struct {
	hasNamed      bool
	hasPositional bool
}

// scanTemplate detects placeholder tokens outside single-quoted literals
// and comments.
func scanTemplate(template string) templateScan {
	stripped := stripLiterals(template)
	return templateScan{
		hasNamed:      identPattern.MatchString(stripped),
		hasPositional: strings.Contains(stripped, "?"),
	}
}

func bindNamed(template string, _ templateScan, supplied map[string]interface{}, byName map[string]*config.ToolParameterDescriptor) (*Result, error) {
	var binds []interface{}
	var used []string
	var missing []string
	position := 0

	out := replaceOutsideLiterals(template, identPattern, func(match string) string {
		name := match[1:]
		param, ok := byName[name]
		if !ok {
			missing = append(missing, name)
			return match
		}
		value, vErr := resolveValue(param, supplied)
		if vErr != nil {
			missing = append(missing, name)
			return match
		}
		if param.Type == config.ParamArray {
			items := toSlice(value)
			markers := make([]string, len(items))
			for i, it := range items {
				binds = append(binds, it)
				position++
				markers[i] = "?"
			}
			used = append(used, name)
			return strings.Join(markers, ", ")
		}
		binds = append(binds, value)
		position++
		used = append(used, name)
		return "?"
	})

	if len(missing) > 0 {
		return nil, errs.New(errs.KindValidation, fmt.Sprintf("missing or undeclared bind parameter(s): %s", strings.Join(missing, ", ")))
	}

	return &Result{SQL: out, Binds: binds, Mode: ModeNamed, Used: used}, nil
}

func bindPositional(template string, _ templateScan, supplied map[string]interface{}, params []*config.ToolParameterDescriptor) (*Result, error) {
	count := strings.Count(stripLiterals(template), "?")
	if count != len(params) {
		return nil, errs.New(errs.KindValidation, fmt.Sprintf("statement has %d positional placeholders but %d parameters are declared", count, len(params)))
	}

	var binds []interface{}
	var used []string
	idx := 0

	out := replaceOutsideLiterals(template, regexp.MustCompile(`\?`), func(string) string {
		param := params[idx]
		idx++
		value, err := resolveValue(param, supplied)
		if err != nil {
			return "?"
		}
		if param.Type == config.ParamArray {
			items := toSlice(value)
			markers := make([]string, len(items))
			for i, it := range items {
				binds = append(binds, it)
				markers[i] = "?"
			}
			used = append(used, param.Name)
			return strings.Join(markers, ", ")
		}
		binds = append(binds, value)
		used = append(used, param.Name)
		return "?"
	})

	for _, p := range params {
		if _, ok := supplied[p.Name]; !ok && p.IsRequired() {
			return nil, errs.New(errs.KindValidation, fmt.Sprintf("missing required parameter %q", p.Name))
		}
	}

	return &Result{SQL: out, Binds: binds, Mode: ModePositional, Used: used}, nil
}

func resolveValue(param *config.ToolParameterDescriptor, supplied map[string]interface{}) (interface{}, error) {
	if v, ok := supplied[param.Name]; ok {
		return v, nil
	}
	if param.Default != nil {
		return param.Default, nil
	}
	if param.IsRequired() {
		return nil, errs.New(errs.KindValidation, fmt.Sprintf("missing required parameter %q", param.Name))
	}
	return nil, nil
}

func toSlice(v interface{}) []interface{} {
	switch s := v.(type) {
	case []interface{}:
		return s
	case []string:
		out := make([]interface{}, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out
	default:
		return []interface{}{v}
	}
}

// stripLiterals blanks out single-quoted literals and comments byte for
// byte, so scanning ignores tokens inside them and match offsets in the
// result line up with the original template.
func stripLiterals(sql string) string {
	var b strings.Builder
	r := []byte(sql)
	for i := 0; i < len(r); i++ {
		switch {
		case r[i] == '\'':
			b.WriteByte(' ')
			i++
			for i < len(r) && r[i] != '\'' {
				b.WriteByte(' ')
				i++
			}
			if i < len(r) {
				b.WriteByte(' ')
			}
		case i+1 < len(r) && r[i] == '-' && r[i+1] == '-':
			for i < len(r) && r[i] != '\n' {
				b.WriteByte(' ')
				i++
			}
			if i < len(r) {
				b.WriteByte(r[i])
			}
		case i+1 < len(r) && r[i] == '/' && r[i+1] == '*':
			b.WriteString("  ")
			i += 2
			for i+1 < len(r) && !(r[i] == '*' && r[i+1] == '/') {
				b.WriteByte(' ')
				i++
			}
			if i < len(r) {
				b.WriteByte(' ')
			}
			if i+1 < len(r) {
				b.WriteByte(' ')
			}
			i++
		default:
			b.WriteByte(r[i])
		}
	}
	return b.String()
}

// replaceOutsideLiterals applies repl to each match of pattern, but only
// for matches that fall outside single-quoted literals / comments in the
// original (unstripped) template; masked regions are copied verbatim.
func replaceOutsideLiterals(template string, pattern *regexp.Regexp, repl func(string) string) string {
	stripped := stripLiterals(template)
	var out strings.Builder
	last := 0
	for _, loc := range pattern.FindAllStringIndex(stripped, -1) {
		start, end := loc[0], loc[1]
		out.WriteString(template[last:start])
		out.WriteString(repl(template[start:end]))
		last = end
	}
	out.WriteString(template[last:])
	return out.String()
}
