// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"
	"unicode"

	gojsonschema "github.com/google/jsonschema-go/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ibmi-tools/db2i-mcp-server/pkg/binder"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/config"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/errs"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/sqlsec"
)

// Compile turns a ToolDescriptor into a CompiledTool.
// toolsetsOf returns the toolset names a tool belongs to, for annotation
// assembly.
func Compile(name string, desc *config.ToolDescriptor, toolsetsOf func(toolName string) []string) (*CompiledTool, error) {
	schema, err := buildInputSchema(desc.Parameters)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfig, err, "build input schema for tool "+name)
	}

	runtimeSchema, err := compileRuntimeSchema(desc.Parameters)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfig, err, "compile runtime validation schema for tool "+name)
	}

	ct := &CompiledTool{
		Name:        name,
		Source:      desc.Source,
		Statement:   desc.Statement,
		Parameters:  desc.Parameters,
		InputSchema: schema,
		Security:    desc.Security,
		Annotations: Annotations{
			Title:           titleCase(name),
			Description:     desc.Description,
			Domain:          desc.Domain,
			Category:        desc.Category,
			ReadOnlyHint:    boolOr(desc.ReadOnlyHint, true),
			DestructiveHint: boolOr(desc.DestructiveHint, false),
			IdempotentHint:  boolOr(desc.IdempotentHint, false),
			OpenWorldHint:   boolOr(desc.OpenWorldHint, false),
			Toolsets:        toolsetsOf(name),
			CustomMetadata:  desc.Metadata,
		},
	}

	ct.invoke = func(ctx context.Context, args map[string]interface{}, resolve BackendResolver) (*InvocationResult, error) {
		start := time.Now()

		if runtimeSchema != nil {
			if err := runtimeSchema.Validate(toAny(args)); err != nil {
				return errorResult(err), errs.New(errs.KindValidation, "input validation failed: "+err.Error())
			}
		}

		bound, err := binder.Bind(ct.Statement, args, ct.Parameters)
		if err != nil {
			return errorResult(err), err
		}

		policy := ct.Security
		if policy == nil {
			policy = &config.ToolSecurityPolicy{}
		}
		if _, err := sqlsec.Check(bound.SQL, policy); err != nil {
			return errorResult(err), err
		}

		backend, err := resolve(ctx)
		if err != nil {
			return errorResult(err), err
		}

		rs, err := backend.Execute(ctx, ct.Source, bound.SQL, bound.Binds)
		if err != nil {
			return errorResult(err), err
		}

		data := make([]map[string]interface{}, len(rs.Rows))
		for i, row := range rs.Rows {
			m := make(map[string]interface{}, len(rs.Columns))
			for j, col := range rs.Columns {
				if j < len(row) {
					m[col] = row[j]
				}
			}
			data[i] = m
		}

		return &InvocationResult{
			Success: true,
			Data:    data,
			Columns: rs.Columns,
			Metadata: InvocationMetadata{
				ExecutionTimeMS: time.Since(start).Milliseconds(),
				RowCount:        len(data),
				ColumnTypes:     rs.ColumnTypes,
				BindingMode:     string(bound.Mode),
				ParameterCount:  len(ct.Parameters),
			},
		}, nil
	}

	return ct, nil
}

func errorResult(cause error) *InvocationResult {
	return &InvocationResult{
		Success: false,
		Error:   cause.Error(),
		Metadata: InvocationMetadata{
			ExecutionTimeMS: 0,
		},
	}
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// titleCase formats a snake/kebab-case tool name as a human title, e.g.
// "usage_count" -> "Usage Count".
func titleCase(name string) string {
	fields := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || unicode.IsSpace(r)
	})
	for i, f := range fields {
		if f == "" {
			continue
		}
		r := []rune(f)
		r[0] = unicode.ToUpper(r[0])
		fields[i] = string(r)
	}
	return strings.Join(fields, " ")
}

// buildInputSchema builds the schema surfaced to the dispatch runtime
// (the client-facing declaration).
func buildInputSchema(params []*config.ToolParameterDescriptor) (*gojsonschema.Schema, error) {
	props := map[string]*gojsonschema.Schema{}
	var required []string

	for _, p := range params {
		s := &gojsonschema.Schema{
			Type:        jsonSchemaType(p.Type),
			Description: p.Description,
		}
		if p.Type == config.ParamArray {
			s.Items = &gojsonschema.Schema{Type: jsonSchemaType(p.ItemType)}
		}
		props[p.Name] = s
		if p.IsRequired() {
			required = append(required, p.Name)
		}
	}

	return &gojsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}, nil
}

func jsonSchemaType(t config.ParamType) string {
	switch t {
	case config.ParamInteger:
		return "integer"
	case config.ParamNumber, config.ParamFloat:
		return "number"
	case config.ParamBoolean:
		return "boolean"
	case config.ParamArray:
		return "array"
	default:
		return "string"
	}
}

// compileRuntimeSchema builds the full-constraint JSON Schema document
// (bounds, enum, pattern) and compiles it with santhosh-tekuri/jsonschema
// for strict, non-coercive runtime validation.
func compileRuntimeSchema(params []*config.ToolParameterDescriptor) (*jsonschema.Schema, error) {
	if len(params) == 0 {
		return nil, nil
	}

	props := map[string]interface{}{}
	var required []string
	for _, p := range params {
		prop := map[string]interface{}{"type": jsonSchemaType(p.Type)}
		if p.Type == config.ParamArray {
			prop["items"] = map[string]interface{}{"type": jsonSchemaType(p.ItemType)}
		}
		if p.Min != nil {
			prop["minimum"] = *p.Min
		}
		if p.Max != nil {
			prop["maximum"] = *p.Max
		}
		if p.MinLength != nil {
			prop["minLength"] = *p.MinLength
		}
		if p.MaxLength != nil {
			prop["maxLength"] = *p.MaxLength
		}
		if len(p.Enum) > 0 {
			enum := make([]interface{}, len(p.Enum))
			for i, e := range p.Enum {
				enum[i] = e
			}
			prop["enum"] = enum
		}
		if p.Pattern != "" {
			prop["pattern"] = p.Pattern
		}
		props[p.Name] = prop
		if p.IsRequired() {
			required = append(required, p.Name)
		}
	}

	doc := map[string]interface{}{
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": true,
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	const resourceID = "tool-input.json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(resourceID, bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return compiler.Compile(resourceID)
}

// toAny re-decodes args through JSON so numeric Go types (int, int64)
// present the standard float64 representation jsonschema/v5 expects from
// a JSON-decoded document.
func toAny(args map[string]interface{}) interface{} {
	raw, err := json.Marshal(args)
	if err != nil {
		return args
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return args
	}
	return v
}
