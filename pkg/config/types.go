// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

// Package config implements the configuration pipeline: resolving YAML
// sources, interpolating environment variables, validating, merging,
// caching, and watching them for changes.
package config

// ParamType enumerates the accepted ToolParameterDescriptor.Type values.
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamNumber  ParamType = "number"
	ParamInteger ParamType = "integer"
	ParamFloat   ParamType = "float"
	ParamBoolean ParamType = "boolean"
	ParamArray   ParamType = "array"
)

// SourceDescriptor is an upstream database endpoint. Driver names the
// database/sql driver the Source Pool Manager dials with, defaulting to
// mysql.
type SourceDescriptor struct {
	Name               string `yaml:"-"`
	Host               string `yaml:"host"`
	User               string `yaml:"user"`
	Password           string `yaml:"password"`
	Port               int    `yaml:"port,omitempty"`
	Driver             string `yaml:"driver,omitempty"`
	Database           string `yaml:"database,omitempty"`
	IgnoreUnauthorized *bool  `yaml:"ignore-unauthorized,omitempty"`
}

const defaultDriver = "mysql"

// DriverOrDefault returns the configured driver, defaulting to mysql.
func (s *SourceDescriptor) DriverOrDefault() string {
	if s.Driver == "" {
		return defaultDriver
	}
	return s.Driver
}

// IgnoreUnauthorizedOrDefault returns the configured value, defaulting to
// true.
func (s *SourceDescriptor) IgnoreUnauthorizedOrDefault() bool {
	if s.IgnoreUnauthorized == nil {
		return true
	}
	return *s.IgnoreUnauthorized
}

// ToolParameterDescriptor is a typed input slot of a tool.
type ToolParameterDescriptor struct {
	Name        string      `yaml:"name"`
	Type        ParamType   `yaml:"type"`
	ItemType    ParamType   `yaml:"itemType,omitempty"`
	Description string      `yaml:"description,omitempty"`
	Default     interface{} `yaml:"default,omitempty"`
	Required    *bool       `yaml:"required,omitempty"`
	Min         *float64    `yaml:"min,omitempty"`
	Max         *float64    `yaml:"max,omitempty"`
	MinLength   *int        `yaml:"minLength,omitempty"`
	MaxLength   *int        `yaml:"maxLength,omitempty"`
	Enum        []string    `yaml:"enum,omitempty"`
	Pattern     string      `yaml:"pattern,omitempty"`
}

// IsRequired reports whether a value must be supplied: explicit
// required=false always wins; otherwise a parameter with no default is
// required.
func (p *ToolParameterDescriptor) IsRequired() bool {
	if p.Required != nil {
		return *p.Required
	}
	return p.Default == nil
}

// ToolSecurityPolicy is the optional per-tool guardrail set.
type ToolSecurityPolicy struct {
	ReadOnly          *bool    `yaml:"readOnly,omitempty"`
	MaxQueryLength    *int     `yaml:"maxQueryLength,omitempty"`
	ForbiddenKeywords []string `yaml:"forbiddenKeywords,omitempty"`
}

const defaultMaxQueryLength = 10000

// ReadOnlyOrDefault returns the configured value, defaulting to true.
func (p *ToolSecurityPolicy) ReadOnlyOrDefault() bool {
	if p == nil || p.ReadOnly == nil {
		return true
	}
	return *p.ReadOnly
}

// MaxQueryLengthOrDefault returns the configured value, defaulting to 10000.
func (p *ToolSecurityPolicy) MaxQueryLengthOrDefault() int {
	if p == nil || p.MaxQueryLength == nil {
		return defaultMaxQueryLength
	}
	return *p.MaxQueryLength
}

// ForbiddenKeywordsOrDefault returns the configured list, defaulting to none.
func (p *ToolSecurityPolicy) ForbiddenKeywordsOrDefault() []string {
	if p == nil {
		return nil
	}
	return p.ForbiddenKeywords
}

// ToolDescriptor is a callable tool.
type ToolDescriptor struct {
	Name            string                     `yaml:"-"`
	Source          string                     `yaml:"source"`
	Description     string                     `yaml:"description"`
	Statement       string                     `yaml:"statement"`
	Parameters      []*ToolParameterDescriptor `yaml:"parameters,omitempty"`
	Domain          string                     `yaml:"domain,omitempty"`
	Category        string                     `yaml:"category,omitempty"`
	Metadata        map[string]string          `yaml:"metadata,omitempty"`
	ReadOnlyHint    *bool                      `yaml:"readOnlyHint,omitempty"`
	DestructiveHint *bool                      `yaml:"destructiveHint,omitempty"`
	IdempotentHint  *bool                      `yaml:"idempotentHint,omitempty"`
	OpenWorldHint   *bool                      `yaml:"openWorldHint,omitempty"`
	Security        *ToolSecurityPolicy        `yaml:"security,omitempty"`
}

// ToolsetDescriptor is a named group of tool names.
type ToolsetDescriptor struct {
	Name        string            `yaml:"-"`
	Title       string            `yaml:"title,omitempty"`
	Description string            `yaml:"description,omitempty"`
	Tools       []string          `yaml:"tools"`
	Metadata    map[string]string `yaml:"metadata,omitempty"`
}

// Document is the shape of a single parsed YAML file.
type Document struct {
	Sources  map[string]*SourceDescriptor  `yaml:"sources,omitempty"`
	Tools    map[string]*ToolDescriptor    `yaml:"tools,omitempty"`
	Toolsets map[string]*ToolsetDescriptor `yaml:"toolsets,omitempty"`
	Metadata map[string]string             `yaml:"metadata,omitempty"`
}

// MergedConfig is the result of merging all loaded documents.
type MergedConfig struct {
	Sources  map[string]*SourceDescriptor
	Tools    map[string]*ToolDescriptor
	Toolsets map[string]*ToolsetDescriptor
	Metadata map[string]string
}

func newMergedConfig() *MergedConfig {
	return &MergedConfig{
		Sources:  map[string]*SourceDescriptor{},
		Tools:    map[string]*ToolDescriptor{},
		Toolsets: map[string]*ToolsetDescriptor{},
		Metadata: map[string]string{},
	}
}

// MergeOptions controls duplicate and override policy during merge.
type MergeOptions struct {
	MergeArrays           bool
	AllowDuplicateTools   bool
	AllowDuplicateSources bool
	ValidateMerged        bool
}

// DefaultMergeOptions is the conservative default policy: arrays
// merge, duplicates are rejected, and the merged result is always
// cross-validated.
func DefaultMergeOptions() MergeOptions {
	return MergeOptions{
		MergeArrays:           true,
		AllowDuplicateTools:   false,
		AllowDuplicateSources: false,
		ValidateMerged:        true,
	}
}

// Diagnostic is a non-fatal event recorded during loading (a skipped
// optional source, an override). An unresolved env placeholder is only
// logged at debug level and is not recorded here.
type Diagnostic struct {
	Level   string // "warning", the only level the loader records
	Message string
}
