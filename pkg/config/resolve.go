// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"path/filepath"
	"sort"

	"github.com/ibmi-tools/db2i-mcp-server/pkg/errs"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/validation"
	"github.com/spf13/afero"
)

// SpecifierKind is the kind of a config source specifier.
type SpecifierKind string

const (
	KindFile      SpecifierKind = "file"
	KindDirectory SpecifierKind = "directory"
	KindGlob      SpecifierKind = "glob"
)

// Specifier is one entry of the ordered list of config sources.
type Specifier struct {
	Kind     SpecifierKind
	Path     string
	Required bool
}

// resolveAll turns specifiers into an ordered, deduplicated list of file
// paths, recording a warning Diagnostic for every skipped optional source.
func resolveAll(fs afero.Fs, specifiers []Specifier) ([]string, []Diagnostic, error) {
	seen := map[string]bool{}
	var paths []string
	var diags []Diagnostic

	for _, spec := range specifiers {
		resolved, err := resolveOne(fs, spec)
		if err != nil {
			if spec.Required {
				kind := errs.KindConfig
				if errs.Is(err, errs.KindToolsPath) {
					kind = errs.KindToolsPath
				}
				return nil, diags, errs.Wrap(kind, err, "resolve required config source")
			}
			diags = append(diags, Diagnostic{Level: "warning", Message: "skipping optional config source " + spec.Path + ": " + err.Error()})
			continue
		}
		for _, p := range resolved {
			if !seen[p] {
				seen[p] = true
				paths = append(paths, p)
			}
		}
	}
	sort.Strings(paths)
	return paths, diags, nil
}

// resolveOne resolves a single specifier to file paths. Failures that mean
// the configured --tools path itself cannot be found (exit code 2,
// "tools-path inaccessible") are raised as KindToolsPath; a
// malformed glob pattern or an unrecognized specifier kind is a plain
// KindConfig argument error (exit code 1) instead, since the path wasn't
// inaccessible, the argument describing it was invalid.
func resolveOne(fs afero.Fs, spec Specifier) ([]string, error) {
	switch spec.Kind {
	case KindFile:
		ok, err := afero.Exists(fs, spec.Path)
		if err != nil || !ok {
			return nil, errs.New(errs.KindToolsPath, "config file does not exist: "+spec.Path)
		}
		return []string{spec.Path}, nil

	case KindDirectory:
		ok, err := afero.DirExists(fs, spec.Path)
		if err != nil || !ok {
			return nil, errs.New(errs.KindToolsPath, "config directory does not exist: "+spec.Path)
		}
		var files []string
		if err := walkYAML(fs, spec.Path, &files); err != nil {
			return nil, err
		}
		sort.Strings(files)
		return files, nil

	case KindGlob:
		if filepath.IsAbs(spec.Path) || !validation.IsRelativePath(spec.Path) {
			return nil, errs.New(errs.KindConfig, "glob pattern escapes the working directory: "+spec.Path)
		}
		matches, err := afero.Glob(fs, spec.Path)
		if err != nil {
			return nil, errs.Wrap(errs.KindConfig, err, "invalid glob pattern: "+spec.Path)
		}
		if len(matches) == 0 {
			return nil, errs.New(errs.KindToolsPath, "glob matched no files: "+spec.Path)
		}
		return matches, nil

	default:
		return nil, errs.New(errs.KindConfig, "unknown config specifier kind: "+string(spec.Kind))
	}
}

// walkYAML recursively collects *.yaml/*.yml files under dir.
func walkYAML(fs afero.Fs, dir string, out *[]string) error {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return errs.Wrap(errs.KindToolsPath, err, "read config directory: "+dir)
	}
	for _, e := range entries {
		full := filepath.Join(dir, e.Name())
		if e.IsDir() {
			if err := walkYAML(fs, full, out); err != nil {
				return err
			}
			continue
		}
		if validation.IsYAMLFile(e.Name()) {
			*out = append(*out, full)
		}
	}
	return nil
}
