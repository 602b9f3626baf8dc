// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"github.com/ibmi-tools/db2i-mcp-server/pkg/bus"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/errs"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/logging"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/util"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Loader produces a validated, merged MergedConfig from one or more YAML
// sources. It is the Config Loader component.
type Loader struct {
	fs      afero.Fs
	cache   *cache
	watcher *watcher
	pub     bus.Publisher
}

// Option configures a Loader.
type Option func(*Loader)

// WithFilesystem overrides the afero.Fs used to resolve and read files,
// primarily for tests (afero.NewMemMapFs).
func WithFilesystem(fs afero.Fs) Option {
	return func(l *Loader) { l.fs = fs }
}

// WithPublisher sets the bus.Publisher the watcher notifies on change.
func WithPublisher(pub bus.Publisher) Option {
	return func(l *Loader) { l.pub = pub }
}

// NewLoader constructs a Loader and starts its file watcher.
func NewLoader(opts ...Option) (*Loader, error) {
	l := &Loader{fs: afero.NewOsFs(), cache: newCache()}
	for _, o := range opts {
		o(l)
	}
	w, err := newWatcher(l.cache, l.pub)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfig, err, "start config watcher")
	}
	l.watcher = w
	return l, nil
}

// Close stops the loader's file watcher.
func (l *Loader) Close() error {
	return l.watcher.Close()
}

// Load resolves specifiers, reads/interpolates/parses/validates each
// document, merges them, and caches the result.
func (l *Loader) Load(specifiers []Specifier, opts MergeOptions) (*MergedConfig, []Diagnostic, error) {
	paths, resolveDiags, err := resolveAll(l.fs, specifiers)
	if err != nil {
		return nil, resolveDiags, err
	}

	key := cacheKey(paths, opts)
	if entry, ok := l.cache.get(key); ok {
		return entry.cfg, entry.diags, nil
	}

	var docs []*Document
	var diags []Diagnostic
	diags = append(diags, resolveDiags...)

	for _, path := range paths {
		doc, docDiags, err := l.loadOne(path)
		if err != nil {
			return nil, diags, err
		}
		diags = append(diags, docDiags...)
		docs = append(docs, doc)
	}

	merged, mergeDiags, err := mergeDocuments(docs, opts)
	if err != nil {
		return nil, diags, err
	}
	diags = append(diags, mergeDiags...)

	l.watcher.watch(key, paths)
	l.cache.put(key, &cacheEntry{cfg: merged, diags: diags})
	return merged, diags, nil
}

func (l *Loader) loadOne(path string) (*Document, []Diagnostic, error) {
	raw, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, nil, errs.Wrap(errs.KindConfig, err, "read config file "+path)
	}

	interpolated := util.InterpolateEnv(string(raw))

	var doc Document
	if err := yaml.Unmarshal([]byte(interpolated), &doc); err != nil {
		return nil, nil, errs.Wrap(errs.KindConfig, err, "parse YAML "+path)
	}

	if err := validateDocument(path, &doc); err != nil {
		return nil, nil, errs.Wrap(errs.KindConfig, err, "validate "+path)
	}

	logging.GetLogger().Debug("loaded config document", "path", path,
		"sources", len(doc.Sources), "tools", len(doc.Tools), "toolsets", len(doc.Toolsets))
	return &doc, nil, nil
}
