// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

package pool

import (
	"context"

	"github.com/ibmi-tools/db2i-mcp-server/pkg/config"
)

// AuthSource is the credential set an authenticated session's AuthPool
// is bound to: unlike a configured SourceDescriptor, its
// pool sizing is chosen per-request (poolstart/poolmax) rather than the
// Source Pool Manager's fixed defaults.
type AuthSource struct {
	Host               string
	User               string
	Password           string
	IgnoreUnauthorized bool
	StartingSize       int
	MaxSize            int
}

const authSourceName = "session"

// NewAuthSourceManager opens a single-source SourceManager bound to s's
// credentials, eagerly connecting (so issuance fails fast on bad
// credentials) rather than lazily like the named-source manager.
func NewAuthSourceManager(ctx context.Context, s AuthSource) (*SourceManager, error) {
	ignore := s.IgnoreUnauthorized
	desc := &config.SourceDescriptor{
		Name:               authSourceName,
		Host:               s.Host,
		User:               s.User,
		Password:           s.Password,
		IgnoreUnauthorized: &ignore,
	}

	m := NewSourceManager(map[string]*config.SourceDescriptor{authSourceName: desc})
	m.single = authSourceName
	entry, err := m.open(ctx, desc, s.StartingSize, s.MaxSize)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.entries[authSourceName] = entry
	m.mu.Unlock()
	return m, nil
}
