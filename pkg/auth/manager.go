// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/jellydator/ttlcache/v3"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/ibmi-tools/db2i-mcp-server/pkg/errs"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/logging"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/metrics"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/pool"
)

const defaultCleanupInterval = 30 * time.Second

// Config configures a Manager.
type Config struct {
	KeyID                 string
	PrivateKey            *rsa.PrivateKey
	PublicKey             *rsa.PublicKey
	AllowHTTP             bool
	MaxConcurrentSessions int
	CleanupInterval       time.Duration
}

// poolOpener creates the AuthPool backing a freshly issued session; a
// field (rather than a direct call) so tests can substitute an opener
// that doesn't dial a real database.
type poolOpener func(ctx context.Context, creds Credentials, poolStart, poolMax int) (*pool.SourceManager, error)

// Manager is the Auth Session Manager: it exclusively owns
// SessionTokens and the AuthPool mapped to each.
type Manager struct {
	cfg Config

	tokens *ttlcache.Cache[string, *SessionToken]
	pools  *xsync.Map[string, *pool.SourceManager]
	active atomic.Int64

	reaper pond.Pool
	stop   chan struct{}
	open   poolOpener
}

// Option configures a Manager.
type Option func(*Manager)

// WithPoolOpener overrides how a session's AuthPool is created,
// primarily for tests.
func WithPoolOpener(open poolOpener) Option {
	return func(m *Manager) { m.open = open }
}

// NewManager constructs a Manager and starts its background reaper.
func NewManager(cfg Config, opts ...Option) *Manager {
	// Touch-on-hit would silently push eviction past the token's fixed
	// expires_at every time the token validates.
	tokens := ttlcache.New(ttlcache.WithDisableTouchOnHit[string, *SessionToken]())

	m := &Manager{
		cfg:    cfg,
		tokens: tokens,
		pools:  xsync.NewMap[string, *pool.SourceManager](),
		reaper: pond.NewPool(1),
		stop:   make(chan struct{}),
		open:   newAuthPool,
	}
	for _, o := range opts {
		o(m)
	}

	tokens.OnEviction(func(ctx context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *SessionToken]) {
		m.teardownPool(item.Key())
		m.active.Add(-1)
		metrics.AuthSessionsActive.Dec()
	})

	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = defaultCleanupInterval
	}
	m.reaper.Submit(func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stop:
				return
			case <-ticker.C:
				m.tokens.DeleteExpired()
			}
		}
	})

	return m
}

// PublicKeyInfo returns the (keyId, PEM-encoded public key) pair the
// manager was configured with.
func (m *Manager) PublicKeyInfo() (keyID string, publicKeyPEM string, enabled bool) {
	if m.cfg.PublicKey == nil {
		return "", "", false
	}
	return m.cfg.KeyID, encodePublicKeyPEM(m.cfg.PublicKey), true
}

// Issue validates req, enforces the session cap, generates a bearer
// token, and creates the session's pool.
func (m *Manager) Issue(ctx context.Context, creds Credentials, req IssueRequest) (*SessionToken, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}

	// Reserve a session slot before allocating anything, so the cap
	// check and the increment are atomic together; concurrent issuers
	// cannot both observe a free slot and overshoot the limit.
	for {
		cur := m.active.Load()
		if int(cur) >= m.cfg.MaxConcurrentSessions {
			return nil, errTooManySessions
		}
		if m.active.CompareAndSwap(cur, cur+1) {
			break
		}
	}

	raw := make([]byte, 256)
	if _, err := rand.Read(raw); err != nil {
		m.active.Add(-1)
		return nil, errs.Wrap(errs.KindInternal, err, "generate session token")
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	now := time.Now()
	st := &SessionToken{
		Token:       token,
		Credentials: creds,
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Duration(req.Duration) * time.Second),
		LastUsedAt:  now,
	}

	authPool, err := m.open(ctx, creds, req.PoolStart, req.PoolMax)
	if err != nil {
		m.active.Add(-1)
		return nil, errs.Wrap(errs.KindInternal, err, "create auth pool")
	}

	m.pools.Store(token, authPool)
	m.tokens.Set(token, st, time.Until(st.ExpiresAt))
	metrics.AuthSessionsActive.Inc()

	logging.GetLogger().Info("auth session issued", "host", creds.Host, "expires_at", st.ExpiresAt)
	return st, nil
}

// Validate looks up token, rejecting missing/expired tokens and
// refreshing LastUsedAt on success.
func (m *Manager) Validate(token string) (*SessionToken, error) {
	if token == "" {
		return nil, errTokenMissing
	}
	item := m.tokens.Get(token)
	if item == nil {
		return nil, errTokenUnknown
	}
	st := item.Value()
	if !time.Now().Before(st.ExpiresAt) {
		m.tokens.Delete(token)
		return nil, errTokenExpired
	}
	st.LastUsedAt = time.Now()
	return st, nil
}

// Backend returns the Backend-shaped pool bound to token, for the
// invocation closure's routing step.
func (m *Manager) Backend(token string) (*pool.SourceManager, bool) {
	return m.pools.Load(token)
}

// Revoke deletes token and tears down its pool immediately.
func (m *Manager) Revoke(token string) {
	m.teardownPool(token)
	m.tokens.Delete(token)
}

// Shutdown stops the reaper, closes every pool, and clears token state.
func (m *Manager) Shutdown() {
	close(m.stop)
	m.tokens.DeleteAll()
	m.pools.Range(func(token string, p *pool.SourceManager) bool {
		_ = p.Close()
		return true
	})
	m.reaper.StopAndWait()
}

func (m *Manager) teardownPool(token string) {
	if p, ok := m.pools.LoadAndDelete(token); ok {
		_ = p.Close()
	}
}

// newAuthPool builds a single-source SourceManager bound to creds'
// credentials, sized per the issuing request.
func newAuthPool(ctx context.Context, creds Credentials, poolStart, poolMax int) (*pool.SourceManager, error) {
	return pool.NewAuthSourceManager(ctx, pool.AuthSource{
		Host:               creds.Host,
		User:               creds.User,
		Password:           creds.Password,
		IgnoreUnauthorized: creds.IgnoreUnauthorized,
		StartingSize:       poolStart,
		MaxSize:            poolMax,
	})
}
