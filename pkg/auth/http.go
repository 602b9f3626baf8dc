// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ibmi-tools/db2i-mcp-server/pkg/errs"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/logging"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/metrics"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/policy/ratelimit"
)

// Handler serves the session-authentication HTTP endpoints. Issuance is
// rate limited ahead of envelope decryption, since each attempt costs an
// RSA private-key operation.
type Handler struct {
	mgr     *Manager
	limiter *ratelimit.Limiter
}

const (
	issueRatePerSecond = 10
	issueBurst         = 20
)

// NewHandler wraps mgr as an http.Handler-contributing Handler.
func NewHandler(mgr *Manager) *Handler {
	return &Handler{
		mgr:     mgr,
		limiter: ratelimit.NewInMemoryLimiter(issueRatePerSecond, issueBurst),
	}
}

// PublicKey serves GET /api/v1/auth/public-key.
func (h *Handler) PublicKey(w http.ResponseWriter, r *http.Request) {
	keyID, pemKey, enabled := h.mgr.PublicKeyInfo()
	if !enabled {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"keyId": keyID, "publicKey": pemKey})
}

// Issue serves POST /api/v1/auth, accepting either the encrypted
// envelope body or, in non-encrypted-envelope mode, an
// `Authorization: Basic` alternative carrying host/duration/poolstart/
// poolmax as the JSON body.
func (h *Handler) Issue(w http.ResponseWriter, r *http.Request) {
	if _, _, enabled := h.mgr.PublicKeyInfo(); !enabled {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if !h.limiter.Allow() {
		metrics.RecordAuthIssue(false)
		writeError(w, http.StatusTooManyRequests, errs.New(errs.KindValidation, "too many authentication attempts"))
		return
	}

	if !isSecureTransport(r) && !h.mgr.cfg.AllowHTTP {
		writeError(w, http.StatusBadRequest, errTransportNotTLS)
		return
	}

	var creds Credentials
	var req IssueRequest

	if user, pass, ok := r.BasicAuth(); ok {
		creds = Credentials{User: user, Password: pass}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, errs.Wrap(errs.KindValidation, err, "decode request body"))
			return
		}
		creds.Host = req.Host
	} else {
		var env Envelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			writeError(w, http.StatusBadRequest, errs.Wrap(errs.KindValidation, err, "decode envelope"))
			return
		}
		payload, err := Decrypt(&env, h.mgr.cfg.KeyID, h.mgr.cfg.PrivateKey)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		creds = payload.Credentials
		req = payload.Request
		creds.Host = req.Host
	}

	st, err := h.mgr.Issue(r.Context(), creds, req)
	if err != nil {
		metrics.RecordAuthIssue(false)
		status := http.StatusInternalServerError
		switch errs.KindOf(err) {
		case errs.KindValidation:
			status = http.StatusBadRequest
		case errs.KindUnauthorized:
			status = http.StatusUnauthorized
		}
		writeError(w, status, err)
		return
	}

	metrics.RecordAuthIssue(true)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"access_token": st.Token,
		"token_type":   "Bearer",
		"expires_in":   int(st.ExpiresAt.Sub(st.CreatedAt).Seconds()),
		"expires_at":   st.ExpiresAt.Unix(),
	})
}

// BearerToken extracts the Authorization: Bearer <token> value from r,
// for the invocation closure's context propagation.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimPrefix(h, prefix)
}

func isSecureTransport(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("x-forwarded-proto"), "https")
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.GetLogger().Warn("auth: failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
