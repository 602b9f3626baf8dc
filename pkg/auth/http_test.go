package auth

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ibmi-tools/db2i-mcp-server/pkg/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager(t *testing.T, allowHTTP bool) (*Manager, *rsa.PrivateKey) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	m := NewManager(Config{
		KeyID:                 "key-1",
		PrivateKey:            priv,
		PublicKey:             &priv.PublicKey,
		AllowHTTP:             allowHTTP,
		MaxConcurrentSessions: 5,
	}, WithPoolOpener(func(ctx context.Context, creds Credentials, poolStart, poolMax int) (*pool.SourceManager, error) {
		return pool.NewSourceManager(nil), nil
	}))
	t.Cleanup(m.Shutdown)
	return m, priv
}

func TestHandler_PublicKey(t *testing.T) {
	m, _ := testManager(t, true)
	h := NewHandler(m)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/public-key", nil)
	rec := httptest.NewRecorder()
	h.PublicKey(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "key-1", body["keyId"])
	assert.Contains(t, body["publicKey"], "PUBLIC KEY")
}

func TestHandler_PublicKey_DisabledReturns404(t *testing.T) {
	m := NewManager(Config{MaxConcurrentSessions: 5}, WithPoolOpener(func(ctx context.Context, creds Credentials, poolStart, poolMax int) (*pool.SourceManager, error) {
		return pool.NewSourceManager(nil), nil
	}))
	defer m.Shutdown()
	h := NewHandler(m)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/public-key", nil)
	rec := httptest.NewRecorder()
	h.PublicKey(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Issue_EncryptedEnvelope(t *testing.T) {
	m, priv := testManager(t, true)
	h := NewHandler(m)

	env := sealEnvelope(t, "key-1", &priv.PublicKey, Payload{
		Credentials: Credentials{User: "alice", Password: "secret"},
		Request:     IssueRequest{Host: "db01", Duration: 600},
	})
	body, err := json.Marshal(env)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth", bytes.NewReader(body))
	req.TLS = &tls.ConnectionState{}
	rec := httptest.NewRecorder()
	h.Issue(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["access_token"])
}

func TestHandler_Issue_BasicAuthAlternative(t *testing.T) {
	m, _ := testManager(t, true)
	h := NewHandler(m)

	reqBody, err := json.Marshal(IssueRequest{Host: "db01", Duration: 600})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth", bytes.NewReader(reqBody))
	req.SetBasicAuth("alice", "secret")
	req.TLS = &tls.ConnectionState{}
	rec := httptest.NewRecorder()
	h.Issue(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestHandler_Issue_RejectedOverPlainHTTP(t *testing.T) {
	m, priv := testManager(t, false)
	h := NewHandler(m)

	env := sealEnvelope(t, "key-1", &priv.PublicKey, Payload{Request: IssueRequest{Host: "db01"}})
	body, err := json.Marshal(env)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Issue(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Issue_UnknownKeyIDRejected(t *testing.T) {
	m, _ := testManager(t, true)
	h := NewHandler(m)

	otherPriv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	env := sealEnvelope(t, "wrong-key", &otherPriv.PublicKey, Payload{Request: IssueRequest{Host: "db01"}})
	body, err := json.Marshal(env)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth", bytes.NewReader(body))
	req.TLS = &tls.ConnectionState{}
	rec := httptest.NewRecorder()
	h.Issue(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc123")
	assert.Equal(t, "abc123", BearerToken(req))

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, BearerToken(req2))
}
