package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sealEnvelope(t *testing.T, keyID string, pub *rsa.PublicKey, payload Payload) *Envelope {
	t.Helper()

	sessionKey := make([]byte, 32)
	_, err := rand.Read(sessionKey)
	require.NoError(t, err)

	plaintext, err := json.Marshal(payload)
	require.NoError(t, err)

	block, err := aes.NewCipher(sessionKey)
	require.NoError(t, err)
	gcm, err := cipher.NewGCM(block)
	require.NoError(t, err)

	iv := make([]byte, gcm.NonceSize())
	_, err = rand.Read(iv)
	require.NoError(t, err)

	sealed := gcm.Seal(nil, iv, plaintext, nil)
	ciphertext := sealed[:len(sealed)-gcm.Overhead()]
	tag := sealed[len(sealed)-gcm.Overhead():]

	wrappedKey, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, sessionKey, nil)
	require.NoError(t, err)

	return &Envelope{
		KeyID:               keyID,
		EncryptedSessionKey: base64.StdEncoding.EncodeToString(wrappedKey),
		IV:                  base64.StdEncoding.EncodeToString(iv),
		AuthTag:             base64.StdEncoding.EncodeToString(tag),
		Ciphertext:          base64.StdEncoding.EncodeToString(ciphertext),
	}
}

func TestDecrypt_RoundTrip(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	payload := Payload{
		Credentials: Credentials{User: "alice", Password: "secret"},
		Request:     IssueRequest{Host: "db01", Duration: 600},
	}
	env := sealEnvelope(t, "key-1", &priv.PublicKey, payload)

	got, err := Decrypt(env, "key-1", priv)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Credentials.User)
	assert.Equal(t, "db01", got.Request.Host)
}

func TestDecrypt_UnknownKeyIDRejected(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	env := sealEnvelope(t, "key-1", &priv.PublicKey, Payload{})

	_, err = Decrypt(env, "key-2", priv)
	assert.Error(t, err)
}

func TestDecrypt_TamperedCiphertextRejected(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	env := sealEnvelope(t, "key-1", &priv.PublicKey, Payload{Request: IssueRequest{Host: "db01"}})
	env.Ciphertext = base64.StdEncoding.EncodeToString([]byte("tampered-bytes-here"))

	_, err = Decrypt(env, "key-1", priv)
	assert.Error(t, err)
}
