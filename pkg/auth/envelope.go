// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"

	"github.com/ibmi-tools/db2i-mcp-server/pkg/errs"
)

// Envelope is the client->server encrypted credential wrapper: a session key wrapped with RSA-OAEP-SHA256, and a payload
// encrypted under that session key with AES-256-GCM.
type Envelope struct {
	KeyID               string `json:"keyId"`
	EncryptedSessionKey string `json:"encryptedSessionKey"`
	IV                  string `json:"iv"`
	AuthTag             string `json:"authTag"`
	Ciphertext          string `json:"ciphertext"`
}

// Payload is the plaintext the envelope carries once decrypted.
type Payload struct {
	Credentials Credentials  `json:"credentials"`
	Request     IssueRequest `json:"request"`
}

const sessionKeyLen = 32

// Decrypt unwraps env against priv, returning the plaintext Payload.
func Decrypt(env *Envelope, keyID string, priv *rsa.PrivateKey) (*Payload, error) {
	if env.KeyID != keyID {
		return nil, errUnknownKeyID
	}

	wrappedKey, err := base64.StdEncoding.DecodeString(env.EncryptedSessionKey)
	if err != nil {
		return nil, errs.Wrap(errs.KindValidation, err, "decode encryptedSessionKey")
	}
	sessionKey, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, wrappedKey, nil)
	if err != nil {
		return nil, errs.Wrap(errs.KindValidation, err, "RSA-OAEP decrypt session key")
	}
	if len(sessionKey) != sessionKeyLen {
		return nil, errSessionKeyLen
	}

	iv, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil {
		return nil, errs.Wrap(errs.KindValidation, err, "decode iv")
	}
	tag, err := base64.StdEncoding.DecodeString(env.AuthTag)
	if err != nil {
		return nil, errs.Wrap(errs.KindValidation, err, "decode authTag")
	}
	ciphertext, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return nil, errs.Wrap(errs.KindValidation, err, "decode ciphertext")
	}

	block, err := aes.NewCipher(sessionKey)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "construct AES cipher")
	}
	gcm, err := cipher.NewGCMWithTagSize(block, len(tag))
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "construct AES-GCM")
	}

	sealed := append(append([]byte{}, ciphertext...), tag...)
	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, errs.Wrap(errs.KindValidation, err, "AES-GCM decrypt payload")
	}

	var p Payload
	if err := json.Unmarshal(plaintext, &p); err != nil {
		return nil, errs.Wrap(errs.KindValidation, err, "parse decrypted payload JSON")
	}
	return &p, nil
}
