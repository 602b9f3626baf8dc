// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"

	"github.com/ibmi-tools/db2i-mcp-server/pkg/errs"
)

// LoadKeyPair reads a PEM-encoded RSA private key from privatePath and
// derives its public key; the resulting triple is read once at startup
// and held for the process lifetime.
func LoadKeyPair(privatePath string) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	raw, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, nil, errs.Wrap(errs.KindConfig, err, "read auth private key "+privatePath)
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, nil, errs.New(errs.KindConfig, "auth private key is not valid PEM: "+privatePath)
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		key, err2 := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err2 != nil {
			return nil, nil, errs.Wrap(errs.KindConfig, err, "parse auth private key "+privatePath)
		}
		return key, &key.PublicKey, nil
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, nil, errs.New(errs.KindConfig, "auth private key is not an RSA key: "+privatePath)
	}
	return rsaKey, &rsaKey.PublicKey, nil
}

func encodePublicKeyPEM(pub *rsa.PublicKey) string {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return ""
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}
