// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"
)

// FetchPeerCertificate dials host:port with a TLS handshake and returns the
// leaf certificate the server presented, for sources that verify the
// upstream's certificate rather than disabling verification outright.
func FetchPeerCertificate(ctx context.Context, host string, port int) (*tls.Certificate, error) {
	d := &net.Dialer{Timeout: 5 * time.Second}
	// Verification is skipped here: we only want the presented chain, and
	// the caller decides what to do with it.
	conn, err := tls.DialWithDialer(d, "tcp", fmt.Sprintf("%s:%d", host, port), TLSConfigFor(true))
	if err != nil {
		return nil, fmt.Errorf("fetch peer certificate: %w", err)
	}
	defer conn.Close()

	state := conn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return nil, fmt.Errorf("fetch peer certificate: no certificate presented by %s:%d", host, port)
	}
	return &tls.Certificate{Certificate: [][]byte{state.PeerCertificates[0].Raw}, Leaf: state.PeerCertificates[0]}, nil
}

// TLSConfigFor builds the *tls.Config used to dial a SourceDescriptor's
// upstream, honoring ignore_unauthorized (default true).
func TLSConfigFor(ignoreUnauthorized bool) *tls.Config {
	return &tls.Config{InsecureSkipVerify: ignoreUnauthorized}
}
