// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

// Package ratelimit enforces rate policy ahead of expensive operations,
// such as session issuance with its RSA private-key decryption.
package ratelimit

import (
	"golang.org/x/time/rate"
)

// Limiter is a token-bucket rate limiter: ratePerSecond tokens refill per
// second up to burst capacity.
type Limiter struct {
	l *rate.Limiter
}

// NewInMemoryLimiter constructs a Limiter refilling at ratePerSecond
// tokens/second with the given burst capacity.
func NewInMemoryLimiter(ratePerSecond float64, burst int) *Limiter {
	return &Limiter{l: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

// Allow reports whether a request may proceed now, consuming a token if so.
func (l *Limiter) Allow() bool {
	return l.l.Allow()
}
