// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

package auth

import "github.com/ibmi-tools/db2i-mcp-server/pkg/errs"

var (
	errHostRequired    = errs.New(errs.KindValidation, "request.host must be non-empty")
	errDurationRange   = errs.New(errs.KindValidation, "request.duration must be in (0, 86400]")
	errPoolStartRange  = errs.New(errs.KindValidation, "request.poolstart must be in [1, 50]")
	errPoolMaxRange    = errs.New(errs.KindValidation, "request.poolmax must be in [1, 100]")
	errPoolStartGTMax  = errs.New(errs.KindValidation, "request.poolstart must be <= request.poolmax")
	errUnknownKeyID    = errs.New(errs.KindValidation, "unknown keyId")
	errSessionKeyLen   = errs.New(errs.KindValidation, "decrypted session key must be 32 bytes")
	errTransportNotTLS = errs.New(errs.KindValidation, "auth endpoint requires TLS")
	errTooManySessions = errs.New(errs.KindInternal, "max_concurrent_sessions reached")
	errTokenMissing    = errs.New(errs.KindUnauthorized, "missing bearer token")
	errTokenExpired    = errs.New(errs.KindUnauthorized, "bearer token expired")
	errTokenUnknown    = errs.New(errs.KindUnauthorized, "bearer token not recognized")
)
