// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

// Package errs defines the error kinds shared across the server:
// ConfigError, ValidationError, Unauthorized, ServiceNotInitialized,
// DatabaseError, and InternalError, plus ToolsPathError, a narrower kind
// carved out of ConfigError specifically for an unresolvable --tools
// specifier. Each kind is a sentinel that
// component boundaries wrap the underlying cause with, so callers can
// classify a failure with errors.Is without inspecting strings.
package errs

import (
	"github.com/cockroachdb/errors"
)

// Kind identifies one of the server's error categories.
type Kind string

const (
	KindConfig                Kind = "ConfigError"
	KindToolsPath             Kind = "ToolsPathError"
	KindValidation            Kind = "ValidationError"
	KindUnauthorized          Kind = "Unauthorized"
	KindServiceNotInitialized Kind = "ServiceNotInitialized"
	KindDatabase              Kind = "DatabaseError"
	KindInternal              Kind = "InternalError"
)

var (
	ErrConfig                = errors.New(string(KindConfig))
	ErrToolsPath             = errors.New(string(KindToolsPath))
	ErrValidation            = errors.New(string(KindValidation))
	ErrUnauthorized          = errors.New(string(KindUnauthorized))
	ErrServiceNotInitialized = errors.New(string(KindServiceNotInitialized))
	ErrDatabase              = errors.New(string(KindDatabase))
	ErrInternal              = errors.New(string(KindInternal))
)

func sentinelFor(k Kind) error {
	switch k {
	case KindConfig:
		return ErrConfig
	case KindToolsPath:
		return ErrToolsPath
	case KindValidation:
		return ErrValidation
	case KindUnauthorized:
		return ErrUnauthorized
	case KindServiceNotInitialized:
		return ErrServiceNotInitialized
	case KindDatabase:
		return ErrDatabase
	default:
		return ErrInternal
	}
}

// Details is an optional list of violation/diagnostic strings carried
// alongside an error (e.g. the SQL Security Validator's violation list).
type Details []string

type wrapped struct {
	kind    Kind
	details Details
	cause   error
}

func (w *wrapped) Error() string { return w.cause.Error() }
func (w *wrapped) Unwrap() error { return w.cause }

// New creates an error carrying msg and the optional details, marked with
// kind so errors.Is(err, sentinelFor(kind)) succeeds.
func New(kind Kind, msg string, details ...string) error {
	base := errors.Mark(errors.New(msg), sentinelFor(kind))
	return &wrapped{kind: kind, details: Details(details), cause: base}
}

// Wrap attaches kind to an existing error, preserving it in the chain.
func Wrap(kind Kind, cause error, msg string) error {
	if cause == nil {
		return nil
	}
	base := errors.Mark(errors.Wrap(cause, msg), sentinelFor(kind))
	return &wrapped{kind: kind, cause: base}
}

// Is reports whether err was produced with the given kind.
func Is(err error, kind Kind) bool {
	return errors.Is(err, sentinelFor(kind))
}

// KindOf returns the Kind attached to err, or KindInternal if none matches.
func KindOf(err error) Kind {
	for _, k := range []Kind{KindConfig, KindToolsPath, KindValidation, KindUnauthorized, KindServiceNotInitialized, KindDatabase} {
		if Is(err, k) {
			return k
		}
	}
	return KindInternal
}

// DetailsOf returns the violation details attached to err, if any.
func DetailsOf(err error) Details {
	var w *wrapped
	if errors.As(err, &w) {
		return w.details
	}
	return nil
}
