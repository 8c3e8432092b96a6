//
// Copyright 2025 Signal Messenger, LLC
// SPDX-License-Identifier: AGPL-3.0-only
//

package provision

import (
	"errors"
	"fmt"
)

// Kind is a stable category for programmatic error handling. Callers should
// branch on Kind rather than matching error strings.
type Kind string

const (
	// KindValidation covers bad run parameters: an unusable activation
	// duration, or a public key too short for content-derived naming.
	KindValidation Kind = "Validation"
	// KindIO covers entropy-read and file create/read/write failures.
	KindIO Kind = "IO"
	// KindEncoding covers key material that fails to serialize, and
	// persisted encodings that fail to deserialize into a typed key.
	KindEncoding Kind = "Encoding"
)

// noIndex marks errors that are not tied to a single key.
const noIndex = int64(-1)

// Error is the structured failure type provisioning operations return.
type Error struct {
	Kind Kind
	// Index is the key index the failure relates to, or -1 when the
	// failure is not tied to one key.
	Index int64
	// Path is the file involved, if any.
	Path  string
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Index >= 0 {
		msg = fmt.Sprintf("key %d: %s", e.Index, msg)
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Path)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func validationErr(index int64, msg string) *Error {
	return &Error{Kind: KindValidation, Index: index, Msg: msg}
}

func ioErr(index int64, path, msg string, cause error) *Error {
	return &Error{Kind: KindIO, Index: index, Path: path, Msg: msg, Cause: cause}
}

func encodingErr(index int64, path, msg string, cause error) *Error {
	return &Error{Kind: KindEncoding, Index: index, Path: path, Msg: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
