// Copyright 2026 The rprof Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package exitcode maps errors from the profiler's subsystems onto a small,
// stable taxonomy of process exit codes, so scripts invoking rprofd can
// branch on failure class without parsing messages.
package exitcode

import (
	"errors"
	"os"

	"github.com/rprof-dev/rprof/procutil"
)

const (
	OK                 = 0
	Generic            = 1
	InvalidArgs        = 2
	ProcessNotFound    = 3
	PermissionDenied   = 4
	MissingDebugInfo   = 5
	DatabaseError      = 6
)

// dbError is implemented by errors that should map to DatabaseError; the
// store package's open/flush failures satisfy it by wrapping with this
// marker via WithDatabaseError.
type dbError struct{ err error }

func (e *dbError) Error() string { return e.err.Error() }
func (e *dbError) Unwrap() error { return e.err }

// WithDatabaseError tags err so For classifies it as a database failure.
func WithDatabaseError(err error) error {
	if err == nil {
		return nil
	}
	return &dbError{err: err}
}

// missingDebugInfoError tags an error as a missing/unusable DWARF failure.
type missingDebugInfoError struct{ err error }

func (e *missingDebugInfoError) Error() string { return e.err.Error() }
func (e *missingDebugInfoError) Unwrap() error { return e.err }

// WithMissingDebugInfo tags err so For classifies it as missing debug info.
func WithMissingDebugInfo(err error) error {
	if err == nil {
		return nil
	}
	return &missingDebugInfoError{err: err}
}

// invalidArgsError tags an error as a usage/argument-validation failure.
type invalidArgsError struct{ err error }

func (e *invalidArgsError) Error() string { return e.err.Error() }
func (e *invalidArgsError) Unwrap() error { return e.err }

// WithInvalidArgs tags err so For classifies it as an invalid-argument
// failure. Errors that cobra itself returns (unknown flags or subcommands,
// a wrong argument count) carry no such tag and classify as Generic.
func WithInvalidArgs(err error) error {
	if err == nil {
		return nil
	}
	return &invalidArgsError{err: err}
}

// For classifies err into one of the exit codes above. Unclassified errors
// map to Generic.
func For(err error) int {
	if err == nil {
		return OK
	}

	var dbErr *dbError
	if errors.As(err, &dbErr) {
		return DatabaseError
	}
	var debugErr *missingDebugInfoError
	if errors.As(err, &debugErr) {
		return MissingDebugInfo
	}
	var argsErr *invalidArgsError
	if errors.As(err, &argsErr) {
		return InvalidArgs
	}
	if errors.Is(err, procutil.ErrNotFound) {
		return ProcessNotFound
	}
	if errors.Is(err, procutil.ErrPermission) {
		return PermissionDenied
	}
	if errors.Is(err, os.ErrPermission) {
		return PermissionDenied
	}
	if errors.Is(err, os.ErrNotExist) {
		return ProcessNotFound
	}
	return Generic
}

// Exit calls os.Exit with the code For assigns to err. It does not print
// err; cobra's own error reporting has already done so.
func Exit(err error) {
	os.Exit(For(err))
}
