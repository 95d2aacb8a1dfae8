// Copyright 2026 The rprof Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package logging wires rprofd's structured logging: a logiface.Logger
// backed by stumpy's JSON event encoder, writing newline-delimited JSON to
// stderr (or wherever New is pointed).
package logging

import (
	"io"
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the type every rprofd package logs through.
type Logger = logiface.Logger[*stumpy.Event]

// New builds a Logger at the given minimum level, writing JSON lines to w.
// A nil w defaults to os.Stderr.
func New(w io.Writer, level logiface.Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return logiface.New[*stumpy.Event](
		logiface.WithLevel[*stumpy.Event](level),
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
	)
}

// Discard is a Logger that drops every event; used by packages exercised
// in tests that don't want logging as a side-channel assertion.
func Discard() *Logger {
	return New(io.Discard, logiface.LevelEmergency)
}

// ParseLevel maps the --log-level flag's string values onto logiface
// levels. It reports false for an unrecognized name and leaves the
// fallback to the caller.
func ParseLevel(s string) (logiface.Level, bool) {
	switch s {
	case "trace":
		return logiface.LevelTrace, true
	case "debug":
		return logiface.LevelDebug, true
	case "info":
		return logiface.LevelInformational, true
	case "warn", "warning":
		return logiface.LevelWarning, true
	case "error":
		return logiface.LevelError, true
	default:
		return 0, false
	}
}
