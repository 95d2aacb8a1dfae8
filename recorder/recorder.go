// Copyright 2026 The rprof Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux && cgo

// Package recorder is the in-target half of rprof: linked into the
// profiled program, it takes over the global allocator and installs a
// periodic SIGPROF-driven CPU sampler, aggregating both into the Shared
// Stats Region (see internal/ssrlayout) for the reader process to pick up.
//
// Every hot path here is implemented in C (ssr.c, stackwalk.c, sigprof.c,
// wrap.c): Go's runtime is not async-signal-safe (goroutine scheduling,
// the GC, and channel operations may all allocate or block), so a
// SIGPROF handler written in Go cannot satisfy async-signal-safety.
// This package's Go surface is limited to process lifecycle: arming and
// disarming the sampler.
package recorder

/*
#cgo CFLAGS: -g -O2 -fno-omit-frame-pointer
#cgo LDFLAGS: -Wl,--wrap=malloc -Wl,--wrap=calloc -Wl,--wrap=realloc -Wl,--wrap=free

#include "ssr.h"
*/
import "C"

import (
	"errors"
	"sync"
)

var (
	mu      sync.Mutex
	started bool
)

// Start lazily initializes the Shared Stats Region (idempotent; the first
// allocator call after process start would have done this anyway) and
// arms the CPU sampler at freqHz. freqHz of 0 disables CPU sampling
// entirely while heap accounting continues.
func Start(freqHz int) error {
	mu.Lock()
	defer mu.Unlock()
	if started {
		return errors.New("recorder: already started")
	}
	if C.rprof_init() != 0 {
		return errors.New("recorder: failed to initialize shared stats region")
	}
	if C.rprof_install_sigprof(C.int(freqHz)) != 0 {
		return errors.New("recorder: failed to install SIGPROF handler")
	}
	started = true
	return nil
}

// Shutdown disarms the CPU sampler and restores the prior SIGPROF
// handler. The Shared Stats Region mapping is left intact so the reader
// can finish draining it; it is unlinked and recreated only the next time
// a target process starts.
func Shutdown() {
	mu.Lock()
	defer mu.Unlock()
	if !started {
		return
	}
	C.rprof_shutdown()
	started = false
}

// Enabled reports whether the Shared Stats Region is mapped and recording
// (diagnostic use; e.g. to log a warning if linked but never started).
func Enabled() bool {
	return C.rprof_enabled() != 0
}
