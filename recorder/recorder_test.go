// Copyright 2026 The rprof Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux && cgo

package recorder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartShutdownLifecycle(t *testing.T) {
	err := Start(0)
	require.NoError(t, err)
	assert.True(t, Enabled())

	// A second Start before Shutdown must be rejected: the package holds
	// exactly one live SSR mapping and one installed handler per process.
	err = Start(0)
	assert.Error(t, err)

	Shutdown()
	// Shutdown only disarms the timer/handler; the SSR mapping itself
	// persists for the reader, so Enabled stays true.
	assert.True(t, Enabled())
}

func TestStartWithCPUSampling(t *testing.T) {
	err := Start(100)
	require.NoError(t, err)
	defer Shutdown()
	assert.True(t, Enabled())

	// Busy-loop briefly so at least one SIGPROF tick has a chance to
	// land; this is a smoke test, not a statistical one.
	sum := 0
	for i := 0; i < 50_000_000; i++ {
		sum += i % 7
	}
	_ = sum
}

func TestAllocationsDoNotCrash(t *testing.T) {
	require.NoError(t, Start(0))
	defer Shutdown()

	bufs := make([][]byte, 0, 1000)
	for i := 0; i < 1000; i++ {
		bufs = append(bufs, make([]byte, 1024))
	}
	for i := range bufs {
		bufs[i] = nil
	}
	_ = bufs
	// Go's own allocator isn't routed through the wrapped C malloc family
	// (cgo heap vs Go heap are distinct), so this test only asserts the
	// recorder survives concurrent-with-GC operation, not that these
	// specific allocations were counted.
}
