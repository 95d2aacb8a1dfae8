// Copyright 2026 The rprof Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package reader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rprof-dev/rprof/arch"
	"github.com/rprof-dev/rprof/internal/ssrlayout"
)

func TestDevShmPathStripsLeadingSlash(t *testing.T) {
	assert.Equal(t, "/dev/shm/rprof-ssr", devShmPath("/rprof-ssr"))
	assert.Equal(t, "/dev/shm/rprof-ssr", devShmPath("rprof-ssr"))
}

// buildRegion hand-assembles a minimal SSR region with one occupied
// call-site slot, exercising Snapshot's decode path without a live mmap.
func buildRegion(t *testing.T, callsiteCapacity uint32) []byte {
	t.Helper()
	size := int(ssrlayout.HeaderSize) + int(callsiteCapacity)*ssrlayout.CallsiteSlotSize
	buf := make([]byte, size)

	arch.AMD64.ByteOrder.PutUint32(buf[ssrlayout.OffsetCallsiteCapacity:], callsiteCapacity)
	arch.AMD64.ByteOrder.PutUint32(buf[ssrlayout.OffsetAllocCapacity:], 1024)
	arch.AMD64.ByteOrder.PutUint32(buf[ssrlayout.OffsetPID:], 4242)

	slotOff := ssrlayout.HeaderSize
	arch.AMD64.ByteOrder.PutUint64(buf[slotOff+ssrlayout.CallsiteOffsetHash:], 0xdeadbeef)
	arch.AMD64.ByteOrder.PutUint64(buf[slotOff+ssrlayout.CallsiteOffsetAllocCount:], 3)
	arch.AMD64.ByteOrder.PutUint64(buf[slotOff+ssrlayout.CallsiteOffsetAllocBytes:], 4096)
	arch.AMD64.ByteOrder.PutUint64(buf[slotOff+ssrlayout.CallsiteOffsetCPUSamples:], 7)
	arch.AMD64.ByteOrder.PutUint64(buf[slotOff+ssrlayout.CallsiteOffsetStackDepth:], 2)
	arch.AMD64.ByteOrder.PutUint64(buf[slotOff+ssrlayout.CallsiteOffsetStack:], 0x401000)
	arch.AMD64.ByteOrder.PutUint64(buf[slotOff+ssrlayout.CallsiteOffsetStack+8:], 0x401100)

	return buf
}

func TestSnapshotDecodesOccupiedSlots(t *testing.T) {
	const capacity = 4
	buf := buildRegion(t, capacity)
	ssr := &SSR{data: buf, callsiteCapacity: capacity, allocCapacity: 1024, pid: 4242}

	snapshot := ssr.Snapshot()
	require.Len(t, snapshot, 1)

	slot := snapshot[0]
	assert.Equal(t, uint64(0xdeadbeef), slot.Hash)
	assert.Equal(t, uint64(3), slot.AllocCount)
	assert.Equal(t, uint64(4096), slot.AllocBytes)
	assert.Equal(t, uint64(7), slot.CPUSamples)
	assert.Equal(t, uint64(2), slot.StackDepth)
	assert.Equal(t, uint64(0x401000), slot.Stack[0])
	assert.Equal(t, uint64(0x401100), slot.Stack[1])
	assert.Equal(t, uint32(4242), ssr.PID())
	assert.Equal(t, uint32(capacity), ssr.CallsiteCapacity())
}

func TestSnapshotSkipsEmptySlots(t *testing.T) {
	const capacity = 3
	buf := buildRegion(t, capacity)
	ssr := &SSR{data: buf, callsiteCapacity: capacity}
	assert.Len(t, ssr.Snapshot(), 1)
}
