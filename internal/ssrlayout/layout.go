// Copyright 2026 The rprof Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ssrlayout documents and constant-ifies the byte layout of the
// Shared Stats Region (SSR), the wait-free mmap'd ABI between the recorder
// (cgo, package recorder) and the reader (package reader).
//
// The layout is a schema, not a set of owned references: the recorder side
// is plain C and has no visibility into this package, so every constant
// here has a byte-for-byte twin in recorder/ssr.h. Changing one without the
// other breaks the ABI. MagicNumber and Version exist precisely so that
// mismatches are caught at attach time instead of silently misread.
package ssrlayout

// SharedMemoryName is the fixed, well-known POSIX shared-memory object name
// used by both sides. It is unlinked and recreated by the recorder on
// target startup to guarantee a clean slate.
const SharedMemoryName = "/rprof-ssr"

// MagicNumber identifies the aggregated-table SSR format, as opposed to an
// older ring-buffer layout this format replaces.
const MagicNumber uint64 = 0x5250524f465f5353 // "RPROF_SS"

// Version is bumped whenever the on-disk layout changes incompatibly.
const Version uint32 = 1

// Default table capacities: both are powers of two.
const (
	DefaultCallsiteCapacity = 8192
	DefaultAllocCapacity    = 262144
)

// MaxStackDepth bounds the representative-stack array stored per call-site
// slot.
const MaxStackDepth = 64

// Header field byte offsets, all native-endian.
const (
	OffsetMagic             = 0
	OffsetVersion            = 8
	OffsetCallsiteCapacity   = 12
	OffsetAllocCapacity      = 16
	OffsetPID                = 20
	HeaderSize               = 24 // padded to 8-byte alignment for the tables that follow
)

// CallsiteSlot field offsets, relative to the start of the slot.
//
//	hash           u64 atomic, occupancy marker; 0 = empty
//	allocCount     u64 atomic
//	allocBytes     u64 atomic
//	freeCount      u64 atomic
//	freeBytes      u64 atomic
//	cpuSamples     u64 atomic
//	stackDepth     u64 atomic (written once, before hash is released)
//	stack          [MaxStackDepth]u64 (written once, before hash is released)
const (
	CallsiteOffsetHash       = 0
	CallsiteOffsetAllocCount = 8
	CallsiteOffsetAllocBytes = 16
	CallsiteOffsetFreeCount  = 24
	CallsiteOffsetFreeBytes  = 32
	CallsiteOffsetCPUSamples = 40
	CallsiteOffsetStackDepth = 48
	CallsiteOffsetStack      = 56
	CallsiteSlotSize         = CallsiteOffsetStack + MaxStackDepth*8
)

// AllocSlot field offsets.
//
//	ptr    u64 atomic; 0 = empty, AllocTombstone = tombstone, else live
//	size   u64
//	key    u64 (the owning call-site's stack key)
const (
	AllocOffsetPtr  = 0
	AllocOffsetSize = 8
	AllocOffsetKey  = 16
	AllocSlotSize   = 24
)

// AllocTombstone marks a deleted live-allocation entry; probing must
// continue past it rather than stop.
const AllocTombstone uint64 = ^uint64(0)

// AllocProbeLimit bounds linear probing in the live-allocation table so the
// hot path can never degrade to a full-table scan. Tracking is dropped
// silently if no slot is found within this window.
const AllocProbeLimit = 1024

// RegionSize computes the total mmap size for the given table capacities.
func RegionSize(callsiteCapacity, allocCapacity uint32) int64 {
	return int64(HeaderSize) +
		int64(callsiteCapacity)*int64(CallsiteSlotSize) +
		int64(allocCapacity)*int64(AllocSlotSize)
}
