// Copyright 2014 The Go Authors. All rights reserved.
// Copyright 2026 The rprof Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package arch contains architecture-specific definitions. rprof targets
// Linux/x86_64 only, so this package now carries just the word-decoding
// helpers the reader uses to pull atomics out of the raw mmap'd Shared
// Stats Region, rather than the breakpoint/ptrace register metadata a
// source-level debugger needs.
package arch

import "encoding/binary"

// AMD64 describes the only architecture rprof supports. PointerSize and
// ByteOrder drive how the reader decodes raw SSR bytes (internal/ssrlayout)
// without relying on unsafe struct overlays, the same role this struct
// played for ptrace register decoding in the debugger this package is
// descended from.
var AMD64 = Architecture{
	PointerSize: 8,
	WordSize:    8,
	ByteOrder:   binary.LittleEndian,
}

// Architecture holds the decoding parameters for a target machine.
type Architecture struct {
	// PointerSize is the size of a pointer, in bytes.
	PointerSize int
	// WordSize is the size of the SSR's atomic counter fields, in bytes.
	WordSize int
	// ByteOrder is the byte order used for all multi-byte SSR fields; the
	// format is local-host only, so this is always the host's native
	// order, never a wire-format fixed endianness.
	ByteOrder binary.ByteOrder
}

// Uint64 decodes a native-endian 8-byte word, panicking if buf is short.
func (a *Architecture) Uint64(buf []byte) uint64 {
	return a.ByteOrder.Uint64(buf[:8])
}

// Uint32 decodes a native-endian 4-byte word, panicking if buf is short.
func (a *Architecture) Uint32(buf []byte) uint32 {
	return a.ByteOrder.Uint32(buf[:4])
}
