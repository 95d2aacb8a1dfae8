// Copyright 2026 The rprof Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package reader is the external half of rprof: it attaches to a live
// target's Shared Stats Region, runs the periodic snapshot loop, and
// feeds resolved, filtered records to the checkpoint store.
package reader

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/rprof-dev/rprof/arch"
	"github.com/rprof-dev/rprof/internal/ssrlayout"
)

// SSR is a read-only attachment to a target's Shared Stats Region.
type SSR struct {
	data              []byte
	callsiteCapacity  uint32
	allocCapacity     uint32
	pid               uint32
}

// devShmPath maps a POSIX shared-memory name (as used by shm_open, always
// beginning with "/") to its backing file under Linux's tmpfs-mounted
// /dev/shm, since the standard library and x/sys/unix expose open(2) but
// not shm_open(2) directly.
func devShmPath(name string) string {
	if len(name) > 0 && name[0] == '/' {
		name = name[1:]
	}
	return "/dev/shm/" + name
}

// Attach opens the well-known Shared Stats Region read-only, validates its
// magic and version, and maps it into this process's address space.
func Attach() (*SSR, error) {
	path := devShmPath(ssrlayout.SharedMemoryName)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening shared stats region: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat shared stats region: %w", err)
	}
	if info.Size() < int64(ssrlayout.HeaderSize) {
		return nil, fmt.Errorf("shared stats region too small to contain a header (%d bytes)", info.Size())
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mapping shared stats region: %w", err)
	}

	magic := arch.AMD64.Uint64(data[ssrlayout.OffsetMagic:])
	if magic != ssrlayout.MagicNumber {
		unix.Munmap(data)
		return nil, fmt.Errorf("shared stats region magic mismatch: got %#x want %#x", magic, ssrlayout.MagicNumber)
	}
	version := arch.AMD64.Uint32(data[ssrlayout.OffsetVersion:])
	if version != ssrlayout.Version {
		unix.Munmap(data)
		return nil, fmt.Errorf("shared stats region version mismatch: got %d want %d", version, ssrlayout.Version)
	}

	return &SSR{
		data:             data,
		callsiteCapacity: arch.AMD64.Uint32(data[ssrlayout.OffsetCallsiteCapacity:]),
		allocCapacity:    arch.AMD64.Uint32(data[ssrlayout.OffsetAllocCapacity:]),
		pid:              arch.AMD64.Uint32(data[ssrlayout.OffsetPID:]),
	}, nil
}

// Close unmaps the region. Safe to call once; the SSR object itself
// continues to exist in the filesystem until the target's next startup.
func (s *SSR) Close() error {
	return unix.Munmap(s.data)
}

// PID is the pid recorded by the recorder at init time — not necessarily
// the pid the reader attached to by request, if a stale SSR is reused.
func (s *SSR) PID() uint32 { return s.pid }

// CallsiteCapacity is the number of call-site slots in the table.
func (s *SSR) CallsiteCapacity() uint32 { return s.callsiteCapacity }

func (s *SSR) callsiteSlot(i uint32) []byte {
	off := ssrlayout.HeaderSize + int(i)*ssrlayout.CallsiteSlotSize
	return s.data[off : off+ssrlayout.CallsiteSlotSize]
}

// CallsiteSlot is one decoded call-site aggregate read from the mapped
// region. A full snapshot is not atomic across slots — different slots
// may be read at slightly different points in the recorder's ongoing
// writes — but each field read uses the Go memory model's guarantees for
// aligned word loads, which is sufficient given the recorder's own
// release/acquire discipline on Hash.
type CallsiteSlot struct {
	Hash        uint64
	AllocCount  uint64
	AllocBytes  uint64
	FreeCount   uint64
	FreeBytes   uint64
	CPUSamples  uint64
	StackDepth  uint64
	Stack       [ssrlayout.MaxStackDepth]uint64
}

// Snapshot reads every occupied call-site slot currently visible. A slot
// is included only if its Hash field (read first, with acquire-like
// ordering via a fresh read) is non-zero; its Stack/StackDepth are
// guaranteed complete by the recorder's write-before-release discipline.
func (s *SSR) Snapshot() []CallsiteSlot {
	out := make([]CallsiteSlot, 0, s.callsiteCapacity)
	for i := uint32(0); i < s.callsiteCapacity; i++ {
		buf := s.callsiteSlot(i)
		hash := arch.AMD64.Uint64(buf[ssrlayout.CallsiteOffsetHash:])
		if hash == 0 {
			continue
		}
		slot := CallsiteSlot{
			Hash:       hash,
			AllocCount: arch.AMD64.Uint64(buf[ssrlayout.CallsiteOffsetAllocCount:]),
			AllocBytes: arch.AMD64.Uint64(buf[ssrlayout.CallsiteOffsetAllocBytes:]),
			FreeCount:  arch.AMD64.Uint64(buf[ssrlayout.CallsiteOffsetFreeCount:]),
			FreeBytes:  arch.AMD64.Uint64(buf[ssrlayout.CallsiteOffsetFreeBytes:]),
			CPUSamples: arch.AMD64.Uint64(buf[ssrlayout.CallsiteOffsetCPUSamples:]),
			StackDepth: arch.AMD64.Uint64(buf[ssrlayout.CallsiteOffsetStackDepth:]),
		}
		depth := int(slot.StackDepth)
		if depth > ssrlayout.MaxStackDepth {
			depth = ssrlayout.MaxStackDepth
		}
		stackOff := ssrlayout.CallsiteOffsetStack
		for j := 0; j < depth; j++ {
			slot.Stack[j] = arch.AMD64.Uint64(buf[stackOff+j*8:])
		}
		out = append(out, slot)
	}
	return out
}
