// Copyright 2026 The rprof Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package procutil reads /proc-derived facts about a live target process:
// its executable path, its memory mappings, and the ASLR load offset
// derived from them. It is the reader's (and symbolize's) only window into
// the target's address space; nothing here touches the target's memory,
// only its procfs metadata.
package procutil

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Mapping is one parsed line of /proc/[pid]/maps.
type Mapping struct {
	Start, End uint64
	Perms      string
	Offset     uint64
	Pathname   string
}

// Executable reports whether the mapping is marked executable.
func (m Mapping) Executable() bool { return strings.Contains(m.Perms, "x") }

// MemoryMaps is the parsed mapping list for one process, in file order
// (which is address order).
type MemoryMaps struct {
	Mappings []Mapping
}

// ReadMaps parses /proc/[pid]/maps for pid.
func ReadMaps(pid int) (*MemoryMaps, error) {
	path := fmt.Sprintf("/proc/%d/maps", pid)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading maps for pid %d: %w", pid, err)
	}
	defer f.Close()

	var mm MemoryMaps
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		m, ok := parseMapLine(sc.Text())
		if ok {
			mm.Mappings = append(mm.Mappings, m)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading maps for pid %d: %w", pid, err)
	}
	return &mm, nil
}

func parseMapLine(line string) (Mapping, bool) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return Mapping{}, false
	}
	addrs := strings.SplitN(fields[0], "-", 2)
	if len(addrs) != 2 {
		return Mapping{}, false
	}
	start, err := strconv.ParseUint(addrs[0], 16, 64)
	if err != nil {
		return Mapping{}, false
	}
	end, err := strconv.ParseUint(addrs[1], 16, 64)
	if err != nil {
		return Mapping{}, false
	}
	offset, err := strconv.ParseUint(fields[2], 16, 64)
	if err != nil {
		return Mapping{}, false
	}
	var pathname string
	if len(fields) >= 6 {
		pathname = strings.Join(fields[5:], " ")
	}
	return Mapping{
		Start:    start,
		End:      end,
		Perms:    fields[1],
		Offset:   offset,
		Pathname: pathname,
	}, true
}

// ASLROffset returns the load offset to subtract from a runtime address
// before a DWARF lookup.
//
// It uses the FIRST mapping of exePath, regardless of permission bits, not
// the first *executable* mapping: the executable (text) segment typically
// has a non-zero file offset, and start-minus-file-offset on that segment
// would yield the wrong base. The first mapping (usually a read-only
// header/rodata segment at file offset 0) gives the correct base.
func (mm *MemoryMaps) ASLROffset(exePath string) (uint64, error) {
	base := baseName(exePath)
	for _, m := range mm.Mappings {
		if m.Pathname == "" {
			continue
		}
		if m.Pathname == exePath || baseName(m.Pathname) == base {
			return m.Start - m.Offset, nil
		}
	}
	// Non-PIE binaries, or a path we couldn't match: offset 0 is correct
	// (or at least harmless) for a non-PIE load.
	return 0, nil
}

func baseName(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

// FirstMappingOf returns the first mapping that matches exePath, used by
// callers that need the raw mapping rather than just the offset.
func (mm *MemoryMaps) FirstMappingOf(exePath string) (Mapping, bool) {
	base := baseName(exePath)
	for _, m := range mm.Mappings {
		if m.Pathname == "" {
			continue
		}
		if m.Pathname == exePath || baseName(m.Pathname) == base {
			return m, true
		}
	}
	return Mapping{}, false
}
