// Copyright 2026 The rprof Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package procutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMapLineExtractsFields(t *testing.T) {
	m, ok := parseMapLine("00400000-00452000 r-xp 00000000 08:02 173521      /usr/bin/dd")
	require.True(t, ok)
	assert.Equal(t, uint64(0x400000), m.Start)
	assert.Equal(t, uint64(0x452000), m.End)
	assert.Equal(t, "r-xp", m.Perms)
	assert.Equal(t, uint64(0), m.Offset)
	assert.Equal(t, "/usr/bin/dd", m.Pathname)
	assert.True(t, m.Executable())
}

func TestParseMapLineAnonymousMapping(t *testing.T) {
	m, ok := parseMapLine("7f8888800000-7f8888821000 rw-p 00000000 00:00 0")
	require.True(t, ok)
	assert.Equal(t, "", m.Pathname)
	assert.False(t, m.Executable())
}

func TestParseMapLineRejectsShortLine(t *testing.T) {
	_, ok := parseMapLine("garbage")
	assert.False(t, ok)
}

func TestASLROffsetUsesFirstMappingRegardlessOfPermissions(t *testing.T) {
	mm := &MemoryMaps{Mappings: []Mapping{
		{Start: 0x555555554000, End: 0x555555556000, Perms: "r--p", Offset: 0, Pathname: "/usr/bin/target"},
		{Start: 0x555555556000, End: 0x555555570000, Perms: "r-xp", Offset: 0x2000, Pathname: "/usr/bin/target"},
	}}
	offset, err := mm.ASLROffset("/usr/bin/target")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x555555554000), offset)
}

func TestASLROffsetFallsBackToZeroForUnmatchedPath(t *testing.T) {
	mm := &MemoryMaps{Mappings: []Mapping{
		{Start: 0x1000, End: 0x2000, Perms: "r-xp", Pathname: "/lib/libc.so.6"},
	}}
	offset, err := mm.ASLROffset("/usr/bin/nonexistent")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), offset)
}

func TestFirstMappingOfMatchesByBaseName(t *testing.T) {
	mm := &MemoryMaps{Mappings: []Mapping{
		{Start: 0x1000, End: 0x2000, Pathname: "/proc/self/root/usr/bin/target"},
	}}
	m, ok := mm.FirstMappingOf("/usr/bin/target")
	require.True(t, ok)
	assert.Equal(t, uint64(0x1000), m.Start)
}
