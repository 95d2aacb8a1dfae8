// Copyright 2026 The rprof Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package symbolize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortUint64s(t *testing.T) {
	s := []uint64{5, 1, 4, 2, 3}
	sortUint64s(s)
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, s)
}

func TestSortUint64sEmptyAndSingle(t *testing.T) {
	var empty []uint64
	sortUint64s(empty)
	assert.Empty(t, empty)

	single := []uint64{42}
	sortUint64s(single)
	assert.Equal(t, []uint64{42}, single)
}

func TestDemangleNameFallsBackForUnrecognizedNames(t *testing.T) {
	assert.Equal(t, "main", demangleName("main"))
	assert.Equal(t, "malloc", demangleName("malloc"))
}

func TestDemangleNameDemanglesItaniumNames(t *testing.T) {
	got := demangleName("_Z3fooi")
	assert.Equal(t, "foo", got)
}

func TestFuncTableLookupFindsEnclosingSymbol(t *testing.T) {
	ft := &funcTable{
		starts: []uint64{0x1000, 0x2000, 0x3000},
		names: map[uint64]string{
			0x1000: "main.a",
			0x2000: "main.b",
			0x3000: "main.c",
		},
	}

	name, found := ft.lookup(0x2050)
	assert.True(t, found)
	assert.Equal(t, "main.b", name)

	name, found = ft.lookup(0x1000)
	assert.True(t, found)
	assert.Equal(t, "main.a", name)

	_, found = ft.lookup(0xFF)
	assert.False(t, found)
}
