// Copyright 2026 The rprof Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package symbolize

import (
	"debug/elf"
	"fmt"
	"sort"

	"github.com/ianlancetaylor/demangle"
)

// funcTable maps a function's start address to its demangled name.
type funcTable struct {
	starts []uint64          // sorted ascending
	names  map[uint64]string // start -> demangled name
}

// loadFuncTable builds a start-address -> demangled-name table from every
// text-section symbol in both the static and dynamic symbol tables.
//
// Demangling happens here, before any function-pattern matching — the
// filter in filter.go only ever sees demangled names.
func loadFuncTable(f *elf.File) (*funcTable, error) {
	ft := &funcTable{names: make(map[uint64]string)}

	add := func(syms []elf.Symbol) {
		for _, s := range syms {
			if elf.ST_TYPE(s.Info) != elf.STT_FUNC {
				continue
			}
			if s.Value == 0 || s.Name == "" {
				continue
			}
			name := demangleName(s.Name)
			if existing, ok := ft.names[s.Value]; ok && existing != name {
				// Keep the first symbol seen for an address; static and
				// dynamic tables occasionally duplicate entries.
				continue
			}
			ft.names[s.Value] = name
		}
	}

	syms, symErr := f.Symbols()
	if symErr != nil && symErr != elf.ErrNoSymbols {
		return nil, fmt.Errorf("reading ELF symbol table: %w", symErr)
	}
	add(syms)

	dynSyms, dynErr := f.DynamicSymbols()
	if dynErr != nil && dynErr != elf.ErrNoSymbols {
		return nil, fmt.Errorf("reading ELF dynamic symbol table: %w", dynErr)
	}
	add(dynSyms)

	if symErr == elf.ErrNoSymbols && dynErr == elf.ErrNoSymbols {
		return nil, fmt.Errorf("target binary has no symbol table (stripped)")
	}

	ft.starts = make([]uint64, 0, len(ft.names))
	for addr := range ft.names {
		ft.starts = append(ft.starts, addr)
	}
	sortUint64s(ft.starts)
	return ft, nil
}

func sortUint64s(s []uint64) {
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
}

// demangleName demangles a compiler-mangled symbol, falling back to the raw
// name for symbols the demangler doesn't recognize (plain C names, or
// language manglings the demangler doesn't support).
func demangleName(mangled string) string {
	if out, err := demangle.ToString(mangled, demangle.NoParams); err == nil {
		return out
	}
	return mangled
}

// lookup returns the demangled name of the function whose start address is
// the largest one not exceeding addr.
func (ft *funcTable) lookup(addr uint64) (name string, found bool) {
	lo, hi := 0, len(ft.starts)
	for lo < hi {
		mid := (lo + hi) / 2
		if ft.starts[mid] <= addr {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == 0 {
		return "", false
	}
	start := ft.starts[lo-1]
	return ft.names[start], true
}
