// Copyright 2026 The rprof Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package symbolize turns raw return addresses captured by the recorder
// into (file, line, function) locations, using the target executable's
// DWARF and ELF symbol table, corrected for ASLR, and filtered down to
// user frames.
package symbolize

import (
	"debug/dwarf"
	"debug/elf"
	"fmt"
	"sort"

	"github.com/rprof-dev/rprof/internal/exitcode"
)

// AddressRange is a half-open [Start, End) range of link-time addresses,
// as the DWARF line table records them, sharing one line-table row's
// source location. A runtime address is looked up only after the ASLR
// offset has been subtracted from it.
type AddressRange struct {
	Start, End uint64
	File       string
	Line       int
	Column     int
}

// FuncDecl is a DWARF subprogram's declared (file, line), independent of
// where the line table says its body's instructions currently map.
type FuncDecl struct {
	File string
	Line int
}

// dwarfInfo is the parsed-once product of a target executable's debug
// information.
type dwarfInfo struct {
	ranges        []AddressRange          // sorted by Start
	funcDecls     map[string]FuncDecl      // demangled function name -> decl location
}

// loadDWARF builds address ranges from every compilation unit's
// line-number program, and function declaration locations from every
// subprogram DIE.
//
// Consecutive line-table rows are interpreted as [prev.Address,
// this.Address) carrying prev's (file, line, column). An end-of-sequence
// row closes the last range of its sequence and starts none, so the gap
// from one sequence's end to the next sequence's first row belongs to no
// range.
func loadDWARF(d *dwarf.Data) (*dwarfInfo, error) {
	info := &dwarfInfo{funcDecls: make(map[string]FuncDecl)}

	reader := d.Reader()
	for {
		cu, err := reader.Next()
		if err != nil {
			return nil, fmt.Errorf("reading DWARF compile units: %w", err)
		}
		if cu == nil {
			break
		}
		if cu.Tag != dwarf.TagCompileUnit {
			continue
		}

		if err := collectLineRanges(d, cu, info); err != nil {
			return nil, err
		}
		if err := collectFuncDecls(d, cu, info); err != nil {
			return nil, err
		}
		reader.SkipChildren()
	}

	sort.Slice(info.ranges, func(i, j int) bool { return info.ranges[i].Start < info.ranges[j].Start })
	return info, nil
}

func collectLineRanges(d *dwarf.Data, cu *dwarf.Entry, info *dwarfInfo) error {
	lr, err := d.LineReader(cu)
	if err != nil || lr == nil {
		// Not every compile unit carries a line table (e.g. pure
		// declarations); that's not a failure.
		return nil
	}

	var prev dwarf.LineEntry
	havePrev := false
	var entry dwarf.LineEntry
	for {
		err := lr.Next(&entry)
		if err != nil {
			break // io.EOF or a malformed unit; stop at what we have.
		}
		if havePrev && !prev.EndSequence {
			info.ranges = append(info.ranges, AddressRange{
				Start:  prev.Address,
				End:    entry.Address,
				File:   fileName(prev.File),
				Line:   prev.Line,
				Column: prev.Column,
			})
		}
		if entry.EndSequence {
			havePrev = false
			continue
		}
		prev = entry
		havePrev = true
	}
	return nil
}

func fileName(f *dwarf.LineFile) string {
	if f == nil {
		return ""
	}
	return f.Name
}

func collectFuncDecls(d *dwarf.Data, cu *dwarf.Entry, info *dwarfInfo) error {
	reader := d.Reader()
	reader.Seek(cu.Offset)
	depth := 0
	for {
		entry, err := reader.Next()
		if err != nil {
			return fmt.Errorf("reading DWARF subprograms: %w", err)
		}
		if entry == nil {
			return nil
		}
		if entry.Tag == 0 {
			// End of one DIE's children; the compile unit's own list
			// ends when depth drops back to zero.
			depth--
			if depth <= 0 {
				return nil
			}
			continue
		}
		if entry.Children {
			depth++
		}
		if depth == 0 {
			// A compile unit without children has no subprograms.
			return nil
		}
		if entry.Tag != dwarf.TagSubprogram {
			continue
		}
		name, _ := entry.Val(dwarf.AttrName).(string)
		if name == "" {
			continue
		}
		file, _ := entry.Val(dwarf.AttrDeclFile).(int64)
		line, _ := entry.Val(dwarf.AttrDeclLine).(int64)
		if line == 0 {
			continue
		}
		lf := lineFileForIndex(d, cu, file)

		decl := FuncDecl{File: lf, Line: int(line)}
		// On disagreement between two decl entries for the same
		// demangled name, prefer the one whose file isn't stdlib or
		// dependency code.
		if existing, ok := info.funcDecls[name]; ok {
			if isStandardLibraryPath(existing.File) && !isStandardLibraryPath(decl.File) {
				info.funcDecls[name] = decl
			}
			continue
		}
		info.funcDecls[name] = decl
	}
}

// lineFileForIndex resolves a DW_AT_decl_file index against the compile
// unit's line table file list.
func lineFileForIndex(d *dwarf.Data, cu *dwarf.Entry, idx int64) string {
	lr, err := d.LineReader(cu)
	if err != nil || lr == nil {
		return ""
	}
	files := lr.Files()
	if idx < 0 || int(idx) >= len(files) || files[idx] == nil {
		return ""
	}
	return files[idx].Name
}

// elfDWARF opens the ELF executable and extracts its DWARF data.
func elfDWARF(f *elf.File) (*dwarf.Data, error) {
	d, err := f.DWARF()
	if err != nil {
		return nil, exitcode.WithMissingDebugInfo(fmt.Errorf("target binary has no usable DWARF debug info: %w", err))
	}
	return d, nil
}
