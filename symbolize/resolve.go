// Copyright 2026 The rprof Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package symbolize

import (
	"debug/elf"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rprof-dev/rprof/procutil"
)

// Location is a resolved (file, line, function) triple, the unit the
// checkpoint store persists.
type Location struct {
	File     string
	Line     int
	Function string
}

// Unknown is the sentinel returned when an address cannot be attributed to
// user code; it resolves to a location that is then filtered as internal.
func Unknown() Location {
	return Location{File: "[unknown]", Function: "[unknown]"}
}

// Resolver symbolizes runtime addresses captured from one target process
// into source Locations, correcting for ASLR and rejecting anything
// outside the inferred target root.
type Resolver struct {
	dwarf       *dwarfInfo
	funcs       *funcTable
	aslrOffset  uint64
	targetRoot  string // empty means "no filter" (root could not be inferred)
	cache       map[uint64]Location
}

// NewResolver opens execPath (normally /proc/[pid]/exe), parses its DWARF
// and symbol table, computes the ASLR offset from the live process's
// memory map, and infers the target root directory.
func NewResolver(execPath string, pid int) (*Resolver, error) {
	f, err := os.Open(execPath)
	if err != nil {
		return nil, fmt.Errorf("opening target executable: %w", err)
	}
	defer f.Close()

	ef, err := elf.NewFile(f)
	if err != nil {
		return nil, fmt.Errorf("target is not a readable ELF binary: %w", err)
	}

	dw, err := elfDWARF(ef)
	if err != nil {
		return nil, err
	}
	info, err := loadDWARF(dw)
	if err != nil {
		return nil, err
	}
	funcs, err := loadFuncTable(ef)
	if err != nil {
		return nil, err
	}

	maps, err := procutil.ReadMaps(pid)
	if err != nil {
		return nil, fmt.Errorf("parsing memory map: %w", err)
	}
	displayExePath, linkErr := os.Readlink(fmt.Sprintf("/proc/%d/exe", pid))
	if linkErr != nil {
		displayExePath = execPath
	}
	offset, err := maps.ASLROffset(displayExePath)
	if err != nil {
		return nil, err
	}

	return &Resolver{
		dwarf:      info,
		funcs:      funcs,
		aslrOffset: offset,
		targetRoot: detectTargetRoot(info, displayExePath),
		cache:      make(map[uint64]Location),
	}, nil
}

// RangeCount reports how many DWARF line-table ranges were loaded
// (diagnostic / test use).
func (r *Resolver) RangeCount() int { return len(r.dwarf.ranges) }

// ASLROffset reports the offset in use.
func (r *Resolver) ASLROffset() uint64 { return r.aslrOffset }

// Resolve maps a runtime return address to a source Location.
func (r *Resolver) Resolve(addr uint64) Location {
	debugAddr := addr
	if debugAddr >= r.aslrOffset {
		debugAddr -= r.aslrOffset
	}

	function, haveFunc := r.funcs.lookup(debugAddr)
	if !haveFunc {
		function = "[unknown]"
	}

	idx, found := findRange(r.dwarf.ranges, debugAddr)
	if !found {
		return r.resolveWithoutRange(function)
	}

	rng := r.dwarf.ranges[idx]
	file := simplifyPath(rng.File)

	if isStandardLibraryPath(file) && !isStandardLibraryFunc(function) {
		if decl, ok := r.dwarf.funcDecls[function]; ok {
			if !r.isTargetPath(decl.File) {
				return Unknown()
			}
			simplified := simplifyPath(decl.File)
			if !isStandardLibraryPath(simplified) {
				return Location{File: simplified, Line: decl.Line, Function: function}
			}
		}
	}

	if !r.isTargetPath(rng.File) {
		return Unknown()
	}

	return Location{File: file, Line: rng.Line, Function: function}
}

func (r *Resolver) resolveWithoutRange(function string) Location {
	if function == "[unknown]" {
		return Unknown()
	}
	if decl, ok := r.dwarf.funcDecls[function]; ok {
		if !r.isTargetPath(decl.File) {
			return Unknown()
		}
		simplified := simplifyPath(decl.File)
		if !isStandardLibraryPath(simplified) {
			return Location{File: simplified, Line: decl.Line, Function: function}
		}
	}
	return Location{File: "(no line info)", Function: function}
}

// ResolveCached is Resolve with an address-keyed LRU-free cache: the same
// small set of addresses recur across CPU samples, so a simple unbounded
// map bounded by distinct call sites — at most a few thousand — is cheap
// and never needs eviction in practice.
func (r *Resolver) ResolveCached(addr uint64) Location {
	if loc, ok := r.cache[addr]; ok {
		return loc
	}
	loc := r.Resolve(addr)
	r.cache[addr] = loc
	return loc
}

func findRange(ranges []AddressRange, addr uint64) (int, bool) {
	lo, hi := 0, len(ranges)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case addr < ranges[mid].Start:
			hi = mid
		case addr >= ranges[mid].End:
			lo = mid + 1
		default:
			return mid, true
		}
	}
	return 0, false
}

func (r *Resolver) isTargetPath(path string) bool {
	if r.targetRoot == "" {
		return true
	}
	if path == "" {
		return false
	}
	if filepath.IsAbs(path) {
		rel, err := filepath.Rel(r.targetRoot, path)
		return err == nil && !strings.HasPrefix(rel, "..")
	}
	// Best-effort: a relative path counts as in-target only if it exists
	// under the root.
	_, err := os.Stat(filepath.Join(r.targetRoot, path))
	return err == nil
}

// detectTargetRoot infers the source-tree root of the profiled program
// from the declaration file of main, falling back to the nearest ancestor
// of the executable containing a package descriptor (go.mod, Cargo.toml).
func detectTargetRoot(info *dwarfInfo, exePath string) string {
	if decl, ok := mainDecl(info); ok {
		if root := rootFromSourcePath(decl.File); root != "" {
			return root
		}
	}
	return packageRootFromExe(exePath)
}

func mainDecl(info *dwarfInfo) (FuncDecl, bool) {
	for name, decl := range info.funcDecls {
		if name == "main" || strings.HasSuffix(name, ".main") || strings.HasSuffix(name, "::main") {
			return decl, true
		}
	}
	return FuncDecl{}, false
}

func rootFromSourcePath(path string) string {
	for _, marker := range []string{"/src/", "/cmd/", "/internal/"} {
		if idx := strings.Index(path, marker); idx > 0 {
			return path[:idx]
		}
	}
	return ""
}

func packageRootFromExe(exePath string) string {
	dir := filepath.Dir(exePath)
	var fallback string
	for {
		for _, marker := range []string{"go.mod", "Cargo.toml"} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				if fallback == "" {
					fallback = dir
				}
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return fallback
}

var stdlibPathMarkers = []string{
	"/usr/local/go/src/", "/usr/lib/go/src/",
	"/rustc/", "/.cargo/registry/src/", "/.cargo/git/checkouts/",
	"library/core/", "library/std/", "library/alloc/",
}

func isStandardLibraryPath(path string) bool {
	if path == "" {
		return false
	}
	for _, m := range stdlibPathMarkers {
		if strings.Contains(path, m) {
			return true
		}
	}
	return false
}

func isStandardLibraryFunc(name string) bool {
	return isInternalFunc(name)
}

// modCachePrefixes are stripped before storing a location's file: a
// toolchain- or registry-rooted absolute path is shortened down to the
// part meaningful to a human.
var modCachePrefixes = []string{
	"/pkg/mod/",
	"/.cargo/registry/src/",
	"/.cargo/git/checkouts/",
	"/rustc/",
}

func simplifyPath(path string) string {
	result := path
	for _, prefix := range modCachePrefixes {
		if idx := strings.Index(result, prefix); idx >= 0 {
			rest := result[idx+len(prefix):]
			if slash := strings.IndexByte(rest, '/'); slash >= 0 {
				result = rest[slash+1:]
			}
		}
	}
	if idx := strings.Index(result, "/src/"); idx >= 0 {
		result = result[idx+len("/src/"):]
	}
	return result
}

// sortedRangeStarts is exposed for tests that want to assert monotonicity
// without reaching into the unexported dwarfInfo.
func sortedRangeStarts(ranges []AddressRange) []uint64 {
	out := make([]uint64, len(ranges))
	for i, r := range ranges {
		out[i] = r.Start
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
