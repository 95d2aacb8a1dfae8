// Copyright 2026 The rprof Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package symbolize

import "strings"

// internalFuncPrefixes and internalFuncContains identify frames that are
// never attribution targets: allocator entry points, standard-library and
// collection internals, the demangler/DWARF-reader's own symbols, the
// recorder's own symbols, closures, and trait-dispatch shims.
var internalFuncPrefixes = []string{
	"__wrap_", "__real_",
	"malloc", "calloc", "realloc", "free", "posix_memalign", "aligned_alloc",
	"operator new", "operator delete",
	"std::", "core::", "alloc::", "hashbrown::",
	"__rust", "_Unwind", "rust_eh_personality",
	"runtime.", "runtime·",
	"github.com/rprof-dev/rprof/recorder.", "rprof_",
	"github.com/ianlancetaylor/demangle.",
	"debug/dwarf.", "debug/elf.",
}

var internalFuncContains = []string{
	"::{{closure}}",
	" as core::",
	" as std::",
	" as alloc::",
	"<std::",
	"<core::",
	"<alloc::",
}

// internalFilePrefixes and internalBareFileNames identify non-user frames
// by their source file when the function name alone is ambiguous:
// standard-library paths, package-cache paths, and bare filenames that only
// ever occur in vendored runtime sources.
var internalFilePrefixes = []string{
	"/usr/local/go/src/",
	"/usr/lib/go/src/",
	"/rustc/",
	"/.cargo/registry/src/",
	"/.cargo/git/checkouts/",
	"library/core/", "library/std/", "library/alloc/",
}

var internalBareFileNames = map[string]bool{
	"lib.rs":    true,
	"mod.rs":    true,
	"panic.go":  true,
	"proc.go":   true,
	"asm_amd64.s": true,
}

// utilityFuncPrefixes and utilityFuncContains identify frames that are
// "user but uninteresting" — they should be attributed to their caller
// instead of to themselves: trait-derived methods and string-formatting
// helpers.
var utilityFuncPrefixes = []string{
	"fmt.Sprintf", "fmt.Sprint", "fmt.Errorf",
}

var utilityFuncContains = []string{
	"::fmt", // Display/Debug trait-derived formatting
	"format_bytes",
	".formatBytes",
}

func isInternalFunc(name string) bool {
	if name == "" || name == "[unknown]" {
		return true
	}
	for _, p := range internalFuncPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	for _, c := range internalFuncContains {
		if strings.Contains(name, c) {
			return true
		}
	}
	return false
}

func isInternalFile(file string) bool {
	if file == "" {
		return true
	}
	for _, p := range internalFilePrefixes {
		if strings.HasPrefix(file, p) || strings.Contains(file, p) {
			return true
		}
	}
	base := file
	if i := strings.LastIndexByte(file, '/'); i >= 0 {
		base = file[i+1:]
	}
	return internalBareFileNames[base]
}

func isUtilityFunc(name string) bool {
	for _, p := range utilityFuncPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	for _, c := range utilityFuncContains {
		if strings.Contains(name, c) {
			return true
		}
	}
	return false
}

// StackFrame is one entry of a captured (and already demangled/resolved)
// stack, outermost (sample site) frame first.
type StackFrame struct {
	Addr     uint64
	Function string
	File     string
}

// SelectUserFrame walks a captured stack and picks the one frame a sample
// should be attributed to:
//
//  1. Find the first frame whose function is not internal — the candidate.
//  2. If the candidate matches a utility pattern, scan further outward for
//     the next frame that is neither internal nor utility and return that
//     instead; if there is none, go on to step 3.
//  3. If no candidate exists, fall back to the first frame whose file is
//     not internal.
//  4. Otherwise the sample is internal and is dropped.
func SelectUserFrame(stack []StackFrame) (StackFrame, bool) {
	candidateIdx := -1
	for i, f := range stack {
		if !isInternalFunc(f.Function) {
			candidateIdx = i
			break
		}
	}

	if candidateIdx >= 0 {
		if !isUtilityFunc(stack[candidateIdx].Function) {
			return stack[candidateIdx], true
		}
		for i := candidateIdx + 1; i < len(stack); i++ {
			if !isInternalFunc(stack[i].Function) && !isUtilityFunc(stack[i].Function) {
				return stack[i], true
			}
		}
		// Every frame past the utility one is internal or also utility;
		// fall through to the file-based fallback below using the whole
		// stack.
	}

	for _, f := range stack {
		if !isInternalFile(f.File) {
			return f, true
		}
	}

	return StackFrame{}, false
}
