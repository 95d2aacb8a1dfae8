// Copyright 2026 The rprof Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package symbolize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsInternalFuncRecognizesAllocators(t *testing.T) {
	assert.True(t, isInternalFunc("malloc"))
	assert.True(t, isInternalFunc("__wrap_malloc"))
	assert.True(t, isInternalFunc("operator new"))
	assert.True(t, isInternalFunc("std::vector<int>::push_back"))
	assert.True(t, isInternalFunc("runtime.mallocgc"))
	assert.True(t, isInternalFunc(""))
	assert.True(t, isInternalFunc("[unknown]"))
	assert.False(t, isInternalFunc("myapp.processRequest"))
}

func TestIsInternalFuncRecognizesClosures(t *testing.T) {
	assert.True(t, isInternalFunc("myapp::handler::{{closure}}"))
	assert.True(t, isInternalFunc("Trait as core::fmt::Display"))
}

func TestIsInternalFileRecognizesStdlib(t *testing.T) {
	assert.True(t, isInternalFile("/usr/local/go/src/runtime/panic.go"))
	assert.True(t, isInternalFile("/rustc/abcdef/library/core/src/lib.rs"))
	assert.True(t, isInternalFile(""))
	assert.False(t, isInternalFile("/home/user/project/main.go"))
}

func TestIsUtilityFuncRecognizesFormatHelpers(t *testing.T) {
	assert.True(t, isUtilityFunc("fmt.Sprintf"))
	assert.True(t, isUtilityFunc("MyType as core::fmt::Debug"))
	assert.False(t, isUtilityFunc("myapp.processRequest"))
}

func TestSelectUserFrameSkipsInternalFrames(t *testing.T) {
	stack := []StackFrame{
		{Addr: 1, Function: "malloc"},
		{Addr: 2, Function: "__wrap_malloc"},
		{Addr: 3, Function: "myapp.allocateBuffer", File: "/home/user/project/buf.go"},
		{Addr: 4, Function: "myapp.main", File: "/home/user/project/main.go"},
	}
	frame, ok := SelectUserFrame(stack)
	assert.True(t, ok)
	assert.Equal(t, uint64(3), frame.Addr)
}

func TestSelectUserFrameSkipsPastUtilityFrame(t *testing.T) {
	stack := []StackFrame{
		{Addr: 1, Function: "fmt.Sprintf", File: "/usr/local/go/src/fmt/print.go"},
		{Addr: 2, Function: "myapp.formatError", File: "/home/user/project/errors.go"},
	}
	frame, ok := SelectUserFrame(stack)
	assert.True(t, ok)
	assert.Equal(t, uint64(2), frame.Addr)
}

func TestSelectUserFrameFallsBackToFile(t *testing.T) {
	stack := []StackFrame{
		{Addr: 1, Function: "[unknown]", File: "/usr/local/go/src/runtime/asm_amd64.s"},
		{Addr: 2, Function: "[unknown]", File: "/home/user/project/main.go"},
	}
	frame, ok := SelectUserFrame(stack)
	assert.True(t, ok)
	assert.Equal(t, uint64(2), frame.Addr)
}

func TestSelectUserFrameReturnsFalseWhenAllInternal(t *testing.T) {
	stack := []StackFrame{
		{Addr: 1, Function: "malloc", File: "/usr/local/go/src/runtime/malloc.go"},
		{Addr: 2, Function: "runtime.mallocgc", File: "/usr/local/go/src/runtime/malloc.go"},
	}
	_, ok := SelectUserFrame(stack)
	assert.False(t, ok)
}
