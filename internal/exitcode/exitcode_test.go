// Copyright 2026 The rprof Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package exitcode

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rprof-dev/rprof/procutil"
)

func TestForNilIsOK(t *testing.T) {
	assert.Equal(t, OK, For(nil))
}

func TestForUnclassifiedIsGeneric(t *testing.T) {
	assert.Equal(t, Generic, For(errors.New("boom")))
}

func TestForDatabaseError(t *testing.T) {
	assert.Equal(t, DatabaseError, For(WithDatabaseError(errors.New("disk full"))))
}

func TestForMissingDebugInfo(t *testing.T) {
	assert.Equal(t, MissingDebugInfo, For(WithMissingDebugInfo(errors.New("no .debug_info"))))
}

func TestForInvalidArgs(t *testing.T) {
	assert.Equal(t, InvalidArgs, For(WithInvalidArgs(errors.New("--pid and --process are mutually exclusive"))))
}

func TestForProcessNotFound(t *testing.T) {
	assert.Equal(t, ProcessNotFound, For(procutil.ErrNotFound))
	assert.Equal(t, ProcessNotFound, For(os.ErrNotExist))
}

func TestForPermissionDenied(t *testing.T) {
	assert.Equal(t, PermissionDenied, For(procutil.ErrPermission))
	assert.Equal(t, PermissionDenied, For(os.ErrPermission))
}

func TestForWrappedErrorsStillClassify(t *testing.T) {
	wrapped := errors.New("attach failed")
	wrapped = errors.Join(wrapped, procutil.ErrNotFound)
	assert.Equal(t, ProcessNotFound, For(wrapped))
}

func TestWithDatabaseErrorNilPassthrough(t *testing.T) {
	assert.Nil(t, WithDatabaseError(nil))
	assert.Nil(t, WithMissingDebugInfo(nil))
	assert.Nil(t, WithInvalidArgs(nil))
}
