// Copyright 2026 The rprof Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package procutil

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// ErrNotFound is returned by Attach when the pid does not correspond to a
// running process.
var ErrNotFound = errors.New("process not found")

// ErrPermission is returned by Attach when the calling process lacks
// permission to inspect the target.
var ErrPermission = errors.New("permission denied")

// Target describes a profiling target discovered by pid.
type Target struct {
	PID     int
	ExePath string
}

// Attach confirms that pid is a live process and resolves its executable
// path via /proc/[pid]/exe. It does not ptrace or otherwise perturb the
// target: the reader only ever reads procfs and the SSR.
func Attach(pid int) (*Target, error) {
	if err := unix.Kill(pid, 0); err != nil {
		switch {
		case errors.Is(err, syscall.ESRCH):
			return nil, fmt.Errorf("%w: pid %d", ErrNotFound, pid)
		case errors.Is(err, syscall.EPERM):
			return nil, fmt.Errorf("%w: pid %d", ErrPermission, pid)
		default:
			return nil, fmt.Errorf("checking pid %d: %w", pid, err)
		}
	}

	exePath, err := os.Readlink(fmt.Sprintf("/proc/%d/exe", pid))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: pid %d", ErrNotFound, pid)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: pid %d", ErrPermission, pid)
		}
		return nil, fmt.Errorf("resolving executable for pid %d: %w", pid, err)
	}

	return &Target{PID: pid, ExePath: exePath}, nil
}

// ProcExePath is the procfs path that remains valid even if the on-disk
// executable was deleted or replaced after the process started (useful for
// opening the file to parse DWARF/ELF, as opposed to ExePath which is only
// useful for display and for matching against /proc/[pid]/maps pathnames).
func (t *Target) ProcExePath() string {
	return fmt.Sprintf("/proc/%d/exe", t.PID)
}
