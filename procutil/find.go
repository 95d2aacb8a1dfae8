// Copyright 2026 The rprof Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package procutil

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// FindByName scans /proc for a running process whose executable basename
// or /proc/[pid]/comm matches name, returning its pid. If more than one
// process matches, the lowest pid is returned (the longest-lived guess).
func FindByName(name string) (int, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return 0, fmt.Errorf("scanning /proc: %w", err)
	}

	var matches []int
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		if matchesName(pid, name) {
			matches = append(matches, pid)
		}
	}

	if len(matches) == 0 {
		return 0, fmt.Errorf("%w: no process named %q", ErrNotFound, name)
	}

	lowest := matches[0]
	for _, pid := range matches[1:] {
		if pid < lowest {
			lowest = pid
		}
	}
	return lowest, nil
}

func matchesName(pid int, name string) bool {
	if comm, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid)); err == nil {
		if strings.TrimSpace(string(comm)) == name {
			return true
		}
	}
	if exe, err := os.Readlink(fmt.Sprintf("/proc/%d/exe", pid)); err == nil {
		if baseName(exe) == name {
			return true
		}
	}
	return false
}
