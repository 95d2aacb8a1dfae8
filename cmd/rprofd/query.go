// Copyright 2026 The rprof Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/rprof-dev/rprof/internal/exitcode"
	"github.com/rprof-dev/rprof/store"
)

// openReadOnly opens path for querying; record's own append mode check
// doesn't apply here, since a query never creates a database the way
// record's first run does. appendMode=true skips schema creation, which is
// what a query over an existing database needs.
func openReadOnly(path string) (*store.Store, error) {
	if path == "" {
		return nil, exitcode.WithInvalidArgs(fmt.Errorf("--input is required"))
	}
	st, err := store.Open(path, true)
	if err != nil {
		return nil, exitcode.WithDatabaseError(err)
	}
	return st, nil
}

func newTabwriter() *tabwriter.Writer {
	return tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
}

func formatLocation(loc store.Location) string {
	return fmt.Sprintf("%s:%d (%s)", loc.File, loc.Line, loc.Function)
}
