// Copyright 2026 The rprof Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command rprofd attaches to a running Linux process instrumented with
// github.com/rprof-dev/rprof/recorder, periodically snapshots its Shared
// Stats Region, and persists checkpointed CPU and heap profiles to a
// SQLite database that the query subcommands (top, list, view) can then
// read independently of the recording session.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rprof-dev/rprof/internal/exitcode"
	"github.com/rprof-dev/rprof/internal/logging"
)

var logLevelFlag string

// stdout is where query subcommands write tabular output; a package
// variable rather than a hardcoded os.Stdout so tests can redirect it.
var stdout io.Writer = os.Stdout

func main() {
	root := &cobra.Command{
		Use:   "rprofd",
		Short: "Whole-process CPU and heap profiler for running Linux programs",
		Long: `rprofd attaches to a live process (already linked against the rprof
recorder) and records its CPU and heap activity into a checkpointed SQLite
database, without requiring the target to be restarted or relinked with a
different build.

  rprofd record --pid 12345 --output profile.db
  rprofd top cpu --input profile.db
  rprofd list --input profile.db
  rprofd view cpu 7 --input profile.db --buckets 60`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "log level: trace, debug, info, warn, error")

	root.AddCommand(newRecordCmd())
	root.AddCommand(newTopCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newViewCmd())

	if err := root.Execute(); err != nil {
		exitcode.Exit(err)
	}
}

func newLogger() *logging.Logger {
	level, ok := logging.ParseLevel(logLevelFlag)
	if !ok {
		fmt.Fprintf(os.Stderr, "rprofd: unrecognized --log-level %q, defaulting to info\n", logLevelFlag)
		level, _ = logging.ParseLevel("info")
	}
	return logging.New(os.Stderr, level)
}
