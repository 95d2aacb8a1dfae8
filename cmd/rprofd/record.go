// Copyright 2026 The rprof Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rprof-dev/rprof/internal/exitcode"
	"github.com/rprof-dev/rprof/procutil"
	"github.com/rprof-dev/rprof/reader"
	"github.com/rprof-dev/rprof/store"
)

func newRecordCmd() *cobra.Command {
	var (
		pid      int
		process  string
		output   string
		interval time.Duration
		duration time.Duration
		cpuFreq  int
		appendDB bool
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record CPU and heap activity for a running process into a checkpoint database",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()

			if pid == 0 && process == "" {
				return exitcode.WithInvalidArgs(fmt.Errorf("one of --pid or --process is required"))
			}
			if pid != 0 && process != "" {
				return exitcode.WithInvalidArgs(fmt.Errorf("--pid and --process are mutually exclusive"))
			}
			if output == "" {
				return exitcode.WithInvalidArgs(fmt.Errorf("--output is required"))
			}
			if interval <= 0 {
				return exitcode.WithInvalidArgs(fmt.Errorf("--interval must be > 0"))
			}
			if cpuFreq < 0 {
				return exitcode.WithInvalidArgs(fmt.Errorf("--cpu-freq must be >= 0"))
			}

			resolvedPID := pid
			if process != "" {
				found, err := procutil.FindByName(process)
				if err != nil {
					return err
				}
				resolvedPID = found
			}

			st, err := store.Open(output, appendDB)
			if err != nil {
				return exitcode.WithDatabaseError(err)
			}
			defer st.Close()

			_ = st.SetMeta("target_pid", fmt.Sprintf("%d", resolvedPID))
			_ = st.SetMeta("checkpoint_interval_ms", fmt.Sprintf("%d", interval.Milliseconds()))
			_ = st.SetMeta("cpu_freq_hz", fmt.Sprintf("%d", cpuFreq))
			_ = st.SetMeta("recording_started_unix_ms", fmt.Sprintf("%d", time.Now().UnixMilli()))

			rd, err := reader.New(reader.Config{
				PID:                resolvedPID,
				CheckpointInterval: interval,
				Duration:           duration,
			}, st, log)
			if err != nil {
				return err
			}

			log.Info().Int("pid", resolvedPID).Str("output", output).Log("recording started")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := rd.Run(ctx); err != nil {
				return exitcode.WithDatabaseError(err)
			}
			log.Info().Log("recording finished")
			return nil
		},
	}

	cmd.Flags().IntVar(&pid, "pid", 0, "pid of the target process")
	cmd.Flags().StringVar(&process, "process", "", "name of the target process (matched via /proc/[pid]/comm or /proc/[pid]/exe), alternative to --pid")
	cmd.Flags().StringVarP(&output, "output", "o", "", "path to the checkpoint database to write")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "checkpoint flush interval")
	cmd.Flags().DurationVar(&duration, "duration", 0, "stop recording after this long (0 = until interrupted)")
	cmd.Flags().IntVar(&cpuFreq, "cpu-freq", 99, "target's CPU sampling frequency in Hz, stored in the database metadata only (the target's recorder sets its own rate)")
	cmd.Flags().BoolVar(&appendDB, "append", false, "append to an existing checkpoint database instead of recreating it")

	return cmd
}
