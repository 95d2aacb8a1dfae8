// Copyright 2026 The rprof Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rprof-dev/rprof/internal/exitcode"
	"github.com/rprof-dev/rprof/store"
)

// sparkChars renders a bucketed series as a single line of block
// characters, scaled to the series' own maximum (a terminal-friendly
// sparkline).
var sparkChars = []rune(" ▁▂▃▄▅▆▇█")

func renderSparkline(points []store.SeriesPoint) string {
	max := 0.0
	for _, p := range points {
		if p.Value > max {
			max = p.Value
		}
	}
	out := make([]rune, len(points))
	for i, p := range points {
		if max == 0 {
			out[i] = sparkChars[0]
			continue
		}
		idx := int(p.Value / max * float64(len(sparkChars)-1))
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		out[i] = sparkChars[idx]
	}
	return string(out)
}

func newViewCmd() *cobra.Command {
	var (
		input   string
		buckets int
	)

	cmd := &cobra.Command{
		Use:   "view {cpu|heap} <location-id>",
		Short: "Render a location's CPU or heap history over the recording as a sparkline",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			locID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return exitcode.WithInvalidArgs(fmt.Errorf("invalid location id %q: %w", args[1], err))
			}

			st, err := openReadOnly(input)
			if err != nil {
				return err
			}
			defer st.Close()

			startMs, lastMs, ok, err := st.TimeRange()
			if err != nil {
				return exitcode.WithDatabaseError(err)
			}
			if !ok {
				fmt.Fprintln(stdout, "no checkpoints recorded yet")
				return nil
			}
			// The range query is half-open ([start, end)), so the end bound
			// must be past the last checkpoint for it to be included.
			endMs := lastMs + 1

			var points []store.SeriesPoint
			switch args[0] {
			case "cpu":
				points, err = st.CPUTimeSeries(locID, startMs, endMs, buckets)
			case "heap":
				points, err = st.HeapTimeSeries(locID, startMs, endMs, buckets)
			default:
				return exitcode.WithInvalidArgs(fmt.Errorf("unknown view target %q (want cpu or heap)", args[0]))
			}
			if err != nil {
				return exitcode.WithDatabaseError(err)
			}

			fmt.Fprintf(stdout, "%s  [%d buckets over %dms]\n", renderSparkline(points), buckets, endMs-startMs)
			for _, p := range points {
				fmt.Fprintf(stdout, "  t+%dms\t%.2f\n", p.BucketStartMs-startMs, p.Value)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "path to the checkpoint database to query")
	cmd.Flags().IntVar(&buckets, "buckets", 40, "number of time buckets to aggregate into")

	return cmd
}
