// Copyright 2026 The rprof Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rprof-dev/rprof/internal/exitcode"
	"github.com/rprof-dev/rprof/store"
)

func newTopCmd() *cobra.Command {
	var (
		input   string
		n       int
		instant bool
	)

	cmd := &cobra.Command{
		Use:   "top {cpu|heap}",
		Short: "Print the top locations by CPU samples or live heap bytes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openReadOnly(input)
			if err != nil {
				return err
			}
			defer st.Close()

			var rows []store.TopRow
			switch args[0] {
			case "cpu":
				if instant {
					rows, err = st.TopCPUInstant(n)
				} else {
					rows, err = st.TopCPUCumulative(n)
				}
			case "heap":
				rows, err = st.TopHeap(n)
			default:
				return exitcode.WithInvalidArgs(fmt.Errorf("unknown top target %q (want cpu or heap)", args[0]))
			}
			if err != nil {
				return exitcode.WithDatabaseError(err)
			}

			tw := newTabwriter()
			if args[0] == "cpu" {
				fmt.Fprintln(tw, "SAMPLES\tPERCENT\tLOCATION")
				for _, r := range rows {
					fmt.Fprintf(tw, "%d\t%.2f%%\t%s\n", r.Value, r.Percent, formatLocation(r.Location))
				}
			} else {
				fmt.Fprintln(tw, "LIVE BYTES\tLOCATION")
				for _, r := range rows {
					fmt.Fprintf(tw, "%d\t%s\n", r.Value, formatLocation(r.Location))
				}
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "path to the checkpoint database to query")
	cmd.Flags().IntVarP(&n, "count", "n", 20, "number of locations to print")
	cmd.Flags().BoolVar(&instant, "instant", false, "for cpu, rank by the latest checkpoint only instead of the whole recording")

	return cmd
}
