// Copyright 2026 The rprof Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rprof-dev/rprof/internal/exitcode"
)

func newListCmd() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every location the recording has observed, with its id",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openReadOnly(input)
			if err != nil {
				return err
			}
			defer st.Close()

			locs, err := st.Locations()
			if err != nil {
				return exitcode.WithDatabaseError(err)
			}

			tw := newTabwriter()
			fmt.Fprintln(tw, "ID\tLOCATION")
			for _, l := range locs {
				fmt.Fprintf(tw, "%d\t%s\n", l.ID, formatLocation(l.Location))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "path to the checkpoint database to query")
	return cmd
}
