// Copyright (c) 2019 Cisco and/or its affiliates.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at:
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/contiv/podtunnel/plugins/restapi"
)

func newCmdPools(flags *globalFlags) *cobra.Command {
	var showAllocation bool

	cmd := &cobra.Command{
		Use:   "pools",
		Short: "Display address pools and their utilisation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, namespace, err := connect(flags)
			if err != nil {
				return err
			}
			pools, err := restapi.ListPoolInfo(cmd.Context(), s, namespace)
			if err != nil {
				return err
			}
			if flags.output == outputJSON {
				return printJSON(cmd.OutOrStdout(), pools)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "POOL\tNETWORK\tALLOCATED\tUSABLE\tERROR")
			for _, pool := range pools {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", pool.Pool, pool.Network, pool.Allocated, pool.Usable, pool.Error)
			}
			if showAllocation {
				fmt.Fprintln(w)
				fmt.Fprintln(w, "POOL\tCONSUMER\tADDRESS")
				for _, pool := range pools {
					for _, consumer := range sortedKeys(pool.Allocation) {
						fmt.Fprintf(w, "%s\t%s\t%s\n", pool.Pool, consumer, pool.Allocation[consumer])
					}
				}
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&showAllocation, "allocation", false, "Also list every allocated address")
	return cmd
}
