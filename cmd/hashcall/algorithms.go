package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/caffeineduck/hashcall/hashalg"
	"github.com/spf13/cobra"
)

var algorithmsCmd = &cobra.Command{
	Use:     "algorithms",
	Aliases: []string{"algos"},
	Short:   "List supported hash algorithms",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CODE\tNAME\tSIZE")
		for _, d := range hashalg.All() {
			fmt.Fprintf(w, "0x%x\t%s\t%d\n", uint64(d.Code), d.Name, d.Size)
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(algorithmsCmd)
}
