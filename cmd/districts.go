package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/urbanmetric/walkability-cli/internal/geocode"
)

var districtsCmd = &cobra.Command{
	Use:   "districts",
	Short: "List the built-in district presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := geocode.NewDistrictProvider()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tLAT\tLON")
		for _, name := range p.Districts() {
			result, err := p.Resolve(context.Background(), name)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%.7f\t%.7f\n", name, result.Coord.Y(), result.Coord.X())
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(districtsCmd)
}
