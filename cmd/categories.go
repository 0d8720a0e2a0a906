package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the configured service categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tWEIGHT\tMIN\tTAGS")
		for _, name := range reg.Names() {
			c, err := reg.Lookup(name)
			if err != nil {
				return err
			}
			rules := make([]string, 0, len(c.Rules))
			for _, r := range c.Rules {
				rules = append(rules, r.String())
			}
			fmt.Fprintf(w, "%s\t%.2f\t%d\t%s\n", c.Name, c.Weight, c.MinCount, strings.Join(rules, " "))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
}
