package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and resolve the play library, then list its configs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		lib, err := loadLibrary(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Category", "Condition", "Play", "Signal", "Budget", "Buy", "Symbols")
		for _, cat := range lib.Categories() {
			syms, err := lib.Symbols(cat)
			if err != nil {
				return err
			}
			for _, cond := range lib.Conditions() {
				configs, err := lib.Configs(cat, cond)
				if err != nil {
					return err
				}
				for _, c := range configs {
					table.Append(
						cat,
						cond,
						c.Name,
						c.Signal().Name(),
						fmt.Sprintf("%.2f", c.MaxPlaySize),
						string(c.BuyOrderType),
						fmt.Sprintf("%d", len(syms)),
					)
				}
			}
		}
		table.Render()
		fmt.Printf("library %s OK\n", cfg.Library.Path)
		return nil
	},
}
