package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/logcrate/logcrate"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new, empty crate directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := logcrate.Create(crateDir, openOptions()...)
		if err != nil {
			return fmt.Errorf("create %s: %w", crateDir, err)
		}
		defer c.Close()

		fmt.Printf("created crate at %s\n", crateDir)
		return nil
	},
}
