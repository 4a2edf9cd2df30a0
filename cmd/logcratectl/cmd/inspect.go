package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/logcrate/logcrate"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the crate's record range and emptiness",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := logcrate.Open(crateDir, openOptions()...)
		if err != nil {
			return fmt.Errorf("open %s: %w", crateDir, err)
		}
		defer c.Close()

		if c.Empty() {
			fmt.Println("empty")
			return nil
		}

		min, max, _ := c.Range()
		fmt.Printf("range: [%d, %d]\n", min, max)
		fmt.Printf("records: %d\n", max-min+1)
		return nil
	},
}
