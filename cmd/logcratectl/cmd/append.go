package cmd

import (
	"crypto/sha1"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/logcrate/logcrate"
)

var appendFromFile string

var appendCmd = &cobra.Command{
	Use:   "append [payload]",
	Short: "Append one record, printing its assigned id",
	Long: "Append one record to the crate at --dir. The payload is taken from " +
		"the positional argument, or from --file, or from stdin if neither is " +
		"given. The content digest is computed as SHA-1 of the payload.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := readPayload(args)
		if err != nil {
			return err
		}

		c, err := logcrate.Open(crateDir, openOptions()...)
		if err != nil {
			return fmt.Errorf("open %s: %w", crateDir, err)
		}
		defer c.Close()

		id, err := c.Append(logcrate.Record{Digest: sha1.Sum(payload), Payload: payload})
		if err != nil {
			return fmt.Errorf("append: %w", err)
		}

		fmt.Println(id)
		return nil
	},
}

func readPayload(args []string) ([]byte, error) {
	if len(args) == 1 {
		return []byte(args[0]), nil
	}
	if appendFromFile != "" {
		return os.ReadFile(appendFromFile)
	}
	return io.ReadAll(os.Stdin)
}

func init() {
	appendCmd.Flags().StringVar(&appendFromFile, "file", "", "read the payload from this file instead of stdin")
}
