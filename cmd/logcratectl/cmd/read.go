package cmd

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/logcrate/logcrate"
)

var readMaxBytes uint64

var readCmd = &cobra.Command{
	Use:   "read <id>",
	Short: "Read one record, or a batch starting at id if --max-bytes is set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var id uint64
		if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
			return fmt.Errorf("invalid record id %q: %w", args[0], err)
		}

		c, err := logcrate.Open(crateDir, openOptions()...)
		if err != nil {
			return fmt.Errorf("open %s: %w", crateDir, err)
		}
		defer c.Close()

		if readMaxBytes > 0 {
			recs, err := c.ReadBatch(id, readMaxBytes)
			if err != nil {
				if errors.Is(err, logcrate.ErrNotFound) {
					return fmt.Errorf("read %d: not found", id)
				}
				return fmt.Errorf("read %d: %w", id, err)
			}
			for i, r := range recs {
				fmt.Printf("%d\t%s\t%s\n", id+uint64(i), hex.EncodeToString(r.Digest[:]), r.Payload)
			}
			return nil
		}

		rec, err := c.Read(id)
		if err != nil {
			if errors.Is(err, logcrate.ErrNotFound) {
				return fmt.Errorf("read %d: not found", id)
			}
			return fmt.Errorf("read %d: %w", id, err)
		}
		fmt.Printf("%s\t%s\n", hex.EncodeToString(rec.Digest[:]), rec.Payload)
		return nil
	},
}

func init() {
	readCmd.Flags().Uint64Var(&readMaxBytes, "max-bytes", 0, "read a batch of records starting at id within this payload-byte budget")
}
