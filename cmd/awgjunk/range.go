package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"awgobfs/internal/magic"
)

func (a *app) rangeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "range",
		Short: "Check or generate magic header values",
	}

	check := &cobra.Command{
		Use:   "check <range> <value>",
		Short: "Report whether value falls in range",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := magic.ParseRange(args[0])
			if err != nil {
				return err
			}
			v, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("value %q: %w", args[1], err)
			}
			if !r.Validate(uint32(v)) {
				return fmt.Errorf("%d rejected by %s", v, r)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d accepted by %s\n", v, r)
			return nil
		},
	}

	var count int
	gen := &cobra.Command{
		Use:   "gen <range>",
		Short: "Draw header values from range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := magic.ParseRange(args[0])
			if err != nil {
				return err
			}
			if count < 1 {
				return fmt.Errorf("count must be positive")
			}
			for i := 0; i < count; i++ {
				fmt.Fprintln(cmd.OutOrStdout(), r.Generate())
			}
			return nil
		},
	}
	gen.Flags().IntVarP(&count, "count", "n", 1, "number of values")

	cmd.AddCommand(check, gen)
	return cmd
}
