package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"awgobfs/internal/config"
	"awgobfs/internal/obfs"
)

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Validate or normalize obfuscation profiles",
	}

	check := &cobra.Command{
		Use:   "check <file>",
		Short: "Load a profile and report what it sends",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			p, err := obfs.NewProfile(cfg)
			if err != nil {
				return err
			}
			a.logger.Info("profile loaded", zap.String("path", args[0]))

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s: ok\n", args[0])
			fmt.Fprintf(w, "preamble: %d packets (%d chain, %d junk of %d-%d bytes)\n",
				p.PreambleLen(), len(p.Chain()), cfg.Jc, cfg.Jmin, cfg.Jmax)
			for i, h := range p.Headers() {
				fmt.Fprintf(w, "h%d: %s\n", i+1, h)
			}
			for _, spec := range p.Chain() {
				fmt.Fprintf(w, "chain: %d bytes, %d modifiers\n", spec.Len(), len(spec.Modifiers()))
			}
			return nil
		},
	}

	dump := &cobra.Command{
		Use:   "dump <file>",
		Short: "Print the profile with defaults applied",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			out, err := config.Dump(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.AddCommand(check, dump)
	return cmd
}
