package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"awgobfs/internal/junk"
)

type fixedCounter uint32

func (c fixedCounter) SendCounter() uint32 { return uint32(c) }

func (a *app) compileCmd() *cobra.Command {
	var (
		apply   bool
		counter uint32
		maxSize int
	)
	cmd := &cobra.Command{
		Use:   "compile <descriptor>",
		Short: "Compile a junk descriptor and print its buffer and modifier table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := junk.Build(args[0], junk.WithMaxSize(maxSize))
			if err != nil {
				return err
			}
			if apply {
				spec.Apply(fixedCounter(counter))
			}
			a.logger.Debug("descriptor compiled",
				zap.Int("size", spec.Len()), zap.Int("modifiers", len(spec.Modifiers())))
			return printSpec(cmd.OutOrStdout(), spec)
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "run the modifiers once before printing")
	cmd.Flags().Uint32Var(&counter, "counter", 0, "send counter used by <c> with --apply")
	cmd.Flags().IntVar(&maxSize, "max-size", junk.MessageMaxSize, "maximum packet size, 0 for none")
	return cmd
}

func printSpec(w io.Writer, spec *junk.Spec) error {
	tags, err := junk.ParseTags(spec.Descriptor())
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "canonical: %s\n", junk.FormatTags(tags))
	fmt.Fprintf(w, "size: %d\n", spec.Len())
	if spec.Inert() {
		fmt.Fprintln(w, "inert: no packet is sent")
		return nil
	}

	mods := spec.Modifiers()
	if len(mods) > 0 {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KIND\tOFFSET\tLENGTH")
		for _, m := range mods {
			fmt.Fprintf(tw, "%s\t%d\t%d\n", m.Kind, m.Offset, m.Length)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	_, err = io.WriteString(w, hex.Dump(spec.Bytes()))
	return err
}
