package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"awgobfs/internal/junk"
	"awgobfs/internal/mimic"
)

func (a *app) mimicCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mimic",
		Short: "Generate descriptors that imitate other protocols",
	}

	var qtype string
	dnsCmd := &cobra.Command{
		Use:   "dns <name>",
		Short: "DNS query with a random transaction ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := mimic.ParseQType(qtype)
			if err != nil {
				return err
			}
			d, err := mimic.DNSQuery(args[0], t)
			if err != nil {
				return err
			}
			return printDescriptor(cmd, d)
		},
	}
	dnsCmd.Flags().StringVarP(&qtype, "type", "t", "A", "query type")

	var fingerprint string
	tlsCmd := &cobra.Command{
		Use:   "tls <server-name>",
		Short: "TLS ClientHello record with random client random and session ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := mimic.TLSClientHello(args[0], fingerprint)
			if err != nil {
				return err
			}
			return printDescriptor(cmd, d)
		},
	}
	tlsCmd.Flags().StringVarP(&fingerprint, "fingerprint", "f", "chrome", "browser fingerprint (chrome, firefox, safari, ios, edge)")

	var index int
	pcapCmd := &cobra.Command{
		Use:   "pcap <file>",
		Short: "Literal copy of a UDP payload from a capture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			d, err := mimic.FromPcap(f, index)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			return printDescriptor(cmd, d)
		},
	}
	pcapCmd.Flags().IntVarP(&index, "index", "i", 0, "UDP datagram index, from 0")

	cmd.AddCommand(dnsCmd, tlsCmd, pcapCmd)
	return cmd
}

// printDescriptor prints d after checking that it compiles.
func printDescriptor(cmd *cobra.Command, d *junk.Descriptor) error {
	if _, err := junk.Build(d.String()); err != nil {
		return err
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), d.String())
	return err
}
