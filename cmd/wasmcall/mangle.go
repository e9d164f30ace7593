package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/otelwasm/wasmcall/marshal"
)

func newMangleCommand() *cobra.Command {
	var (
		prefix string
		decode bool
	)
	cmd := &cobra.Command{
		Use:   "mangle NAME...",
		Short: "Print the entry point and native name of fully-qualified names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, name := range args {
				if decode {
					fq, err := marshal.DecodeEntryPoint(name)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, fq)
					continue
				}
				fmt.Fprintf(out, "%s\t%s\n", marshal.EntryPoint(name), marshal.NativeName(prefix, name))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "native-prefix", "", "prefix of native names")
	cmd.Flags().BoolVarP(&decode, "decode", "d", false, "decode entry points back into names")
	return cmd
}
