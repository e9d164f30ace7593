package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/otelwasm/wasmcall/marshal"
)

func newCallCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "call ENTRY [ARG...]",
		Short: "Call a catalog function",
		Long: `Call a catalog function by entry point or logical name.

Handles are decimal or hexadecimal numbers, or "null". Arrays are
comma-separated lists; an output array takes its length instead.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			s, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer func() {
				err = multierr.Append(err, s.close(ctx))
			}()

			d, ok := s.caller.Table().Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown function %q", args[0])
			}
			callArgs, err := parseArgs(d, args[1:])
			if err != nil {
				return err
			}

			result, err := s.caller.Call(ctx, d.Entry, callArgs...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if d.Return.Kind != marshal.ReturnVoid && result != nil {
				fmt.Fprintln(out, result)
			}
			for _, line := range formatOutputs(d, callArgs) {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}
