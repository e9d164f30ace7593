package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/otelwasm/wasmcall/catalog"
	"github.com/otelwasm/wasmcall/marshal"
	"github.com/otelwasm/wasmcall/wasmlib"
)

// listedFunction is the YAML form of one resolved descriptor.
type listedFunction struct {
	Entry  string                 `yaml:"entry"`
	Name   string                 `yaml:"name"`
	Native string                 `yaml:"native"`
	Params []marshal.ParamSpec    `yaml:"params,flow"`
	Return marshal.ReturnStrategy `yaml:"return"`
	Errors marshal.ErrorAccessors `yaml:"errors,omitempty"`
}

func newListCommand(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the catalog functions with their entry points and native names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output != "text" && output != "yaml" {
				return fmt.Errorf("unknown output format %q", output)
			}
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.Catalog == "" {
				return errors.New("catalog is required")
			}
			cat, err := catalog.Load(cfg.Catalog)
			if err != nil {
				return err
			}
			// The library is not opened, so its ABI is assumed to be the one
			// the guest SDK exports.
			descs, err := cat.Descriptors(wasmlib.ABIV1.ErrorAccessors())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if output == "yaml" {
				listed := make([]listedFunction, len(descs))
				for i, d := range descs {
					listed[i] = listedFunction{
						Entry:  d.Entry,
						Name:   d.Name,
						Native: d.Native,
						Params: d.Params,
						Return: d.Return,
						Errors: d.Errors,
					}
				}
				enc := yaml.NewEncoder(out)
				defer enc.Close()
				return enc.Encode(listed)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ENTRY\tNATIVE\tPARAMS\tRETURN")
			for _, d := range descs {
				params := make([]string, len(d.Params))
				for i, p := range d.Params {
					params[i] = p.String()
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Entry, d.Native, strings.Join(params, ","), d.Return)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or yaml")
	return cmd
}
