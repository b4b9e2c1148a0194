package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvr-ai/go-j2kbench/benchmark"
	"github.com/nvr-ai/go-j2kbench/benchmark/engines"
)

func newVersionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the j2kbench version and, with --binding, the codec version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "j2kbench %s\n", version)

			if !cmd.Flags().Changed("binding") {
				return nil
			}
			cfg, err := benchmark.LoadConfig(a.v, a.cfgFile)
			if err != nil {
				return err
			}
			binding, err := engines.Load(cmd.Context(), cfg.Binding, a.logger)
			if err != nil {
				return err
			}
			defer binding.Close()

			data, err := json.MarshalIndent(benchmark.CurrentSystemInfo(binding), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		},
	}
	cmd.Flags().String("binding", "", "load this binding and report its version: "+joinNames())
	cmd.PreRunE = bindFlags(a, map[string]string{"binding": "binding.name"})
	return cmd
}
