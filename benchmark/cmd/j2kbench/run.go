package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/nvr-ai/go-j2kbench/benchmark"
	"github.com/nvr-ai/go-j2kbench/benchmark/engines"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Benchmark the corpus with one binding",
		Example: `  j2kbench run --binding openjpeg --iterations 10
  j2kbench run --config bench.yaml --fixture CT1,MR1 --operations decode`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := benchmark.LoadConfig(a.v, a.cfgFile)
			if err != nil {
				return err
			}

			binding, err := engines.Load(cmd.Context(), cfg.Binding, a.logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := binding.Close(); err != nil {
					a.logger.Warn("failed to close binding", "error", err)
				}
			}()

			suite := benchmark.NewSuite(benchmark.NewSuiteArgs{
				Binding: binding,
				Config:  cfg,
				Report:  cmd.OutOrStdout(),
				Logger:  a.logger,
			})
			_, err = suite.Run(cmd.Context())
			return err
		},
	}

	f := cmd.Flags()
	f.String("binding", "", "codec binding: "+joinNames())
	f.String("compress-path", "", "opj_compress executable")
	f.String("decompress-path", "", "opj_decompress executable")
	f.Int("threads", 0, "codec threads (0 keeps the binding default)")
	f.Uint32("iterations", 0, "timed calls per fixture and operation")
	f.StringSlice("operations", nil, "operations to time (encode, decode)")
	f.StringSlice("fixture", nil, "restrict the corpus to these fixtures")
	f.String("manifest", "", "YAML or JSON fixture manifest replacing the built-in corpus")
	f.String("raw-dir", "", "directory of <name>.RAW frames")
	f.String("j2k-dir", "", "directory of <name>.j2k codestreams")
	f.Bool("strict", false, "fail when a decoded frame differs from its descriptor")
	f.Int("reduce", 0, "decode this many resolution levels below full size")
	f.Int("layers", 0, "decode only the first N quality layers")
	f.String("output", "", "output directory")
	f.Bool("save-results", false, "write JSON results and a CSV summary")
	f.Bool("artifacts", false, "write the last payload of every run")
	f.Bool("previews", false, "write PNG previews of decoded frames")
	f.String("metrics-file", "", "write Prometheus metrics in textfile format")

	cmd.PreRunE = bindFlags(a, map[string]string{
		"binding":         "binding.name",
		"compress-path":   "binding.compressPath",
		"decompress-path": "binding.decompressPath",
		"threads":         "binding.threads",
		"iterations":      "iterations",
		"operations":      "operations",
		"fixture":         "fixtures.names",
		"manifest":        "fixtures.manifest",
		"raw-dir":         "fixtures.rawDir",
		"j2k-dir":         "fixtures.codestreamDir",
		"strict":          "strictFrameCheck",
		"reduce":          "decode.decompositionLevel",
		"layers":          "decode.decodeLayer",
		"output":          "output.dir",
		"save-results":    "output.saveResults",
		"artifacts":       "output.artifacts",
		"previews":        "output.previews",
		"metrics-file":    "output.metricsFile",
	})
	return cmd
}

// bindFlags returns a PreRunE that binds each flag of the running command to its
// config key. Binding happens only for the command being executed since several
// commands share keys. Unchanged flags leave the config file and defaults in charge.
func bindFlags(a *app, keys map[string]string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		for flag, key := range keys {
			if err := a.v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
				return errors.Wrapf(err, "bind --%s", flag)
			}
		}
		return nil
	}
}
