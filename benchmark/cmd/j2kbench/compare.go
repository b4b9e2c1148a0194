package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/nvr-ai/go-j2kbench/benchmark"
)

func newCompareCmd(a *app) *cobra.Command {
	var (
		tol    = benchmark.DefaultTolerance()
		asJSON bool
		fail   bool
	)

	cmd := &cobra.Command{
		Use:   "compare BASELINE... CURRENT",
		Short: "Compare a results file against earlier runs",
		Long: `compare checks every run in CURRENT against the mean of the same binding,
fixture and operation in the BASELINE results files, oldest first, and reports
slowdowns, speedups, and drops in compression ratio.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]*benchmark.ResultsFile, 0, len(args))
			for _, path := range args {
				rf, err := benchmark.LoadResults(path)
				if err != nil {
					return err
				}
				files = append(files, rf)
			}

			report, err := benchmark.Compare(files[:len(files)-1], files[len(files)-1], tol)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				benchmark.WriteCompareReport(out, report)
			}

			if report.HasRegression {
				a.logger.Warn("regression detected", "current", report.CurrentRunID)
				if fail {
					return benchmark.ErrRegression
				}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.Float64Var(&tol.MsPercent, "ms-tolerance", tol.MsPercent, "allowed slowdown in percent")
	f.Float64Var(&tol.RatioPercent, "ratio-tolerance", tol.RatioPercent, "allowed compression ratio drop in percent")
	f.IntVar(&tol.MinSamples, "min-samples", tol.MinSamples, "runs needed before a trend alone is flagged")
	f.BoolVar(&asJSON, "json", false, "print JSON")
	f.BoolVar(&fail, "fail-on-regression", true, "exit non-zero when a regression is found")
	return cmd
}
