package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nvr-ai/go-j2kbench/benchmark"
	"github.com/nvr-ai/go-j2kbench/benchmark/engines"
)

func joinNames() string {
	return strings.Join(engines.Names(), ", ")
}

func newFixturesCmd(a *app) *cobra.Command {
	var export string

	cmd := &cobra.Command{
		Use:   "fixtures",
		Short: "List the corpus and check which fixture files are present",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := benchmark.LoadConfig(a.v, a.cfgFile)
			if err != nil {
				return err
			}
			fixtures, err := cfg.ResolveFixtures()
			if err != nil {
				return err
			}

			if export != "" {
				set := &benchmark.FixtureSet{
					Name:        "j2kbench",
					Description: "Exported from the resolved corpus",
					Fixtures:    fixtures,
				}
				if err := benchmark.SaveFixtureSet(set, export); err != nil {
					return err
				}
				a.logger.Info("manifest written", "path", export, "fixtures", len(fixtures))
				return nil
			}

			missing := writeInventory(cmd.OutOrStdout(), cfg.Store().Inventory(fixtures))
			if missing > 0 {
				a.logger.Warn("fixtures incomplete", "missing", missing,
					"raw_dir", cfg.Fixtures.RawDir, "j2k_dir", cfg.Fixtures.CodestreamDir)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&export, "export", "", "write the resolved corpus to a YAML or JSON manifest")
	cmd.Flags().StringSlice("fixture", nil, "restrict the corpus to these fixtures")
	cmd.Flags().String("manifest", "", "YAML or JSON fixture manifest replacing the built-in corpus")
	cmd.Flags().String("raw-dir", "", "directory of <name>.RAW frames")
	cmd.Flags().String("j2k-dir", "", "directory of <name>.j2k codestreams")
	cmd.PreRunE = bindFlags(a, map[string]string{
		"fixture":  "fixtures.names",
		"manifest": "fixtures.manifest",
		"raw-dir":  "fixtures.rawDir",
		"j2k-dir":  "fixtures.codestreamDir",
	})
	return cmd
}

// writeInventory prints one line per fixture and returns how many files are missing.
func writeInventory(w io.Writer, inventory []benchmark.FixtureAvailability) int {
	r := lipgloss.NewRenderer(w)
	header := r.NewStyle().Bold(true)
	ok := r.NewStyle().Foreground(lipgloss.Color("42"))
	bad := r.NewStyle().Foreground(lipgloss.Color("196"))

	status := func(present bool, size int64) string {
		if !present {
			return bad.Render(fmt.Sprintf("%-10s", "missing"))
		}
		return ok.Render(fmt.Sprintf("%-10s", humanize.Bytes(uint64(size))))
	}

	fmt.Fprintln(w, header.Render(fmt.Sprintf("%-6s %-32s %-10s %-10s %s", "NAME", "FRAME", "RAW", "J2K", "RATIO")))
	missing := 0
	for _, a := range inventory {
		if !a.HasRaw {
			missing++
		}
		if !a.HasCodestream {
			missing++
		}
		ratio := "-"
		if a.HasRaw && a.HasCodestream && a.CodestreamSize > 0 {
			ratio = fmt.Sprintf("%.2f", float64(a.RawSize)/float64(a.CodestreamSize))
		}
		fmt.Fprintf(w, "%-6s %-32s %s %s %s\n",
			a.Fixture.Name, a.Fixture.FrameInfo.String(),
			status(a.HasRaw, a.RawSize), status(a.HasCodestream, a.CodestreamSize), ratio)
	}
	return missing
}
