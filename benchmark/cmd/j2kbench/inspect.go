package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/nvr-ai/go-j2kbench/benchmark"
	"github.com/nvr-ai/go-j2kbench/codestream"
)

// inspection is the JSON form printed by inspect --json.
type inspection struct {
	Path     string              `json:"path"`
	Size     int                 `json:"size"`
	JP2      bool                `json:"jp2"`
	Complete bool                `json:"complete"`
	Frame    benchmark.FrameInfo `json:"frame"`
	Header   *codestream.Header  `json:"header"`
}

func newInspectCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect FILE...",
		Short: "Print the main header of JPEG 2000 codestreams or JP2 files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := make([]inspection, 0, len(args))
			for _, path := range args {
				in, err := inspectFile(path)
				if err != nil {
					return err
				}
				if !in.Complete {
					a.logger.Warn("codestream is truncated", "path", path)
				}
				results = append(results, in)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			for _, in := range results {
				writeInspection(out, in)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func inspectFile(path string) (inspection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return inspection{}, err
	}
	h, err := codestream.ParseHeader(data)
	if err != nil {
		return inspection{}, errors.Wrap(err, path)
	}
	return inspection{
		Path:     path,
		Size:     len(data),
		JP2:      codestream.IsJP2(data),
		Complete: codestream.CheckComplete(data) == nil,
		Frame:    benchmark.FrameInfoFromHeader(h),
		Header:   h,
	}, nil
}

func writeInspection(w io.Writer, in inspection) {
	h := in.Header
	container := "codestream"
	if in.JP2 {
		container = "JP2"
	}
	fmt.Fprintf(w, "%s: %s, %s\n", in.Path, container, humanize.Bytes(uint64(in.Size)))
	fmt.Fprintf(w, "  frame        %s\n", in.Frame)
	fmt.Fprintf(w, "  offset       %d,%d\n", h.ImageOffset.X, h.ImageOffset.Y)
	fmt.Fprintf(w, "  tiles        %dx%d at %d,%d\n", h.TileSize.Width, h.TileSize.Height, h.TileOffset.X, h.TileOffset.Y)
	fmt.Fprintf(w, "  code-blocks  %dx%d\n", h.BlockDimensions.Width, h.BlockDimensions.Height)
	fmt.Fprintf(w, "  progression  %s, %d layers, %d decompositions\n", h.ProgressionOrder, h.NumLayers, h.NumDecompositions)
	fmt.Fprintf(w, "  wavelet      %s, mct=%t\n", wavelet(h.Reversible), h.MultipleComponentTransform)
	fmt.Fprintf(w, "  complete     %t\n", in.Complete)
}

func wavelet(reversible bool) string {
	if reversible {
		return "5/3 reversible"
	}
	return "9/7 irreversible"
}
