package benchmark

import (
	"fmt"
	"io"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates the runs of one operation on one binding.
type Summary struct {
	Binding   string    `json:"binding"`
	Operation Operation `json:"operation"`
	Runs      int       `json:"runs"`
	// Statistics over per-fixture ms/iteration.
	MeanMs   float64 `json:"mean_ms"`
	StdDevMs float64 `json:"stddev_ms"`
	MinMs    float64 `json:"min_ms"`
	MaxMs    float64 `json:"max_ms"`
	MedianMs float64 `json:"median_ms"`
	// MegabytesPerSecond is total uncompressed bytes over total time.
	MegabytesPerSecond float64 `json:"megabytes_per_second"`
	// MeanCompressionRatio is weighted by raw frame size.
	MeanCompressionRatio float64 `json:"mean_compression_ratio"`
}

// Summarize groups records by binding and operation. Groups are ordered by binding,
// then encode before decode.
func Summarize(records []RunRecord) []Summary {
	type key struct {
		binding string
		op      Operation
	}
	groups := make(map[key][]RunRecord)
	var order []key
	for _, r := range records {
		k := key{r.Binding, r.Operation}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].binding != order[j].binding {
			return order[i].binding < order[j].binding
		}
		return order[i].op == OperationEncode && order[j].op != OperationEncode
	})

	out := make([]Summary, 0, len(order))
	for _, k := range order {
		out = append(out, summarize(k.binding, k.op, groups[k]))
	}
	return out
}

func summarize(binding string, op Operation, records []RunRecord) Summary {
	ms := make([]float64, len(records))
	raw := make([]float64, len(records))
	ratios := make([]float64, len(records))
	for i, r := range records {
		ms[i] = r.MsPerIteration
		raw[i] = float64(r.Frame.FrameSize())
		ratios[i] = r.CompressionRatio
	}

	s := Summary{
		Binding:   binding,
		Operation: op,
		Runs:      len(records),
		MeanMs:    stat.Mean(ms, nil),
		MinMs:     floats.Min(ms),
		MaxMs:     floats.Max(ms),
	}
	if len(ms) > 1 {
		s.StdDevMs = stat.StdDev(ms, nil)
	}
	sorted := append([]float64(nil), ms...)
	sort.Float64s(sorted)
	s.MedianMs = stat.Quantile(0.5, stat.Empirical, sorted, nil)

	if total := floats.Sum(ms); total > 0 {
		s.MegabytesPerSecond = floats.Sum(raw) / (1024 * 1024) / (total / 1000)
	}
	if floats.Sum(raw) > 0 {
		s.MeanCompressionRatio = stat.Mean(ratios, raw)
	}
	return s
}

// WriteSummary prints one line per summary in the style of the report lines.
func WriteSummary(w io.Writer, summaries []Summary) {
	for _, s := range summaries {
		fmt.Fprintf(w, "%s %s: %d runs, mean %.3f ms, median %.3f ms, stddev %.3f ms, min %.3f ms, max %.3f ms, %.2f MB/s, ratio %.2f\n",
			s.Binding, s.Operation, s.Runs, s.MeanMs, s.MedianMs, s.StdDevMs, s.MinMs, s.MaxMs, s.MegabytesPerSecond, s.MeanCompressionRatio)
	}
}
