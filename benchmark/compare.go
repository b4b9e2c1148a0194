package benchmark

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// ErrRegression is returned by callers that fail a build on a detected regression.
var ErrRegression = errors.New("performance regression detected")

// Comparison statuses.
const (
	StatusStable      = "stable"
	StatusRegression  = "regression"
	StatusImprovement = "improvement"
	StatusNew         = "new"
)

// Tolerance defines acceptable variance before a change is flagged.
type Tolerance struct {
	// MsPercent is the increase in ms per iteration over the baseline mean that
	// counts as a regression. The same decrease counts as an improvement.
	MsPercent float64 `json:"ms_percent"`
	// RatioPercent is the drop in encode compression ratio that counts as a regression.
	RatioPercent float64 `json:"ratio_percent"`
	// MinSamples is the number of points, current run included, needed before a
	// steady upward trend is reported on its own.
	MinSamples int `json:"min_samples"`
}

// DefaultTolerance flags a 10% slowdown or a 1% loss of compression.
func DefaultTolerance() Tolerance {
	return Tolerance{MsPercent: 10, RatioPercent: 1, MinSamples: 3}
}

// Comparison is the verdict for one binding, fixture and operation.
type Comparison struct {
	Binding       string    `json:"binding"`
	Fixture       string    `json:"fixture"`
	Operation     Operation `json:"operation"`
	Samples       int       `json:"samples"`
	BaselineMs    float64   `json:"baseline_ms"`
	CurrentMs     float64   `json:"current_ms"`
	ChangePercent float64   `json:"change_percent"`
	// TrendPercent is the slope of ms per iteration over the history and the current
	// run, as a percentage of their mean per run.
	TrendPercent  float64  `json:"trend_percent"`
	BaselineRatio float64  `json:"baseline_ratio,omitempty"`
	CurrentRatio  float64  `json:"current_ratio,omitempty"`
	Status        string   `json:"status"`
	Reasons       []string `json:"reasons,omitempty"`
}

// CompareReport collects the comparisons of one current run against its history.
type CompareReport struct {
	CurrentRunID   string       `json:"current_run_id"`
	BaselineRunIDs []string     `json:"baseline_run_ids"`
	Tolerance      Tolerance    `json:"tolerance"`
	Comparisons    []Comparison `json:"comparisons"`
	HasRegression  bool         `json:"has_regression"`
	Summary        string       `json:"summary"`
}

// LoadResults reads a results file written by Suite.SaveResults.
func LoadResults(path string) (*ResultsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read results file")
	}
	var rf ResultsFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, errors.Wrapf(err, "failed to parse results file %s", path)
	}
	return &rf, nil
}

type recordKey struct {
	binding, fixture string
	op               Operation
}

func keyOf(r RunRecord) recordKey {
	return recordKey{binding: r.Binding, fixture: r.Fixture, op: r.Operation}
}

// Compare checks every record of current against the same binding, fixture and
// operation in history, oldest first.
func Compare(history []*ResultsFile, current *ResultsFile, tol Tolerance) (*CompareReport, error) {
	if len(history) == 0 {
		return nil, errors.New("at least one baseline results file is required")
	}
	if current == nil || len(current.Records) == 0 {
		return nil, errors.New("current results contain no records")
	}

	report := &CompareReport{CurrentRunID: current.RunID, Tolerance: tol}
	ms := map[recordKey][]float64{}
	ratios := map[recordKey][]float64{}
	for _, rf := range history {
		report.BaselineRunIDs = append(report.BaselineRunIDs, rf.RunID)
		for _, r := range rf.Records {
			k := keyOf(r)
			ms[k] = append(ms[k], r.MsPerIteration)
			ratios[k] = append(ratios[k], r.CompressionRatio)
		}
	}

	var regressions, improvements int
	for _, r := range current.Records {
		c := compareRecord(r, ms[keyOf(r)], ratios[keyOf(r)], tol)
		switch c.Status {
		case StatusRegression:
			regressions++
		case StatusImprovement:
			improvements++
		}
		report.Comparisons = append(report.Comparisons, c)
	}

	sort.SliceStable(report.Comparisons, func(i, j int) bool {
		return report.Comparisons[i].ChangePercent > report.Comparisons[j].ChangePercent
	})

	report.HasRegression = regressions > 0
	switch {
	case regressions > 0:
		report.Summary = fmt.Sprintf("REGRESSION: %d of %d runs slower than %.1f%% tolerance",
			regressions, len(report.Comparisons), tol.MsPercent)
	case improvements > 0:
		report.Summary = fmt.Sprintf("IMPROVEMENT: %d of %d runs faster", improvements, len(report.Comparisons))
	default:
		report.Summary = fmt.Sprintf("STABLE: Performance within %.1f%% tolerance", tol.MsPercent)
	}
	return report, nil
}

func compareRecord(r RunRecord, history, ratios []float64, tol Tolerance) Comparison {
	c := Comparison{
		Binding:      r.Binding,
		Fixture:      r.Fixture,
		Operation:    r.Operation,
		Samples:      len(history),
		CurrentMs:    r.MsPerIteration,
		CurrentRatio: r.CompressionRatio,
		Status:       StatusStable,
	}
	if len(history) == 0 {
		c.Status = StatusNew
		return c
	}

	c.BaselineMs = stat.Mean(history, nil)
	if c.BaselineMs > 0 {
		c.ChangePercent = (c.CurrentMs - c.BaselineMs) / c.BaselineMs * 100
	}
	c.TrendPercent = linearTrend(append(append([]float64(nil), history...), c.CurrentMs))

	if c.ChangePercent > tol.MsPercent {
		c.Status = StatusRegression
		c.Reasons = append(c.Reasons, fmt.Sprintf("ms per iteration increased by %.1f%% (threshold: %.1f%%)",
			c.ChangePercent, tol.MsPercent))
	} else if c.ChangePercent < -tol.MsPercent {
		c.Status = StatusImprovement
		c.Reasons = append(c.Reasons, fmt.Sprintf("ms per iteration improved by %.1f%%", -c.ChangePercent))
	}

	points := len(history) + 1
	if points >= tol.MinSamples && c.TrendPercent > tol.MsPercent/float64(points) {
		c.Status = StatusRegression
		c.Reasons = append(c.Reasons, fmt.Sprintf("consistent degradation trend: %.1f%% per run", c.TrendPercent))
	}

	if r.Operation == OperationEncode {
		c.BaselineRatio = stat.Mean(ratios, nil)
		if c.BaselineRatio > 0 {
			drop := (c.BaselineRatio - c.CurrentRatio) / c.BaselineRatio * 100
			if drop > tol.RatioPercent {
				c.Status = StatusRegression
				c.Reasons = append(c.Reasons, fmt.Sprintf("compression ratio dropped by %.1f%%", drop))
			}
		}
	}
	return c
}

// linearTrend returns the least-squares slope of values against their index as a
// percentage of their mean.
func linearTrend(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	xs := make([]float64, len(values))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, slope := stat.LinearRegression(xs, values, nil, false)
	mean := stat.Mean(values, nil)
	if mean == 0 {
		return 0
	}
	return slope / mean * 100
}

// WriteCompareReport prints the summary followed by every non-stable comparison.
func WriteCompareReport(w io.Writer, report *CompareReport) {
	fmt.Fprintf(w, "%s\n", report.Summary)
	for _, c := range report.Comparisons {
		if c.Status == StatusStable {
			continue
		}
		if c.Status == StatusNew {
			fmt.Fprintf(w, "  %-11s %s %s %s: %.3f ms (no baseline)\n",
				strings.ToUpper(c.Status), c.Binding, c.Operation, c.Fixture, c.CurrentMs)
			continue
		}
		fmt.Fprintf(w, "  %-11s %s %s %s: %.3f ms -> %.3f ms (%+.1f%%)",
			strings.ToUpper(c.Status), c.Binding, c.Operation, c.Fixture, c.BaselineMs, c.CurrentMs, c.ChangePercent)
		if len(c.Reasons) > 0 {
			fmt.Fprintf(w, ": %s", strings.Join(c.Reasons, "; "))
		}
		fmt.Fprintln(w)
	}
}
