// Package report renders a finished reduction run as a Markdown document.
package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	md "github.com/nao1215/markdown"

	"github.com/astriolab/pmfuse/pkg/align"
	"github.com/astriolab/pmfuse/pkg/constants"
	"github.com/astriolab/pmfuse/pkg/errors"
	"github.com/astriolab/pmfuse/pkg/frame"
	"github.com/astriolab/pmfuse/pkg/stats"
)

// Report bundles everything the Markdown run report shows.
type Report struct {
	Result   *align.Result
	States   []*align.IterationState // per-iteration snapshots, oldest first
	Manifest *frame.Manifest
	Mode     string
}

// Save renders the report to path, creating or truncating the file.
func Save(path string, r *Report) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, constants.FilePermissions)
	if err != nil {
		return errors.WrapIO("create", path, err)
	}
	defer f.Close()

	if err := Write(f, r); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return f.Sync()
}

// Write renders the report as Markdown.
func Write(w io.Writer, r *Report) error {
	if r == nil || r.Result == nil {
		return errors.NewValidationError("result", nil, "report needs a run result")
	}

	doc := md.NewMarkdown(w)
	doc.H1("Proper-Motion Reduction Report").LF()

	writeSummary(doc, r)
	writeIterations(doc, r.States)
	writeFrames(doc, r)

	return doc.Build()
}

func writeSummary(doc *md.Markdown, r *Report) {
	res := r.Result
	rows := [][]string{
		{"Run ID", md.Code(res.RunID)},
		{"Mode", r.Mode},
		{"Converged", yesNo(res.Converged)},
		{"Iterations", strconv.Itoa(res.Iterations)},
	}
	if res.Table != nil {
		rows = append(rows, []string{"Stars with absolute PM", strconv.Itoa(res.Table.Len())})
	}
	if r.Manifest != nil {
		rows = append(rows, []string{"Frames", strconv.Itoa(len(r.Manifest.Frames))})
	}
	if off := res.Offset; off != nil {
		rows = append(rows,
			[]string{"Offset RA (mas/yr)", measurement(off.RA, off.RAErr)},
			[]string{"Offset Dec (mas/yr)", measurement(off.Dec, off.DecErr)},
			[]string{"Offset stars", strconv.Itoa(off.Stars)},
		)
	}
	if n := len(res.RMS); n > 0 {
		rows = append(rows, []string{"Final RMS (mas/yr)", num(res.RMS[n-1])})
	}

	doc.H2("Summary").LF()
	doc.Table(md.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	}).LF()
}

func writeIterations(doc *md.Markdown, states []*align.IterationState) {
	if len(states) == 0 {
		return
	}
	rows := make([][]string, 0, len(states))
	for _, st := range states {
		rows = append(rows, []string{
			strconv.Itoa(st.Iteration),
			strconv.Itoa(st.ValidFrames),
			strconv.Itoa(st.Aligned),
			strconv.Itoa(st.Candidates),
			num(st.Drift),
			num(st.RMS),
			yesNo(st.Converged),
		})
	}

	doc.H2("Iterations").LF()
	doc.Table(md.TableSet{
		Header: []string{"Iteration", "Valid Frames", "Aligned", "Candidates", "Drift (mas/yr)", "RMS (mas/yr)", "Converged"},
		Rows:   rows,
	}).LF()
}

func writeFrames(doc *md.Markdown, r *Report) {
	if r.Manifest == nil || len(r.States) == 0 {
		return
	}

	// The last iteration's gate verdicts are the ones the output rests on.
	last := r.States[len(r.States)-1]
	rows := make([][]string, 0, len(r.Manifest.Frames))
	for _, fr := range r.Manifest.Frames {
		gate, pval, size, trimmed := "no fit", "n/a", "n/a", "n/a"
		if rep := last.Reports[fr.ID]; rep != nil {
			if rep.Passed() {
				gate = "passed"
			} else {
				gate = "failed"
			}
			pval = num(rep.PValue)
			size = strconv.Itoa(rep.Size)
			trimmed = strconv.Itoa(rep.Trimmed)
		}
		rows = append(rows, []string{
			md.Code(fr.ID),
			fr.Epoch.Format("2006-01-02"),
			fmt.Sprintf("%.2f", fr.Baseline(r.Manifest.ReferenceEpoch)),
			gate,
			pval,
			size,
			trimmed,
		})
	}

	doc.H2("Frames").LF()
	doc.Table(md.TableSet{
		Header: []string{"Frame", "Epoch", "Baseline (yr)", "Gate", "P-Value", "Residuals", "Trimmed"},
		Rows:   rows,
	}).LF()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// num prints a diagnostic number compactly, NaN as n/a.
func num(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return strconv.FormatFloat(v, 'g', 4, 64)
}

// measurement prints value and error rounded to the error's leading
// significant figure, the usual way a PM and its uncertainty are quoted.
func measurement(v, e float64) string {
	rv, re := stats.RoundToError(v, e)
	return fmt.Sprintf("%s ± %s",
		strconv.FormatFloat(rv, 'f', -1, 64),
		strconv.FormatFloat(re, 'f', -1, 64))
}
