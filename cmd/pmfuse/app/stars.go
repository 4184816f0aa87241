package app

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/astriolab/pmfuse/internal/cmd/output"
	"github.com/astriolab/pmfuse/pkg/catalog"
	"github.com/astriolab/pmfuse/pkg/stats"
)

// tableSummary is the default stars output: enough to judge whether a
// table can anchor a reduction.
type tableSummary struct {
	Stars        int     `json:"stars" yaml:"stars"`
	Candidates   int     `json:"candidates" yaml:"candidates"`
	Alignment    int     `json:"alignment" yaml:"alignment"`
	WithRefPM    int     `json:"with_ref_pm" yaml:"with_ref_pm"`
	WithAbsPM    int     `json:"with_abs_pm" yaml:"with_abs_pm"`
	BrightestMag float64 `json:"brightest_mag" yaml:"brightest_mag"`
	FaintestMag  float64 `json:"faintest_mag" yaml:"faintest_mag"`
}

// starInfo is one listing row. The proper-motion columns show the
// absolute motion when the table has been reduced, otherwise the
// reference-catalog motion.
type starInfo struct {
	ID     string  `json:"id" yaml:"id"`
	RA     float64 `json:"ra" yaml:"ra"`
	Dec    float64 `json:"dec" yaml:"dec"`
	Mag    float64 `json:"mag" yaml:"mag"`
	Member bool    `json:"member" yaml:"member"`
	Align  bool    `json:"align" yaml:"align"`
	PMRA   string  `json:"pm_ra" yaml:"pm_ra"`
	PMDec  string  `json:"pm_dec" yaml:"pm_dec"`
	Frames int     `json:"frames" yaml:"frames"`
}

// NewStarsCommand creates the stars command, which summarizes or lists a
// star table.
func (a *App) NewStarsCommand() *cobra.Command {
	var (
		list          bool
		qualityColumn string
	)

	cmd := &cobra.Command{
		Use:     "stars <stars.csv>",
		GroupID: "inspect",
		Short:   "Summarize a star table",
		Long: `Stars validates a star table and prints membership and proper-motion
counts. With --list it prints one row per star instead; proper motions
are shown rounded to their errors, in mas/yr.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var loadOpts []catalog.LoadOption
			if qualityColumn != "" {
				loadOpts = append(loadOpts, catalog.WithQualityFilter(qualityColumn))
			}
			table, err := catalog.Load(args[0], loadOpts...)
			if err != nil {
				return err
			}

			format := output.DetectFormat(a.config.Format)
			formatter := output.NewFormatter(format)
			if list {
				return formatter.Format(cmd.OutOrStdout(), starRows(table))
			}
			return formatter.Format(cmd.OutOrStdout(), summarizeTable(table))
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "list stars instead of summarizing")
	cmd.Flags().StringVar(&qualityColumn, "quality-column", "", "drop input rows with a falsy value in this column")

	return cmd
}

// summarizeTable counts the populations a reduction cares about.
func summarizeTable(table *catalog.Table) tableSummary {
	summary := tableSummary{
		Stars:      table.Len(),
		Candidates: table.CountCandidates(),
		Alignment:  table.CountAligned(),
	}
	for i := 0; i < table.Len(); i++ {
		star := table.At(i)
		if star.HasRefPM() {
			summary.WithRefPM++
		}
		if star.HasAbsPM() {
			summary.WithAbsPM++
		}
		if i == 0 || star.Mag < summary.BrightestMag {
			summary.BrightestMag = star.Mag
		}
		if i == 0 || star.Mag > summary.FaintestMag {
			summary.FaintestMag = star.Mag
		}
	}
	return summary
}

// starRows converts a table to listing rows.
func starRows(table *catalog.Table) []starInfo {
	rows := make([]starInfo, 0, table.Len())
	for i := 0; i < table.Len(); i++ {
		star := table.At(i)
		pm := star.AbsPM
		if pm == nil {
			pm = star.RefPM
		}
		pmRA, pmDec := formatPM(pm)
		rows = append(rows, starInfo{
			ID:     string(star.ID),
			RA:     star.RA,
			Dec:    star.Dec,
			Mag:    star.Mag,
			Member: star.CandidateMember,
			Align:  star.UseForAlignment,
			PMRA:   pmRA,
			PMDec:  pmDec,
			Frames: star.FrameCount,
		})
	}
	return rows
}

// formatPM renders both components rounded to their errors.
func formatPM(pm *catalog.PM) (ra, dec string) {
	if pm == nil {
		return "", ""
	}
	return formatMeasurement(pm.RA, pm.RAErr), formatMeasurement(pm.Dec, pm.DecErr)
}

func formatMeasurement(value, err float64) string {
	v, e := stats.RoundToError(value, err)
	return strconv.FormatFloat(v, 'f', -1, 64) + " ± " + strconv.FormatFloat(e, 'f', -1, 64)
}
