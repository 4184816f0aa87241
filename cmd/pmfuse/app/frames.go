package app

import (
	"math"

	"github.com/spf13/cobra"

	"github.com/astriolab/pmfuse/internal/cmd/output"
	"github.com/astriolab/pmfuse/pkg/frame"
)

// frameInfo is one manifest row enriched with the epoch baseline.
type frameInfo struct {
	ID         string  `json:"id" yaml:"id"`
	Epoch      string  `json:"epoch" yaml:"epoch"`
	BaselineYr float64 `json:"baseline_years" yaml:"baseline_years"`
	Filter     string  `json:"filter" yaml:"filter"`
	PixelScale float64 `json:"pixel_scale" yaml:"pixel_scale"`
	Path       string  `json:"path" yaml:"path"`
}

// NewFramesCommand creates the frames command, which lists a manifest's
// frames with their baselines to the reference epoch.
func (a *App) NewFramesCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "frames <manifest.yaml>",
		GroupID: "inspect",
		Short:   "List the frames in a manifest",
		Long: `Frames validates a manifest and lists its frames with the epoch
baseline each one contributes. Useful as a sanity check before a long
reduction: a frame with a near-zero baseline adds positions but no
proper-motion leverage.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := frame.LoadManifest(args[0])
			if err != nil {
				return err
			}

			rows := make([]frameInfo, 0, len(manifest.Frames))
			for _, f := range manifest.Frames {
				rows = append(rows, frameInfo{
					ID:         f.ID,
					Epoch:      f.Epoch.Format("2006-01-02"),
					BaselineYr: math.Round(f.Baseline(manifest.ReferenceEpoch)*1000) / 1000,
					Filter:     f.Filter,
					PixelScale: f.PixelScale,
					Path:       f.Path,
				})
			}

			format := output.DetectFormat(a.config.Format)
			return output.NewFormatter(format).Format(cmd.OutOrStdout(), rows)
		},
	}
}
