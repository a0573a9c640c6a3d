package cmd

import (
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/mraidhost/internal/observability"
)

// newSimulateCmd creates the `simulate` command.
func newSimulateCmd(root *rootOptions) *cobra.Command {
	opts := sessionOptions{}
	var placement, surface string

	simulateCmd := &cobra.Command{
		Use:   "simulate [creative]",
		Short: "Runs a creative in the simulated device and prints the transcript",
		Long: `Runs a creative, given as a path or URL, in the simulated device. An
optional scenario file scripts taps, rotations and lifecycle events. Time is
virtual with the default scripted surface, so runs are fast and repeatable.`,
		Example: `  mraidhost simulate creatives/expand.html
  mraidhost simulate banner.html --scenario close.yaml --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			if len(args) == 1 {
				cfg.SetAdCreative(args[0])
			}
			if placement != "" {
				cfg.SetAdPlacement(placement)
			}
			if surface != "" {
				cfg.SetSurfaceKind(surface)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := observability.GetLogger().Named("simulate")
			return runSession(cmd.Context(), cfg, opts, cmd.OutOrStdout(), logger)
		},
	}

	flags := simulateCmd.Flags()
	flags.StringVarP(&opts.scenario, "scenario", "s", "", "scenario file to play after the creative loads")
	flags.StringVarP(&opts.format, "format", "f", formatText, "transcript format (text, json)")
	flags.StringVarP(&opts.output, "output", "o", "", "write the transcript to a file instead of stdout")
	flags.DurationVarP(&opts.duration, "duration", "d", 0, "let the ad run this long before it is destroyed")
	flags.StringVar(&placement, "placement", "", "override ad.placement (inline, interstitial)")
	flags.StringVar(&surface, "surface", "", "override surface.kind (scripted, chrome)")
	return simulateCmd
}
