package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/mraidhost/internal/config"
	"github.com/xkilldash9x/mraidhost/internal/observability"
)

// newPreviewCmd creates the `preview` command.
func newPreviewCmd(root *rootOptions) *cobra.Command {
	opts := sessionOptions{format: formatText, live: true}
	var headless bool

	previewCmd := &cobra.Command{
		Use:   "preview [creative]",
		Short: "Renders a creative in a real browser and logs what it does",
		Long: `Renders a creative in Chrome, sized and scaled like the simulated
device, and logs every listener call, console message and state change as it
happens. The transcript is printed when the preview ends.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			if len(args) == 1 {
				cfg.SetAdCreative(args[0])
			}
			cfg.SetSurfaceKind(config.SurfaceChrome)
			cfg.SetBrowserHeadless(headless)

			logger := observability.GetLogger().Named("preview")
			return runSession(cmd.Context(), cfg, opts, cmd.OutOrStdout(), logger)
		},
	}

	flags := previewCmd.Flags()
	flags.StringVarP(&opts.scenario, "scenario", "s", "", "scenario file to play after the creative loads")
	flags.DurationVarP(&opts.duration, "duration", "d", 30*time.Second, "how long to keep the ad on screen")
	flags.BoolVar(&headless, "headless", false, "run the browser without a window")
	flags.StringVarP(&opts.output, "output", "o", "", "write the transcript to a file instead of stdout")
	return previewCmd
}
