package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/oxidizer/internal/app"
	"go.trai.ch/oxidizer/internal/core/domain"
)

func (c *CLI) newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [session]",
		Short: "Recompute and export the results of a recorded session",
		Long: `Recompute and export the results of a recorded session.

The session is a session id from .oxidizer/history or a path to a session
JSON file. Without an argument the most recent session is analyzed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, _ := cmd.Flags().GetString("input")
			if len(args) == 1 {
				ref = args[0]
			}
			override, err := reportOverrides(cmd.Flags())
			if err != nil {
				return err
			}
			return c.app.Analyze(cmd.Context(), app.AnalyzeOptions{
				Ref:      ref,
				Override: override,
			})
		},
	}

	f := cmd.Flags()
	f.StringP("input", "i", "", "Session id or session JSON file")
	f.Bool("relative-comparison", false, "Compare every target against the baseline")
	f.String("baseline", "", "Baseline target by 1-based position, descriptor or path")
	f.String("time-unit", string(domain.UnitMillisecond), "Time unit for results: s, ms, us, or ns")
	addExportFlags(f)

	return cmd
}
