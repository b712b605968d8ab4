package main

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-sql/civil"
	"github.com/spf13/cobra"

	"github.com/unowned-ai/moodiary/pkg/moods"
	"github.com/unowned-ai/moodiary/pkg/service"
	"github.com/unowned-ai/moodiary/pkg/stats"
)

var asOfFlag string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize all entries",
	Long: `Summarize every entry: how often each mood was recorded, the most frequent mood,
a 0-100 weighted score, and the trend over the month before --as-of (today by default).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asOf, err := moods.ParseDate(asOfFlag, time.Now())
		if err != nil {
			return err
		}
		return withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
			entries, err := svc.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to compute statistics: %w", err)
			}
			return printer(cmd).Summary(stats.Summarize(entries, asOf))
		})
	},
}

var calendarCmd = &cobra.Command{
	Use:     "calendar [YYYY-MM]",
	Aliases: []string{"cal"},
	Short:   "Show a month with the mood of each recorded day",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		today := civil.DateOf(time.Now())
		var raw string
		if len(args) > 0 {
			raw = args[0]
		}
		year, month, err := stats.ParseMonth(raw, today)
		if err != nil {
			return err
		}
		return withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
			first, last := stats.MonthBounds(year, month)
			entries, err := svc.ListBetween(ctx, first, last)
			if err != nil {
				return fmt.Errorf("failed to build calendar: %w", err)
			}
			return printer(cmd).Calendar(stats.MonthGrid(year, month, entries), today)
		})
	},
}

func initStatsCmd() {
	statsCmd.Flags().StringVar(&asOfFlag, "as-of", "", "End of the trend window, YYYY-MM-DD (default: today)")
}
