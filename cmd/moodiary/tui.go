package main

import (
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/unowned-ai/moodiary/pkg/logging"
	"github.com/unowned-ai/moodiary/pkg/tui"
)

var tuiLogFileFlag string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Show terminal UI",
	Long: `Display an interactive calendar of your moods with an editor for the selected day.

With the diskv backend, entry files changed by another process (a sync client, a second
moodiary) show up without a restart.

The screen belongs to the UI while it runs, so logs are discarded unless --log-file is set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if tuiLogFileFlag != "" {
			f, err := tea.LogToFile(tuiLogFileFlag, "moodiary")
			if err != nil {
				return err
			}
			defer f.Close()
			logger = logging.New(cfg.Log, f)
		} else {
			logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		}

		st, err := openStorage()
		if err != nil {
			return err
		}
		defer st.svc.Close()

		info := tui.Info{Backend: st.backend, Location: st.location}
		if st.disk != nil {
			if err := st.disk.WatchExternal(cmd.Context()); err != nil {
				logger.Warn("live reload disabled", "error", err)
			} else {
				info.Watching = true
			}
		}
		return tui.ShowTUI(cmd.Context(), st.svc, info, logger)
	},
}

func initTUICmd() {
	tuiCmd.Flags().StringVar(&tuiLogFileFlag, "log-file", "", "Write logs to this file while the UI runs")
}
