package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang-sql/civil"
	"github.com/spf13/cobra"

	"github.com/unowned-ai/moodiary/pkg/moods"
	"github.com/unowned-ai/moodiary/pkg/service"
	"github.com/unowned-ai/moodiary/pkg/session"
)

var (
	moodFlag  string
	titleFlag string
	bodyFlag  string

	listMoodFlag  string
	listFromFlag  string
	listToFlag    string
	listLimitFlag int

	deleteYesFlag bool
)

var recordCmd = &cobra.Command{
	Use:   "record [date]",
	Short: "Record the mood for a day",
	Long: `Record the mood for a day, today by default. When the day already has an entry it
is updated; a title or body that is not given keeps its stored value.

Dates are YYYY-MM-DD, "today" or "yesterday". Moods are very-happy, happy, neutral,
sad or very-sad, their number on the 5 (very happy) to 1 (very sad) scale, or the emoji.`,
	Example: `  moodiary record -m happy -t "Long walk"
  moodiary record yesterday -m 2 -b "Tired all day"`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if moodFlag == "" {
			return fmt.Errorf("%w: --mood is required", moods.ErrInvalidMood)
		}
		mood, err := moods.ParseMood(moodFlag)
		if err != nil {
			return err
		}
		d, err := dateArg(args)
		if err != nil {
			return err
		}

		return withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
			sess, err := openSession(ctx, svc, d)
			if err != nil {
				return err
			}
			defer sess.Close()

			sess.StartEditing()
			if cmd.Flags().Changed("title") {
				sess.UpdateDraftTitle(titleFlag)
			}
			if cmd.Flags().Changed("body") {
				sess.UpdateDraftBody(bodyFlag)
			}
			sess.UpdateDraftMood(mood)

			saved, err := sess.Save(ctx)
			if err != nil {
				return fmt.Errorf("failed to record entry: %w", err)
			}
			return printer(cmd).Entry(&saved)
		})
	},
}

var showCmd = &cobra.Command{
	Use:   "show [date]",
	Short: "Show the entry for a day",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := dateArg(args)
		if err != nil {
			return err
		}
		return withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
			entry, err := svc.GetByDate(ctx, d)
			if err != nil {
				return fmt.Errorf("failed to get entry: %w", err)
			}
			return printer(cmd).Entry(entry)
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List entries, newest first",
	Long:  `List entries newest first, optionally filtered by mood and an inclusive date range.`,
	Example: `  moodiary list --limit 7
  moodiary list --mood sad --from 2024-01-01 --to 2024-03-31`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := listFilter(cmd)
		if err != nil {
			return err
		}
		p := printer(cmd)
		if cmd.Flags().Changed("limit") && listLimitFlag <= 0 {
			return p.Entries("Entries", nil)
		}
		return withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
			entries, err := svc.Find(ctx, f)
			if err != nil {
				return fmt.Errorf("failed to list entries: %w", err)
			}
			return p.Entries(listTitle(f), entries)
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <date>",
	Short: "Delete the entry for a day",
	Long:  `Delete the entry for a day. Deleting a day without an entry does nothing.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := dateArg(args)
		if err != nil {
			return err
		}
		p := printer(cmd)
		return withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
			sess, err := openSession(ctx, svc, d)
			if err != nil {
				return err
			}
			defer sess.Close()

			st := sess.State()
			if !st.HasEntry() {
				return p.Message("No entry for %s; nothing deleted.", d)
			}
			if !deleteYesFlag && !p.JSON {
				if err := p.Entry(st.Current); err != nil {
					return err
				}
				if !confirm(cmd, fmt.Sprintf("Delete the entry for %s?", d)) {
					return p.Message("Kept.")
				}
			}
			if err := sess.Delete(ctx); err != nil {
				return fmt.Errorf("failed to delete entry: %w", err)
			}
			return p.Message("Entry for %s deleted.", d)
		})
	},
}

var moodsCmd = &cobra.Command{
	Use:   "moods",
	Short: "Show the mood scale",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printer(cmd).Legend()
	},
}

func initEntriesCmd() {
	recordCmd.Flags().StringVarP(&moodFlag, "mood", "m", "", "Mood for the day (required)")
	recordCmd.Flags().StringVarP(&titleFlag, "title", "t", "", "Short title")
	recordCmd.Flags().StringVarP(&bodyFlag, "body", "b", "", "Free text")
	recordCmd.RegisterFlagCompletionFunc("mood", completeMoods)

	listCmd.Flags().StringVar(&listMoodFlag, "mood", "", "Only entries with this mood")
	listCmd.Flags().StringVar(&listFromFlag, "from", "", "Earliest date, YYYY-MM-DD")
	listCmd.Flags().StringVar(&listToFlag, "to", "", "Latest date, YYYY-MM-DD")
	listCmd.Flags().IntVarP(&listLimitFlag, "limit", "n", 0, "Maximum number of entries (default: all)")
	listCmd.RegisterFlagCompletionFunc("mood", completeMoods)

	deleteCmd.Flags().BoolVarP(&deleteYesFlag, "yes", "y", false, "Do not ask for confirmation")
}

func completeMoods(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	names := make([]string, 0, len(moods.All))
	for _, m := range moods.All {
		names = append(names, m.String())
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

func listFilter(cmd *cobra.Command) (service.Filter, error) {
	var f service.Filter
	if listMoodFlag != "" {
		m, err := moods.ParseMood(listMoodFlag)
		if err != nil {
			return f, err
		}
		f.Mood = m
	}
	for _, bound := range []struct {
		raw string
		dst *civil.Date
	}{{listFromFlag, &f.From}, {listToFlag, &f.To}} {
		if bound.raw == "" {
			continue
		}
		d, err := moods.ParseDate(bound.raw, time.Now())
		if err != nil {
			return f, err
		}
		*bound.dst = d
	}
	if f.From.IsValid() && f.To.IsValid() && f.To.Before(f.From) {
		return f, fmt.Errorf("%w: --to %s is before --from %s", moods.ErrInvalidDate, f.To, f.From)
	}
	if listLimitFlag > 0 {
		f.Limit = listLimitFlag
	}
	return f, nil
}

func listTitle(f service.Filter) string {
	parts := []string{"Entries"}
	if f.Mood.Valid() {
		parts = append(parts, f.Mood.Glyph()+" "+f.Mood.Label())
	}
	switch {
	case f.From.IsValid() && f.To.IsValid():
		parts = append(parts, fmt.Sprintf("%s..%s", f.From, f.To))
	case f.From.IsValid():
		parts = append(parts, "since "+f.From.String())
	case f.To.IsValid():
		parts = append(parts, "until "+f.To.String())
	}
	return strings.Join(parts, " ")
}

// dateArg reads the optional date argument; none means today.
func dateArg(args []string) (civil.Date, error) {
	var raw string
	if len(args) > 0 {
		raw = args[0]
	}
	return moods.ParseDate(raw, time.Now())
}

// openSession starts a session and moves it to d.
func openSession(ctx context.Context, svc *service.Service, d civil.Date) (*session.Session, error) {
	sess, err := session.New(ctx, svc, session.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if err := sess.SetSelectedDate(ctx, d); err != nil {
		sess.Close()
		return nil, err
	}
	return sess, nil
}

// confirm asks a yes/no question on the command's input.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)
	answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
