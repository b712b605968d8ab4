package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-sql/civil"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/unowned-ai/moodiary/pkg/moods"
	"github.com/unowned-ai/moodiary/pkg/service"
	"github.com/unowned-ai/moodiary/pkg/session"
	"github.com/unowned-ai/moodiary/pkg/stats"
)

const moodHelp = "One of very-happy, happy, neutral, sad, very-sad (or 5..1, or the emoji)."

// RegisterPingTool registers the ping tool.
func RegisterPingTool(s *server.MCPServer) {
	pingTool := mcp.NewTool("ping",
		mcp.WithDescription("Responds with 'pong' to check if the Moodiary MCP server is alive."),
	)
	s.AddTool(pingTool, pingHandler)
}

func pingHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText("pong_moodiary"), nil
}

// RegisterGetEntryTool registers the get_entry tool.
func RegisterGetEntryTool(s *server.MCPServer, j Journal, now func() time.Time) {
	tool := mcp.NewTool("get_entry",
		mcp.WithDescription("Returns the mood entry recorded for a date, or null when that day has none."),
		mcp.WithString("date", mcp.Description("YYYY-MM-DD, 'today' or 'yesterday'. Defaults to today.")),
	)
	s.AddTool(tool, getEntryHandler(j, now))
}

func getEntryHandler(j Journal, now func() time.Time) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		d, err := dateArg(request, "date", now)
		if err != nil {
			return errorResult("get entry", err), nil
		}
		entry, err := j.GetByDate(ctx, d)
		if err != nil {
			return errorResult("get entry", err), nil
		}
		return jsonResult(entry)
	}
}

// RegisterSaveEntryTool registers the save_entry tool.
func RegisterSaveEntryTool(s *server.MCPServer, j Journal, log *slog.Logger, now func() time.Time) {
	tool := mcp.NewTool("save_entry",
		mcp.WithDescription("Records the mood for a date. Creates the entry, or updates it when the date already has one. Omitted title or body keep their stored values."),
		mcp.WithString("mood", mcp.Required(), mcp.Description(moodHelp)),
		mcp.WithString("date", mcp.Description("YYYY-MM-DD, 'today' or 'yesterday'. Defaults to today.")),
		mcp.WithString("title", mcp.Description("Optional short title.")),
		mcp.WithString("body", mcp.Description("Optional free text.")),
	)
	s.AddTool(tool, saveEntryHandler(j, log, now))
}

func saveEntryHandler(j Journal, log *slog.Logger, now func() time.Time) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		rawMood, ok := stringArg(request, "mood")
		if !ok || rawMood == "" {
			return mcp.NewToolResultError("'mood' parameter is required. " + moodHelp), nil
		}
		mood, err := moods.ParseMood(rawMood)
		if err != nil {
			return errorResult("save entry", err), nil
		}
		d, err := dateArg(request, "date", now)
		if err != nil {
			return errorResult("save entry", err), nil
		}

		sess, err := openSession(ctx, j, log, now, d)
		if err != nil {
			return errorResult("save entry", err), nil
		}
		defer sess.Close()

		sess.StartEditing()
		if title, ok := stringArg(request, "title"); ok {
			sess.UpdateDraftTitle(title)
		}
		if body, ok := stringArg(request, "body"); ok {
			sess.UpdateDraftBody(body)
		}
		sess.UpdateDraftMood(mood)

		saved, err := sess.Save(ctx)
		if err != nil {
			return errorResult("save entry", err), nil
		}
		return jsonResult(saved)
	}
}

// RegisterDeleteEntryTool registers the delete_entry tool.
func RegisterDeleteEntryTool(s *server.MCPServer, j Journal, log *slog.Logger, now func() time.Time) {
	tool := mcp.NewTool("delete_entry",
		mcp.WithDescription("Deletes the mood entry for a date. Succeeds without change when the date has no entry."),
		mcp.WithString("date", mcp.Required(), mcp.Description("YYYY-MM-DD, 'today' or 'yesterday'.")),
	)
	s.AddTool(tool, deleteEntryHandler(j, log, now))
}

func deleteEntryHandler(j Journal, log *slog.Logger, now func() time.Time) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, ok := stringArg(request, "date")
		if !ok || raw == "" {
			return mcp.NewToolResultError("'date' parameter is required and must be a non-empty string."), nil
		}
		d, err := moods.ParseDate(raw, now())
		if err != nil {
			return errorResult("delete entry", err), nil
		}

		sess, err := openSession(ctx, j, log, now, d)
		if err != nil {
			return errorResult("delete entry", err), nil
		}
		defer sess.Close()

		if !sess.State().HasEntry() {
			return mcp.NewToolResultText(fmt.Sprintf("No entry for %s; nothing deleted.", d)), nil
		}
		if err := sess.Delete(ctx); err != nil {
			return errorResult("delete entry", err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Entry for %s deleted.", d)), nil
	}
}

// RegisterListEntriesTool registers the list_entries tool.
func RegisterListEntriesTool(s *server.MCPServer, j Journal, now func() time.Time) {
	tool := mcp.NewTool("list_entries",
		mcp.WithDescription("Lists mood entries newest first, optionally filtered by mood and an inclusive date range."),
		mcp.WithString("mood", mcp.Description("Only entries with this mood. "+moodHelp)),
		mcp.WithString("from", mcp.Description("Earliest date, YYYY-MM-DD.")),
		mcp.WithString("to", mcp.Description("Latest date, YYYY-MM-DD.")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of entries to return.")),
	)
	s.AddTool(tool, listEntriesHandler(j, now))
}

func listEntriesHandler(j Journal, now func() time.Time) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var f service.Filter

		if raw, ok := stringArg(request, "mood"); ok && raw != "" {
			m, err := moods.ParseMood(raw)
			if err != nil {
				return errorResult("list entries", err), nil
			}
			f.Mood = m
		}
		for name, dst := range map[string]*civil.Date{"from": &f.From, "to": &f.To} {
			raw, ok := stringArg(request, name)
			if !ok || raw == "" {
				continue
			}
			d, err := moods.ParseDate(raw, now())
			if err != nil {
				return errorResult("list entries", err), nil
			}
			*dst = d
		}
		limit, ok, err := intArg(request, "limit")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if ok {
			if limit <= 0 {
				return jsonResult([]moods.Entry{})
			}
			f.Limit = limit
		}

		entries, err := j.Find(ctx, f)
		if err != nil {
			return errorResult("list entries", err), nil
		}
		return jsonResult(entries)
	}
}

// RegisterGetStatisticsTool registers the get_statistics tool.
func RegisterGetStatisticsTool(s *server.MCPServer, j Journal, now func() time.Time) {
	tool := mcp.NewTool("get_statistics",
		mcp.WithDescription("Summarizes all entries: counts and percentages per mood, most frequent mood, weighted score 0-100 (null without entries), the trend over the month before as_of and the mood distribution."),
		mcp.WithString("as_of", mcp.Description("End of the trend window, YYYY-MM-DD. Defaults to today.")),
	)
	s.AddTool(tool, getStatisticsHandler(j, now))
}

func getStatisticsHandler(j Journal, now func() time.Time) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		asOf, err := dateArg(request, "as_of", now)
		if err != nil {
			return errorResult("compute statistics", err), nil
		}
		entries, err := j.List(ctx)
		if err != nil {
			return errorResult("compute statistics", err), nil
		}
		return jsonResult(stats.Summarize(entries, asOf))
	}
}

// RegisterGetCalendarTool registers the get_calendar tool.
func RegisterGetCalendarTool(s *server.MCPServer, j Journal, now func() time.Time) {
	tool := mcp.NewTool("get_calendar",
		mcp.WithDescription("Returns a month as Monday-first weeks, marking each day that has an entry with its mood."),
		mcp.WithString("month", mcp.Description("YYYY-MM. Defaults to the current month.")),
	)
	s.AddTool(tool, getCalendarHandler(j, now))
}

func getCalendarHandler(j Journal, now func() time.Time) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, _ := stringArg(request, "month")
		year, month, err := stats.ParseMonth(raw, civil.DateOf(now()))
		if err != nil {
			return errorResult("build calendar", err), nil
		}
		first, last := stats.MonthBounds(year, month)
		entries, err := j.ListBetween(ctx, first, last)
		if err != nil {
			return errorResult("build calendar", err), nil
		}
		return jsonResult(stats.MonthGrid(year, month, entries))
	}
}

// openSession starts a session and moves it to d.
func openSession(ctx context.Context, j Journal, log *slog.Logger, now func() time.Time, d civil.Date) (*session.Session, error) {
	sess, err := session.New(ctx, j, session.WithClock(now), session.WithLogger(log))
	if err != nil {
		return nil, err
	}
	if err := sess.SetSelectedDate(ctx, d); err != nil {
		sess.Close()
		return nil, err
	}
	return sess, nil
}
