package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/golang-sql/civil"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/unowned-ai/moodiary/pkg/moods"
	"github.com/unowned-ai/moodiary/pkg/service"
	"github.com/unowned-ai/moodiary/pkg/session"
)

// Journal is what the tools need from the entry service.
type Journal interface {
	session.Entries
	List(ctx context.Context) ([]moods.Entry, error)
	ListBetween(ctx context.Context, start, end civil.Date) ([]moods.Entry, error)
	Find(ctx context.Context, f service.Filter) ([]moods.Entry, error)
}

var _ Journal = (*service.Service)(nil)

// stringArg returns a string argument and whether it was given.
func stringArg(request mcp.CallToolRequest, name string) (string, bool) {
	v, ok := request.Params.Arguments[name].(string)
	return v, ok
}

// dateArg parses an optional YYYY-MM-DD (or today/yesterday) argument.
// A missing argument means today.
func dateArg(request mcp.CallToolRequest, name string, now func() time.Time) (civil.Date, error) {
	raw, _ := stringArg(request, name)
	return moods.ParseDate(raw, now())
}

// intArg reads a JSON number argument. Fractions are rejected.
func intArg(request mcp.CallToolRequest, name string) (int, bool, error) {
	raw, present := request.Params.Arguments[name]
	if !present || raw == nil {
		return 0, false, nil
	}
	f, ok := raw.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false, fmt.Errorf("'%s' must be an integer", name)
	}
	return int(f), true, nil
}

// jsonResult serializes v as the tool's text result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to serialize result to JSON: %v", err)), nil
	}
	return mcp.NewToolResultText(string(raw)), nil
}

// errorResult turns a domain error into a tool error the model can act on.
func errorResult(action string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, moods.ErrConstraintViolation):
		return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: an entry already exists for that date.", action))
	case errors.Is(err, moods.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: the entry no longer exists.", action))
	case errors.Is(err, moods.ErrStorageUnavailable):
		return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: storage is unavailable (%v).", action, err))
	case errors.Is(err, moods.ErrInvalidMood):
		return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %v. Use one of very-happy, happy, neutral, sad, very-sad.", action, err))
	case errors.Is(err, moods.ErrInvalidDate):
		return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %v. Dates are YYYY-MM-DD.", action, err))
	default:
		return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %v", action, err))
	}
}
