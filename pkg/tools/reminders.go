package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/aria-voice/aria/pkg/core/types"
	"github.com/aria-voice/aria/pkg/reminder"
)

// Reminder timestamps cross the tool boundary in this layout.
const reminderTimeLayout = "2006-01-02 15:04:05"

// ReminderTools exposes the reminder store as set_reminder and
// get_reminders tools.
type ReminderTools struct {
	store *reminder.Store
	now   func() time.Time
}

// NewReminderTools wraps a reminder store.
func NewReminderTools(store *reminder.Store) *ReminderTools {
	return &ReminderTools{store: store, now: time.Now}
}

// SetDescriptor declares the set_reminder tool.
func (t *ReminderTools) SetDescriptor() types.ToolDescriptor {
	return types.ToolDescriptor{
		Name:        "set_reminder",
		Description: "Set a reminder with the given name and timestamp.",
		Parameters: types.ObjectSchema(map[string]*types.Schema{
			"name":      types.StringSchema("What to remind the user about."),
			"timestamp": types.StringSchema("When the reminder should fire, in the format YYYY-MM-DD HH:MM:SS."),
		}, "name", "timestamp"),
	}
}

// HandleSet implements set_reminder.
func (t *ReminderTools) HandleSet(ctx context.Context, args map[string]any) any {
	name := stringArg(args, "name", "")
	if name == "" {
		return Errorf("name is required")
	}

	raw := stringArg(args, "timestamp", "")
	at, err := time.ParseInLocation(reminderTimeLayout, raw, time.Local)
	if err != nil {
		return Errorf("invalid timestamp format %q, use YYYY-MM-DD HH:MM:SS", raw)
	}

	if _, err := t.store.Add(name, at); err != nil {
		return Errorf("failed to save reminder: %v", err)
	}
	return fmt.Sprintf("Set reminder '%s' for %s", name, raw)
}

// GetDescriptor declares the get_reminders tool.
func (t *ReminderTools) GetDescriptor() types.ToolDescriptor {
	return types.ToolDescriptor{
		Name:        "get_reminders",
		Description: "Get a list of reminders based on specified criteria.",
		Parameters: types.ObjectSchema(map[string]*types.Schema{
			"mode":       types.EnumSchema("upcoming lists future reminders soonest first; recent lists all by creation time.", "upcoming", "recent"),
			"start_date": types.StringSchema("Optional start of a date range, YYYY-MM-DD."),
			"end_date":   types.StringSchema("Optional end of a date range, YYYY-MM-DD."),
			"limit":      types.IntSchema("Maximum number of reminders to return. Default is 10."),
		}),
	}
}

// HandleGet implements get_reminders.
func (t *ReminderTools) HandleGet(ctx context.Context, args map[string]any) any {
	mode := stringArg(args, "mode", "upcoming")
	limit := intArg(args, "limit", 10)

	var reminders []reminder.Reminder
	switch mode {
	case "upcoming":
		reminders = t.store.Upcoming(t.now())
	case "recent":
		reminders = t.store.Recent()
	default:
		return Errorf("invalid mode %q, use 'upcoming' or 'recent'", mode)
	}

	var startUnix, endUnix int64
	if raw := stringArg(args, "start_date", ""); raw != "" {
		start, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			return Errorf("invalid start_date %q, use YYYY-MM-DD", raw)
		}
		startUnix = start.Unix()
	}
	if raw := stringArg(args, "end_date", ""); raw != "" {
		end, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			return Errorf("invalid end_date %q, use YYYY-MM-DD", raw)
		}
		endUnix = end.Unix()
	}

	filtered := reminders[:0:0]
	for _, r := range reminders {
		if startUnix != 0 && r.RemindAt < startUnix {
			continue
		}
		if endUnix != 0 && r.RemindAt > endUnix {
			continue
		}
		filtered = append(filtered, r)
	}
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}

	out := make([]map[string]any, 0, len(filtered))
	for _, r := range filtered {
		out = append(out, map[string]any{
			"name":        r.Name,
			"created_at":  time.Unix(r.CreatedAt, 0).Format(reminderTimeLayout),
			"reminder_at": time.Unix(r.RemindAt, 0).Format(reminderTimeLayout),
		})
	}
	return out
}
