package db

const (
	// SchemaV1 defines version 1 of the moodsdb component.
	// Dates are ISO 8601 (YYYY-MM-DD) text so they sort and compare lexically;
	// timestamps are epoch milliseconds.
	SchemaV1 = `
CREATE TABLE IF NOT EXISTS mood_entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    date TEXT NOT NULL,
    mood TEXT NOT NULL CHECK (mood IN ('very-happy', 'happy', 'neutral', 'sad', 'very-sad')),
    title TEXT NOT NULL DEFAULT '',
    body TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_mood_entries_date ON mood_entries(date);
CREATE INDEX IF NOT EXISTS idx_mood_entries_mood ON mood_entries(mood, date);
`
)
