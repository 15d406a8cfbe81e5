package repository

import (
	"fmt"
	"strings"
	"time"
)

const defaultMessagePageSize = 50

// Message pages are keyed by (createdAt, id) so that messages sharing a
// timestamp still paginate without duplication.
func formatMessageCursor(at time.Time, id string) string {
	return at.UTC().Format(time.RFC3339Nano) + "|" + id
}

func parseMessageCursor(cursor string) (time.Time, string, error) {
	parts := strings.SplitN(cursor, "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return time.Time{}, "", fmt.Errorf("malformed cursor %q", cursor)
	}
	at, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, "", err
	}
	return at, parts[1], nil
}
