package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageCursorRoundTrip(t *testing.T) {
	at := time.Date(2025, 3, 14, 9, 26, 53, 589793238, time.UTC)

	cursor := formatMessageCursor(at, "msg-42")
	gotAt, gotID, err := parseMessageCursor(cursor)
	require.NoError(t, err)
	assert.True(t, gotAt.Equal(at))
	assert.Equal(t, "msg-42", gotID)
}

func TestMessageCursorKeepsIDsWithPipes(t *testing.T) {
	at := time.Now().UTC()

	cursor := formatMessageCursor(at, "a|b")
	_, gotID, err := parseMessageCursor(cursor)
	require.NoError(t, err)
	assert.Equal(t, "a|b", gotID)
}

func TestParseMessageCursorRejectsGarbage(t *testing.T) {
	for _, cursor := range []string{"", "justtext", "2025-01-01T00:00:00Z|", "notatime|id"} {
		_, _, err := parseMessageCursor(cursor)
		assert.Error(t, err, "cursor %q", cursor)
	}
}
