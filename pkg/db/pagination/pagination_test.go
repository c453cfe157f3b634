package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor_RoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{LastID: "1234567890"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "1234567890", cursor.LastID)
}

func TestDecodeCursor_RejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("not base64!!")
	assert.Error(t, err)
}

func TestPage_TrimsSentinelRow(t *testing.T) {
	items := []string{"1", "2", "3", "4", "5"}

	page, info := Page(items, 4, func(s string) string { return s })
	require.Len(t, page, 4)
	assert.True(t, info.HasMore)

	cursor, err := DecodeCursor(info.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, "4", cursor.LastID)
}

func TestPage_LastPage(t *testing.T) {
	items := []string{"5", "6"}

	page, info := Page(items, 4, func(s string) string { return s })
	assert.Len(t, page, 2)
	assert.False(t, info.HasMore)
	assert.NotEmpty(t, info.NextPageToken)
}

func TestPage_EmptyInput(t *testing.T) {
	page, info := Page(nil, 4, func(s string) string { return s })
	assert.Empty(t, page)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}
