package keyboard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplyButtons(t *testing.T) {
	m := ReplyButtons([]string{"Subscribe", "Help"}, nil, []string{"Exit"})
	require.Len(t, m.ReplyKeyboard, 2)
	assert.True(t, m.ResizeKeyboard)
	assert.Equal(t, "Subscribe", m.ReplyKeyboard[0][0].Text)
	assert.Equal(t, "Help", m.ReplyKeyboard[0][1].Text)
	assert.Equal(t, "Exit", m.ReplyKeyboard[1][0].Text)
}

func TestInlineButtonsRowsEncodesCallbackData(t *testing.T) {
	m := InlineButtonsRows(
		[]InlineBtn{{Text: "@alice", Unique: "chat", Data: "11"}, {Text: "@bob", Unique: "chat", Data: "22"}},
		[]InlineBtn{{Text: "Search", Unique: "search"}},
	)
	require.Len(t, m.InlineKeyboard, 2)
	assert.Equal(t, "@alice", m.InlineKeyboard[0][0].Text)
	assert.Equal(t, "chat", m.InlineKeyboard[0][0].Unique)
	assert.True(t, strings.HasSuffix(m.InlineKeyboard[0][0].Data, "11"))
	assert.Equal(t, "search", m.InlineKeyboard[1][0].Unique)
}

func TestRemoveKeyboard(t *testing.T) {
	assert.True(t, RemoveKeyboard().RemoveKeyboard)
}
