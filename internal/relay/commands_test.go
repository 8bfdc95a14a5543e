package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cmds := NewCommands("@bot")
	cases := []struct {
		name string
		text string
		want Input
	}{
		{"command", "/start", Command{Name: "start"}},
		{"payload", "/broadcast  hello   army ", Command{Name: "broadcast", Payload: "hello   army"}},
		{"mention", "/users@BTS0BOT_BOT", Command{Name: "users"}},
		{"upper case", "/Remind", Command{Name: "remind"}},
		{"session token", "/cancel", FreeText{Text: "/cancel"}},
		{"menu only", "/exit", FreeText{Text: "/exit"}},
		{"label", "Help", ButtonPress{Label: LabelHelp}},
		{"artist label", LabelArtist, ButtonPress{Label: LabelArtist}},
		{"free text", "hello there", FreeText{Text: "hello there"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, cmds.Classify(tc.text))
		})
	}
}

func TestMenuSplitsByCapability(t *testing.T) {
	cmds := NewCommands("@bot")

	var user []string
	for _, m := range cmds.Menu(false) {
		user = append(user, m.Command)
	}
	assert.Equal(t, []string{"start", "subscribe", "help"}, user)

	var admin []string
	for _, m := range cmds.Menu(true) {
		admin = append(admin, m.Command)
	}
	assert.Equal(t, []string{"start", "users", "chat", "broadcast", "remind", "exit", "pending_payments", "confirm_payment"}, admin)
	assert.Equal(t, "Register with @bot", cmds.Menu(true)[0].Description)
}

func TestNamesOnlyDispatchable(t *testing.T) {
	names := NewCommands("@bot").Names()
	assert.NotContains(t, names, "exit")
	assert.Contains(t, names, "confirm_payment")
	assert.Len(t, names, 9)
}

func TestLookupLabel(t *testing.T) {
	cmds := NewCommands("@bot")
	def, ok := cmds.LookupLabel(LabelExit)
	assert.True(t, ok)
	assert.Equal(t, ActionGoodbye, def.Action)

	_, ok = cmds.LookupLabel("exit")
	assert.False(t, ok)
}
