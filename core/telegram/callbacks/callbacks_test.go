package callbacks

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestParseCallbackData(t *testing.T) {
	cases := []struct {
		name         string
		cb           *tele.Callback
		key, payload string
	}{
		{"nil", nil, "", ""},
		{"encoded", &tele.Callback{Data: "\fchat|12345"}, "chat", "12345"},
		{"no payload", &tele.Callback{Data: "\fsearch"}, "search", ""},
		{"payload with separator", &tele.Callback{Data: "\fconfirm|1|2"}, "confirm", "1|2"},
		{"matched endpoint", &tele.Callback{Unique: "chat", Data: "42"}, "chat", "42"},
		{"raw data", &tele.Callback{Data: "legacy"}, "legacy", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, payload := ParseCallbackData(tc.cb)
			if key != tc.key || payload != tc.payload {
				t.Fatalf("ParseCallbackData = (%q, %q), want (%q, %q)", key, payload, tc.key, tc.payload)
			}
		})
	}
}
