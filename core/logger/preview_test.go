package logger

import (
	"testing"
	"time"
)

func TestPreview(t *testing.T) {
	files := []string{"000001_init.up.sql", "000002_idx.up.sql", "000003_x.up.sql"}
	cases := []struct {
		limit int
		want  string
	}{
		{5, "000001_init.up.sql,000002_idx.up.sql,000003_x.up.sql"},
		{1, "000001_init.up.sql +2 more"},
		{0, "+3 more"},
	}
	for _, tc := range cases {
		if got := Preview(files, tc.limit); got != tc.want {
			t.Fatalf("Preview(limit=%d) = %q, want %q", tc.limit, got, tc.want)
		}
	}
	if got := Preview(nil, 2); got != "" {
		t.Fatalf("Preview(nil) = %q", got)
	}
}

func TestRoundMS(t *testing.T) {
	if got := RoundMS(1499 * time.Microsecond); got != time.Millisecond {
		t.Fatalf("RoundMS = %v", got)
	}
	if got := RoundMS(-time.Second); got != 0 {
		t.Fatalf("RoundMS(negative) = %v", got)
	}
}
