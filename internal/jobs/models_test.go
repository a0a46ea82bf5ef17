package jobs

import "testing"

func TestParseStatus(t *testing.T) {
	cases := []struct {
		in   string
		want Status
		ok   bool
	}{
		{"queued", StatusQueued, true},
		{" Running ", StatusRunning, true},
		{"COMPLETED", StatusCompleted, true},
		{"failed", StatusFailed, true},
		{"pending", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseStatus(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseStatus(%q) = %q,%v want %q,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	if !StatusCompleted.IsTerminal() {
		t.Fatal("completed must be terminal")
	}
	for _, s := range []Status{StatusQueued, StatusRunning, StatusFailed} {
		if s.IsTerminal() {
			t.Fatalf("%s must not be terminal", s)
		}
	}
}
