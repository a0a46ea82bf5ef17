package fingerprint

import "testing"

func TestFromURLDeterministic(t *testing.T) {
	a := FromURL("https://www.instagram.com/reel/XXXX/")
	b := FromURL("  https://www.instagram.com/reel/XXXX/  ")
	if a != b {
		t.Fatalf("whitespace must not change the fingerprint: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
	if c := FromURL("https://www.instagram.com/reel/YYYY/"); c == a {
		t.Fatal("distinct URLs must produce distinct fingerprints")
	}
}
