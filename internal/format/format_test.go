package format

import (
	"strings"
	"testing"
	"time"
)

func TestTableASCII(t *testing.T) {
	tbl := NewTable(ASCII)
	tbl.Header("Query", "Hits")
	tbl.Row("Suspicious logons", 3)
	tbl.Row("Rare processes", 0)

	out := tbl.String()
	for _, want := range []string{"Query", "Hits", "Suspicious logons", "Rare processes"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestTableMarkdown(t *testing.T) {
	tbl := NewTable(Markdown)
	tbl.Header("A", "B")
	tbl.Row("x", "y")

	out := tbl.String()
	if !strings.Contains(out, "| A | B |") {
		t.Errorf("markdown header missing:\n%s", out)
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly-ten", 11, "exactly-ten"},
		{"a very long query name", 10, "a very ..."},
		{"abcdef", 3, "abc"},
	}
	for _, c := range cases {
		if got := Truncate(c.in, c.maxLen); got != c.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", c.in, c.maxLen, got, c.want)
		}
	}
}

func TestHitBadge(t *testing.T) {
	if !strings.Contains(HitBadge(5), "5 hits") {
		t.Errorf("non-zero badge: %q", HitBadge(5))
	}
	if !strings.Contains(HitBadge(0), "0 hits") {
		t.Errorf("zero badge: %q", HitBadge(0))
	}
}

func TestFmtDuration(t *testing.T) {
	if got := FmtDuration(90 * time.Second); got != "1m 30s" {
		t.Errorf("got %q", got)
	}
	if got := FmtDuration(2500 * time.Millisecond); got != "2.5s" {
		t.Errorf("got %q", got)
	}
}
