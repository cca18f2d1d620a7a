package normalize

import (
	"testing"
	"time"
)

func TestParseDateLayouts(t *testing.T) {
	want := time.Date(2025, time.April, 8, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"4/8/2025", "04/08/2025", "2025-04-08", "Apr 8, 2025", "Tue 4/8/2025", "Tue, Apr 8, 2025"} {
		got, err := ParseDate(in, time.UTC)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if !got.Equal(want) {
			t.Fatalf("%q: got %s", in, got)
		}
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "Average", "Total", "13/45/2025"} {
		if _, err := ParseDate(in, time.UTC); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestNumberLenience(t *testing.T) {
	cases := map[string]float64{
		"31":        31,
		" 7 ":       7,
		"4.5":       4.5,
		"":          0,
		"-":         0,
		"DNP":       0,
		"-3":        0,
		"1,02":      102,
		"NaN":       0,
		"Inf":       0,
		"-Inf":      0,
		"+Infinity": 0,
	}
	for in, want := range cases {
		if got := Number(in); got != want {
			t.Fatalf("Number(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSplit(t *testing.T) {
	m, a := Split("12/20")
	if m != 12 || a != 20 {
		t.Fatalf("got %d/%d", m, a)
	}
	m, a = Split("3-9")
	if m != 3 || a != 9 {
		t.Fatalf("got %d/%d", m, a)
	}
	m, a = Split("Inf/5")
	if m != 0 || a != 5 {
		t.Fatalf("Inf/5: got %d/%d", m, a)
	}
	m, a = Split("1e20/99999999999999999999")
	if m != 0 || a != 0 {
		t.Fatalf("oversized counts: got %d/%d", m, a)
	}
	m, a = Split("x")
	if m != 0 || a != 0 {
		t.Fatalf("expected 0/0, got %d/%d", m, a)
	}
}

func TestHeader(t *testing.T) {
	if got := Header(" 3 pm "); got != "3PM" {
		t.Fatalf("got %q", got)
	}
}

func TestCountNeverNegative(t *testing.T) {
	for _, in := range []string{"NaN", "Inf", "1e20", "99999999999999999999", "-4", "2147483648"} {
		if got := Count(in); got != 0 {
			t.Fatalf("Count(%q) = %d, want 0", in, got)
		}
	}
	if got := Count("2147483647"); got != 2147483647 {
		t.Fatalf("max count: %d", got)
	}
	if got := Count("12.7"); got != 12 {
		t.Fatalf("Count truncates: %d", got)
	}
}
