package policy

import "testing"

func TestParseRate(t *testing.T) {
	cases := []struct {
		in   string
		want uint64
	}{
		{"2mbit", 2_000_000},
		{"512kbit", 512_000},
		{"1gbit", 1_000_000_000},
		{"100bit", 100},
		{"1500", 1500},
		{"1.5mbit", 1_500_000},
		{" 8Mbit ", 8_000_000},
	}
	for _, c := range cases {
		got, err := ParseRate(c.in)
		if err != nil {
			t.Fatalf("ParseRate(%q) failed: %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ParseRate(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseRateRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "mbit", "-2mbit", "0kbit", "fastplease"} {
		if _, err := ParseRate(in); err == nil {
			t.Fatalf("ParseRate(%q) should have failed", in)
		}
	}
}

func TestFormatRateRoundTrip(t *testing.T) {
	for _, in := range []string{"2mbit", "512kbit", "1gbit", "1500bit"} {
		bps, err := ParseRate(in)
		if err != nil {
			t.Fatal(err)
		}
		if got := FormatRate(bps); got != in {
			t.Fatalf("FormatRate(ParseRate(%q)) = %q", in, got)
		}
	}
}
