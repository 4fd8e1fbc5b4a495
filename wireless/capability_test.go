package wireless

import "testing"

const combinedPhyInfo = `Wiphy phy0
	max # scan SSIDs: 4
	valid interface combinations:
		 * #{ managed } <= 1, #{ AP, P2P-client, P2P-GO } <= 1, #{ P2P-device } <= 1,
		   total <= 3, #channels <= 2
	HT Capability overrides:
`

const apOnlyPhyInfo = `Wiphy phy1
	valid interface combinations:
		 * #{ AP } <= 4,
		   total <= 4, #channels <= 1
	Supported commands:
`

const noAPPhyInfo = `Wiphy phy2
	valid interface combinations:
		 * #{ managed } <= 2, #{ P2P-client } <= 1,
		   total <= 2, #channels <= 1
	Supported commands:
`

const multiCombinationPhyInfo = `Wiphy phy3
	valid interface combinations:
		 * #{ managed } <= 1, #{ IBSS } <= 1,
		   total <= 2, #channels <= 1
		 * #{ managed } <= 1, #{ AP } <= 1,
		   total <= 2, #channels <= 1
	Supported commands:
`

func TestSupportsAPSTACombination(t *testing.T) {
	cases := []struct {
		name string
		info string
		want bool
	}{
		{"managed and AP in one entry", combinedPhyInfo, true},
		{"AP only", apOnlyPhyInfo, false},
		{"no AP mode at all", noAPPhyInfo, false},
		{"second combination qualifies", multiCombinationPhyInfo, true},
		{"no combinations block", "Wiphy phy4\n\tSupported commands:\n", false},
	}
	for _, c := range cases {
		if got := supportsAPSTACombination(c.info); got != c.want {
			t.Fatalf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestCombinationIgnoresModesAcrossEntries(t *testing.T) {
	// managed in one combination and AP only in a different combination
	// must not count as concurrent support.
	info := `	valid interface combinations:
		 * #{ managed } <= 1,
		   total <= 1, #channels <= 1
		 * #{ AP } <= 1,
		   total <= 1, #channels <= 1
`
	if supportsAPSTACombination(info) {
		t.Fatal("modes from separate combination entries were merged")
	}
}
