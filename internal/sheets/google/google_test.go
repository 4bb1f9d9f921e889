package google

import "testing"

func TestColLetter(t *testing.T) {
	cases := map[int]string{
		0:  "A", // degenerate width still yields a valid range
		1:  "A",
		7:  "G",
		10: "J",
		26: "Z",
		27: "AA",
		52: "AZ",
	}
	for in, want := range cases {
		if got := colLetter(in); got != want {
			t.Fatalf("colLetter(%d) = %q, want %q", in, got, want)
		}
	}
}
