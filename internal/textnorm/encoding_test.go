package textnorm

import "testing"

func TestRepairEncodingFixesMojibake(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "Spider-Man â€” Across the Spider-Verse", want: "Spider-Man — Across the Spider-Verse"},
		{in: "2001â€“2010 Collection", want: "2001–2010 Collection"},
		{in: "Oceanâ€™s Eleven", want: "Ocean's Eleven"},
		{in: "PokÃ©mon Detective Pikachu", want: "Pokémon Detective Pikachu"},
		{in: "AÃ±o Nuevo", want: "Año Nuevo"},
		{in: "Wait for itâ€¦", want: "Wait for it..."},
		{in: "Â«QuotedÂ» title", want: "«Quoted» title"},
		{in: "Tom &amp; Jerry", want: "Tom & Jerry"},
		{in: "  spaced \t out\n title  ", want: "spaced out title"},
		{in: "BrontÃ«", want: "BrontÃ«"},
		{in: "", want: ""},
	}

	for _, tc := range cases {
		if got := RepairEncoding(tc.in); got != tc.want {
			t.Fatalf("RepairEncoding(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRepairEncodingIsIdempotent(t *testing.T) {
	inputs := []string{
		"Spider-Man â€” Across the Spider-Verse",
		"â€œQuoteâ€\u009d and â€˜singleâ€™",
		"CafÃ© Ã  la carte",
		"already clean title (2023) [1080p]",
		"Tom &amp; Jerry",
		"Â Â leading corruption",
		"Pokémon — 2001–2010",
		"Tom &amp;amp; Jerry",
		"AT&amp;lt;T",
		"&amp;Atilde;&amp;copy;",
	}

	for _, in := range inputs {
		once := RepairEncoding(in)
		twice := RepairEncoding(once)
		if once != twice {
			t.Fatalf("RepairEncoding not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestRepairEncodingLeavesCleanTextAlone(t *testing.T) {
	in := "Dune Part Two 2024 2160p WEB-DL"
	if got := RepairEncoding(in); got != in {
		t.Fatalf("expected clean text unchanged, got %q", got)
	}
}

func TestRepairEncodingDecodesNestedEntities(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Tom &amp;amp; Jerry", want: "Tom & Jerry"},
		{in: "AT&amp;lt;T", want: "AT<T"},
		{in: "&amp;Atilde;&amp;copy;", want: "é"},
	}

	for _, tc := range tests {
		if got := RepairEncoding(tc.in); got != tc.want {
			t.Fatalf("RepairEncoding(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
