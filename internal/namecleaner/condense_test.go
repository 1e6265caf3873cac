package namecleaner

import (
	"strings"
	"testing"
)

func TestCondenseWithinBudgetUnchanged(t *testing.T) {
	name := "Short Title (2020) [1080p]"
	if got := Condense(name, 50); got != name {
		t.Fatalf("expected unchanged name, got %q", got)
	}
}

func TestCondenseStripsTags(t *testing.T) {
	name := "The Grand Budapest Hotel [1080p BluRay x264] (2014)"
	got := Condense(name, 30)
	if got != "The Grand Budapest Hotel" {
		t.Fatalf("unexpected condensed name %q", got)
	}
}

func TestCondenseStripsReleaseGroupAndExtension(t *testing.T) {
	got := Condense("Some Very Long Documentary Episode Title Part One.mkv", 40)
	if strings.HasSuffix(got, ".mkv") {
		t.Fatalf("expected extension removed, got %q", got)
	}

	got = Condense("Another Quite Long Release Name For Testing - RARBG", 45)
	if got != "Another Quite Long Release Name For Testing" {
		t.Fatalf("expected release group removed, got %q", got)
	}
}

func TestCondenseTruncatesWithEllipsis(t *testing.T) {
	name := strings.Repeat("word ", 30)
	got := Condense(name, 20)
	if len([]rune(got)) > 20 {
		t.Fatalf("expected at most 20 runes, got %d (%q)", len([]rune(got)), got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected ellipsis suffix, got %q", got)
	}
}

func TestCondenseDescription(t *testing.T) {
	text := "First sentence here. Second sentence is much longer and goes on, and on, and on without stopping."
	got := CondenseDescription(text, 40)
	if got != "First sentence here...." {
		t.Fatalf("unexpected description %q", got)
	}

	short := "fits"
	if got := CondenseDescription(short, 40); got != short {
		t.Fatalf("expected short description unchanged, got %q", got)
	}

	noBreaks := strings.Repeat("x", 60)
	if got := CondenseDescription(noBreaks, 20); got != strings.Repeat("x", 17)+"..." {
		t.Fatalf("unexpected hard cut %q", got)
	}
}
