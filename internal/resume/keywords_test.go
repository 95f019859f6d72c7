package resume

import "testing"

func TestExtractKeywordsRanking(t *testing.T) {
	text := "python python python sql sql tableau"
	got := extractKeywords(text, 10)
	if len(got) != 3 {
		t.Fatalf("keywords = %v", got)
	}
	if got[0] != "python" || got[1] != "sql" || got[2] != "tableau" {
		t.Fatalf("frequency ranking wrong: %v", got)
	}
}

func TestExtractKeywordsLimit(t *testing.T) {
	got := extractKeywords("alpha bravo charlie delta echo", 2)
	if len(got) != 2 {
		t.Fatalf("limit not applied: %v", got)
	}
}

func TestExtractKeywordsFiltering(t *testing.T) {
	got := extractKeywords("The candidate has experience with Go and SQL!", 10)
	for _, kw := range got {
		switch kw {
		case "the", "candidate", "has", "experience", "with", "and", "go":
			t.Fatalf("filtered token %q survived: %v", kw, got)
		}
	}
	found := false
	for _, kw := range got {
		if kw == "sql" {
			found = true
		}
	}
	if !found {
		t.Fatalf("sql missing from %v", got)
	}
}

func TestExtractKeywordsDeterministicTieBreak(t *testing.T) {
	a := extractKeywords("zulu alpha mike", 10)
	b := extractKeywords("zulu alpha mike", 10)
	if len(a) != 3 || a[0] != "alpha" || a[1] != "mike" || a[2] != "zulu" {
		t.Fatalf("tie break not alphabetical: %v", a)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("non-deterministic output: %v vs %v", a, b)
		}
	}
}
