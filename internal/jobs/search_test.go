package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/optcareerconnect/occ/internal/config"
)

func boolPtr(b bool) *bool { return &b }

func TestNormalizeParams(t *testing.T) {
	p := normalizeParams(SearchParams{Page: 0, Limit: 0})
	if p.Page != 1 || p.Limit != 20 {
		t.Fatalf("defaults: page=%d limit=%d", p.Page, p.Limit)
	}

	p = normalizeParams(SearchParams{Page: -3, Limit: 500})
	if p.Page != 1 || p.Limit != 50 {
		t.Fatalf("clamping: page=%d limit=%d", p.Page, p.Limit)
	}
}

func TestBuildSearchQuery(t *testing.T) {
	where, args := buildSearchQuery(SearchParams{})
	if where != "is_active = true" {
		t.Fatalf("empty filter where = %q", where)
	}
	if len(args) != 0 {
		t.Fatalf("empty filter args = %v", args)
	}

	where, args = buildSearchQuery(SearchParams{
		Query:    "engineer",
		Location: "remote",
		VisaType: "OPT",
		Remote:   boolPtr(true),
	})
	if len(args) != 4 {
		t.Fatalf("args = %v", args)
	}
	if args[0] != "%engineer%" || args[1] != "%remote%" || args[2] != "OPT" || args[3] != true {
		t.Fatalf("arg order wrong: %v", args)
	}
	for _, frag := range []string{
		"is_active = true",
		"title ILIKE $1",
		"location ILIKE $2",
		"$3 = ANY(visa_types)",
		"remote = $4",
	} {
		if !strings.Contains(where, frag) {
			t.Errorf("where missing %q: %s", frag, where)
		}
	}
}

func TestSearchFallbackModeForced(t *testing.T) {
	s := NewSearcher(nil)
	cfg := config.JobsConfig{SourceMode: "fallback", FallbackEnabled: false}

	result, err := s.Search(context.Background(), cfg, SearchParams{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !result.Fallback {
		t.Fatal("forced fallback mode did not serve fallback data")
	}
	if result.Warning == "" {
		t.Fatal("fallback result carries no warning")
	}
	if len(result.Jobs) != 3 {
		t.Fatalf("jobs = %d, want full fallback dataset", len(result.Jobs))
	}
}

func TestSearchDatabaseModeWithoutPool(t *testing.T) {
	s := NewSearcher(nil)

	_, err := s.Search(context.Background(), config.JobsConfig{SourceMode: "database", FallbackEnabled: true}, SearchParams{})
	if !errors.Is(err, ErrDatabaseRequired) {
		t.Fatalf("err = %v, want ErrDatabaseRequired", err)
	}

	// auto mode with fallback disabled also needs the database.
	_, err = s.Search(context.Background(), config.JobsConfig{SourceMode: "auto", FallbackEnabled: false}, SearchParams{})
	if !errors.Is(err, ErrDatabaseRequired) {
		t.Fatalf("err = %v, want ErrDatabaseRequired", err)
	}
}

func TestSearchAutoModeDegrades(t *testing.T) {
	s := NewSearcher(nil)

	result, err := s.Search(context.Background(), config.JobsConfig{SourceMode: "auto", FallbackEnabled: true}, SearchParams{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !result.Fallback || result.Warning == "" {
		t.Fatalf("auto mode without a pool did not degrade: %+v", result.Pagination)
	}
}

func TestScorerRandomRange(t *testing.T) {
	sc := newScorer(config.JobsConfig{AdvancedMatchingEnabled: true}, "")
	if sc.resumeAware() {
		t.Fatal("empty resume marked resume-aware")
	}
	for i := 0; i < 50; i++ {
		got := sc.score(Job{Title: "Engineer"})
		if got < 60 || got > 99 {
			t.Fatalf("random score %d out of range", got)
		}
	}
}

func TestScorerResumeAware(t *testing.T) {
	resume := "Senior engineer with React, TypeScript and Node.js production experience."
	sc := newScorer(config.JobsConfig{AdvancedMatchingEnabled: true}, resume)
	if !sc.resumeAware() {
		t.Fatal("resume not picked up")
	}

	matching := sc.score(Job{
		Title:       "React Engineer",
		Description: "Build frontend features with React and TypeScript.",
		Skills:      []string{"React", "TypeScript", "Node.js"},
	})
	if matching < 50 || matching > 99 {
		t.Fatalf("resume score %d out of display range", matching)
	}

	// Advanced matching off means the resume is ignored.
	sc = newScorer(config.JobsConfig{AdvancedMatchingEnabled: false}, resume)
	if sc.resumeAware() {
		t.Fatal("resume used with advanced matching disabled")
	}
}

func TestFormatSalary(t *testing.T) {
	min, max := int64(90000), int64(120000)
	cur := "EUR"

	if got := formatSalary(&min, &max, &cur); got == nil || *got != "EUR 90000 - 120000" {
		t.Fatalf("formatSalary = %v", got)
	}
	if got := formatSalary(&min, &max, nil); got == nil || *got != "USD 90000 - 120000" {
		t.Fatalf("default currency = %v", got)
	}
	if got := formatSalary(nil, &max, &cur); got != nil {
		t.Fatalf("partial salary formatted: %v", got)
	}
}

func TestTruncateDescription(t *testing.T) {
	long := strings.Repeat("a", 300)
	got := truncateDescription(long)
	if len(got) != 203 || !strings.HasSuffix(got, "...") {
		t.Fatalf("truncated = %d chars", len(got))
	}
	if truncateDescription("short") != "short" {
		t.Fatal("short description modified")
	}

	wide := strings.Repeat("\u00fc", 300)
	got = truncateDescription(wide)
	if !utf8.ValidString(got) {
		t.Fatalf("truncation split a rune: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != 203 {
		t.Fatalf("truncated rune count = %d, want 203", n)
	}
}
