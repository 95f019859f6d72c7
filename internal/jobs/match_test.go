package jobs

import "testing"

func TestExtractKeywordSet(t *testing.T) {
	kw := ExtractKeywordSet("Senior C++ engineer using Node.js, React and the C# runtime.")

	for _, want := range []string{"c++", "node.js", "react", "senior", "engineer", "runtime"} {
		if !kw[want] {
			t.Errorf("missing keyword %q in %v", want, kw)
		}
	}
	// Stop words and short tokens are dropped.
	for _, skip := range []string{"and", "the", "using", "c#"} {
		if kw[skip] {
			t.Errorf("token %q kept, want dropped", skip)
		}
	}
}

func TestExtractKeywordSetTrailingDot(t *testing.T) {
	kw := ExtractKeywordSet("Experienced with Python.")
	if !kw["python"] {
		t.Fatalf("sentence-final keyword lost: %v", kw)
	}
	if kw["python."] {
		t.Fatal("trailing dot kept on keyword")
	}
}

func TestScoreJobMatch(t *testing.T) {
	resumeKW := ExtractKeywordSet("python sql tableau dashboards analytics")

	score, matching, missing := ScoreJobMatch(resumeKW, "Analyst role: python sql excel reporting")
	if score <= 0 || score > 100 {
		t.Fatalf("score = %v", score)
	}
	if len(matching) != 2 || matching[0] != "python" || matching[1] != "sql" {
		t.Fatalf("matching = %v", matching)
	}
	for _, m := range missing {
		if resumeKW[m] {
			t.Fatalf("resume keyword %q reported missing", m)
		}
	}
}

func TestScoreJobMatchDeterministic(t *testing.T) {
	resumeKW := ExtractKeywordSet("golang kubernetes docker terraform")
	jobText := "Platform engineer: golang, kubernetes, aws, ci/cd pipelines"

	s1, m1, _ := ScoreJobMatch(resumeKW, jobText)
	s2, m2, _ := ScoreJobMatch(resumeKW, jobText)
	if s1 != s2 || len(m1) != len(m2) {
		t.Fatalf("non-deterministic scoring: %v/%v vs %v/%v", s1, m1, s2, m2)
	}
}

func TestScoreJobMatchNoOverlap(t *testing.T) {
	resumeKW := ExtractKeywordSet("painting sculpture ceramics")
	score, matching, _ := ScoreJobMatch(resumeKW, "Backend engineer with golang")
	if score != 0 || len(matching) != 0 {
		t.Fatalf("disjoint sets scored %v with matches %v", score, matching)
	}
}

func TestScoreJobMatchMissingCap(t *testing.T) {
	resumeKW := ExtractKeywordSet("solo")
	long := ""
	for _, w := range []string{
		"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf",
		"hotel", "india", "juliet", "kilo", "lima", "mike", "november",
		"oscar", "papa", "quebec", "romeo", "sierra", "tango", "uniform",
		"victor", "whiskey", "xray", "yankee", "zulu",
	} {
		long += w + " "
	}
	_, _, missing := ScoreJobMatch(resumeKW, long)
	if len(missing) > 20 {
		t.Fatalf("missing list = %d entries, want cap at 20", len(missing))
	}
}
