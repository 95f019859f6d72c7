package jobs

import (
	"sort"
	"strings"
	"unicode"
)

// keywordStopWords filters common words that add noise when comparing a
// resume against a job description.
var keywordStopWords = map[string]bool{
	"and": true, "the": true, "for": true, "with": true, "you": true,
	"are": true, "have": true, "will": true, "this": true, "that": true,
	"from": true, "our": true, "your": true, "their": true, "they": true,
	"work": true, "team": true, "role": true, "job": true, "join": true,
	"about": true, "which": true, "what": true, "who": true, "how": true,
	"can": true, "not": true, "but": true, "all": true, "also": true,
	"more": true, "than": true, "into": true, "has": true, "its": true,
	"was": true, "were": true, "been": true, "each": true, "new": true,
	"use": true, "using": true, "used": true, "well": true, "per": true,
	"visa": true, "candidates": true, "students": true, "apply": true,
	"required": true, "requirements": true, "experience": true,
}

// ExtractKeywordSet tokenizes text into a lowercase keyword set
// (3+ characters, stop words removed). Extract once per resume and
// reuse when scoring a batch of jobs.
func ExtractKeywordSet(text string) map[string]bool {
	kw := make(map[string]bool)
	var word strings.Builder
	flush := func() {
		w := strings.TrimRight(word.String(), ".")
		word.Reset()
		if len([]rune(w)) >= 3 && !keywordStopWords[w] {
			kw[w] = true
		}
	}
	for _, r := range strings.ToLower(text) {
		// + # . stay word chars so "c++" and "node.js" hold together
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#' || r == '.' {
			word.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return kw
}

// ScoreJobMatch computes a Jaccard keyword-overlap score (0-100)
// between pre-extracted resume keywords and job text, along with the
// overlapping keywords and the top missing ones.
func ScoreJobMatch(resumeKW map[string]bool, jobText string) (score float64, matching, missing []string) {
	jobKW := ExtractKeywordSet(jobText)

	inter := 0
	for kw := range resumeKW {
		if jobKW[kw] {
			inter++
			matching = append(matching, kw)
		}
	}
	for kw := range jobKW {
		if !resumeKW[kw] {
			missing = append(missing, kw)
		}
	}

	union := len(resumeKW) + len(jobKW) - inter
	if union > 0 {
		raw := float64(inter) / float64(union) * 100
		score = float64(int(raw*10+0.5)) / 10
	}

	sort.Strings(matching)
	sort.Strings(missing)
	if len(missing) > 20 {
		missing = missing[:20]
	}
	return score, matching, missing
}
