// Package resume implements AI-assisted resume scoring against a job
// description, with a deterministic local heuristic as fallback.
package resume

import (
	"regexp"
	"sort"
	"strings"
)

var keywordStopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true,
	"this": true, "from": true, "you": true, "your": true, "will": true,
	"are": true, "our": true, "have": true, "has": true, "not": true,
	"but": true, "all": true, "can": true, "into": true, "about": true,
	"role": true, "job": true, "work": true, "team": true, "years": true,
	"year": true, "using": true, "ability": true, "required": true,
	"requirements": true, "responsibilities": true, "experience": true,
	"skills": true, "skill": true, "candidate": true, "position": true,
	"who": true, "what": true, "when": true, "where": true, "why": true,
	"how": true, "they": true, "them": true, "their": true, "his": true,
	"her": true, "she": true, "him": true, "its": true, "was": true,
	"were": true, "been": true, "being": true, "also": true, "usa": true,
}

var nonKeywordChars = regexp.MustCompile(`[^a-z0-9+\-#.\s]`)

// extractKeywords returns up to limit keywords ranked by frequency,
// lowercased, 3+ characters, stop words removed.
func extractKeywords(text string, limit int) []string {
	cleaned := nonKeywordChars.ReplaceAllString(strings.ToLower(text), " ")

	counts := make(map[string]int)
	for _, word := range strings.Fields(cleaned) {
		if len(word) < 3 || keywordStopWords[word] {
			continue
		}
		counts[word]++
	}

	type wordCount struct {
		word  string
		count int
	}
	ranked := make([]wordCount, 0, len(counts))
	for w, c := range counts {
		ranked = append(ranked, wordCount{w, c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].word < ranked[j].word
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]string, len(ranked))
	for i, wc := range ranked {
		out[i] = wc.word
	}
	return out
}
