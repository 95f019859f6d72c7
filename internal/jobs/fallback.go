package jobs

import (
	"strings"
	"time"
)

// fallbackJobs is the curated local dataset served when the database is
// unavailable or fallback mode is forced.
func fallbackJobs() []Job {
	now := time.Now().UTC()
	return []Job{
		{
			ID:      10001,
			Title:   "Software Engineer - OPT Friendly",
			Company: "TechCorp Inc.",
			Description: "Join our product engineering team to build scalable web features. " +
				"Open to OPT/CPT candidates with strong JavaScript and React skills.",
			Location:        "San Francisco, CA",
			Salary:          strPtr("USD 90,000 - 120,000"),
			JobType:         "FULL_TIME",
			ExperienceLevel: "ENTRY_LEVEL",
			VisaSponsorship: true,
			VisaTypes:       []string{"OPT", "CPT", "H1B"},
			Skills:          []string{"JavaScript", "React", "Node.js", "TypeScript"},
			Benefits:        []string{"Health Insurance", "401(k)", "Learning Budget"},
			PostedDate:      now.Format(time.RFC3339),
			Source:          "Local Fallback",
			ApplicationURL:  strPtr("https://example.com/apply/software-engineer"),
			MatchScore:      82,
		},
		{
			ID:      10002,
			Title:   "Data Analyst - Remote",
			Company: "DataDriven LLC",
			Description: "Analyze product and growth data, build dashboards, and support business " +
				"decisions. Great fit for students with SQL and Python.",
			Location:        "Remote",
			Salary:          strPtr("USD 70,000 - 95,000"),
			JobType:         "FULL_TIME",
			ExperienceLevel: "ENTRY_LEVEL",
			Remote:          true,
			VisaSponsorship: true,
			VisaTypes:       []string{"OPT", "H1B"},
			Skills:          []string{"SQL", "Python", "Tableau", "Excel"},
			Benefits:        []string{"Remote Stipend", "Medical", "PTO"},
			PostedDate:      now.Add(-24 * time.Hour).Format(time.RFC3339),
			Source:          "Local Fallback",
			ApplicationURL:  strPtr("https://example.com/apply/data-analyst"),
			MatchScore:      78,
		},
		{
			ID:      10003,
			Title:   "Financial Analyst",
			Company: "FinanceFirst",
			Description: "Support forecasting, reporting, and strategic analysis in a high-growth " +
				"finance team. OPT and CPT candidates encouraged to apply.",
			Location:        "New York, NY",
			Salary:          strPtr("USD 75,000 - 100,000"),
			JobType:         "FULL_TIME",
			ExperienceLevel: "ENTRY_LEVEL",
			VisaSponsorship: true,
			VisaTypes:       []string{"OPT", "CPT", "H1B"},
			Skills:          []string{"Excel", "Financial Modeling", "PowerPoint", "SQL"},
			Benefits:        []string{"Bonus", "Health Insurance", "Transit Support"},
			PostedDate:      now.Add(-48 * time.Hour).Format(time.RFC3339),
			Source:          "Local Fallback",
			ApplicationURL:  strPtr("https://example.com/apply/financial-analyst"),
			MatchScore:      74,
		},
	}
}

func strPtr(s string) *string { return &s }

// searchFallback filters and paginates the local dataset with the same
// filter semantics as the database path.
func (s *Searcher) searchFallback(p SearchParams, warning string) *SearchResult {
	var filtered []Job
	for _, job := range fallbackJobs() {
		if !matchesFallbackFilters(job, p) {
			continue
		}
		filtered = append(filtered, job)
	}

	total := len(filtered)
	totalPages := (total + p.Limit - 1) / p.Limit
	if totalPages < 1 {
		totalPages = 1
	}
	page := p.Page
	if page > totalPages {
		page = totalPages
	}

	offset := (page - 1) * p.Limit
	end := offset + p.Limit
	if end > total {
		end = total
	}
	pageJobs := []Job{}
	if offset < total {
		pageJobs = filtered[offset:end]
	}

	return &SearchResult{
		Jobs: pageJobs,
		Pagination: Pagination{
			Page:       page,
			Limit:      p.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
			HasPrev:    page > 1,
		},
		Fallback: true,
		Warning:  warning,
	}
}

func matchesFallbackFilters(job Job, p SearchParams) bool {
	if p.Query != "" &&
		!containsFold(job.Title, p.Query) &&
		!containsFold(job.Company, p.Query) &&
		!containsFold(job.Description, p.Query) {
		return false
	}
	if p.Location != "" && !containsFold(job.Location, p.Location) {
		return false
	}
	if p.VisaType != "" && !hasVisaType(job.VisaTypes, p.VisaType) {
		return false
	}
	if p.JobType != "" && job.JobType != p.JobType {
		return false
	}
	if p.ExperienceLevel != "" && job.ExperienceLevel != p.ExperienceLevel {
		return false
	}
	if p.Remote != nil && job.Remote != *p.Remote {
		return false
	}
	return true
}

func containsFold(value, query string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(query))
}

func hasVisaType(types []string, want string) bool {
	for _, t := range types {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}
