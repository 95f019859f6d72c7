// Package jobs implements job search for international students:
// database-backed listings with a curated local fallback dataset,
// resume-driven match scoring, and a saved-jobs shortlist.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/optcareerconnect/occ/internal/config"
)

// ErrDatabaseRequired is returned when the configured source mode needs
// the database but it is not available and fallback is not allowed.
var ErrDatabaseRequired = errors.New("jobs: source mode requires database, but it is unavailable")

// SearchParams are the parsed request filters.
type SearchParams struct {
	Query           string
	Location        string
	VisaType        string
	JobType         string
	ExperienceLevel string
	Remote          *bool // nil = no filter
	Page            int
	Limit           int
	ResumeText      string // optional, enables resume-driven scoring
}

// Job is one search result.
type Job struct {
	ID              int64    `json:"id"`
	Title           string   `json:"title"`
	Company         string   `json:"company"`
	CompanyLogo     *string  `json:"companyLogo,omitempty"`
	Description     string   `json:"description"`
	Location        string   `json:"location"`
	Salary          *string  `json:"salary,omitempty"`
	JobType         string   `json:"jobType"`
	ExperienceLevel string   `json:"experienceLevel"`
	Remote          bool     `json:"remote"`
	VisaSponsorship bool     `json:"visaSponsorship"`
	VisaTypes       []string `json:"visaTypes"`
	Skills          []string `json:"skills"`
	Benefits        []string `json:"benefits,omitempty"`
	PostedDate      string   `json:"postedDate"`
	Source          string   `json:"source"`
	ApplicationURL  *string  `json:"applicationUrl,omitempty"`
	MatchScore      int      `json:"matchScore"`
}

// Pagination describes one result page.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// SearchResult is the search outcome. Fallback marks results served
// from the local dataset instead of the database.
type SearchResult struct {
	Jobs       []Job
	Pagination Pagination
	Fallback   bool
	Warning    string
	AIEnhanced bool
}

// Searcher runs job searches against Postgres, honoring the resolved
// jobs configuration for source selection.
type Searcher struct {
	pool *pgxpool.Pool // nil = database not configured
}

// NewSearcher wraps an optional pool.
func NewSearcher(pool *pgxpool.Pool) *Searcher {
	return &Searcher{pool: pool}
}

// Search dispatches between database and fallback data per the resolved
// source mode: "fallback" always serves local data, "database" never
// does, "auto" degrades to local data when the database is unavailable
// and fallback is enabled.
func (s *Searcher) Search(ctx context.Context, cfg config.JobsConfig, p SearchParams) (*SearchResult, error) {
	p = normalizeParams(p)

	if cfg.SourceMode == "fallback" {
		return s.searchFallback(p, "Fallback mode forced by admin config (jobs.source_mode=fallback)."), nil
	}

	if s.pool == nil {
		if cfg.SourceMode == "database" || !cfg.FallbackEnabled {
			return nil, ErrDatabaseRequired
		}
		return s.searchFallback(p, "Database not configured. Showing local fallback jobs (jobs.source_mode=auto)."), nil
	}

	result, err := s.searchDatabase(ctx, cfg, p)
	if err != nil {
		if cfg.SourceMode == "database" || !cfg.FallbackEnabled {
			return nil, fmt.Errorf("jobs: database search: %w", err)
		}
		slog.Warn("job search degraded to fallback data", slog.Any("error", err))
		return s.searchFallback(p, "Database query failed. Showing local fallback jobs."), nil
	}
	return result, nil
}

func normalizeParams(p SearchParams) SearchParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 20
	}
	if p.Limit > 50 {
		p.Limit = 50
	}
	return p
}

// buildSearchQuery assembles the WHERE clause and ordered args for the
// listing query. Kept pure so filter composition is testable without a
// database.
func buildSearchQuery(p SearchParams) (string, []any) {
	conditions := []string{"is_active = true"}
	var args []any

	next := func() int { return len(args) + 1 }

	if p.Query != "" {
		n := next()
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR company ILIKE $%d OR description ILIKE $%d)", n, n, n))
		args = append(args, "%"+p.Query+"%")
	}
	if p.Location != "" {
		conditions = append(conditions, fmt.Sprintf("location ILIKE $%d", next()))
		args = append(args, "%"+p.Location+"%")
	}
	if p.VisaType != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(visa_types)", next()))
		args = append(args, p.VisaType)
	}
	if p.JobType != "" {
		conditions = append(conditions, fmt.Sprintf("job_type = $%d", next()))
		args = append(args, p.JobType)
	}
	if p.ExperienceLevel != "" {
		conditions = append(conditions, fmt.Sprintf("experience_level = $%d", next()))
		args = append(args, p.ExperienceLevel)
	}
	if p.Remote != nil {
		conditions = append(conditions, fmt.Sprintf("remote = $%d", next()))
		args = append(args, *p.Remote)
	}

	return strings.Join(conditions, " AND "), args
}

func (s *Searcher) searchDatabase(ctx context.Context, cfg config.JobsConfig, p SearchParams) (*SearchResult, error) {
	where, args := buildSearchQuery(p)

	var total int
	countSQL := "SELECT COUNT(*) FROM job_listings WHERE " + where
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count listings: %w", err)
	}

	offset := (p.Page - 1) * p.Limit
	listSQL := fmt.Sprintf(`
		SELECT id, title, company, company_logo, description, location,
		       salary_min, salary_max, salary_currency, job_type,
		       experience_level, remote, visa_sponsorship, visa_types,
		       skills_required, benefits, posted_date, source, application_url
		FROM job_listings
		WHERE %s
		ORDER BY posted_date DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, p.Limit, offset)

	rows, err := s.pool.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	defer rows.Close()

	scorer := newScorer(cfg, p.ResumeText)

	var jobsOut []Job
	for rows.Next() {
		var (
			j                    Job
			salaryMin, salaryMax *int64
			salaryCurrency       *string
			postedDate           time.Time
		)
		if err := rows.Scan(
			&j.ID, &j.Title, &j.Company, &j.CompanyLogo, &j.Description, &j.Location,
			&salaryMin, &salaryMax, &salaryCurrency, &j.JobType,
			&j.ExperienceLevel, &j.Remote, &j.VisaSponsorship, &j.VisaTypes,
			&j.Skills, &j.Benefits, &postedDate, &j.Source, &j.ApplicationURL,
		); err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}

		j.Description = truncateDescription(j.Description)
		j.Salary = formatSalary(salaryMin, salaryMax, salaryCurrency)
		j.PostedDate = postedDate.UTC().Format(time.RFC3339)
		if j.VisaTypes == nil {
			j.VisaTypes = []string{}
		}
		if j.Skills == nil {
			j.Skills = []string{}
		}
		j.MatchScore = scorer.score(j)
		jobsOut = append(jobsOut, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listings: %w", err)
	}
	if jobsOut == nil {
		jobsOut = []Job{}
	}

	s.recordSearch(ctx, p, len(jobsOut))

	totalPages := (total + p.Limit - 1) / p.Limit
	if totalPages < 1 {
		totalPages = 1
	}
	return &SearchResult{
		Jobs: jobsOut,
		Pagination: Pagination{
			Page:       p.Page,
			Limit:      p.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    p.Page*p.Limit < total,
			HasPrev:    p.Page > 1,
		},
		AIEnhanced: scorer.resumeAware(),
	}, nil
}

// recordSearch logs the query for analytics. Best effort: an analytics
// failure never fails the search.
func (s *Searcher) recordSearch(ctx context.Context, p SearchParams, results int) {
	filters, err := json.Marshal(map[string]any{
		"location":        p.Location,
		"visaType":        p.VisaType,
		"jobType":         p.JobType,
		"experienceLevel": p.ExperienceLevel,
		"remote":          p.Remote,
		"page":            p.Page,
		"limit":           p.Limit,
	})
	if err != nil {
		return
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO search_queries (query, filters, results_count, searched_at)
		VALUES ($1, $2, $3, NOW())
	`, p.Query, string(filters), results)
	if err != nil {
		slog.Debug("search analytics insert failed", slog.Any("error", err))
	}
}

func truncateDescription(s string) string {
	if utf8.RuneCountInString(s) <= 200 {
		return s
	}
	return string([]rune(s)[:200]) + "..."
}

func formatSalary(min, max *int64, currency *string) *string {
	if min == nil || max == nil {
		return nil
	}
	cur := "USD"
	if currency != nil && *currency != "" {
		cur = *currency
	}
	out := fmt.Sprintf("%s %d - %d", cur, *min, *max)
	return &out
}

// scorer assigns per-job match scores: resume-driven when advanced
// matching is on and a resume was supplied, otherwise a display-only
// random score in the 60-99 range.
type scorer struct {
	resumeKW map[string]bool
}

func newScorer(cfg config.JobsConfig, resumeText string) *scorer {
	sc := &scorer{}
	if cfg.AdvancedMatchingEnabled && strings.TrimSpace(resumeText) != "" {
		sc.resumeKW = ExtractKeywordSet(resumeText)
	}
	return sc
}

func (sc *scorer) resumeAware() bool {
	return sc.resumeKW != nil
}

func (sc *scorer) score(j Job) int {
	if sc.resumeKW == nil {
		return 60 + rand.IntN(40)
	}
	jobText := j.Title + " " + j.Description + " " + strings.Join(j.Skills, " ")
	score, _, _ := ScoreJobMatch(sc.resumeKW, jobText)
	// Affinity scores cluster low on short descriptions; rescale into a
	// display range comparable to the random baseline.
	display := 50 + int(score/2)
	if display > 99 {
		display = 99
	}
	return display
}
