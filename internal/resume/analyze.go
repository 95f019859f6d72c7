package resume

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v5"
	"github.com/optcareerconnect/occ/internal/config"
)

// ErrProviderUnavailable is returned when the AI provider fails and the
// admin configuration disables local fallback scoring.
var ErrProviderUnavailable = errors.New("resume: AI provider unavailable and fallback disabled")

// AnalysisResult is the structured resume feedback.
type AnalysisResult struct {
	OverallScore  int      `json:"overallScore"`
	ATSScore      int      `json:"atsScore"`
	KeywordScore  int      `json:"keywordScore"`
	FormatScore   int      `json:"formatScore"`
	ContentScore  int      `json:"contentScore"`
	MissingSkills []string `json:"missingSkills"`
	Improvements  []string `json:"improvements"`
	Suggestions   []string `json:"suggestions"`
}

// SourceGroq and SourceFallback tag which engine produced a result.
const (
	SourceGroq     = "groq"
	SourceFallback = "fallback"
)

const defaultGroqEndpoint = "https://api.groq.com/openai/v1/chat/completions"

// Analyzer scores a resume against a job description, preferring the
// configured AI provider and degrading to the local heuristic.
type Analyzer struct {
	endpoint string
	client   *http.Client
}

// AnalyzerOption customizes an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithEndpoint overrides the provider endpoint (tests point it at a
// local server).
func WithEndpoint(url string) AnalyzerOption {
	return func(a *Analyzer) { a.endpoint = url }
}

// WithHTTPClient overrides the provider HTTP client.
func WithHTTPClient(c *http.Client) AnalyzerOption {
	return func(a *Analyzer) { a.client = c }
}

// NewAnalyzer builds an analyzer with a provider timeout suited to an
// interactive request.
func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		endpoint: defaultGroqEndpoint,
		client:   &http.Client{Timeout: 20 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze scores resumeText against jobDescription using the resolved
// AI configuration. Returns the analysis and the source that produced
// it. Provider failures fall through to the heuristic unless fallback
// is disabled, in which case ErrProviderUnavailable is returned.
func (a *Analyzer) Analyze(ctx context.Context, cfg config.AIConfig, resumeText, jobDescription string) (*AnalysisResult, string, error) {
	resumeText = NormalizeText(resumeText)
	jobDescription = NormalizeText(jobDescription)
	if resumeText == "" || jobDescription == "" {
		return nil, "", errors.New("resume: resume text and job description are required")
	}

	if cfg.Provider == "groq" && cfg.GroqAPIKey != "" {
		result, err := a.analyzeWithGroq(ctx, cfg, resumeText, jobDescription)
		if err != nil {
			slog.Warn("groq analysis failed, considering fallback", slog.Any("error", err))
		} else if result != nil {
			return result, SourceGroq, nil
		}
	}

	if !cfg.FallbackEnabled {
		return nil, "", ErrProviderUnavailable
	}
	return heuristicAnalysis(resumeText, jobDescription), SourceFallback, nil
}

type groqChatRequest struct {
	Model       string            `json:"model"`
	Messages    []groqChatMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	Temperature float64           `json:"temperature"`
}

type groqChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

const analysisPrompt = `Analyze this resume against the job description and provide detailed feedback:

Resume: %s

Job Description: %s

Please provide:
1. Overall match score (0-100)
2. ATS compatibility score (0-100)
3. Keyword match score (0-100)
4. Format and structure score (0-100)
5. Content quality score (0-100)
6. Top 5 missing skills or keywords to add
7. Top 3 resume improvements to make
8. Specific suggestions for tailoring to this job

Format your response as JSON with these exact keys: overallScore, atsScore, keywordScore, formatScore, contentScore, missingSkills, improvements, suggestions`

func (a *Analyzer) analyzeWithGroq(ctx context.Context, cfg config.AIConfig, resumeText, jobDescription string) (*AnalysisResult, error) {
	prompt := fmt.Sprintf(analysisPrompt, clip(resumeText, 2000), clip(jobDescription, 2000))

	body, err := json.Marshal(groqChatRequest{
		Model:       cfg.GroqModel,
		Messages:    []groqChatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   cfg.MaxTokens,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	operation := func() (*groqChatResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+cfg.GroqAPIKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := a.client.Do(req)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, fmt.Errorf("status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, backoff.Permanent(fmt.Errorf("status %d", resp.StatusCode))
		}

		var out groqChatResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return &out, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 2 * time.Second

	resp, err := backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(2))
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("empty completion")
	}

	result := parseAnalysisJSON(resp.Choices[0].Message.Content)
	if result == nil {
		return nil, errors.New("completion did not contain a valid analysis")
	}
	return result, nil
}

// parseAnalysisJSON extracts the analysis object from a completion,
// tolerating markdown code fences around the JSON.
func parseAnalysisJSON(raw string) *AnalysisResult {
	candidate := stripFences(raw)
	if candidate == "" {
		return nil
	}

	var parsed struct {
		OverallScore  *float64 `json:"overallScore"`
		ATSScore      *float64 `json:"atsScore"`
		KeywordScore  *float64 `json:"keywordScore"`
		FormatScore   *float64 `json:"formatScore"`
		ContentScore  *float64 `json:"contentScore"`
		MissingSkills []string `json:"missingSkills"`
		Improvements  []string `json:"improvements"`
		Suggestions   []string `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return nil
	}
	if parsed.OverallScore == nil || parsed.ATSScore == nil || parsed.KeywordScore == nil ||
		parsed.FormatScore == nil || parsed.ContentScore == nil ||
		parsed.MissingSkills == nil || parsed.Improvements == nil || parsed.Suggestions == nil {
		return nil
	}

	return &AnalysisResult{
		OverallScore:  clampScore(*parsed.OverallScore),
		ATSScore:      clampScore(*parsed.ATSScore),
		KeywordScore:  clampScore(*parsed.KeywordScore),
		FormatScore:   clampScore(*parsed.FormatScore),
		ContentScore:  clampScore(*parsed.ContentScore),
		MissingSkills: capList(parsed.MissingSkills, 10),
		Improvements:  capList(parsed.Improvements, 10),
		Suggestions:   capList(parsed.Suggestions, 10),
	}
}

// stripFences removes markdown code fences from a completion.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if start := strings.Index(s, "```"); start >= 0 {
		s = s[start+3:]
		s = strings.TrimPrefix(s, "json")
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
	}
	return strings.TrimSpace(s)
}

// heuristicAnalysis is the deterministic local scorer used when the AI
// provider is disabled or failing.
func heuristicAnalysis(resumeText, jobDescription string) *AnalysisResult {
	resumeWords := make(map[string]bool)
	for _, w := range extractKeywords(resumeText, 120) {
		resumeWords[w] = true
	}
	jobKeywords := extractKeywords(jobDescription, 50)

	matched := 0
	var missing []string
	for _, kw := range jobKeywords {
		if resumeWords[kw] {
			matched++
		} else if len(missing) < 5 {
			missing = append(missing, kw)
		}
	}
	denom := len(jobKeywords)
	if denom == 0 {
		denom = 1
	}
	keywordScore := clamp(int(float64(matched)/float64(denom)*100+0.5), 25, 98)

	atsSignals := []string{"experience", "education", "skills", "project", "summary"}
	atsMatches := 0
	lowerResume := strings.ToLower(resumeText)
	for _, signal := range atsSignals {
		if strings.Contains(lowerResume, signal) {
			atsMatches++
		}
	}
	atsScore := clamp(atsMatches*100/len(atsSignals), 35, 95)

	formatScore := 60
	switch {
	case len(resumeText) > 1200:
		formatScore = 85
	case len(resumeText) > 700:
		formatScore = 75
	}
	formatScore = clamp(formatScore, 40, 95)
	contentScore := clamp(int(float64(keywordScore)*0.6+float64(formatScore)*0.4+0.5), 30, 97)
	overallScore := clamp((atsScore+keywordScore+formatScore+contentScore+2)/4, 30, 98)

	if len(missing) == 0 {
		missing = []string{"leadership", "communication"}
	}

	return &AnalysisResult{
		OverallScore:  overallScore,
		ATSScore:      atsScore,
		KeywordScore:  keywordScore,
		FormatScore:   formatScore,
		ContentScore:  contentScore,
		MissingSkills: missing,
		Improvements: []string{
			"Add measurable achievements with numbers and outcomes.",
			"Mirror high-value keywords from the job description in experience bullets.",
			"Refine summary section to align with target role and visa context.",
		},
		Suggestions: []string{
			"Prioritize projects using the same tools and stack listed in the job description.",
			"Use ATS-friendly section headings and consistent formatting.",
			"Include role-specific keywords in both summary and skills section.",
		},
	}
}

func clampScore(f float64) int {
	return clamp(int(f+0.5), 0, 100)
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func capList(list []string, n int) []string {
	if len(list) > n {
		return list[:n]
	}
	return list
}
