package webserver

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/optcareerconnect/occ/internal/jobs"
)

func (s *Server) handleJobSearch(c *gin.Context) {
	p := jobs.SearchParams{
		Query:           c.Query("query"),
		Location:        c.Query("location"),
		VisaType:        c.Query("visaType"),
		JobType:         c.Query("jobType"),
		ExperienceLevel: c.Query("experienceLevel"),
		Page:            intQuery(c, "page", 1),
		Limit:           intQuery(c, "limit", 20),
	}
	if remote := c.Query("remote"); remote != "" {
		v := remote == "true"
		p.Remote = &v
	}

	s.runJobSearch(c, p)
}

type advancedSearchRequest struct {
	Query           string `json:"query"`
	Location        string `json:"location"`
	VisaType        string `json:"visaType"`
	JobType         string `json:"jobType"`
	ExperienceLevel string `json:"experienceLevel"`
	Remote          *bool  `json:"remote"`
	Page            int    `json:"page"`
	Limit           int    `json:"limit"`
	ResumeText      string `json:"resumeText"`
}

func (s *Server) handleAdvancedJobSearch(c *gin.Context) {
	var req advancedSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": "Could not parse search payload.",
		})
		return
	}

	s.runJobSearch(c, jobs.SearchParams{
		Query:           req.Query,
		Location:        req.Location,
		VisaType:        req.VisaType,
		JobType:         req.JobType,
		ExperienceLevel: req.ExperienceLevel,
		Remote:          req.Remote,
		Page:            req.Page,
		Limit:           req.Limit,
		ResumeText:      req.ResumeText,
	})
}

func (s *Server) runJobSearch(c *gin.Context, p jobs.SearchParams) {
	cfg := s.settings.RuntimeConfig(c.Request.Context(), false)
	result, err := s.searcher.Search(c.Request.Context(), cfg.Jobs, p)
	if err != nil {
		status := http.StatusInternalServerError
		msg := "Job search failed."
		if errors.Is(err, jobs.ErrDatabaseRequired) {
			status = http.StatusServiceUnavailable
			msg = "Job database is unavailable."
		}
		c.JSON(status, gin.H{"success": false, "error": msg})
		return
	}

	resp := gin.H{
		"success":    true,
		"jobs":       result.Jobs,
		"pagination": result.Pagination,
		"fallback":   result.Fallback,
		"aiEnhanced": result.AIEnhanced,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}
	if result.Warning != "" {
		resp["warning"] = result.Warning
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleShortlistAdd(c *gin.Context) {
	if s.shortlist == nil {
		shortlistUnavailable(c)
		return
	}
	var input jobs.ShortlistAddInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": "Could not parse shortlist payload.",
		})
		return
	}
	entry, err := s.shortlist.Add(c.Request.Context(), input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "entry": entry})
}

func (s *Server) handleShortlistList(c *gin.Context) {
	if s.shortlist == nil {
		shortlistUnavailable(c)
		return
	}
	entries, err := s.shortlist.List(c.Request.Context(), c.Query("status"), intQuery(c, "limit", 50))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Could not list shortlist."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "entries": entries, "count": len(entries)})
}

type shortlistUpdateRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

func (s *Server) handleShortlistUpdate(c *gin.Context) {
	if s.shortlist == nil {
		shortlistUnavailable(c)
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "message": "Shortlist id must be numeric."})
		return
	}
	var req shortlistUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "message": "Could not parse update payload."})
		return
	}
	entry, err := s.shortlist.Update(c.Request.Context(), id, req.Status, req.Notes)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "entry": entry})
}

func shortlistUnavailable(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"success": false,
		"error":   "Shortlist storage is not configured.",
	})
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
