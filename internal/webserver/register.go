package webserver

import "github.com/gin-gonic/gin"

// registerRoutes attaches every endpoint. Admin endpoints sit behind
// the readiness gate and (except login) the session cookie.
func (s *Server) registerRoutes(router *gin.Engine) {
	api := router.Group("/api")

	api.GET("/site/meta", s.handleSiteMeta)
	api.GET("/jobs/search", s.handleJobSearch)
	api.POST("/jobs/search/advanced", s.handleAdvancedJobSearch)
	api.POST("/analyze-resume", s.handleAnalyzeResume)

	api.POST("/shortlist", s.handleShortlistAdd)
	api.GET("/shortlist", s.handleShortlistList)
	api.PATCH("/shortlist/:id", s.handleShortlistUpdate)

	adminGroup := api.Group("/admin", s.requireAdminReadiness())
	adminGroup.POST("/auth/login", s.loginRateLimit(), s.handleAdminLogin)
	adminGroup.POST("/auth/logout", s.handleAdminLogout)

	authed := adminGroup.Group("", s.requireAdminSession())
	authed.GET("/config", s.handleAdminConfigGet)
	authed.PUT("/config", s.handleAdminConfigPut)
	authed.POST("/config/test", s.handleAdminConfigTest)
}
