// Package httpapi exposes the authentication engine over HTTP: an OAuth2
// password-grant token endpoint, a bearer-token middleware, and the login-log
// dashboard aggregates.
package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wardenio/warden"
)

const requestIDHeader = "X-Request-Id"

// Server holds the handler dependencies.
type Server struct {
	engine *warden.Engine
	logs   *warden.LoginLogService
}

// NewServer wires handlers onto an engine. logs may be nil; the aggregate
// routes are then not registered.
func NewServer(engine *warden.Engine, logs *warden.LoginLogService) *Server {
	return &Server{
		engine: engine,
		logs:   logs,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestID())

	router.GET("/oauth/token", s.token)
	router.POST("/oauth/token", s.token)

	api := router.Group("/api", s.bearerAuth())
	{
		api.GET("/me", s.me)
		api.POST("/logout", s.logout)

		api.POST("/transient", s.issueTransient)
		api.DELETE("/transient/:token", s.consumeTransient)

		if s.logs != nil {
			logs := api.Group("/loginLog")
			logs.GET("/total", s.totalVisits)
			logs.GET("/today", s.todayVisits)
			logs.GET("/todayIp", s.todayIPs)
			logs.GET("/browser", s.browserCounts)
			logs.GET("/system", s.systemCounts)
			logs.GET("/tenDays", s.tenDayVisits)
			logs.DELETE("", s.clearLogs)
		}
	}

	return router
}

// requestID tags every request with an id, honoring one supplied upstream.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Next()
	}
}
