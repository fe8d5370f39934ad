package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) totalVisits(c *gin.Context) {
	n, err := s.logs.TotalVisitCount(s.requestContext(c))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (s *Server) todayVisits(c *gin.Context) {
	n, err := s.logs.TodayVisitCount(s.requestContext(c))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (s *Server) todayIPs(c *gin.Context) {
	n, err := s.logs.TodayIPCount(s.requestContext(c))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (s *Server) browserCounts(c *gin.Context) {
	counts, err := s.logs.BrowserCounts(s.requestContext(c))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable"})
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (s *Server) systemCounts(c *gin.Context) {
	counts, err := s.logs.OperatingSystemCounts(s.requestContext(c))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable"})
		return
	}
	c.JSON(http.StatusOK, counts)
}

// tenDayVisits returns the trailing ten-day login series. An account query
// parameter narrows it to one account.
func (s *Server) tenDayVisits(c *gin.Context) {
	counts, err := s.logs.LastTenDaysVisitCount(s.requestContext(c), c.Query("account"))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable"})
		return
	}
	c.JSON(http.StatusOK, counts)
}

// clearLogs deletes rows older than the before query parameter (RFC 3339),
// subject to the configured retention floor.
func (s *Server) clearLogs(c *gin.Context) {
	raw := c.Query("before")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "before parameter required"})
		return
	}
	before, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "before must be RFC 3339"})
		return
	}

	removed, err := s.logs.Clear(s.requestContext(c), before)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
