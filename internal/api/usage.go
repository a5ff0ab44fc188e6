package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const defaultInvocationsLimit = 20

func (s *Server) usageSummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.usageService == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "usage ledger is not enabled on this server"})
			return
		}
		summary, err := s.usageService.Summarize(c.Request.Context(), c.Query("tool"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func (s *Server) listInvocationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.usageService == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "usage ledger is not enabled on this server"})
			return
		}

		limit := defaultInvocationsLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = n
		}

		invocations, err := s.usageService.ListRecent(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, invocations)
	}
}
