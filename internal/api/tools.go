package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skedyul/toolserver/internal/dispatch"
)

// surfaceHandler hands the raw request body to the dispatcher and writes its response back verbatim.
func (s *Server) surfaceHandler(surface dispatch.Surface) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
			return
		}

		resp := s.dispatcher.Dispatch(c.Request.Context(), dispatch.Request{Surface: surface, Body: body})
		c.Data(resp.StatusCode, "application/json", resp.Body)
	}
}
