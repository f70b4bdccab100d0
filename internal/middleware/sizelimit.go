package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/patient-records/pkg/httputil"
)

// DefaultMaxBodySize fits any patient form with generous notes.
const DefaultMaxBodySize = 1 << 20

// SizeLimit rejects bodies larger than maxBody bytes.
func SizeLimit(maxBody int64) gin.HandlerFunc {
	if maxBody <= 0 {
		maxBody = DefaultMaxBodySize
	}
	return func(c *gin.Context) {
		// Check content length
		if c.Request.ContentLength > maxBody {
			httputil.RespondWithMessage(c, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", maxBody))
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBody)
		}
		c.Next()
	}
}
