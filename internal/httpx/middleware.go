package httpx

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const ridKey = "rid"

// RequestID tags every request; callers may supply their own X-Request-ID so
// a terminal's id survives the hop into the collaborator services.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(ridKey, rid)
		c.Writer.Header().Set("X-Request-ID", rid)
		c.Next()
	}
}

func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		rid, _ := c.Get(ridKey)
		if len(c.Errors) > 0 {
			log.Printf("[http] rid=%v %s %s status=%d dur=%s errs=%s",
				rid, c.Request.Method, c.Request.URL.Path,
				c.Writer.Status(), time.Since(start), c.Errors.String())
			return
		}
		log.Printf("[http] rid=%v %s %s status=%d dur=%s",
			rid, c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), time.Since(start))
	}
}

// Error writes the shared error shape {"error": ...}.
func Error(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{"error": msg})
}
