package prerender

import (
	"github.com/gin-gonic/gin"
)

// Middleware intercepts crawler requests for article pages and writes the
// prerendered response. Everything else continues down the chain.
func Middleware(p *Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, ok := p.Handle(c.Request.Context(), c.Request)
		if !ok {
			c.Next()
			return
		}

		if err := resp.Write(c.Writer); err != nil {
			_ = c.Error(err)
		}
		c.Abort()
	}
}
