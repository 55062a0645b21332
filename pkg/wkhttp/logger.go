package wkhttp

import (
	"fmt"
	"time"

	"github.com/WuKongIM/wkframe/pkg/wklog"
	"go.uber.org/zap"
)

// LoggerWithWklog instance a Logger middleware with wklog.
func LoggerWithWklog(log wklog.Log) HandlerFunc {
	return func(c *Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		if latency > time.Minute {
			latency = latency.Truncate(time.Second)
		}

		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		log.Debug(fmt.Sprintf("|%s| %d| %s", c.Request.Method, c.Writer.Status(), path),
			zap.String("clientip", c.ClientIP()),
			zap.Int("size", c.Writer.Size()),
			zap.Duration("latency", latency))
	}
}
