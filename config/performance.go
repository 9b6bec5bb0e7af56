package config

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// SlowRequestThreshold marks requests worth a separate log line
const SlowRequestThreshold = 200 * time.Millisecond

// PerformanceLogger logs every request with its latency
func PerformanceLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		log.Printf("[PERF] %s %s | Status: %d | Time: %v",
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			latency)

		if latency > SlowRequestThreshold {
			log.Printf("[PERF] SLOW REQUEST: %s %s took %v",
				c.Request.Method, c.Request.URL.Path, latency)
		}
	}
}
