package middleware

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

// RequestLogger logs method, path, status, duration, and peer for every
// request after it has been handled.
func RequestLogger(log *logrus.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			start := time.Now()
			next(ctx)
			log.WithFields(logrus.Fields{
				"method":      string(ctx.Method()),
				"path":        string(ctx.Path()),
				"status":      ctx.Response.StatusCode(),
				"duration_ms": time.Since(start).Milliseconds(),
				"remote_ip":   ctx.RemoteIP().String(),
			}).Info("request handled")
		}
	}
}
