package middleware

import (
	"strconv"

	"github.com/valyala/fasthttp"

	"adboard/internal/telemetry"
)

// Observe counts every handled request by path, method, and status. The
// exposition and health endpoints are excluded so the counter does not
// observe its own scrapes.
func Observe() func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			next(ctx)

			path := string(ctx.Path())
			if path == "/metrics" || path == "/healthz" {
				return
			}
			telemetry.HTTPRequests.WithLabelValues(
				path,
				string(ctx.Method()),
				strconv.Itoa(ctx.Response.StatusCode()),
			).Inc()
		}
	}
}
