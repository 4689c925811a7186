package handlers

import (
	"github.com/valyala/fasthttp"

	"adboard/internal/ingest"
	"adboard/internal/metrics"
)

// Dashboard serves the full aggregate bundle for the optional date range.
// Every call reloads the logs and recomputes the aggregates from scratch.
func Dashboard(ing *ingest.Ingestor, pipe *metrics.Pipeline) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		rng, err := parseRange(ctx)
		if err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, err.Error())
			return
		}
		rows, err := ing.LoadAll(rng)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to load playback logs")
			return
		}
		jsonResponse(ctx, pipe.Bundle(rows, rng))
	}
}
