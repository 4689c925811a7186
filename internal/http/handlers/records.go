package handlers

import (
	"github.com/valyala/fasthttp"

	"adboard/internal/ingest"
	"adboard/internal/metrics"
	"adboard/internal/registry"
)

// Records serves the derived playback table as flat rows, the hand-off
// format consumed by spreadsheets and external tooling. The response also
// carries the id-to-real-name projection so consumers can label rows.
func Records(ing *ingest.Ingestor, pipe *metrics.Pipeline, reg *registry.Registry) fasthttp.RequestHandler {
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
		records := pipe.Records(rows, rng)
		jsonResponse(ctx, map[string]any{
			"records":       records,
			"count":         len(records),
			"display_names": reg.ResolveDisplayNames(),
		})
	}
}
