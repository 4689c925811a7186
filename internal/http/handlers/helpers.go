package handlers

import (
	"errors"

	json "github.com/goccy/go-json"
	"github.com/valyala/fasthttp"

	"adboard/internal/ingest"
)

// parseRange reads the optional "start" and "end" query args (YYYY-MM-DD).
// Both absent means no filter; providing only one of the two is an error.
func parseRange(ctx *fasthttp.RequestCtx) (*ingest.DateRange, error) {
	start := string(ctx.QueryArgs().Peek("start"))
	end := string(ctx.QueryArgs().Peek("end"))
	if start == "" && end == "" {
		return nil, nil
	}
	if start == "" || end == "" {
		return nil, errors.New("start and end must be provided together")
	}
	return ingest.ParseDateRange(start, end)
}

func jsonResponse(ctx *fasthttp.RequestCtx, data any) {
	ctx.SetContentType("application/json")
	body, _ := json.Marshal(data)
	ctx.SetBody(body)
}

func errResponse(ctx *fasthttp.RequestCtx, code int, msg string) {
	ctx.SetStatusCode(code)
	ctx.SetBodyString(msg)
}
