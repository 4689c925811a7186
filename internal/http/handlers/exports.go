package handlers

import (
	"errors"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/go-playground/validator/v10"
	"github.com/valyala/fasthttp"

	"adboard/internal/export"
	"adboard/internal/registry"
)

type witnessRequest struct {
	ClientID string `json:"client_id"`
	Count    int    `json:"count"`
}

// ExportWitness generates witness placeholder files for one client.
func ExportWitness(exp *export.WitnessExporter) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var req witnessRequest
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}
		id := strings.TrimSpace(req.ClientID)
		if !registry.ValidClientID(id) {
			errResponse(ctx, fasthttp.StatusBadRequest, registry.ErrInvalidClientID.Error())
			return
		}

		batch, err := exp.Export(id, req.Count)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to export witness files")
			return
		}
		ctx.SetStatusCode(fasthttp.StatusCreated)
		jsonResponse(ctx, batch)
	}
}

// ExportContract validates the contract fields, renders the PDF, and
// reports the server-computed total.
func ExportContract(r *export.ContractRenderer) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var fields export.ContractFields
		if err := json.Unmarshal(ctx.PostBody(), &fields); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}

		res, err := r.Render(fields)
		if err != nil {
			var verr validator.ValidationErrors
			if errors.As(err, &verr) {
				errResponse(ctx, fasthttp.StatusBadRequest, err.Error())
				return
			}
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to render contract")
			return
		}
		ctx.SetStatusCode(fasthttp.StatusCreated)
		jsonResponse(ctx, res)
	}
}

// PricePreview recomputes the contract total from the pricing fields. The
// dashboard calls this every time any of the three inputs changes.
func PricePreview() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var p export.PricingInput
		if err := json.Unmarshal(ctx.PostBody(), &p); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := export.ValidatePricing(p); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, err.Error())
			return
		}
		jsonResponse(ctx, map[string]any{
			"base_price":       p.BasePrice,
			"discount_percent": p.DiscountPercent,
			"tax":              p.Tax,
			"total":            p.Total(),
		})
	}
}
