package handlers

import (
	"errors"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/valyala/fasthttp"

	"adboard/internal/registry"
)

type saveClientRequest struct {
	ID         string `json:"id"`
	RealName   string `json:"nombre_real"`
	Versions   int    `json:"versiones"`
	Expiration string `json:"expiracion"`
	Contact    string `json:"contacto"`
	Active     *bool  `json:"activo"`
}

// ClientsList serves the configured clients in numeric id order.
func ClientsList(reg *registry.Registry) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		entries := reg.List()
		jsonResponse(ctx, map[string]any{"clients": entries, "count": len(entries)})
	}
}

// SaveClient upserts one client record. An id outside the clienteN form is
// rejected without touching the document.
func SaveClient(reg *registry.Registry) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var req saveClientRequest
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}

		id := strings.TrimSpace(req.ID)
		rec, err := reg.Upsert(id, registry.Update{
			RealName:   req.RealName,
			Versions:   req.Versions,
			Expiration: req.Expiration,
			Contact:    req.Contact,
			Active:     req.Active,
		})
		if err != nil {
			if errors.Is(err, registry.ErrInvalidClientID) {
				errResponse(ctx, fasthttp.StatusBadRequest, err.Error())
				return
			}
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to save client")
			return
		}
		jsonResponse(ctx, map[string]any{"id": id, "config": rec})
	}
}
