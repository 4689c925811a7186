package handlers

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

// UploadLogs accepts playback-log CSVs as a multipart form (field "files")
// and drops them into the data directory under their sanitized base names.
// The whole batch is rejected when any part is not a .csv.
func UploadLogs(dataDir string, log *logrus.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		form, err := ctx.MultipartForm()
		if err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid multipart form")
			return
		}
		parts := form.File["files"]
		if len(parts) == 0 {
			errResponse(ctx, fasthttp.StatusBadRequest, "no files provided")
			return
		}

		for _, part := range parts {
			name := filepath.Base(part.Filename)
			if name == "." || name == string(filepath.Separator) || !strings.EqualFold(filepath.Ext(name), ".csv") {
				errResponse(ctx, fasthttp.StatusBadRequest, fmt.Sprintf("%s: only .csv files are accepted", part.Filename))
				return
			}
		}

		saved := make([]string, 0, len(parts))
		for _, part := range parts {
			name := filepath.Base(part.Filename)
			dest := filepath.Join(dataDir, name)
			if err := fasthttp.SaveMultipartFile(part, dest); err != nil {
				log.WithError(err).Errorf("failed to save uploaded log %s", name)
				errResponse(ctx, fasthttp.StatusInternalServerError, fmt.Sprintf("failed to save %s", name))
				return
			}
			saved = append(saved, name)
		}

		log.WithField("count", len(saved)).Info("playback logs uploaded")
		ctx.SetStatusCode(fasthttp.StatusCreated)
		jsonResponse(ctx, map[string]any{"saved": saved, "count": len(saved)})
	}
}
