package handlers

import (
	"bytes"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"adboard/internal/export"
	"adboard/internal/ingest"
	"adboard/internal/metrics"
	"adboard/internal/registry"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func doRequest(t *testing.T, handler fasthttp.RequestHandler, method, uri, body string) *fasthttp.RequestCtx {
	t.Helper()
	var ctx fasthttp.RequestCtx
	ctx.Request.SetRequestURI(uri)
	ctx.Request.Header.SetMethod(method)
	if body != "" {
		ctx.Request.SetBodyString(body)
	}
	handler(&ctx)
	return &ctx
}

func TestSaveClientHappyPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clientes_config.json")
	reg := registry.New(path, testLogger())

	ctx := doRequest(t, SaveClient(reg), fasthttp.MethodPost, "/v1/clients",
		`{"id":"cliente5","nombre_real":"Bar Uno","versiones":2,"expiracion":"2026-01-01","contacto":"bar@uno.test"}`)

	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var resp struct {
		ID     string                `json:"id"`
		Config registry.ClientConfig `json:"config"`
	}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	assert.Equal(t, "cliente5", resp.ID)
	assert.Equal(t, "Bar Uno", resp.Config.RealName)
	assert.True(t, resp.Config.Active)

	rec, found := reg.Get("cliente5")
	assert.True(t, found)
	assert.Equal(t, "2026-01-01", rec.Expiration)
}

func TestSaveClientInvalidID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clientes_config.json")
	reg := registry.New(path, testLogger())

	ctx := doRequest(t, SaveClient(reg), fasthttp.MethodPost, "/v1/clients",
		`{"id":"acme","nombre_real":"Acme"}`)

	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), "clienteN")

	// The document was not touched.
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSaveClientBadJSON(t *testing.T) {
	reg := registry.New(filepath.Join(t.TempDir(), "c.json"), testLogger())
	ctx := doRequest(t, SaveClient(reg), fasthttp.MethodPost, "/v1/clients", "{nope")
	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
}

func TestClientsListSorted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clientes_config.json")
	reg := registry.New(path, testLogger())
	for _, id := range []string{"cliente10", "cliente2"} {
		_, err := reg.Upsert(id, registry.Update{})
		require.NoError(t, err)
	}

	ctx := doRequest(t, ClientsList(reg), fasthttp.MethodGet, "/v1/clients", "")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var resp struct {
		Clients []registry.Entry `json:"clients"`
		Count   int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "cliente2", resp.Clients[0].ID)
	assert.Equal(t, "cliente10", resp.Clients[1].ID)
}

func TestPricePreview(t *testing.T) {
	ctx := doRequest(t, PricePreview(), fasthttp.MethodPost, "/v1/contracts/price",
		`{"base_price":15000,"discount_percent":10,"tax":2835}`)
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var resp map[string]float64
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	assert.InDelta(t, 16335.0, resp["total"], 1e-9)
}

func TestPricePreviewRejectsBadDiscount(t *testing.T) {
	ctx := doRequest(t, PricePreview(), fasthttp.MethodPost, "/v1/contracts/price",
		`{"base_price":15000,"discount_percent":130,"tax":0}`)
	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
}

func multipartUpload(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for name, content := range files {
		fw, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func TestUploadLogsSavesCSVs(t *testing.T) {
	dataDir := t.TempDir()
	body, contentType := multipartUpload(t, map[string]string{
		"2025-03-01_log.csv": "Media Name,Media Duration,Monitor Name,Reported Date,Playback Date\n",
	})

	var ctx fasthttp.RequestCtx
	ctx.Request.SetRequestURI("/v1/uploads")
	ctx.Request.Header.SetMethod(fasthttp.MethodPost)
	ctx.Request.Header.SetContentType(contentType)
	ctx.Request.SetBody(body.Bytes())

	UploadLogs(dataDir, testLogger())(&ctx)
	require.Equal(t, fasthttp.StatusCreated, ctx.Response.StatusCode())

	saved, err := os.ReadFile(filepath.Join(dataDir, "2025-03-01_log.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(saved), "Media Name")
}

func TestUploadLogsRejectsNonCSV(t *testing.T) {
	dataDir := t.TempDir()
	body, contentType := multipartUpload(t, map[string]string{"notas.txt": "no"})

	var ctx fasthttp.RequestCtx
	ctx.Request.SetRequestURI("/v1/uploads")
	ctx.Request.Header.SetMethod(fasthttp.MethodPost)
	ctx.Request.Header.SetContentType(contentType)
	ctx.Request.SetBody(body.Bytes())

	UploadLogs(dataDir, testLogger())(&ctx)
	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())

	entries, err := os.ReadDir(dataDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected batches must not leave files behind")
}

func TestExportWitnessRejectsInvalidID(t *testing.T) {
	exp := export.NewWitnessExporter(t.TempDir(), t.TempDir(), 10, 3, testLogger())
	ctx := doRequest(t, ExportWitness(exp), fasthttp.MethodPost, "/v1/exports/witness",
		`{"client_id":"acme"}`)
	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
}

func TestDashboardEmptyDataDir(t *testing.T) {
	dataDir := t.TempDir()
	ing := ingest.New(dataDir, "", testLogger())
	reg := registry.New(filepath.Join(t.TempDir(), "c.json"), testLogger())
	pipe := metrics.NewPipeline(reg, 15000, testLogger())

	ctx := doRequest(t, Dashboard(ing, pipe), fasthttp.MethodGet, "/v1/dashboard", "")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var bundle metrics.MetricsBundle
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &bundle))
	assert.Zero(t, bundle.Summary.TotalPlays)
	assert.Zero(t, bundle.Summary.EstimatedRevenue)
	assert.Empty(t, bundle.ClientStatuses)
	assert.Empty(t, bundle.DailyPlays)
}

func TestDashboardRejectsHalfRange(t *testing.T) {
	ing := ingest.New(t.TempDir(), "", testLogger())
	reg := registry.New(filepath.Join(t.TempDir(), "c.json"), testLogger())
	pipe := metrics.NewPipeline(reg, 15000, testLogger())

	ctx := doRequest(t, Dashboard(ing, pipe), fasthttp.MethodGet, "/v1/dashboard?start=2025-03-01", "")
	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
}

func TestRecordsEndpoint(t *testing.T) {
	dataDir := t.TempDir()
	csv := "Media Name,Media Duration,Monitor Name,Reported Date,Playback Date\n" +
		"cliente1_spot_v2.mp4,15000,Pantalla Centro,2025-03-01 10:00:00,2025-03-01 09:59:40\n"
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "2025-03-01_log.csv"), []byte(csv), 0o644))

	ing := ingest.New(dataDir, "", testLogger())
	reg := registry.New(filepath.Join(t.TempDir(), "c.json"), testLogger())
	_, err := reg.Upsert("cliente1", registry.Update{RealName: "Panadería Sol"})
	require.NoError(t, err)
	pipe := metrics.NewPipeline(reg, 15000, testLogger())

	ctx := doRequest(t, Records(ing, pipe, reg), fasthttp.MethodGet, "/v1/records", "")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var resp struct {
		Records      []metrics.DerivedRecord `json:"records"`
		Count        int                     `json:"count"`
		DisplayNames map[string]string       `json:"display_names"`
	}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	require.Equal(t, 1, resp.Count)
	require.NotNil(t, resp.Records[0].Client)
	assert.Equal(t, "cliente1", *resp.Records[0].Client)
	assert.Equal(t, "v2", resp.Records[0].Version)
	assert.Equal(t, 15.0, resp.Records[0].Seconds)
	assert.Equal(t, map[string]string{"cliente1": "Panadería Sol"}, resp.DisplayNames)
}
