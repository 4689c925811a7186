package main

import (
	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"

	"adboard/internal/config"
	"adboard/internal/export"
	"adboard/internal/http/handlers"
	appmw "adboard/internal/http/middleware"
	"adboard/internal/ingest"
	"adboard/internal/metrics"
	"adboard/internal/registry"
	"adboard/internal/telemetry"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(config.GetLogLevel())

	if err := cfg.EnsureDirs(); err != nil {
		logger.Fatalf("failed to prepare working directories: %v", err)
	}

	telemetry.Register()

	reg := registry.New(cfg.ClientsFile, logger)
	ing := ingest.New(cfg.DataDir, cfg.FallbackDataDir, logger)
	pipe := metrics.NewPipeline(reg, cfg.PricePerClient, logger)
	witness := export.NewWitnessExporter(cfg.VideosDir, cfg.WitnessDir, cfg.WitnessDuration, cfg.WitnessCount, logger)
	contracts := export.NewContractRenderer(cfg.ContractsDir, logger)

	r := router.New()

	// Global middleware chain: request logger, then observation, then router
	handler := appmw.RequestLogger(logger)(appmw.Observe()(r.Handler))

	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	})

	r.GET("/v1/dashboard", handlers.Dashboard(ing, pipe))
	r.GET("/v1/records", handlers.Records(ing, pipe, reg))
	r.POST("/v1/uploads", handlers.UploadLogs(cfg.DataDir, logger))

	r.GET("/v1/clients", handlers.ClientsList(reg))
	r.POST("/v1/clients", handlers.SaveClient(reg))

	r.POST("/v1/exports/witness", handlers.ExportWitness(witness))
	r.POST("/v1/exports/contract", handlers.ExportContract(contracts))
	r.POST("/v1/contracts/price", handlers.PricePreview())

	r.GET("/metrics", handlers.MetricsExposition())

	logger.Infof("adboard listening on %s", cfg.ListenAddr)
	if err := fasthttp.ListenAndServe(cfg.ListenAddr, handler); err != nil {
		logger.Fatalf("server error: %v", err)
	}
}
