package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ledgerkit/statement-ingest/internal/api"
	"github.com/ledgerkit/statement-ingest/internal/config"
	"github.com/ledgerkit/statement-ingest/internal/dates"
	"github.com/ledgerkit/statement-ingest/internal/ingest"
	"github.com/ledgerkit/statement-ingest/internal/logger"
	"github.com/ledgerkit/statement-ingest/internal/models"
	"github.com/ledgerkit/statement-ingest/internal/storage"
	"github.com/ledgerkit/statement-ingest/internal/writer"
)

const version = "1.0.0"

func main() {
	typeFlag := flag.String("type", "", "Document type: amex, citi, payslip (auto-detected if omitted)")
	serveFlag := flag.Bool("serve", false, "Run the HTTP API server instead of ingesting files")
	exportFlag := flag.String("export", "", "Export a month (YYYY-MM) of transactions as CSV to stdout")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	helpFlag := flag.Bool("help", false, "Show usage help")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Statement Ingest
Document-to-ledger pipeline for card statements and payslips.

Parses Amex and Citi statement PDFs and payslips, categorizes
transactions, and loads them into a deduplicated ledger.

Usage:
  statement-ingest [flags] <statement.pdf> [statement2.pdf ...]
  statement-ingest -serve
  statement-ingest -export 2024-04

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Auto-detect document type and ingest
  statement-ingest statement.pdf

  # Specify document type explicitly
  statement-ingest -type=amex april.pdf may.pdf

  # Ingest a payslip
  statement-ingest -type=payslip payslip.pdf

  # Run the API server
  statement-ingest -serve

  # Export one month of the ledger as CSV
  statement-ingest -export 2024-04 > april.csv

Supported document types:
  amex      - American Express statements
  citi      - Citibank statements
  payslip   - Payslips (income records)

DATABASE_URL must point at a PostgreSQL database. A .env file in the
working directory is loaded if present.
`)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("statement-ingest v%s\n", version)
		os.Exit(0)
	}
	if *helpFlag || (!*serveFlag && *exportFlag == "" && flag.NArg() == 0) {
		flag.Usage()
		os.Exit(0)
	}

	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	docType := models.DocumentType(strings.ToLower(*typeFlag))
	switch docType {
	case "", models.DocAmex, models.DocCiti, models.DocPayslip:
	default:
		log.Fatal().Str("type", *typeFlag).Msg("unknown document type; use amex, citi, or payslip")
	}

	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}

	ctx := context.Background()
	pool, err := storage.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	store, err := storage.New(pool, log)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	if *serveFlag {
		coordinator := ingest.NewCoordinator(store, log)
		app := fiber.New(fiber.Config{
			BodyLimit: 32 << 20,
			AppName:   "statement-ingest v" + version,
		})
		app.Use(recover.New())
		app.Use(fiberlogger.New())

		h := &api.Handler{Store: store, Coordinator: coordinator, Log: log}
		h.RegisterRoutes(app)

		log.Info().Str("port", cfg.Port).Msg("starting API server")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
		return
	}

	if *exportFlag != "" {
		start, last, err := dates.MonthBounds(*exportFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid export month")
		}
		txns, err := store.ListTransactions(ctx, start, last.AddDate(0, 0, 1))
		if err != nil {
			log.Fatal().Err(err).Msg("export query failed")
		}
		w := &writer.CSVWriter{}
		if err := w.Write(os.Stdout, txns); err != nil {
			log.Fatal().Err(err).Msg("csv export failed")
		}
		return
	}

	coordinator := ingest.NewCoordinator(store, log)
	exitCode := 0
	for _, path := range flag.Args() {
		result, err := coordinator.IngestFile(ctx, path, docType)
		if err != nil {
			log.Error().Err(err).Str("file", path).Msg("ingestion failed")
			exitCode = 1
			continue
		}
		fmt.Printf("%s: %s parsed=%d new=%d duplicate=%d dropped=%d failed=%d\n",
			path, result.Type, result.Parsed, result.New,
			result.Duplicate, result.Dropped, result.Failed)
	}
	os.Exit(exitCode)
}
