package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ledgerkit/statement-ingest/internal/category"
	"github.com/ledgerkit/statement-ingest/internal/dedup"
	"github.com/ledgerkit/statement-ingest/internal/extractor"
	"github.com/ledgerkit/statement-ingest/internal/models"
	"github.com/ledgerkit/statement-ingest/internal/parser"
)

// Coordinator runs the ingestion pipeline against a Store.
type Coordinator struct {
	store Store
	log   zerolog.Logger
}

func NewCoordinator(store Store, log zerolog.Logger) *Coordinator {
	return &Coordinator{store: store, log: log}
}

// IngestFile extracts text from a file and ingests it. PDF files go
// through the multi-method extractor; anything else is read as plain
// text. docType may be empty, in which case the type is detected from
// the content.
func (c *Coordinator) IngestFile(ctx context.Context, path string, docType models.DocumentType) (*models.ImportResult, error) {
	var text string
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		extracted, err := extractor.ExtractText(path)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", path, err)
		}
		text = extracted
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		text = string(data)
	}
	return c.IngestText(ctx, text, docType)
}

// IngestText runs the pipeline on already-extracted text. Statements
// are parsed, classified, hashed, and persisted one record at a time;
// a persistence failure on one record does not stop the rest. Payslips
// produce a single income record.
func (c *Coordinator) IngestText(ctx context.Context, text string, docType models.DocumentType) (*models.ImportResult, error) {
	documentID := uuid.NewString()
	log := c.log.With().Str("document_id", documentID).Logger()

	if docType == "" {
		detected, err := parser.AutoDetect(text)
		if err != nil {
			return nil, err
		}
		docType = detected
		log.Debug().Str("type", string(docType)).Msg("document type detected")
	}

	result := &models.ImportResult{DocumentID: documentID, Type: docType}

	if docType == models.DocPayslip {
		if err := c.ingestPayslip(ctx, text, result); err != nil {
			return nil, err
		}
	} else {
		if err := c.ingestStatement(ctx, text, docType, result); err != nil {
			return nil, err
		}
	}

	if result.New > 0 {
		c.store.InvalidateSummaries()
	}
	log.Info().
		Str("type", string(docType)).
		Int("parsed", result.Parsed).
		Int("new", result.New).
		Int("duplicate", result.Duplicate).
		Int("dropped", result.Dropped).
		Int("failed", result.Failed).
		Msg("document ingested")
	return result, nil
}

func (c *Coordinator) ingestStatement(ctx context.Context, text string, docType models.DocumentType, result *models.ImportResult) error {
	p, err := parser.New(docType)
	if err != nil {
		return err
	}
	statement, err := p.Parse(text)
	if err != nil {
		return fmt.Errorf("parse %s statement: %w", docType, err)
	}
	result.Parsed = len(statement.Transactions)
	result.Dropped = statement.Dropped

	rules, err := c.rules(ctx)
	if err != nil {
		return err
	}

	for _, raw := range statement.Transactions {
		t := &models.Transaction{
			Date:        raw.Date,
			Description: raw.Description,
			Amount:      raw.Amount,
			Category:    rules.Classify(raw.Description),
			AccountType: p.AccountType(),
			CardMember:  raw.CardMember,
		}
		dedup.HashTransaction(t)

		inserted, err := c.store.InsertTransaction(ctx, t)
		if err != nil {
			result.Failed++
			c.log.Warn().Err(err).
				Str("description", t.Description).
				Msg("transaction not persisted")
			continue
		}
		if inserted {
			result.New++
		} else {
			result.Duplicate++
		}
	}
	return nil
}

func (c *Coordinator) ingestPayslip(ctx context.Context, text string, result *models.ImportResult) error {
	record, err := parser.ParsePayslip(text)
	if err != nil {
		return fmt.Errorf("parse payslip: %w", err)
	}
	result.Parsed = 1

	inserted, err := c.store.InsertIncome(ctx, record)
	if err != nil {
		result.Failed = 1
		c.log.Warn().Err(err).Msg("income record not persisted")
		return nil
	}
	if inserted {
		result.New = 1
	} else {
		result.Duplicate = 1
	}
	return nil
}

// rules assembles the current classification snapshot from persisted
// rules and keyword lists.
func (c *Coordinator) rules(ctx context.Context) (*category.RuleSet, error) {
	userRules, err := c.store.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	keywords, err := c.store.ListKeywords(ctx)
	if err != nil {
		return nil, fmt.Errorf("load keywords: %w", err)
	}
	return category.Assemble(userRules, keywords), nil
}
