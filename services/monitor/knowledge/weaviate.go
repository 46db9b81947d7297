// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package knowledge

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var weaviateTracer = otel.Tracer("sentinel.knowledge.weaviate")

// WeaviateConfig configures the weaviate-backed store.
type WeaviateConfig struct {
	// URL is the weaviate server URL (e.g. "http://localhost:8080").
	URL string

	// ClassName is the class holding runbook chunks. Default: Runbook.
	ClassName string

	// ChunkSize / ChunkOverlap control ingestion splitting.
	ChunkSize    int
	ChunkOverlap int

	// Logger for store operations. Default: slog.Default().
	Logger *slog.Logger
}

func (c *WeaviateConfig) applyDefaults() {
	if c.ClassName == "" {
		c.ClassName = "Runbook"
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = 1000
	}
	if c.ChunkOverlap == 0 {
		c.ChunkOverlap = c.ChunkSize / 10
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// WeaviateStore is a Store backed by weaviate BM25 search. Runbooks
// are split into chunks at ingestion; object IDs are content hashes so
// re-seeding is idempotent.
type WeaviateStore struct {
	client    *weaviate.Client
	className string
	splitter  textsplitter.TextSplitter
	logger    *slog.Logger
}

// NewWeaviateStore connects to weaviate and ensures the schema exists.
func NewWeaviateStore(ctx context.Context, config WeaviateConfig) (*WeaviateStore, error) {
	config.applyDefaults()
	if config.URL == "" {
		return nil, fmt.Errorf("weaviate url must not be empty")
	}

	cfg := weaviate.Config{Host: config.URL, Scheme: "http"}
	if strings.HasPrefix(config.URL, "https://") {
		cfg.Scheme = "https"
		cfg.Host = strings.TrimPrefix(config.URL, "https://")
	} else if strings.HasPrefix(config.URL, "http://") {
		cfg.Host = strings.TrimPrefix(config.URL, "http://")
	}

	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}

	store := &WeaviateStore{
		client:    client,
		className: config.ClassName,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(config.ChunkSize),
			textsplitter.WithChunkOverlap(config.ChunkOverlap),
		),
		logger: config.Logger.With(slog.String("component", "weaviate_store")),
	}
	if err := store.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// runbookSchema returns the class definition for runbook chunks. BM25
// needs no vectorizer, which keeps the store usable without an
// embedding service.
func (w *WeaviateStore) runbookSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       w.className,
		Description: "Operational runbook chunks for issue remediation lookup",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{
				Name:         "content",
				DataType:     []string{"text"},
				Description:  "Runbook text chunk",
				Tokenization: "word",
			},
			{
				Name:            "category",
				DataType:        []string{"text"},
				Description:     "Metric family: cpu, memory, load, network",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "issue",
				DataType:        []string{"text"},
				Description:     "Issue class within the category",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
		},
	}
}

// ensureSchema creates the runbook class if it doesn't exist.
// Idempotent.
func (w *WeaviateStore) ensureSchema(ctx context.Context) error {
	_, err := w.client.Schema().ClassGetter().WithClassName(w.className).Do(ctx)
	if err == nil {
		w.logger.Info("runbook schema already exists", "class", w.className)
		return nil
	}

	w.logger.Info("creating runbook schema", "class", w.className)
	if err := w.client.Schema().ClassCreator().WithClass(w.runbookSchema()).Do(ctx); err != nil {
		return fmt.Errorf("creating runbook schema: %w", err)
	}
	return nil
}

// Add splits the document and batch-imports the chunks. Object IDs are
// derived from the chunk content hash, so ingesting the same document
// twice overwrites rather than duplicates.
func (w *WeaviateStore) Add(ctx context.Context, doc Document) error {
	ctx, span := weaviateTracer.Start(ctx, "WeaviateStore.Add")
	defer span.End()
	span.SetAttributes(attribute.String("knowledge.category", doc.Category))

	chunks, err := w.splitter.SplitText(doc.Content)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("splitting runbook: %w", err)
	}
	if len(chunks) == 0 {
		w.logger.Warn("no chunks produced for runbook", "category", doc.Category, "issue", doc.Issue)
		return nil
	}

	objects := make([]*models.Object, len(chunks))
	for i, chunk := range chunks {
		hash := sha256.Sum256([]byte(chunk))
		chunkUUID, _ := uuid.FromBytes(hash[:16])

		objects[i] = &models.Object{
			Class: w.className,
			ID:    strfmt.UUID(chunkUUID.String()),
			Properties: map[string]interface{}{
				"content":  chunk,
				"category": doc.Category,
				"issue":    doc.Issue,
			},
		}
	}

	resp, err := w.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("batch import to weaviate: %w", err)
	}
	for _, item := range resp {
		if item.Result != nil && item.Result.Errors != nil && len(item.Result.Errors.Error) > 0 {
			for _, errItem := range item.Result.Errors.Error {
				w.logger.Warn("weaviate batch item failed", "error", errItem.Message)
			}
		}
	}

	w.logger.Info("ingested runbook", "category", doc.Category, "issue", doc.Issue, "chunks", len(chunks))
	return nil
}

// Search runs a BM25 query over runbook chunks.
func (w *WeaviateStore) Search(ctx context.Context, query string, k int) ([]Snippet, error) {
	ctx, span := weaviateTracer.Start(ctx, "WeaviateStore.Search")
	defer span.End()
	span.SetAttributes(attribute.Int("knowledge.k", k))

	if k <= 0 {
		return nil, nil
	}

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "category"},
		{Name: "issue"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "score"}}},
	}

	result, err := w.client.GraphQL().Get().
		WithClassName(w.className).
		WithFields(fields...).
		WithBM25(w.client.GraphQL().Bm25ArgBuilder().WithQuery(query)).
		WithLimit(k).
		Do(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("weaviate search failed: %w", err)
	}
	if len(result.Errors) > 0 {
		span.SetStatus(codes.Error, result.Errors[0].Message)
		return nil, fmt.Errorf("weaviate search error: %s", result.Errors[0].Message)
	}

	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	objects, ok := data[w.className].([]interface{})
	if !ok {
		return nil, nil
	}

	snippets := make([]Snippet, 0, len(objects))
	for _, obj := range objects {
		m, ok := obj.(map[string]interface{})
		if !ok {
			continue
		}
		snippets = append(snippets, Snippet{
			Content: getString(m, "content"),
			Score:   getScore(m),
			Metadata: map[string]string{
				"category": getString(m, "category"),
				"issue":    getString(m, "issue"),
			},
		})
	}
	return snippets, nil
}

// getString safely extracts a string from a GraphQL result map.
func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// getScore extracts the BM25 score, which weaviate returns as a string
// under _additional.
func getScore(m map[string]interface{}) float64 {
	additional, ok := m["_additional"].(map[string]interface{})
	if !ok {
		return 0
	}
	switch v := additional["score"].(type) {
	case string:
		score, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return score
	case float64:
		return v
	default:
		return 0
	}
}
