// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package knowledge provides the runbook knowledge store the solution
// synthesizer searches. Two implementations exist: a weaviate-backed
// store with BM25 search and an in-memory keyword store. FallbackStore
// composes them so the pipeline degrades instead of failing when
// weaviate is unreachable.
//
// Search is best-effort by contract: an empty result is a valid
// response and is never an error the caller must special-case.
package knowledge

import "context"

// Snippet is one ranked search result.
type Snippet struct {
	Content  string            `json:"content"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Document is one runbook entry before chunking.
type Document struct {
	Content  string `json:"content"`
	Category string `json:"category"`
	Issue    string `json:"issue"`
}

// Store is the knowledge lookup capability the analysis path consumes.
type Store interface {
	// Search returns up to k snippets ranked by relevance to query.
	Search(ctx context.Context, query string, k int) ([]Snippet, error)

	// Add ingests a document, chunking it as the implementation sees
	// fit.
	Add(ctx context.Context, doc Document) error
}
