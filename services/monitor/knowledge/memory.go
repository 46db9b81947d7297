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
	"sort"
	"strings"
	"sync"
)

// MemoryStore ranks documents by keyword overlap with the query. It is
// the terminal fallback when weaviate is unavailable and the default
// store for tests.
//
// Thread Safety: safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	docs []Document
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Add stores the document without chunking; in-memory scoring works on
// whole documents.
func (m *MemoryStore) Add(_ context.Context, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, doc)
	return nil
}

// Search scores every document by the fraction of query terms it
// contains and returns the top k with a non-zero score.
func (m *MemoryStore) Search(_ context.Context, query string, k int) ([]Snippet, error) {
	terms := tokenize(query)
	if len(terms) == 0 || k <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		snippet Snippet
		order   int
	}
	var results []scored
	for i, doc := range m.docs {
		haystack := strings.ToLower(doc.Content + " " + doc.Category + " " + doc.Issue)
		matched := 0
		for _, term := range terms {
			if strings.Contains(haystack, term) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		results = append(results, scored{
			snippet: Snippet{
				Content: doc.Content,
				Score:   float64(matched) / float64(len(terms)),
				Metadata: map[string]string{
					"category": doc.Category,
					"issue":    doc.Issue,
				},
			},
			order: i,
		})
	}

	// Stable by insertion order among equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].snippet.Score != results[j].snippet.Score {
			return results[i].snippet.Score > results[j].snippet.Score
		}
		return results[i].order < results[j].order
	})

	if len(results) > k {
		results = results[:k]
	}
	out := make([]Snippet, len(results))
	for i, r := range results {
		out[i] = r.snippet
	}
	return out, nil
}

// tokenize lowercases and splits a query into terms, dropping noise
// words shorter than three characters.
func tokenize(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != '/'
	})
	var terms []string
	for _, f := range fields {
		if len(f) >= 3 {
			terms = append(terms, f)
		}
	}
	return terms
}
