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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededMemoryStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	require.NoError(t, Seed(context.Background(), store))
	return store
}

func TestMemoryStore_SearchRanksByOverlap(t *testing.T) {
	store := seededMemoryStore(t)

	snippets, err := store.Search(context.Background(), "high cpu usage remediation", 2)
	require.NoError(t, err)
	require.NotEmpty(t, snippets)

	assert.Equal(t, "cpu", snippets[0].Metadata["category"])
	assert.Greater(t, snippets[0].Score, 0.0)
	assert.LessOrEqual(t, len(snippets), 2)
}

func TestMemoryStore_SearchRespectsK(t *testing.T) {
	store := seededMemoryStore(t)

	snippets, err := store.Search(context.Background(), "usage", 1)
	require.NoError(t, err)
	assert.Len(t, snippets, 1)

	snippets, err = store.Search(context.Background(), "usage", 0)
	require.NoError(t, err)
	assert.Empty(t, snippets)
}

func TestMemoryStore_NoMatchReturnsEmpty(t *testing.T) {
	store := seededMemoryStore(t)

	snippets, err := store.Search(context.Background(), "quantum entanglement", 3)
	require.NoError(t, err)
	assert.Empty(t, snippets)
}

func TestMemoryStore_EmptyQuery(t *testing.T) {
	store := seededMemoryStore(t)

	snippets, err := store.Search(context.Background(), "a an", 3)
	require.NoError(t, err)
	assert.Empty(t, snippets, "terms shorter than three chars are dropped")
}

func TestDefaultCorpus_CoversDetectorFamilies(t *testing.T) {
	categories := make(map[string]bool)
	for _, doc := range DefaultCorpus() {
		categories[doc.Category] = true
		assert.NotEmpty(t, doc.Content)
		assert.NotEmpty(t, doc.Issue)
	}
	for _, want := range []string{"cpu", "memory", "load", "network"} {
		assert.True(t, categories[want], "missing corpus category %q", want)
	}
}

// ----------------------------------------------------------------------------
// Fallback store
// ----------------------------------------------------------------------------

// flakyStore fails searches until healed.
type flakyStore struct {
	inner  Store
	broken bool
}

func (f *flakyStore) Search(ctx context.Context, query string, k int) ([]Snippet, error) {
	if f.broken {
		return nil, errors.New("connection refused")
	}
	return f.inner.Search(ctx, query, k)
}

func (f *flakyStore) Add(ctx context.Context, doc Document) error {
	if f.broken {
		return errors.New("connection refused")
	}
	return f.inner.Add(ctx, doc)
}

func TestFallbackStore_DegradesAndRecovers(t *testing.T) {
	primary := &flakyStore{inner: seededMemoryStore(t)}
	secondary := seededMemoryStore(t)
	fallback := NewFallbackStore(primary, secondary, nil)

	assert.Equal(t, ModeNormal, fallback.Mode())

	primary.broken = true
	snippets, err := fallback.Search(context.Background(), "high cpu usage", 2)
	require.NoError(t, err, "fallback must absorb primary failure")
	assert.NotEmpty(t, snippets)
	assert.Equal(t, ModeDegraded, fallback.Mode())

	primary.broken = false
	_, err = fallback.Search(context.Background(), "high cpu usage", 2)
	require.NoError(t, err)
	assert.Equal(t, ModeNormal, fallback.Mode())
}

func TestFallbackStore_AddKeepsSecondaryWarm(t *testing.T) {
	primary := &flakyStore{inner: NewMemoryStore(), broken: true}
	secondary := NewMemoryStore()
	fallback := NewFallbackStore(primary, secondary, nil)

	doc := Document{Content: "swap pressure runbook", Category: "memory", Issue: "swap"}
	require.NoError(t, fallback.Add(context.Background(), doc),
		"add succeeds when the secondary accepted the document")
	assert.Equal(t, ModeDegraded, fallback.Mode())

	snippets, err := secondary.Search(context.Background(), "swap pressure", 1)
	require.NoError(t, err)
	assert.Len(t, snippets, 1)
}
