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
	"log/slog"
	"sync/atomic"
)

// -----------------------------------------------------------------------------
// Degradation Mode
// -----------------------------------------------------------------------------

// DegradationMode represents the operational mode of the knowledge store.
type DegradationMode int32

const (
	// ModeNormal indicates the primary store is serving requests.
	ModeNormal DegradationMode = iota
	// ModeDegraded indicates requests are served from the fallback store.
	ModeDegraded
)

// String returns the string representation of DegradationMode.
func (m DegradationMode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Fallback Store
// -----------------------------------------------------------------------------

// FallbackStore serves from a primary store and fails over to a
// secondary one when the primary errors. Once degraded, the next
// primary success restores normal mode, so a transient weaviate outage
// costs search quality rather than analysis coverage.
//
// Thread Safety: safe for concurrent use.
type FallbackStore struct {
	primary   Store
	secondary Store
	mode      atomic.Int32
	logger    *slog.Logger
}

// NewFallbackStore composes primary and secondary stores. Logger may be
// nil, in which case slog.Default() is used.
func NewFallbackStore(primary, secondary Store, logger *slog.Logger) *FallbackStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackStore{
		primary:   primary,
		secondary: secondary,
		logger:    logger.With(slog.String("component", "knowledge_fallback")),
	}
}

// Mode returns the current degradation mode.
func (f *FallbackStore) Mode() DegradationMode {
	return DegradationMode(f.mode.Load())
}

// Search queries the primary store and falls back to the secondary on
// error. The primary error is logged, not returned: the fallback result
// stands on its own.
func (f *FallbackStore) Search(ctx context.Context, query string, k int) ([]Snippet, error) {
	snippets, err := f.primary.Search(ctx, query, k)
	if err == nil {
		f.recover()
		return snippets, nil
	}
	f.degrade(err)
	return f.secondary.Search(ctx, query, k)
}

// Add writes to both stores so the secondary is warm when the primary
// drops out. A primary failure degrades but does not fail the add as
// long as the secondary accepted it.
func (f *FallbackStore) Add(ctx context.Context, doc Document) error {
	if err := f.secondary.Add(ctx, doc); err != nil {
		return err
	}
	if err := f.primary.Add(ctx, doc); err != nil {
		f.degrade(err)
		return nil
	}
	f.recover()
	return nil
}

// degrade flips to degraded mode, logging only on transition.
func (f *FallbackStore) degrade(err error) {
	if f.mode.Swap(int32(ModeDegraded)) != int32(ModeDegraded) {
		f.logger.Warn("knowledge store degraded, serving from fallback",
			slog.String("reason", err.Error()))
	}
}

// recover flips back to normal mode, logging only on transition.
func (f *FallbackStore) recover() {
	if f.mode.Swap(int32(ModeNormal)) != int32(ModeNormal) {
		f.logger.Info("knowledge store recovered, primary available")
	}
}
