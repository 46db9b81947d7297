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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRunbookName(t *testing.T) {
	tests := []struct {
		name         string
		file         string
		wantCategory string
		wantIssue    string
	}{
		{"category and issue", "cpu_high_usage.md", "cpu", "high_usage"},
		{"single segment", "network.md", "network", "general"},
		{"trailing underscore", "disk_.md", "disk_", "general"},
		{"txt extension", "load_spikes.txt", "load", "spikes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			category, issue := parseRunbookName(tt.file)
			assert.Equal(t, tt.wantCategory, category)
			assert.Equal(t, tt.wantIssue, issue)
		})
	}
}

func TestWatcher_IngestsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cpu_throttling.md")
	require.NoError(t, os.WriteFile(path, []byte("check thermal throttling with turbostat"), 0o644))

	store := NewMemoryStore()
	watcher, err := NewWatcher(dir, store, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	require.NoError(t, watcher.ingestExisting(context.Background()))

	snippets, err := store.Search(context.Background(), "thermal throttling", 1)
	require.NoError(t, err)
	require.Len(t, snippets, 1)
	assert.Equal(t, "cpu", snippets[0].Metadata["category"])
	assert.Equal(t, "throttling", snippets[0].Metadata["issue"])
}

func TestWatcher_IgnoresNonRunbookFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.json"), []byte(`{"k":"v"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty_doc.md"), []byte("  \n"), 0o644))

	store := NewMemoryStore()
	watcher, err := NewWatcher(dir, store, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	require.NoError(t, watcher.ingestExisting(context.Background()))

	snippets, err := store.Search(context.Background(), "notes", 5)
	require.NoError(t, err)
	assert.Empty(t, snippets)
}

func TestWatcher_PicksUpNewFile(t *testing.T) {
	dir := t.TempDir()
	store := NewMemoryStore()
	watcher, err := NewWatcher(dir, store, nil)
	require.NoError(t, err)
	watcher.debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- watcher.Start(ctx) }()

	path := filepath.Join(dir, "memory_oom.md")
	require.NoError(t, os.WriteFile(path, []byte("inspect dmesg for oom-killer entries"), 0o644))

	require.Eventually(t, func() bool {
		snippets, err := store.Search(context.Background(), "oom-killer dmesg", 1)
		return err == nil && len(snippets) == 1
	}, 3*time.Second, 25*time.Millisecond)

	watcher.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestNewWatcher_RejectsMissingDir(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "absent"), NewMemoryStore(), nil)
	assert.Error(t, err)
}
