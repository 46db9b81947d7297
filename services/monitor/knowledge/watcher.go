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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher ingests markdown runbooks dropped into a directory. The file
// name carries the taxonomy: "<category>_<issue>.md", e.g.
// "cpu_high_usage.md". Files without an underscore get issue "general".
//
// Writes are debounced so an editor save (often several write events)
// ingests once.
//
// Thread Safety: safe for concurrent use. Ingestion runs on a single
// goroutine.
type Watcher struct {
	dir      string
	store    Store
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger

	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a watcher for dir. The directory must exist.
// Logger may be nil.
func NewWatcher(dir string, store Store, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("runbook dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("runbook path is not a directory: %s", dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fs watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch runbook dir: %w", err)
	}

	return &Watcher{
		dir:      dir,
		store:    store,
		watcher:  fsw,
		debounce: 500 * time.Millisecond,
		logger:   logger.With(slog.String("component", "runbook_watcher")),
		done:     make(chan struct{}),
	}, nil
}

// Start ingests runbooks already present in the directory, then watches
// for new and modified files until the context is canceled or Stop is
// called. Blocking; run on its own goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.ingestExisting(ctx); err != nil {
		return err
	}

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.done:
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isRunbookFile(event.Name) {
				continue
			}
			pending[event.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			for path := range pending {
				if err := w.ingestFile(ctx, path); err != nil {
					w.logger.Error("runbook ingestion failed",
						slog.String("path", path), slog.Any("error", err))
				}
			}
			pending = make(map[string]struct{})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("fs watcher error", slog.Any("error", err))
		}
	}
}

// Stop terminates the watch loop. Idempotent.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()
	})
}

// ingestExisting walks the directory once at startup.
func (w *Watcher) ingestExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("read runbook dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !isRunbookFile(entry.Name()) {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		if err := w.ingestFile(ctx, path); err != nil {
			w.logger.Error("runbook ingestion failed",
				slog.String("path", path), slog.Any("error", err))
		}
	}
	return nil
}

func (w *Watcher) ingestFile(ctx context.Context, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		return nil
	}

	category, issue := parseRunbookName(filepath.Base(path))
	doc := Document{
		Content:  string(content),
		Category: category,
		Issue:    issue,
	}
	if err := w.store.Add(ctx, doc); err != nil {
		return err
	}
	w.logger.Info("ingested runbook from watch dir",
		slog.String("file", filepath.Base(path)),
		slog.String("category", category),
		slog.String("issue", issue))
	return nil
}

func isRunbookFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".md" || ext == ".txt"
}

// parseRunbookName splits "<category>_<issue>.md" at the first
// underscore.
func parseRunbookName(name string) (category, issue string) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	category, issue, found := strings.Cut(stem, "_")
	if !found || issue == "" {
		return stem, "general"
	}
	return category, issue
}
