// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package collector

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianSentinel/services/monitor/datatypes"
)

// ReplaySource reads recorded snapshots from a JSONL file, one JSON
// object per line. Malformed lines are logged and skipped after a
// cooldown, matching live-source behavior on transport errors.
type ReplaySource struct {
	file     *os.File
	scanner  *bufio.Scanner
	cooldown time.Duration
	logger   *slog.Logger
}

// NewReplaySource opens the recording. cooldown is the wait after a
// bad line before the next read.
func NewReplaySource(path string, cooldown time.Duration, logger *slog.Logger) (*ReplaySource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay file: %w", err)
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	return &ReplaySource{
		file:     file,
		scanner:  scanner,
		cooldown: cooldown,
		logger:   logger.With(slog.String("component", "replay_source")),
	}, nil
}

// Next returns the next recorded snapshot, skipping blank and
// malformed lines. Returns ErrSourceExhausted at end of file.
func (r *ReplaySource) Next(ctx context.Context) (datatypes.Snapshot, error) {
	for r.scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return datatypes.Snapshot{}, err
		}
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" {
			continue
		}

		var snapshot datatypes.Snapshot
		if err := json.Unmarshal([]byte(line), &snapshot); err != nil {
			r.logger.Warn("skipping malformed replay line", slog.Any("error", err))
			if r.cooldown > 0 {
				select {
				case <-ctx.Done():
					return datatypes.Snapshot{}, ctx.Err()
				case <-time.After(r.cooldown):
				}
			}
			continue
		}
		return snapshot, nil
	}
	if err := r.scanner.Err(); err != nil {
		// Scanner errors are terminal: Scan never succeeds after one,
		// so the stream is exhausted, not retryable.
		r.logger.Error("replay read failed, stopping", slog.Any("error", err))
		return datatypes.Snapshot{}, fmt.Errorf("read replay file: %v: %w", err, ErrSourceExhausted)
	}
	return datatypes.Snapshot{}, ErrSourceExhausted
}

// Stop closes the recording.
func (r *ReplaySource) Stop() error {
	return r.file.Close()
}
