// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package collector produces telemetry snapshots for the pipeline. The
// simulated source generates randomized but plausible host metrics;
// the replay source reads recorded snapshots from a JSONL file.
package collector

import (
	"context"
	"errors"

	"github.com/AleutianAI/AleutianSentinel/services/monitor/datatypes"
)

// ErrSourceExhausted reports that a finite source has no more
// snapshots. The simulated source never returns it.
var ErrSourceExhausted = errors.New("telemetry source exhausted")

// Source yields one snapshot per call. The consumer decides whether to
// continue; a transport error inside one call must not poison the
// next.
type Source interface {
	// Next blocks until a snapshot is due, the source is exhausted
	// (ErrSourceExhausted), or the context is canceled.
	Next(ctx context.Context) (datatypes.Snapshot, error)

	// Stop releases any resources held by the source. Idempotent.
	Stop() error
}
