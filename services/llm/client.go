// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides generative-model backends behind a single
// Client interface. The analysis tiers depend on the interface only;
// whether OpenAI, a local Ollama server, or nothing at all is wired in
// is a configuration decision.
package llm

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when no model backend is configured or
// the backend is unreachable before a request is even attempted.
// Callers treat this as "skip the tier", not as a request failure.
var ErrUnavailable = errors.New("llm backend unavailable")

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// Client is the standard interface for any LLM backend.
type Client interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}
