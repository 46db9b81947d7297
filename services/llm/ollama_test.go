// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOllamaClient_RequiresConfig(t *testing.T) {
	_, err := NewOllamaClient("", "some-model", nil)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = NewOllamaClient("http://localhost:11434", "", nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNewOpenAIClient_RequiresKey(t *testing.T) {
	_, err := NewOpenAIClient("", "gpt-4o-mini", nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOllamaGenerate(t *testing.T) {
	var gotReq ollamaGenerateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(ollamaGenerateResponse{
			Model:    gotReq.Model,
			Response: "disk I/O saturation on sda",
			Done:     true,
		})
	}))
	defer server.Close()

	client, err := NewOllamaClient(server.URL, "test-model", nil)
	require.NoError(t, err)

	temp := float32(0)
	out, err := client.Generate(context.Background(), "analyze this", GenerationParams{Temperature: &temp})
	require.NoError(t, err)

	assert.Equal(t, "disk I/O saturation on sda", out)
	assert.Equal(t, "test-model", gotReq.Model)
	assert.Equal(t, "analyze this", gotReq.Prompt)
	assert.False(t, gotReq.Stream)
}

func TestOllamaGenerate_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	client, err := NewOllamaClient(server.URL, "missing", nil)
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "analyze", GenerationParams{})
	assert.ErrorContains(t, err, "404")
}
