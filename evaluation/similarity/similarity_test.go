//
// Tencent is pleased to support the open source community by making trpc-evalbench-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-evalbench-go is licensed under the Apache License Version 2.0.
//
//

package similarity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient("")
	require.Error(t, err)
}

func TestScore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accelerator/server/similarity", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "pred", body["prediction"])
		assert.Equal(t, "ref", body["reference"])
		json.NewEncoder(w).Encode(map[string]float64{"score": 87.5})
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)
	score, err := client.Score(context.Background(), "pred", "ref")
	require.NoError(t, err)
	assert.InDelta(t, 87.5, score, 1e-9)
}

func TestScoreBERT(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accelerator/server/bertscore", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]float64{"precision": 0.9, "recall": 0.8, "f1": 0.85})
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)
	score, err := client.ScoreBERT(context.Background(), "pred", "ref")
	require.NoError(t, err)
	assert.InDelta(t, 0.9, score.Precision, 1e-9)
	assert.InDelta(t, 0.85, score.F1, 1e-9)
}

func TestScoreRetriesTransientFailures(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) < 3 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]float64{"score": 42})
	}))
	defer server.Close()

	client, err := NewClient(server.URL, WithAttempts(3))
	require.NoError(t, err)
	score, err := client.Score(context.Background(), "p", "r")
	require.NoError(t, err)
	assert.InDelta(t, 42.0, score, 1e-9)
	assert.EqualValues(t, 3, atomic.LoadInt64(&calls))
}

func TestScoreExhaustsAttempts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewClient(server.URL, WithAttempts(2))
	require.NoError(t, err)
	_, err = client.Score(context.Background(), "p", "r")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}
