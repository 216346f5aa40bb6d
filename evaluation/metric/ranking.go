//
// Tencent is pleased to support the open source community by making trpc-evalbench-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-evalbench-go is licensed under the Apache License Version 2.0.
//
//

package metric

import (
	"encoding/json"
	"math"
	"strings"

	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/internal/textutil"
)

// Ranking metric cutoffs.
const (
	defaultMRRCutoff  = 3
	defaultMAPCutoff  = 10
	defaultNDCGCutoff = 10
)

// rankedCandidates parses a prediction into an ordered candidate list. A JSON
// array is taken as-is; otherwise the text is split on newlines, falling back
// to semicolons.
func rankedCandidates(prediction string) []string {
	var parsed []string
	if err := json.Unmarshal([]byte(prediction), &parsed); err == nil && len(parsed) > 0 {
		return parsed
	}
	sep := "\n"
	if !strings.Contains(prediction, "\n") {
		sep = ";"
	}
	parts := strings.Split(prediction, sep)
	candidates := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			candidates = append(candidates, trimmed)
		}
	}
	return candidates
}

// firstHitRank returns the 1-based rank of the first candidate matching the
// reference, or 0 when no candidate matches within the cutoff.
func firstHitRank(prediction, reference string, cutoff int) int {
	target := textutil.Normalize(reference)
	for i, candidate := range rankedCandidates(prediction) {
		if i >= cutoff {
			break
		}
		if textutil.Normalize(candidate) == target {
			return i + 1
		}
	}
	return 0
}

// mrrScore is the mean reciprocal rank of the first correct hit at the cutoff.
func mrrScore(pairs []Pair, cutoff int) float64 {
	if len(pairs) == 0 {
		return 0
	}
	sum := 0.0
	for _, pair := range pairs {
		if rank := firstHitRank(pair.Prediction, pair.Reference, cutoff); rank > 0 {
			sum += 1 / float64(rank)
		}
	}
	return sum / float64(len(pairs))
}

// mapScore is the mean average precision at the cutoff. With a single relevant
// item per query, average precision reduces to the reciprocal rank of the hit.
func mapScore(pairs []Pair, cutoff int) float64 {
	return mrrScore(pairs, cutoff)
}

// ndcgScore is the mean normalized discounted cumulative gain at the cutoff.
// With one relevant item the ideal DCG is 1, so NDCG is 1/log2(rank+1).
func ndcgScore(pairs []Pair, cutoff int) float64 {
	if len(pairs) == 0 {
		return 0
	}
	sum := 0.0
	for _, pair := range pairs {
		if rank := firstHitRank(pair.Prediction, pair.Reference, cutoff); rank > 0 {
			sum += 1 / math.Log2(float64(rank)+1)
		}
	}
	return sum / float64(len(pairs))
}
