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
	"math"

	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/internal/textutil"
)

// meteorScore computes the per-pair METEOR score and averages it.
func meteorScore(pairs []Pair) float64 {
	if len(pairs) == 0 {
		return 0
	}
	sum := 0.0
	for _, pair := range pairs {
		sum += meteorPair(pair.Reference, pair.Prediction)
	}
	return sum / float64(len(pairs))
}

// meteorPair computes METEOR for one pair: unigram alignment in prediction
// order, harmonic mean weighted toward recall, and a chunk fragmentation penalty.
func meteorPair(reference, prediction string) float64 {
	refTokens := textutil.Tokenize(reference)
	predTokens := textutil.Tokenize(prediction)
	if len(refTokens) == 0 || len(predTokens) == 0 {
		return 0
	}

	// Greedy left-to-right alignment of prediction unigrams to reference positions.
	used := make([]bool, len(refTokens))
	alignment := make([]int, 0, len(predTokens))
	for _, token := range predTokens {
		for j, refToken := range refTokens {
			if !used[j] && refToken == token {
				used[j] = true
				alignment = append(alignment, j)
				break
			}
		}
	}
	matches := len(alignment)
	if matches == 0 {
		return 0
	}

	precision := float64(matches) / float64(len(predTokens))
	recall := float64(matches) / float64(len(refTokens))
	fMean := 10 * precision * recall / (recall + 9*precision)

	// Count contiguous chunks in the alignment.
	chunks := 1
	for i := 1; i < len(alignment); i++ {
		if alignment[i] != alignment[i-1]+1 {
			chunks++
		}
	}
	penalty := 0.5 * math.Pow(float64(chunks)/float64(matches), 3)
	return fMean * (1 - penalty)
}
