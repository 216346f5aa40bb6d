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
	"fmt"
	"math"

	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/internal/textutil"
)

const maxBleuOrder = 4

// bleuScores computes cumulative BLEU-1 through BLEU-4 with add-one smoothing,
// averaged over all pairs.
func bleuScores(pairs []Pair) map[string]float64 {
	sums := make([]float64, maxBleuOrder)
	for _, pair := range pairs {
		reference := textutil.Tokenize(pair.Reference)
		prediction := textutil.Tokenize(pair.Prediction)
		for order := 1; order <= maxBleuOrder; order++ {
			sums[order-1] += sentenceBleu(reference, prediction, order)
		}
	}
	results := make(map[string]float64, maxBleuOrder)
	n := float64(len(pairs))
	for order := 1; order <= maxBleuOrder; order++ {
		avg := 0.0
		if n > 0 {
			avg = sums[order-1] / n
		}
		results[fmt.Sprintf("bleu_%d", order)] = avg
	}
	return results
}

// sentenceBleu computes the cumulative BLEU score up to maxOrder for one pair,
// with uniform weights, add-one smoothing, and the brevity penalty.
func sentenceBleu(reference, prediction []string, maxOrder int) float64 {
	if len(prediction) == 0 || len(reference) == 0 {
		return 0
	}
	logPrecisionSum := 0.0
	for order := 1; order <= maxOrder; order++ {
		refCounts := textutil.NGrams(reference, order)
		predCounts := textutil.NGrams(prediction, order)
		matches := 0
		total := 0
		for gram, cnt := range predCounts {
			total += cnt
			if refCnt, ok := refCounts[gram]; ok {
				matches += minInt(cnt, refCnt)
			}
		}
		// Add-one smoothing keeps higher-order precisions nonzero for short texts.
		precision := (float64(matches) + 1) / (float64(total) + 1)
		logPrecisionSum += math.Log(precision)
	}
	geoMean := math.Exp(logPrecisionSum / float64(maxOrder))
	return brevityPenalty(len(reference), len(prediction)) * geoMean
}

// brevityPenalty penalizes predictions shorter than the reference.
func brevityPenalty(refLen, predLen int) float64 {
	if predLen >= refLen {
		return 1
	}
	return math.Exp(1 - float64(refLen)/float64(predLen))
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
