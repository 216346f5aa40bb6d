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
	"context"

	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/internal/rouge"
)

var rougeTypes = []string{"rouge1", "rouge2", "rougeL"}

// rougeScores computes stemmed ROUGE-1/2/L F-measures averaged over all pairs.
func rougeScores(ctx context.Context, pairs []Pair) (map[string]float64, error) {
	sums := make(map[string]float64, len(rougeTypes))
	for _, pair := range pairs {
		scores, err := rouge.Compute(ctx, pair.Reference, pair.Prediction,
			rouge.WithRougeTypes(rougeTypes...),
			rouge.WithStemmer(true),
		)
		if err != nil {
			return nil, err
		}
		for rougeType, score := range scores {
			sums[rougeType] += score.FMeasure
		}
	}
	results := make(map[string]float64, len(rougeTypes))
	n := float64(len(pairs))
	for _, rougeType := range rougeTypes {
		avg := 0.0
		if n > 0 {
			avg = sums[rougeType] / n
		}
		results[rougeType] = avg
	}
	return results, nil
}
