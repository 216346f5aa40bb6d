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

// multiClassF1 maps distinct normalized strings to integer label ids and
// computes micro/macro/weighted F1 plus the Matthews correlation coefficient.
func multiClassF1(pairs []Pair) map[string]float64 {
	labelIDs := make(map[string]int)
	labelID := func(s string) int {
		key := textutil.Normalize(s)
		id, ok := labelIDs[key]
		if !ok {
			id = len(labelIDs)
			labelIDs[key] = id
		}
		return id
	}
	predicted := make([]int, 0, len(pairs))
	actual := make([]int, 0, len(pairs))
	for _, pair := range pairs {
		predicted = append(predicted, labelID(pair.Prediction))
		actual = append(actual, labelID(pair.Reference))
	}
	numClasses := len(labelIDs)
	if numClasses == 0 || len(pairs) == 0 {
		return map[string]float64{"micro_f1": 0, "macro_f1": 0, "weighted_f1": 0, "mcc": 0}
	}

	tp := make([]int, numClasses)
	fp := make([]int, numClasses)
	fn := make([]int, numClasses)
	support := make([]int, numClasses)
	correct := 0
	for i := range predicted {
		support[actual[i]]++
		if predicted[i] == actual[i] {
			tp[actual[i]]++
			correct++
		} else {
			fp[predicted[i]]++
			fn[actual[i]]++
		}
	}

	var macroSum, weightedSum float64
	for c := 0; c < numClasses; c++ {
		f1 := classF1(tp[c], fp[c], fn[c])
		macroSum += f1
		weightedSum += f1 * float64(support[c])
	}
	total := float64(len(pairs))
	return map[string]float64{
		// Micro F1 equals accuracy in single-label multi-class classification.
		"micro_f1":    float64(correct) / total,
		"macro_f1":    macroSum / float64(numClasses),
		"weighted_f1": weightedSum / total,
		"mcc":         matthewsCorrelation(predicted, actual, numClasses),
	}
}

// classF1 computes the F1 of one class from its confusion counts.
func classF1(tp, fp, fn int) float64 {
	if tp == 0 {
		return 0
	}
	precision := float64(tp) / float64(tp+fp)
	recall := float64(tp) / float64(tp+fn)
	return 2 * precision * recall / (precision + recall)
}

// matthewsCorrelation computes the multi-class MCC from the full confusion matrix.
func matthewsCorrelation(predicted, actual []int, numClasses int) float64 {
	confusion := make([][]float64, numClasses)
	for i := range confusion {
		confusion[i] = make([]float64, numClasses)
	}
	for i := range predicted {
		confusion[actual[i]][predicted[i]]++
	}

	var correct, total float64
	rowSums := make([]float64, numClasses)
	colSums := make([]float64, numClasses)
	for i := 0; i < numClasses; i++ {
		correct += confusion[i][i]
		for j := 0; j < numClasses; j++ {
			total += confusion[i][j]
			rowSums[i] += confusion[i][j]
			colSums[j] += confusion[i][j]
		}
	}

	var dotRC, sumR2, sumC2 float64
	for i := 0; i < numClasses; i++ {
		dotRC += rowSums[i] * colSums[i]
		sumR2 += rowSums[i] * rowSums[i]
		sumC2 += colSums[i] * colSums[i]
	}
	numerator := correct*total - dotRC
	denominator := math.Sqrt(total*total-sumR2) * math.Sqrt(total*total-sumC2)
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

// relevanceErrorRate is the fraction of pairs whose word-overlap similarity
// falls below the relevance threshold.
func relevanceErrorRate(pairs []Pair) float64 {
	if len(pairs) == 0 {
		return 0
	}
	const relevanceThreshold = 0.3
	errors := 0
	for _, pair := range pairs {
		if textutil.Jaccard(pair.Prediction, pair.Reference) < relevanceThreshold {
			errors++
		}
	}
	return float64(errors) / float64(len(pairs))
}
