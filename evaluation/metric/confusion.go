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
	"fmt"

	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/internal/textutil"
)

// Classification buckets for per-item similarity scores.
const (
	ClassTruePositive  = "TruePositive"
	ClassFalsePositive = "FalsePositive"
	ClassFalseNegative = "FalseNegative"
	ClassTrueNegative  = "TrueNegative"
	ClassUnknown       = "Unknown"
)

// classifyScore buckets a similarity score into a confusion class using fixed
// thresholds: [90,100] TP, [51,89] FP, [11,50] FN, [0,10] TN, anything else Unknown.
func classifyScore(score float64) string {
	switch {
	case score >= 90 && score <= 100:
		return ClassTruePositive
	case score >= 51 && score <= 89:
		return ClassFalsePositive
	case score >= 11 && score <= 50:
		return ClassFalseNegative
	case score >= 0 && score <= 10:
		return ClassTrueNegative
	default:
		return ClassUnknown
	}
}

// confusionReport aggregates per-item scores into the 4-class confusion matrix
// and derives precision/recall/F1/accuracy from it.
func confusionReport(scores []float64) map[string]any {
	counts := map[string]int{
		ClassTruePositive:  0,
		ClassFalsePositive: 0,
		ClassFalseNegative: 0,
		ClassTrueNegative:  0,
		ClassUnknown:       0,
	}
	sum := 0.0
	for _, score := range scores {
		counts[classifyScore(score)]++
		sum += score
	}
	tp := float64(counts[ClassTruePositive])
	fp := float64(counts[ClassFalsePositive])
	fn := float64(counts[ClassFalseNegative])
	tn := float64(counts[ClassTrueNegative])

	precision := safeDiv(tp, tp+fp)
	recall := safeDiv(tp, tp+fn)
	f1 := 0.0
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	average := 0.0
	if len(scores) > 0 {
		average = sum / float64(len(scores))
	}
	return map[string]any{
		"confusion_matrix": counts,
		"precision":        precision,
		"recall":           recall,
		"f1":               f1,
		"accuracy":         safeDiv(tp+tn, tp+fp+fn+tn),
		"average_score":    average,
	}
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// exactMatchScore returns the percentage of predictions exactly matching their
// references after normalization.
func exactMatchScore(predictions, references []string) float64 {
	if len(predictions) == 0 {
		return 0
	}
	matches := 0
	for i := range predictions {
		if textutil.Normalize(predictions[i]) == textutil.Normalize(references[i]) {
			matches++
		}
	}
	return float64(matches) / float64(len(predictions)) * 100
}

// exactMatch scores every pair locally (100 on exact match, 0 otherwise) and
// buckets the scores into the confusion matrix.
func exactMatch(pairs []Pair) map[string]any {
	predictions := make([]string, len(pairs))
	references := make([]string, len(pairs))
	scores := make([]float64, len(pairs))
	for i, pair := range pairs {
		predictions[i] = pair.Prediction
		references[i] = pair.Reference
		if textutil.Normalize(pair.Prediction) == textutil.Normalize(pair.Reference) {
			scores[i] = 100
		}
	}
	report := confusionReport(scores)
	report["score"] = exactMatchScore(predictions, references)
	return report
}

// cosineSimilarity scores every pair through the remote scoring service and
// buckets the scores into the confusion matrix.
func (e *Engine) cosineSimilarity(ctx context.Context, pairs []Pair) (map[string]any, error) {
	if e.scorer == nil {
		return nil, fmt.Errorf("no scoring service configured")
	}
	scores := make([]float64, len(pairs))
	for i, pair := range pairs {
		score, err := e.scorer.Score(ctx, pair.Prediction, pair.Reference)
		if err != nil {
			return nil, fmt.Errorf("score pair %d: %w", i, err)
		}
		scores[i] = score
	}
	report := confusionReport(scores)
	report["score"] = report["average_score"]
	return report, nil
}

// bertBaseline is the rescaling baseline applied to raw BERT-score values.
const bertBaseline = 0.83

// bertScore computes the mean baseline-rescaled BERT-score precision/recall/F1
// through the remote scoring service.
func (e *Engine) bertScore(ctx context.Context, pairs []Pair) (map[string]float64, error) {
	if e.scorer == nil {
		return nil, fmt.Errorf("no scoring service configured")
	}
	var precisionSum, recallSum, f1Sum float64
	for i, pair := range pairs {
		score, err := e.scorer.ScoreBERT(ctx, pair.Prediction, pair.Reference)
		if err != nil {
			return nil, fmt.Errorf("bert-score pair %d: %w", i, err)
		}
		precisionSum += rescale(score.Precision)
		recallSum += rescale(score.Recall)
		f1Sum += rescale(score.F1)
	}
	n := float64(len(pairs))
	if n == 0 {
		return map[string]float64{"precision": 0, "recall": 0, "f1": 0}, nil
	}
	return map[string]float64{
		"precision": precisionSum / n,
		"recall":    recallSum / n,
		"f1":        f1Sum / n,
	}, nil
}

// rescale applies baseline rescaling so scores spread over [0, 1].
func rescale(v float64) float64 {
	return (v - bertBaseline) / (1 - bertBaseline)
}
