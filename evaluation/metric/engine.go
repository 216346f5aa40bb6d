//
// Tencent is pleased to support the open source community by making trpc-evalbench-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-evalbench-go is licensed under the Apache License Version 2.0.
//
//

// Package metric provides the evaluation metric engine. Given paired
// prediction/reference strings it computes a closed set of named NLP metrics.
package metric

import (
	"context"
	"fmt"
	"strings"

	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/record"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/similarity"
)

// Pair is one prediction/reference string pair.
type Pair struct {
	Prediction string
	Reference  string
}

// PairsFromModelResult flattens a model's grouped result rows into prediction/
// reference pairs. Values are trimmed; rows where both sides are empty are skipped.
func PairsFromModelResult(mr record.ModelResult) []Pair {
	var pairs []Pair
	for _, group := range mr.Groups {
		for _, row := range group.Rows {
			prediction := strings.TrimSpace(row.Response)
			reference := strings.TrimSpace(row.Answer)
			if prediction == "" && reference == "" {
				continue
			}
			pairs = append(pairs, Pair{Prediction: prediction, Reference: reference})
		}
	}
	return pairs
}

// Engine computes named metrics over prediction/reference pairs.
type Engine struct {
	scorer similarity.Scorer
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithScorer injects the remote semantic scoring client used by
// Cosine Similarity and BERT Score.
func WithScorer(scorer similarity.Scorer) EngineOption {
	return func(e *Engine) { e.scorer = scorer }
}

// NewEngine creates a metric engine.
func NewEngine(opt ...EngineOption) *Engine {
	e := &Engine{}
	for _, o := range opt {
		o(e)
	}
	return e
}

// Calculate computes every requested metric and accumulates all results into
// one map keyed by metric name. A single metric's failure (including an
// unsupported name) aborts the whole calculation; no partial results are
// returned. This is a deliberate design choice so a metric record is either
// complete or absent.
func (e *Engine) Calculate(ctx context.Context, names []string, pairs []Pair) (map[string]any, error) {
	results := make(map[string]any, len(names))
	for _, name := range names {
		result, err := e.calculateOne(ctx, name, pairs)
		if err != nil {
			return nil, fmt.Errorf("calculate %s: %w", name, err)
		}
		results[name] = result
	}
	return results, nil
}

func (e *Engine) calculateOne(ctx context.Context, name string, pairs []Pair) (any, error) {
	switch name {
	case MetricBLEU:
		return bleuScores(pairs), nil
	case MetricROUGE:
		return rougeScores(ctx, pairs)
	case MetricMETEOR:
		return meteorScore(pairs), nil
	case MetricMultiClassF1:
		return multiClassF1(pairs), nil
	case MetricBERTScore:
		return e.bertScore(ctx, pairs)
	case MetricRER:
		return relevanceErrorRate(pairs), nil
	case MetricNDCG:
		return ndcgScore(pairs, defaultNDCGCutoff), nil
	case MetricMAP:
		return mapScore(pairs, defaultMAPCutoff), nil
	case MetricMRR:
		return mrrScore(pairs, defaultMRRCutoff), nil
	case MetricCosineSimilarity:
		return e.cosineSimilarity(ctx, pairs)
	case MetricExactMatch:
		return exactMatch(pairs), nil
	default:
		return nil, fmt.Errorf("unsupported metric: %q", name)
	}
}
