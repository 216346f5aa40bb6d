//
// Tencent is pleased to support the open source community by making trpc-evalbench-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-evalbench-go is licensed under the Apache License Version 2.0.
//
//

// Package rouge implements ROUGE scoring for text evaluation.
package rouge

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Score holds ROUGE precision, recall and F-measure.
type Score struct {
	// Precision is the fraction of predicted units that match the reference in range [0, 1].
	Precision float64
	// Recall is the fraction of reference units that are matched by the prediction in range [0, 1].
	Recall float64
	// FMeasure is the harmonic mean of precision and recall in range [0, 1].
	FMeasure float64
}

// fMeasure computes the harmonic mean of precision and recall.
func fMeasure(precision, recall float64) float64 {
	if precision+recall > 0 {
		return 2 * precision * recall / (precision + recall)
	}
	return 0
}

// Option configures Compute.
type Option func(*options)

type options struct {
	rougeTypes []string
	useStemmer bool
}

// WithRougeTypes sets the ROUGE variants to compute, such as "rouge1", "rouge2", or "rougeL".
func WithRougeTypes(types ...string) Option {
	return func(o *options) { o.rougeTypes = types }
}

// WithStemmer enables Porter stemming during tokenization.
func WithStemmer(useStemmer bool) Option {
	return func(o *options) { o.useStemmer = useStemmer }
}

// Compute returns ROUGE scores for a single target and prediction pair.
// Compute returns an empty map when no ROUGE types are configured.
func Compute(ctx context.Context, target, prediction string, opt ...Option) (map[string]Score, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts := &options{}
	for _, o := range opt {
		o(opts)
	}
	targetTokens := tokenize(target, opts.useStemmer)
	predTokens := tokenize(prediction, opts.useStemmer)

	result := make(map[string]Score, len(opts.rougeTypes))
	for _, rougeType := range opts.rougeTypes {
		switch {
		case rougeType == "rougeL":
			result[rougeType] = scoreLCS(targetTokens, predTokens)
		case strings.HasPrefix(rougeType, "rouge"):
			n, err := parseRougeN(rougeType)
			if err != nil {
				return nil, err
			}
			result[rougeType] = scoreNGrams(targetTokens, predTokens, n)
		default:
			return nil, fmt.Errorf("invalid rouge type: %s", rougeType)
		}
	}
	return result, nil
}

// parseRougeN parses a ROUGE-N type string and returns the N value.
func parseRougeN(rougeType string) (int, error) {
	nStr := strings.TrimPrefix(rougeType, "rouge")
	n, err := strconv.Atoi(nStr)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid rouge type: %s", rougeType)
	}
	return n, nil
}

// scoreNGrams computes ROUGE-N precision, recall, and F-measure for tokenized inputs.
func scoreNGrams(targetTokens, predTokens []string, n int) Score {
	if len(targetTokens) == 0 || len(predTokens) == 0 {
		return Score{}
	}
	targetNGrams := countNGrams(targetTokens, n)
	predNGrams := countNGrams(predTokens, n)

	var intersection, targetCount, predCount int
	for key, cnt := range targetNGrams {
		targetCount += cnt
		if predCnt, ok := predNGrams[key]; ok {
			intersection += min(cnt, predCnt)
		}
	}
	for _, cnt := range predNGrams {
		predCount += cnt
	}
	if targetCount == 0 || predCount == 0 {
		return Score{}
	}
	precision := float64(intersection) / float64(predCount)
	recall := float64(intersection) / float64(targetCount)
	return Score{Precision: precision, Recall: recall, FMeasure: fMeasure(precision, recall)}
}

// countNGrams counts the n-grams of a token list.
func countNGrams(tokens []string, n int) map[string]int {
	counts := make(map[string]int)
	for i := 0; i+n <= len(tokens); i++ {
		counts[strings.Join(tokens[i:i+n], " ")]++
	}
	return counts
}

// scoreLCS computes ROUGE-L from the longest common subsequence of the token lists.
func scoreLCS(targetTokens, predTokens []string) Score {
	if len(targetTokens) == 0 || len(predTokens) == 0 {
		return Score{}
	}
	lcs := lcsLength(targetTokens, predTokens)
	precision := float64(lcs) / float64(len(predTokens))
	recall := float64(lcs) / float64(len(targetTokens))
	return Score{Precision: precision, Recall: recall, FMeasure: fMeasure(precision, recall)}
}

// lcsLength computes the longest common subsequence length with a rolling row.
func lcsLength(a, b []string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
