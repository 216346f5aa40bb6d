//
// Tencent is pleased to support the open source community by making trpc-evalbench-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-evalbench-go is licensed under the Apache License Version 2.0.
//
//

package rouge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeIdenticalText(t *testing.T) {
	scores, err := Compute(context.Background(), "the cat sat on the mat", "the cat sat on the mat",
		WithRougeTypes("rouge1", "rouge2", "rougeL"))
	require.NoError(t, err)
	for _, typ := range []string{"rouge1", "rouge2", "rougeL"} {
		assert.InDelta(t, 1.0, scores[typ].Precision, 1e-9, typ)
		assert.InDelta(t, 1.0, scores[typ].Recall, 1e-9, typ)
		assert.InDelta(t, 1.0, scores[typ].FMeasure, 1e-9, typ)
	}
}

func TestComputeDisjointText(t *testing.T) {
	scores, err := Compute(context.Background(), "alpha beta gamma", "delta epsilon zeta",
		WithRougeTypes("rouge1", "rougeL"))
	require.NoError(t, err)
	assert.Zero(t, scores["rouge1"].FMeasure)
	assert.Zero(t, scores["rougeL"].FMeasure)
}

func TestComputePartialOverlap(t *testing.T) {
	scores, err := Compute(context.Background(), "the quick brown fox", "the slow brown fox",
		WithRougeTypes("rouge1"))
	require.NoError(t, err)
	// 3 of 4 unigrams match on both sides.
	assert.InDelta(t, 0.75, scores["rouge1"].Precision, 1e-9)
	assert.InDelta(t, 0.75, scores["rouge1"].Recall, 1e-9)
}

func TestComputeLCSRespectsOrder(t *testing.T) {
	scores, err := Compute(context.Background(), "a b c d", "d c b a", WithRougeTypes("rougeL"))
	require.NoError(t, err)
	// Any single token is the longest common subsequence.
	assert.InDelta(t, 0.25, scores["rougeL"].Recall, 1e-9)
}

func TestComputeStemmer(t *testing.T) {
	without, err := Compute(context.Background(), "running jumps", "run jump", WithRougeTypes("rouge1"))
	require.NoError(t, err)
	with, err := Compute(context.Background(), "running jumps", "run jump",
		WithRougeTypes("rouge1"), WithStemmer(true))
	require.NoError(t, err)
	assert.Greater(t, with["rouge1"].FMeasure, without["rouge1"].FMeasure)
}

func TestComputeInvalidType(t *testing.T) {
	_, err := Compute(context.Background(), "a", "a", WithRougeTypes("rougeX"))
	require.Error(t, err)

	_, err = Compute(context.Background(), "a", "a", WithRougeTypes("bleu"))
	require.Error(t, err)
}

func TestComputeEmptyInputs(t *testing.T) {
	scores, err := Compute(context.Background(), "", "something", WithRougeTypes("rouge1", "rougeL"))
	require.NoError(t, err)
	assert.Zero(t, scores["rouge1"].FMeasure)
	assert.Zero(t, scores["rougeL"].FMeasure)
}
