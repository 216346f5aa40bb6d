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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/record"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/similarity"
)

func TestPairsFromModelResult(t *testing.T) {
	mr := record.ModelResult{
		ModelID: "m1",
		Groups: []record.GroupResult{{
			Name: "Payload1",
			Rows: []record.Row{
				{Response: "  hello ", Answer: "hello"},
				{Response: "", Answer: ""},
				{Response: "only prediction", Answer: ""},
			},
		}},
	}
	pairs := PairsFromModelResult(mr)
	require.Len(t, pairs, 2)
	assert.Equal(t, "hello", pairs[0].Prediction)
	assert.Equal(t, "hello", pairs[0].Reference)
}

func TestClassifyScore(t *testing.T) {
	assert.Equal(t, ClassTruePositive, classifyScore(95))
	assert.Equal(t, ClassTruePositive, classifyScore(90))
	assert.Equal(t, ClassFalsePositive, classifyScore(70))
	assert.Equal(t, ClassFalsePositive, classifyScore(51))
	assert.Equal(t, ClassFalseNegative, classifyScore(30))
	assert.Equal(t, ClassFalseNegative, classifyScore(11))
	assert.Equal(t, ClassTrueNegative, classifyScore(5))
	assert.Equal(t, ClassTrueNegative, classifyScore(0))
	assert.Equal(t, ClassUnknown, classifyScore(-1))
	assert.Equal(t, ClassUnknown, classifyScore(101))
}

func TestExactMatchScore(t *testing.T) {
	score := exactMatchScore([]string{"a", "b"}, []string{"a", "c"})
	assert.InDelta(t, 50.0, score, 1e-9)

	assert.Zero(t, exactMatchScore(nil, nil))
}

func TestExactMatchReport(t *testing.T) {
	report := exactMatch([]Pair{
		{Prediction: "Hello World", Reference: "hello world"},
		{Prediction: "no", Reference: "yes"},
	})
	matrix := report["confusion_matrix"].(map[string]int)
	assert.Equal(t, 1, matrix[ClassTruePositive])
	assert.Equal(t, 1, matrix[ClassTrueNegative])
	assert.InDelta(t, 50.0, report["score"].(float64), 1e-9)
}

func TestConfusionReportDerivations(t *testing.T) {
	// 2 TP, 1 FP, 1 FN.
	report := confusionReport([]float64{95, 92, 60, 20})
	assert.InDelta(t, 2.0/3.0, report["precision"].(float64), 1e-9)
	assert.InDelta(t, 2.0/3.0, report["recall"].(float64), 1e-9)
	assert.InDelta(t, 2.0/3.0, report["f1"].(float64), 1e-9)
	assert.InDelta(t, 0.5, report["accuracy"].(float64), 1e-9)
}

func TestCalculateUnknownMetricFailsWhole(t *testing.T) {
	engine := NewEngine()
	pairs := []Pair{{Prediction: "a", Reference: "a"}}
	results, err := engine.Calculate(context.Background(), []string{MetricExactMatch, "Bogus Metric"}, pairs)
	require.Error(t, err)
	assert.Nil(t, results)
	assert.Contains(t, err.Error(), "Bogus Metric")
}

func TestCalculateCosineWithoutScorerFails(t *testing.T) {
	engine := NewEngine()
	_, err := engine.Calculate(context.Background(), []string{MetricCosineSimilarity}, nil)
	require.Error(t, err)
}

type stubScorer struct {
	score float64
	bert  similarity.BERTScore
}

func (s *stubScorer) Score(ctx context.Context, prediction, reference string) (float64, error) {
	return s.score, nil
}

func (s *stubScorer) ScoreBERT(ctx context.Context, prediction, reference string) (*similarity.BERTScore, error) {
	b := s.bert
	return &b, nil
}

func TestCosineSimilarityUsesScorer(t *testing.T) {
	engine := NewEngine(WithScorer(&stubScorer{score: 95}))
	results, err := engine.Calculate(context.Background(), []string{MetricCosineSimilarity},
		[]Pair{{Prediction: "a", Reference: "b"}})
	require.NoError(t, err)
	report := results[MetricCosineSimilarity].(map[string]any)
	matrix := report["confusion_matrix"].(map[string]int)
	assert.Equal(t, 1, matrix[ClassTruePositive])
	assert.InDelta(t, 95.0, report["score"].(float64), 1e-9)
}

func TestBERTScoreRescaled(t *testing.T) {
	engine := NewEngine(WithScorer(&stubScorer{
		bert: similarity.BERTScore{Precision: 0.915, Recall: 0.915, F1: 0.915},
	}))
	results, err := engine.Calculate(context.Background(), []string{MetricBERTScore},
		[]Pair{{Prediction: "a", Reference: "b"}})
	require.NoError(t, err)
	report := results[MetricBERTScore].(map[string]float64)
	assert.InDelta(t, 0.5, report["f1"], 1e-9)
}

func TestBleuScoresIdenticalSentences(t *testing.T) {
	pairs := []Pair{{Prediction: "the cat sat on the mat", Reference: "the cat sat on the mat"}}
	scores := bleuScores(pairs)
	assert.Greater(t, scores["bleu_1"], 0.9)
	assert.Greater(t, scores["bleu_4"], 0.9)
}

func TestBleuScoresDisjointSentences(t *testing.T) {
	pairs := []Pair{{Prediction: "alpha beta gamma delta", Reference: "one two three four"}}
	scores := bleuScores(pairs)
	assert.Less(t, scores["bleu_1"], 0.5)
}

func TestMeteorScoreOrdering(t *testing.T) {
	identical := meteorScore([]Pair{{Prediction: "the quick brown fox", Reference: "the quick brown fox"}})
	disjoint := meteorScore([]Pair{{Prediction: "alpha beta", Reference: "one two"}})
	assert.Greater(t, identical, disjoint)
	assert.InDelta(t, 0.0, disjoint, 1e-9)
}

func TestRelevanceErrorRate(t *testing.T) {
	pairs := []Pair{
		{Prediction: "the cat sat on the mat", Reference: "the cat sat on the mat"},
		{Prediction: "alpha beta gamma", Reference: "one two three"},
	}
	rate := relevanceErrorRate(pairs)
	assert.InDelta(t, 0.5, rate, 1e-9)
}

func TestRankingMetrics(t *testing.T) {
	// Reference found at rank 1 of the parsed candidate list.
	hit := []Pair{{Prediction: `["right answer", "other"]`, Reference: "right answer"}}
	assert.InDelta(t, 1.0, mrrScore(hit, defaultMRRCutoff), 1e-9)
	assert.InDelta(t, 1.0, ndcgScore(hit, defaultNDCGCutoff), 1e-9)

	// Reference at rank 2: MRR contribution 1/2.
	second := []Pair{{Prediction: "other\nright answer", Reference: "right answer"}}
	assert.InDelta(t, 0.5, mrrScore(second, defaultMRRCutoff), 1e-9)

	// Reference outside the cutoff scores zero.
	miss := []Pair{{Prediction: "a\nb\nc\nd", Reference: "zzz"}}
	assert.InDelta(t, 0.0, mrrScore(miss, defaultMRRCutoff), 1e-9)
}

func TestMultiClassF1PerfectPredictions(t *testing.T) {
	pairs := []Pair{
		{Prediction: "cat", Reference: "cat"},
		{Prediction: "dog", Reference: "dog"},
		{Prediction: "cat", Reference: "cat"},
	}
	report := multiClassF1(pairs)
	assert.InDelta(t, 1.0, report["micro_f1"], 1e-9)
	assert.InDelta(t, 1.0, report["macro_f1"], 1e-9)
	assert.InDelta(t, 1.0, report["weighted_f1"], 1e-9)
	assert.InDelta(t, 1.0, report["mcc"], 1e-9)
}

func TestMultiClassF1Mixed(t *testing.T) {
	pairs := []Pair{
		{Prediction: "cat", Reference: "cat"},
		{Prediction: "dog", Reference: "cat"},
		{Prediction: "dog", Reference: "dog"},
		{Prediction: "cat", Reference: "dog"},
	}
	report := multiClassF1(pairs)
	assert.InDelta(t, 0.5, report["micro_f1"], 1e-9)
}

func TestSupportedMetrics(t *testing.T) {
	names := SupportedMetrics()
	assert.Contains(t, names, MetricBLEU)
	assert.Contains(t, names, MetricExactMatch)
	assert.Len(t, names, 11)
}
