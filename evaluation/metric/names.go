//
// Tencent is pleased to support the open source community by making trpc-evalbench-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-evalbench-go is licensed under the Apache License Version 2.0.
//
//

package metric

// Supported metric names. The metric set is a closed, named list.
const (
	MetricBLEU             = "BLEU Score"
	MetricROUGE            = "ROUGE Score"
	MetricMETEOR           = "METEOR"
	MetricMultiClassF1     = "Multi-Class F1"
	MetricBERTScore        = "BERT Score"
	MetricRER              = "RER"
	MetricNDCG             = "NDCG"
	MetricMAP              = "MAP"
	MetricMRR              = "MRR"
	MetricCosineSimilarity = "Cosine Similarity"
	MetricExactMatch       = "Exact Match"
)

// SupportedMetrics lists every metric name the engine can compute.
func SupportedMetrics() []string {
	return []string{
		MetricBLEU,
		MetricROUGE,
		MetricMETEOR,
		MetricMultiClassF1,
		MetricBERTScore,
		MetricRER,
		MetricNDCG,
		MetricMAP,
		MetricMRR,
		MetricCosineSimilarity,
		MetricExactMatch,
	}
}
