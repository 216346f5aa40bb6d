//
// Tencent is pleased to support the open source community by making trpc-evalbench-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-evalbench-go is licensed under the Apache License Version 2.0.
//
//

// Package textutil provides shared text helpers for the metric implementations.
package textutil

import (
	"regexp"
	"strings"
)

var (
	// nonAlphaNumRE matches one or more non-alphanumeric characters for normalization.
	nonAlphaNumRE = regexp.MustCompile(`[^a-z0-9]+`)
	// spacesRE matches one or more whitespace characters for token splitting.
	spacesRE = regexp.MustCompile(`\s+`)
)

// Tokenize lowercases the text, replaces punctuation with spaces, and splits on
// whitespace.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	text = nonAlphaNumRE.ReplaceAllString(text, " ")
	parts := spacesRE.Split(strings.TrimSpace(text), -1)
	tokens := make([]string, 0, len(parts))
	for _, token := range parts {
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// Normalize lowercases and collapses whitespace and punctuation, for
// whole-string comparison.
func Normalize(text string) string {
	return strings.Join(Tokenize(text), " ")
}

// NGrams counts the n-grams of a token list.
func NGrams(tokens []string, n int) map[string]int {
	counts := make(map[string]int)
	if n <= 0 || len(tokens) < n {
		return counts
	}
	for i := 0; i+n <= len(tokens); i++ {
		counts[strings.Join(tokens[i:i+n], " ")]++
	}
	return counts
}

// Jaccard computes the word-overlap similarity of two texts in [0, 1].
func Jaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	intersection := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, token := range Tokenize(text) {
		set[token] = struct{}{}
	}
	return set
}
