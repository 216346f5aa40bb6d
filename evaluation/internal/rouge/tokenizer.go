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
	"regexp"
	"strings"
)

var (
	// nonAlphaNumRE matches one or more non-alphanumeric characters for normalization.
	nonAlphaNumRE = regexp.MustCompile(`[^a-z0-9]+`)
	// spacesRE matches one or more whitespace characters for token splitting.
	spacesRE = regexp.MustCompile(`\s+`)
	// validTokenRE matches a token consisting only of lowercase ASCII letters and digits.
	validTokenRE = regexp.MustCompile(`^[a-z0-9]+$`)
)

// tokenize lowercases, normalizes punctuation, splits on whitespace, and
// optionally applies Porter stemming to tokens longer than 3 characters.
func tokenize(text string, useStemmer bool) []string {
	text = strings.ToLower(text)
	text = nonAlphaNumRE.ReplaceAllString(text, " ")

	parts := spacesRE.Split(text, -1)
	tokens := make([]string, 0, len(parts))
	for _, token := range parts {
		if token == "" || !validTokenRE.MatchString(token) {
			continue
		}
		if useStemmer && len(token) > 3 {
			token = porterStem(token)
		}
		if token == "" {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}
