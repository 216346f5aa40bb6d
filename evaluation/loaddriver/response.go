//
// Tencent is pleased to support the open source community by making trpc-evalbench-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-evalbench-go is licensed under the Apache License Version 2.0.
//
//

package loaddriver

import (
	"encoding/json"
	"regexp"
	"strings"

	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/status"
)

// assistantRE extracts the answer wrapped with the assistant sentinel marker
// in raw LLM endpoint output.
var assistantRE = regexp.MustCompile(`(?s)<ASSISTANT>:\s*(.*)`)

// ParseResponse extracts the model answer from a raw endpoint response body.
// Bodies are JSON objects carrying the text under "response" (or
// "transcription" for STT); a non-JSON body is taken verbatim. For LLM and RAG
// services the assistant sentinel marker is stripped.
func ParseResponse(body []byte, service status.ConfigType) string {
	text := string(body)
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err == nil {
		if v, ok := parsed["response"].(string); ok {
			text = v
		} else if v, ok := parsed["transcription"].(string); ok {
			text = v
		}
	}
	if service == status.ConfigTypeLLM || service == status.ConfigTypeRAG {
		return ExtractAssistant(text)
	}
	return strings.TrimSpace(text)
}

// ExtractAssistant strips the "<ASSISTANT>:" sentinel and returns the marked
// substring. Text without the marker is returned trimmed.
func ExtractAssistant(text string) string {
	if m := assistantRE.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}
