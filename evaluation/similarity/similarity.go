//
// Tencent is pleased to support the open source community by making trpc-evalbench-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-evalbench-go is licensed under the Apache License Version 2.0.
//
//

// Package similarity provides the client for the remote semantic scoring service.
// The metric engine delegates cosine-similarity and BERT-score computation to it.
package similarity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultAttempts = 3
	scorePath       = "/accelerator/server/similarity"
	bertScorePath   = "/accelerator/server/bertscore"
)

// BERTScore holds the precision, recall, and F1 returned by the semantic scorer.
type BERTScore struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// Scorer scores a prediction against a reference using a semantic model.
type Scorer interface {
	// Score returns a similarity score in [0, 100].
	Score(ctx context.Context, prediction, reference string) (float64, error)
	// ScoreBERT returns BERT-score precision/recall/F1 in [0, 1].
	ScoreBERT(ctx context.Context, prediction, reference string) (*BERTScore, error)
}

// Client is an HTTP Scorer with its own timeout and retry policy, independent
// of the load driver's.
type Client struct {
	baseURL    string
	httpClient *http.Client
	attempts   uint
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithAttempts sets the number of attempts per score call.
func WithAttempts(attempts uint) ClientOption {
	return func(cl *Client) {
		if attempts > 0 {
			cl.attempts = attempts
		}
	}
}

// NewClient creates a scoring-service client.
func NewClient(baseURL string, opt ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("similarity: base URL is empty")
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		attempts:   defaultAttempts,
	}
	for _, o := range opt {
		o(c)
	}
	return c, nil
}

// Score implements Scorer.Score.
func (c *Client) Score(ctx context.Context, prediction, reference string) (float64, error) {
	var resp struct {
		Score float64 `json:"score"`
	}
	if err := c.post(ctx, scorePath, prediction, reference, &resp); err != nil {
		return 0, err
	}
	return resp.Score, nil
}

// ScoreBERT implements Scorer.ScoreBERT.
func (c *Client) ScoreBERT(ctx context.Context, prediction, reference string) (*BERTScore, error) {
	resp := &BERTScore{}
	if err := c.post(ctx, bertScorePath, prediction, reference, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, path, prediction, reference string, out any) error {
	body, err := json.Marshal(map[string]string{
		"prediction": prediction,
		"reference":  reference,
	})
	if err != nil {
		return fmt.Errorf("similarity: marshal request: %w", err)
	}
	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("similarity: build request: %w", err)
			}
			req.Header.Set("Content-Type", "application/json")
			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("similarity: call scoring service: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("similarity: scoring service returned status %d", resp.StatusCode)
			}
			data, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("similarity: read response: %w", err)
			}
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("similarity: decode response: %w", err)
			}
			return nil
		},
		retry.Attempts(c.attempts),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
}
