//
// Tencent is pleased to support the open source community by making trpc-evalbench-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-evalbench-go is licensed under the Apache License Version 2.0.
//
//

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the evalbench server configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Mongo      MongoConfig      `yaml:"mongo"`
	Similarity SimilarityConfig `yaml:"similarity"`
	Endpoint   EndpointConfig   `yaml:"endpoint"`
	Report     ReportConfig     `yaml:"report"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// MongoConfig configures the durable record store. An empty URI selects the
// in-memory managers, useful for local runs.
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// SimilarityConfig configures the remote semantic scorer.
type SimilarityConfig struct {
	BaseURL string `yaml:"base_url"`
}

// EndpointConfig configures where model requests are sent. BaseURL is joined
// with the model id to form the target URL.
type EndpointConfig struct {
	BaseURL string `yaml:"base_url"`
}

// ReportConfig configures spreadsheet artifact generation.
type ReportConfig struct {
	Dir string `yaml:"dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// loadConfig reads and parses the YAML configuration file.
func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	return cfg, nil
}
